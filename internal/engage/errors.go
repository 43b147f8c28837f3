// Package engage implements the gated-action submission engine: durable
// drafts, share gating, payment intent correlation and idempotent
// submission against the backend callable endpoints.
package engage

import (
	"errors"
	"fmt"
)

// Error taxonomy for gated actions. All of these are caught at the surface
// boundary and rendered as user-facing messages; none may crash the
// confirmation listener.
var (
	// ErrGateLocked means the precondition is not yet satisfied; the
	// payload has been drafted and the user should progress the gate.
	ErrGateLocked = errors.New("gate not satisfied")

	// ErrIntentCreation means the server could not mint a correlation
	// record; the payment surface was never opened.
	ErrIntentCreation = errors.New("intent creation failed")

	// ErrTransient is a network or server failure during submission.
	// The draft is preserved and the caller may retry.
	ErrTransient = errors.New("transient server error")

	// ErrAlreadyFinalized means the server already holds a record for
	// this action. Callers treat it as success.
	ErrAlreadyFinalized = errors.New("already finalized")

	// ErrMissingCorrelation is a confirmation event without a usable
	// reference. It is treated as failure, never silently accepted.
	ErrMissingCorrelation = errors.New("missing correlation")

	// ErrResetDisabled guards the debug-only gate reset path.
	ErrResetDisabled = errors.New("gate reset disabled")
)

// ValidationError rejects bad user input before any server call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a payload validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
