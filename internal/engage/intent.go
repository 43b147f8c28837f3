package engage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fanpulse/internal/model"
)

// AttemptState is the per-attempt confirmation state machine.
type AttemptState int

const (
	StateIdle AttemptState = iota
	StateAwaiting
	StateSucceeded
	StateFailed
	StateIndeterminate
)

func (s AttemptState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaiting:
		return "awaiting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateIndeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// Attempt is one in-flight payment-gated action. It lives in memory from
// intent creation until a definitive provider event releases it; the draft
// in durable storage covers process kills. The confirmation state is
// written by the event feed goroutine while the caller that started the
// attempt may still hold a reference, so access goes through State.
type Attempt struct {
	Intent    model.Intent
	Actor     model.Actor
	Contact   string
	CreatedAt time.Time

	mu    sync.Mutex
	state AttemptState
}

// State returns the attempt's confirmation state.
func (a *Attempt) State() AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Attempt) setState(s AttemptState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

// attemptTable maps correlation tokens to in-flight attempts.
type attemptTable struct {
	mu       sync.Mutex
	byIntent map[string]*Attempt
}

func newAttemptTable() *attemptTable {
	return &attemptTable{byIntent: make(map[string]*Attempt)}
}

func (t *attemptTable) put(a *Attempt) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byIntent[a.Intent.ID] = a
}

func (t *attemptTable) get(intentID string) (*Attempt, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.byIntent[intentID]
	return a, ok
}

func (t *attemptTable) remove(intentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byIntent, intentID)
}

// Correlator creates a server-side intent for an action requiring external
// payment confirmation and opens the payment surface with the intent ID as
// the opaque partner reference. A new attempt always mints a new intent, so
// a late event from a superseded attempt can never be misattributed.
type Correlator struct {
	api      API
	surface  PaymentSurface
	attempts *attemptTable
	reason   string
	log      zerolog.Logger
}

// NewCorrelator creates an intent correlator.
func NewCorrelator(api API, surface PaymentSurface, reason string, log zerolog.Logger) *Correlator {
	return &Correlator{
		api:      api,
		surface:  surface,
		attempts: newAttemptTable(),
		reason:   reason,
		log:      log,
	}
}

// Begin mints an intent and opens the payment surface. The surface is never
// opened when intent creation fails: paying against an unknown correlation
// must be impossible. Begin does not wait for the surface to close.
func (c *Correlator) Begin(ctx context.Context, actor model.Actor, contestID, candidateID, contact string, amount int64) (*Attempt, error) {
	intent, err := c.api.CreateVoteIntent(ctx, contestID, candidateID, actor.ID, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntentCreation, err)
	}
	if intent.ID == "" {
		return nil, fmt.Errorf("%w: server returned no intent id", ErrIntentCreation)
	}

	att := &Attempt{
		Intent:    intent,
		Actor:     actor,
		Contact:   contact,
		state:     StateAwaiting,
		CreatedAt: time.Now().UTC(),
	}
	c.attempts.put(att)

	inv := Invoice{
		Amount:       amount,
		Reason:       c.reason,
		PartnerRef:   intent.ID,
		PayerContact: contact,
	}
	if err := c.surface.Open(ctx, inv); err != nil {
		c.attempts.remove(intent.ID)
		return nil, fmt.Errorf("%w: open payment surface: %v", ErrIntentCreation, err)
	}

	c.log.Info().
		Str("intent_id", intent.ID).
		Str("contest_id", contestID).
		Str("candidate_id", candidateID).
		Int64("amount", amount).
		Msg("Payment surface opened")

	return att, nil
}

// Lookup resolves a correlation token to its in-flight attempt.
func (c *Correlator) Lookup(intentID string) (*Attempt, bool) {
	return c.attempts.get(intentID)
}

// Release drops an attempt from the in-memory table. A stale intent simply
// becomes unreachable; there is no timeout-driven cancellation.
func (c *Correlator) Release(intentID string) {
	c.attempts.remove(intentID)
}
