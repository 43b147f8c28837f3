package engage

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"fanpulse/internal/model"
)

// OutcomeKind classifies what the surface layer should show the user.
type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota
	OutcomeFailed
	OutcomePending
)

// Outcome is the user-visible result of a confirmation event. On failure
// the draft is left intact so the retry path reuses already-entered data.
type Outcome struct {
	Kind          OutcomeKind
	IntentID      string
	TransactionID string
	Reason        string
	Vote          *model.VoteRecord
	Err           error
}

// Listener consumes the payment provider's asynchronous success, failure
// and pending events and drives the per-attempt state machine. It stays
// registered across navigation; a handler error must never unregister it.
type Listener struct {
	correlator *Correlator
	exec       *Executor
	onOutcome  func(Outcome)
	log        zerolog.Logger
}

// NewListener creates a confirmation listener. onOutcome may be nil.
func NewListener(correlator *Correlator, exec *Executor, onOutcome func(Outcome), log zerolog.Logger) *Listener {
	if onOutcome == nil {
		onOutcome = func(Outcome) {}
	}
	return &Listener{correlator: correlator, exec: exec, onOutcome: onOutcome, log: log}
}

// HandleEvent processes one provider event. Delivery order is not assumed,
// nor that exactly one event fires per attempt; duplicates and replays are
// made safe by idempotent submission rather than sequencing.
func (l *Listener) HandleEvent(ctx context.Context, ev model.PaymentEvent) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Msg("Recovered confirmation handler panic")
		}
	}()

	if ev.PartnerRef == "" {
		// Never assume success without a correlation id.
		l.log.Error().
			Str("transaction_id", ev.TransactionID).
			Str("status", string(ev.Status)).
			Msg("Confirmation event without correlation reference")
		l.onOutcome(Outcome{Kind: OutcomeFailed, TransactionID: ev.TransactionID, Err: ErrMissingCorrelation})
		return
	}

	att, ok := l.correlator.Lookup(ev.PartnerRef)
	if !ok {
		// A token we never minted, or a superseded attempt's late event.
		l.log.Warn().
			Str("partner_ref", ev.PartnerRef).
			Str("status", string(ev.Status)).
			Msg("Uncorrelated confirmation event ignored")
		return
	}

	switch ev.Status {
	case model.PaymentPending:
		att.setState(StateIndeterminate)
		l.log.Info().Str("intent_id", att.Intent.ID).Msg("Payment pending; awaiting definitive event")
		l.onOutcome(Outcome{Kind: OutcomePending, IntentID: att.Intent.ID, TransactionID: ev.TransactionID})

	case model.PaymentFailed:
		att.setState(StateFailed)
		l.correlator.Release(att.Intent.ID)
		l.log.Info().
			Str("intent_id", att.Intent.ID).
			Str("reason", ev.Reason).
			Msg("Payment failed; draft preserved for retry")
		l.onOutcome(Outcome{
			Kind:          OutcomeFailed,
			IntentID:      att.Intent.ID,
			TransactionID: ev.TransactionID,
			Reason:        ev.Reason,
		})

	case model.PaymentSucceeded:
		l.succeed(ctx, att, ev)

	default:
		// An unknown status is not a success signal; leave the attempt
		// unresolved until a recognizable event arrives.
		att.setState(StateIndeterminate)
		l.log.Warn().
			Str("intent_id", att.Intent.ID).
			Str("status", string(ev.Status)).
			Msg("Unrecognized payment status")
	}
}

func (l *Listener) succeed(ctx context.Context, att *Attempt, ev model.PaymentEvent) {
	rec, err := l.exec.ConfirmVote(ctx, att, ev.TransactionID)
	if err != nil && !errors.Is(err, ErrAlreadyFinalized) {
		// Transient submit failure. Keep the attempt registered so a
		// redelivered success event can retry; the webhook settles the
		// server side regardless.
		att.setState(StateAwaiting)
		l.log.Error().Err(err).
			Str("intent_id", att.Intent.ID).
			Msg("Vote confirmation failed after successful payment")
		l.onOutcome(Outcome{
			Kind:          OutcomeFailed,
			IntentID:      att.Intent.ID,
			TransactionID: ev.TransactionID,
			Err:           err,
		})
		return
	}

	att.setState(StateSucceeded)
	l.correlator.Release(att.Intent.ID)

	// Best-effort reconciliation; the success path never blocks on it.
	l.exec.Verify(ctx, ev.TransactionID)

	l.onOutcome(Outcome{
		Kind:          OutcomeSucceeded,
		IntentID:      att.Intent.ID,
		TransactionID: ev.TransactionID,
		Vote:          &rec,
	})
}
