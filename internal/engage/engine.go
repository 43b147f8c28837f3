package engage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"fanpulse/internal/model"
	"fanpulse/internal/pkg/lock"
)

// Options wires the engine's external collaborators and policy knobs.
type Options struct {
	API            API
	KV             KV
	Surface        PaymentSurface
	Session        SessionSource
	RequiredShares int
	AllowGateReset bool
	MinVoteAmount  int64
	MaxVoteAmount  int64
	PaymentReason  string
	OnOutcome      func(Outcome)
	Logger         zerolog.Logger
}

// Engine ties the gated-action components together: one entry point per
// feature plus draft resumption and the payment event hook.
type Engine struct {
	drafts     *DraftStore
	gate       *GateTracker
	resolver   *Resolver
	correlator *Correlator
	listener   *Listener
	exec       *Executor
	minAmount  int64
	maxAmount  int64
	log        zerolog.Logger
}

// New builds an engine from its collaborators.
func New(opts Options) *Engine {
	locks := lock.New()
	drafts := NewDraftStore(opts.KV)
	gate := NewGateTracker(
		NewServerProgress(opts.API, opts.RequiredShares),
		NewGuestProgress(opts.KV, opts.RequiredShares, locks),
		opts.AllowGateReset,
	)
	resolver := NewResolver(opts.Session, opts.KV, drafts, opts.Logger)
	exec := NewExecutor(opts.API, drafts, opts.KV, opts.Logger)
	correlator := NewCorrelator(opts.API, opts.Surface, opts.PaymentReason, opts.Logger)
	listener := NewListener(correlator, exec, opts.OnOutcome, opts.Logger)

	return &Engine{
		drafts:     drafts,
		gate:       gate,
		resolver:   resolver,
		correlator: correlator,
		listener:   listener,
		exec:       exec,
		minAmount:  opts.MinVoteAmount,
		maxAmount:  opts.MaxVoteAmount,
		log:        opts.Logger,
	}
}

// ValidateContact checks a phone number or email address.
func ValidateContact(contact string) error {
	if strings.TrimSpace(contact) == "" {
		return &ValidationError{Field: "contact", Reason: "required"}
	}
	if !model.ValidContact(contact) {
		return &ValidationError{Field: "contact", Reason: "must be a phone number or email"}
	}
	return nil
}

func validateScores(scoreA, scoreB int) error {
	if !model.ValidScore(scoreA) {
		return &ValidationError{Field: "score_a", Reason: fmt.Sprintf("must be between 0 and %d", model.MaxScore)}
	}
	if !model.ValidScore(scoreB) {
		return &ValidationError{Field: "score_b", Reason: fmt.Sprintf("must be between 0 and %d", model.MaxScore)}
	}
	return nil
}

// SubmitPrediction attempts to record a score guess. When the share gate is
// not yet satisfied the payload is drafted durably, no server call is made,
// and ErrGateLocked is returned alongside the current progress.
func (e *Engine) SubmitPrediction(ctx context.Context, matchID string, scoreA, scoreB int, contact string) (model.PredictionRecord, model.GateProgress, error) {
	if matchID == "" {
		return model.PredictionRecord{}, model.GateProgress{}, &ValidationError{Field: "match_id", Reason: "required"}
	}
	if err := validateScores(scoreA, scoreB); err != nil {
		return model.PredictionRecord{}, model.GateProgress{}, err
	}
	if err := ValidateContact(contact); err != nil {
		return model.PredictionRecord{}, model.GateProgress{}, err
	}

	actor, err := e.resolver.ResolveForEntity(ctx, model.FeaturePrediction, matchID)
	if err != nil {
		return model.PredictionRecord{}, model.GateProgress{}, err
	}

	prog, err := e.gate.Progress(ctx, actor)
	if err != nil {
		return model.PredictionRecord{}, model.GateProgress{}, err
	}

	if !prog.Satisfied() {
		fields := map[string]any{
			"score_a": scoreA,
			"score_b": scoreB,
			"contact": contact,
		}
		if err := e.drafts.Save(ctx, model.FeaturePrediction, actor, matchID, fields); err != nil {
			return model.PredictionRecord{}, prog, err
		}
		e.log.Info().
			Str("match_id", matchID).
			Int("current", prog.Current).
			Int("required", prog.Required).
			Msg("Prediction drafted; gate not satisfied")
		return model.PredictionRecord{}, prog, ErrGateLocked
	}

	rec, err := e.exec.SubmitPrediction(ctx, actor, matchID, scoreA, scoreB, contact)
	return rec, prog, err
}

// RecordShare counts one share invocation. The share sheet offers no
// completion signal, so the gate increments optimistically on invocation.
// When the increment satisfies the gate and a draft is pending, the draft
// is submitted exactly once.
func (e *Engine) RecordShare(ctx context.Context, matchID string) (model.GateProgress, *model.PredictionRecord, error) {
	actor, err := e.resolver.Resolve(ctx)
	if err != nil {
		return model.GateProgress{}, nil, err
	}

	prog, err := e.gate.Increment(ctx, actor)
	if err != nil {
		return model.GateProgress{}, nil, err
	}
	e.log.Info().
		Str("actor", actor.Key()).
		Int("current", prog.Current).
		Int("required", prog.Required).
		Msg("Share recorded")

	if !prog.Satisfied() {
		return prog, nil, nil
	}

	rec, err := e.resumePrediction(ctx, actor, matchID)
	return prog, rec, err
}

// ResumePending is called on startup or screen focus: if a draft survived a
// restart and the gate is satisfied, it is submitted; otherwise nothing
// happens. Re-entering the screen with no draft performs no submission.
func (e *Engine) ResumePending(ctx context.Context, matchID string) (*model.PredictionRecord, error) {
	actor, err := e.resolver.ResolveForEntity(ctx, model.FeaturePrediction, matchID)
	if err != nil {
		return nil, err
	}

	prog, err := e.gate.Progress(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !prog.Satisfied() {
		return nil, nil
	}
	return e.resumePrediction(ctx, actor, matchID)
}

func (e *Engine) resumePrediction(ctx context.Context, actor model.Actor, matchID string) (*model.PredictionRecord, error) {
	d, ok, err := e.drafts.Load(ctx, model.FeaturePrediction, actor, matchID)
	if err != nil || !ok {
		return nil, err
	}

	rec, err := e.exec.SubmitPrediction(ctx, actor,
		matchID,
		intField(d.Fields, "score_a"),
		intField(d.Fields, "score_b"),
		stringField(d.Fields, "contact"),
	)
	if err != nil {
		// Draft stays put; the next share or focus retries.
		return nil, err
	}
	return &rec, nil
}

// CastVote starts a payment-gated vote: the payload is drafted for retry,
// an intent is minted and the payment surface opens. Control returns
// immediately; completion arrives through HandlePaymentEvent.
func (e *Engine) CastVote(ctx context.Context, contestID, candidateID string, amount int64, contact string) (*Attempt, error) {
	if contestID == "" {
		return nil, &ValidationError{Field: "contest_id", Reason: "required"}
	}
	if candidateID == "" {
		return nil, &ValidationError{Field: "candidate_id", Reason: "required"}
	}
	if amount < e.minAmount || (e.maxAmount > 0 && amount > e.maxAmount) {
		return nil, &ValidationError{
			Field:  "amount",
			Reason: fmt.Sprintf("must be between %d and %d", e.minAmount, e.maxAmount),
		}
	}
	if err := ValidateContact(contact); err != nil {
		return nil, err
	}

	actor, err := e.resolver.ResolveForEntity(ctx, model.FeatureVote, contestID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"candidate_id": candidateID,
		"amount":       amount,
		"contact":      contact,
	}
	if err := e.drafts.Save(ctx, model.FeatureVote, actor, contestID, fields); err != nil {
		return nil, err
	}

	return e.correlator.Begin(ctx, actor, contestID, candidateID, contact, amount)
}

// HandlePaymentEvent feeds one provider event into the confirmation
// listener. Safe to call from the event feed goroutine.
func (e *Engine) HandlePaymentEvent(ctx context.Context, ev model.PaymentEvent) {
	e.listener.HandleEvent(ctx, ev)
}

// VoteDraft returns the preserved vote draft for a contest so a retry
// prompt can reuse already-entered data.
func (e *Engine) VoteDraft(ctx context.Context, contestID string) (model.Draft, bool, error) {
	actor, err := e.resolver.Resolve(ctx)
	if err != nil {
		return model.Draft{}, false, err
	}
	return e.drafts.Load(ctx, model.FeatureVote, actor, contestID)
}

// GateProgress returns the current actor's share-gate progress.
func (e *Engine) GateProgress(ctx context.Context) (model.GateProgress, error) {
	actor, err := e.resolver.Resolve(ctx)
	if err != nil {
		return model.GateProgress{}, err
	}
	return e.gate.Progress(ctx, actor)
}

// ResetGate zeroes the current actor's gate counter. Debug builds only;
// returns ErrResetDisabled otherwise.
func (e *Engine) ResetGate(ctx context.Context) error {
	actor, err := e.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	return e.gate.Reset(ctx, actor)
}

func intField(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		// JSON round-trips numbers as float64.
		return int(v)
	default:
		return 0
	}
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// Int64Field reads a numeric draft field; exported for surface layers that
// rebuild retry prompts from a preserved draft.
func Int64Field(fields map[string]any, key string) int64 {
	switch v := fields[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
