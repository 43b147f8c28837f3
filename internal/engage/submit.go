package engage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"fanpulse/internal/model"
)

// Executor performs the actual server mutation exactly once. It always
// passes any previously known record ID so the server short-circuits to
// "already recorded" instead of creating a duplicate, and it clears the
// draft the instant the server reports success.
type Executor struct {
	api    API
	drafts *DraftStore
	kv     KV
	log    zerolog.Logger
}

// NewExecutor creates a submission executor.
func NewExecutor(api API, drafts *DraftStore, kv KV, log zerolog.Logger) *Executor {
	return &Executor{api: api, drafts: drafts, kv: kv, log: log}
}

func recordKey(feature string, actor model.Actor, entityID string) string {
	return fmt.Sprintf("record:%s:%s:%s", feature, actor.Key(), entityID)
}

// SubmitPrediction submits a drafted score guess. On success the draft is
// cleared; for guests the record is also persisted locally, since a guest
// has no server session to re-fetch it from.
func (e *Executor) SubmitPrediction(ctx context.Context, actor model.Actor, matchID string, scoreA, scoreB int, contact string) (model.PredictionRecord, error) {
	req := model.PredictionRequest{
		MatchID:    matchID,
		ActorID:    actor.ID,
		ScoreA:     scoreA,
		ScoreB:     scoreB,
		Contact:    contact,
		ExistingID: e.knownPredictionID(ctx, actor, matchID),
	}

	rec, err := e.api.SubmitPrediction(ctx, req)
	if err != nil {
		if errors.Is(err, ErrAlreadyFinalized) {
			// Idempotent no-op: the server already holds the record.
			e.finishPrediction(ctx, actor, matchID, rec)
			return rec, nil
		}
		return model.PredictionRecord{}, err
	}

	e.finishPrediction(ctx, actor, matchID, rec)
	return rec, nil
}

func (e *Executor) finishPrediction(ctx context.Context, actor model.Actor, matchID string, rec model.PredictionRecord) {
	if err := e.drafts.Clear(ctx, model.FeaturePrediction, actor, matchID); err != nil {
		e.log.Warn().Err(err).Str("match_id", matchID).Msg("Failed to clear prediction draft")
	}
	if !actor.IsUser() && rec.ID != 0 {
		e.storeLocalRecord(ctx, model.FeaturePrediction, actor, matchID, rec)
	}
	e.log.Info().
		Str("match_id", matchID).
		Str("actor", actor.Key()).
		Int64("prediction_id", rec.ID).
		Msg("Prediction recorded")
}

// ConfirmVote records the vote for a confirmed payment. Repeat calls with
// the same correlation are no-ops on the server.
func (e *Executor) ConfirmVote(ctx context.Context, att *Attempt, transactionID string) (model.VoteRecord, error) {
	existing := e.knownVoteID(ctx, att.Actor, att.Intent.ContestID)

	rec, err := e.api.ConfirmVote(ctx, att.Intent.ID, transactionID, existing)
	if err != nil {
		if errors.Is(err, ErrAlreadyFinalized) {
			e.finishVote(ctx, att, rec)
			return rec, nil
		}
		return model.VoteRecord{}, err
	}

	e.finishVote(ctx, att, rec)
	return rec, nil
}

func (e *Executor) finishVote(ctx context.Context, att *Attempt, rec model.VoteRecord) {
	if err := e.drafts.Clear(ctx, model.FeatureVote, att.Actor, att.Intent.ContestID); err != nil {
		e.log.Warn().Err(err).Str("contest_id", att.Intent.ContestID).Msg("Failed to clear vote draft")
	}
	if !att.Actor.IsUser() && rec.ID != 0 {
		e.storeLocalRecord(ctx, model.FeatureVote, att.Actor, att.Intent.ContestID, rec)
	}
	e.log.Info().
		Str("contest_id", att.Intent.ContestID).
		Str("intent_id", att.Intent.ID).
		Int64("vote_id", rec.ID).
		Msg("Vote recorded")
}

// Verify is the reconciliation fallback: a best-effort secondary call after
// a client-observed success. The provider's server-to-server webhook is the
// authoritative settlement path, so failure here is logged and ignored.
func (e *Executor) Verify(ctx context.Context, transactionID string) {
	if err := e.api.VerifyPayment(ctx, transactionID); err != nil {
		e.log.Warn().Err(err).
			Str("transaction_id", transactionID).
			Msg("Payment verification failed; webhook will settle")
	}
}

func (e *Executor) storeLocalRecord(ctx context.Context, feature string, actor model.Actor, entityID string, rec any) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := e.kv.Set(ctx, recordKey(feature, actor, entityID), string(data)); err != nil {
		e.log.Warn().Err(err).Str("feature", feature).Msg("Failed to persist local record")
	}
}

// knownPredictionID returns the locally stored record ID for a guest's
// earlier submission. Users rely on the server's own uniqueness check.
func (e *Executor) knownPredictionID(ctx context.Context, actor model.Actor, matchID string) int64 {
	if actor.IsUser() {
		return 0
	}
	raw, ok, err := e.kv.Get(ctx, recordKey(model.FeaturePrediction, actor, matchID))
	if err != nil || !ok {
		return 0
	}
	var rec model.PredictionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return 0
	}
	return rec.ID
}

func (e *Executor) knownVoteID(ctx context.Context, actor model.Actor, contestID string) int64 {
	if actor.IsUser() {
		return 0
	}
	raw, ok, err := e.kv.Get(ctx, recordKey(model.FeatureVote, actor, contestID))
	if err != nil || !ok {
		return 0
	}
	var rec model.VoteRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return 0
	}
	return rec.ID
}

// LocalPrediction returns a guest's locally persisted prediction record.
func (e *Executor) LocalPrediction(ctx context.Context, actor model.Actor, matchID string) (model.PredictionRecord, bool) {
	raw, ok, err := e.kv.Get(ctx, recordKey(model.FeaturePrediction, actor, matchID))
	if err != nil || !ok {
		return model.PredictionRecord{}, false
	}
	var rec model.PredictionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return model.PredictionRecord{}, false
	}
	return rec, true
}
