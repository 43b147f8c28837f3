package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"fanpulse/internal/model"
	"fanpulse/internal/repository"
)

// Prediction service errors.
var (
	ErrInvalidScore   = errors.New("invalid score")
	ErrInvalidContact = errors.New("invalid contact")
	ErrMissingMatch   = errors.New("match is required")
)

// PredictionService handles score-guess submissions. Submission is
// create-or-return-existing: a known record ID or an existing (match,
// actor) row short-circuits to the already-recorded prediction.
type PredictionService struct {
	predictions *repository.PredictionRepository
}

// NewPredictionService creates a new PredictionService instance.
func NewPredictionService(predictions *repository.PredictionRepository) *PredictionService {
	return &PredictionService{predictions: predictions}
}

// Submit validates and records a prediction. The second return reports
// whether a new record was created; false means the existing record was
// returned unchanged.
func (s *PredictionService) Submit(ctx context.Context, req model.PredictionRequest) (*model.PredictionRecord, bool, error) {
	if req.MatchID == "" {
		return nil, false, ErrMissingMatch
	}
	if req.ActorID == "" {
		return nil, false, ErrMissingActor
	}
	if !model.ValidScore(req.ScoreA) || !model.ValidScore(req.ScoreB) {
		return nil, false, fmt.Errorf("%w: scores must be between 0 and %d", ErrInvalidScore, model.MaxScore)
	}
	if !model.ValidContact(req.Contact) {
		return nil, false, fmt.Errorf("%w: must be a phone number or email", ErrInvalidContact)
	}

	// A known record ID is an explicit no-op request.
	if req.ExistingID != 0 {
		rec, err := s.predictions.GetByID(ctx, req.ExistingID)
		if err == nil {
			return rec, false, nil
		}
		if !errors.Is(err, repository.ErrPredictionNotFound) {
			return nil, false, err
		}
		// Stale local record id; fall through to create-or-get.
	}

	rec, created, err := s.predictions.CreateOrGet(ctx, req)
	if err != nil {
		return nil, false, err
	}

	log.Info().
		Str("match_id", req.MatchID).
		Str("actor_id", req.ActorID).
		Int64("prediction_id", rec.ID).
		Bool("created", created).
		Msg("Prediction submitted")

	return rec, created, nil
}

// Get returns the prediction for a (match, actor) pair, if any.
func (s *PredictionService) Get(ctx context.Context, matchID, actorID string) (*model.PredictionRecord, error) {
	return s.predictions.GetByActor(ctx, matchID, actorID)
}
