package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fanpulse/internal/model"
)

// PredictionRepository persists score guesses. UNIQUE (match_id, actor_id)
// enforces at most one prediction per actor per match; repeat submissions
// return the existing record untouched.
type PredictionRepository struct {
	pool *pgxpool.Pool
}

// NewPredictionRepository creates a new PredictionRepository instance.
func NewPredictionRepository(pool *pgxpool.Pool) *PredictionRepository {
	return &PredictionRepository{pool: pool}
}

// CreateOrGet records a prediction, or returns the existing record when the
// (match, actor) pair already has one. The second return reports whether a
// new record was created.
func (r *PredictionRepository) CreateOrGet(ctx context.Context, req model.PredictionRequest) (*model.PredictionRecord, bool, error) {
	const insert = `
		INSERT INTO predictions (match_id, actor_id, score_a, score_b, contact, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (match_id, actor_id) DO NOTHING
		RETURNING id, match_id, actor_id, score_a, score_b, contact, created_at
	`

	var rec model.PredictionRecord
	err := r.pool.QueryRow(ctx, insert, req.MatchID, req.ActorID, req.ScoreA, req.ScoreB, req.Contact).Scan(
		&rec.ID,
		&rec.MatchID,
		&rec.ActorID,
		&rec.ScoreA,
		&rec.ScoreB,
		&rec.Contact,
		&rec.CreatedAt,
	)
	if err == nil {
		return &rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create prediction: %w", err)
	}

	existing, err := r.GetByActor(ctx, req.MatchID, req.ActorID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByActor retrieves the prediction for a (match, actor) pair.
// Returns ErrPredictionNotFound if none exists.
func (r *PredictionRepository) GetByActor(ctx context.Context, matchID, actorID string) (*model.PredictionRecord, error) {
	const query = `
		SELECT id, match_id, actor_id, score_a, score_b, contact, created_at
		FROM predictions
		WHERE match_id = $1 AND actor_id = $2
	`

	var rec model.PredictionRecord
	err := r.pool.QueryRow(ctx, query, matchID, actorID).Scan(
		&rec.ID,
		&rec.MatchID,
		&rec.ActorID,
		&rec.ScoreA,
		&rec.ScoreB,
		&rec.Contact,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPredictionNotFound
		}
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return &rec, nil
}

// GetByID retrieves a prediction by its record identifier.
func (r *PredictionRepository) GetByID(ctx context.Context, id int64) (*model.PredictionRecord, error) {
	const query = `
		SELECT id, match_id, actor_id, score_a, score_b, contact, created_at
		FROM predictions
		WHERE id = $1
	`

	var rec model.PredictionRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.MatchID,
		&rec.ActorID,
		&rec.ScoreA,
		&rec.ScoreB,
		&rec.Contact,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPredictionNotFound
		}
		return nil, fmt.Errorf("failed to get prediction by id: %w", err)
	}

	return &rec, nil
}
