// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fanpulse/internal/model"
)

// Common errors for repository operations.
var (
	ErrIntentNotFound     = errors.New("intent not found")
	ErrVoteNotFound       = errors.New("vote not found")
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrSettlementNotFound = errors.New("settlement not found")
)

// IntentRepository persists the correlation records minted before the
// payment surface opens. Every attempt gets a fresh intent; intents are
// never updated or reused.
type IntentRepository struct {
	pool *pgxpool.Pool
}

// NewIntentRepository creates a new IntentRepository instance.
func NewIntentRepository(pool *pgxpool.Pool) *IntentRepository {
	return &IntentRepository{pool: pool}
}

// Create mints a new intent with a server-generated identifier.
func (r *IntentRepository) Create(ctx context.Context, contestID, candidateID, actorID string, amount int64) (*model.Intent, error) {
	const query = `
		INSERT INTO intents (id, contest_id, candidate_id, actor_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, contest_id, candidate_id, actor_id, amount, created_at
	`

	var intent model.Intent
	err := r.pool.QueryRow(ctx, query, uuid.NewString(), contestID, candidateID, actorID, amount).Scan(
		&intent.ID,
		&intent.ContestID,
		&intent.CandidateID,
		&intent.ActorID,
		&intent.Amount,
		&intent.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create intent: %w", err)
	}

	return &intent, nil
}

// GetByID retrieves an intent by its identifier.
// Returns ErrIntentNotFound if the intent does not exist.
func (r *IntentRepository) GetByID(ctx context.Context, intentID string) (*model.Intent, error) {
	const query = `
		SELECT id, contest_id, candidate_id, actor_id, amount, created_at
		FROM intents
		WHERE id = $1
	`

	var intent model.Intent
	err := r.pool.QueryRow(ctx, query, intentID).Scan(
		&intent.ID,
		&intent.ContestID,
		&intent.CandidateID,
		&intent.ActorID,
		&intent.Amount,
		&intent.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("failed to get intent: %w", err)
	}

	return &intent, nil
}
