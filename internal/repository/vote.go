package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fanpulse/internal/model"
)

// VoteRepository persists confirmed votes. The UNIQUE (contest_id,
// actor_id) constraint is what makes repeated confirmation calls no-ops
// rather than duplicates.
type VoteRepository struct {
	pool *pgxpool.Pool
}

// NewVoteRepository creates a new VoteRepository instance.
func NewVoteRepository(pool *pgxpool.Pool) *VoteRepository {
	return &VoteRepository{pool: pool}
}

// Confirm records a vote, returning the existing record unchanged when one
// is already present for the (contest, actor) pair. The second return
// reports whether a new record was created.
func (r *VoteRepository) Confirm(ctx context.Context, contestID, candidateID, actorID string, amount int64, intentID, transactionID string) (*model.VoteRecord, bool, error) {
	const insert = `
		INSERT INTO votes (contest_id, candidate_id, actor_id, amount, intent_id, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (contest_id, actor_id) DO NOTHING
		RETURNING id, contest_id, candidate_id, actor_id, amount, intent_id, transaction_id, created_at
	`

	var rec model.VoteRecord
	err := r.pool.QueryRow(ctx, insert, contestID, candidateID, actorID, amount, intentID, transactionID).Scan(
		&rec.ID,
		&rec.ContestID,
		&rec.CandidateID,
		&rec.ActorID,
		&rec.Amount,
		&rec.IntentID,
		&rec.TransactionID,
		&rec.CreatedAt,
	)
	if err == nil {
		return &rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to confirm vote: %w", err)
	}

	// Conflict: a record already exists for this (contest, actor).
	existing, err := r.GetByActor(ctx, contestID, actorID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByActor retrieves the vote for a (contest, actor) pair.
// Returns ErrVoteNotFound if no vote has been recorded.
func (r *VoteRepository) GetByActor(ctx context.Context, contestID, actorID string) (*model.VoteRecord, error) {
	const query = `
		SELECT id, contest_id, candidate_id, actor_id, amount, intent_id, transaction_id, created_at
		FROM votes
		WHERE contest_id = $1 AND actor_id = $2
	`

	var rec model.VoteRecord
	err := r.pool.QueryRow(ctx, query, contestID, actorID).Scan(
		&rec.ID,
		&rec.ContestID,
		&rec.CandidateID,
		&rec.ActorID,
		&rec.Amount,
		&rec.IntentID,
		&rec.TransactionID,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVoteNotFound
		}
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	return &rec, nil
}

// GetByID retrieves a vote by its record identifier.
func (r *VoteRepository) GetByID(ctx context.Context, id int64) (*model.VoteRecord, error) {
	const query = `
		SELECT id, contest_id, candidate_id, actor_id, amount, intent_id, transaction_id, created_at
		FROM votes
		WHERE id = $1
	`

	var rec model.VoteRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.ContestID,
		&rec.CandidateID,
		&rec.ActorID,
		&rec.Amount,
		&rec.IntentID,
		&rec.TransactionID,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVoteNotFound
		}
		return nil, fmt.Errorf("failed to get vote by id: %w", err)
	}

	return &rec, nil
}

// GetByIntent retrieves the vote recorded for an intent, if any.
func (r *VoteRepository) GetByIntent(ctx context.Context, intentID string) (*model.VoteRecord, error) {
	const query = `
		SELECT id, contest_id, candidate_id, actor_id, amount, intent_id, transaction_id, created_at
		FROM votes
		WHERE intent_id = $1
	`

	var rec model.VoteRecord
	err := r.pool.QueryRow(ctx, query, intentID).Scan(
		&rec.ID,
		&rec.ContestID,
		&rec.CandidateID,
		&rec.ActorID,
		&rec.Amount,
		&rec.IntentID,
		&rec.TransactionID,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVoteNotFound
		}
		return nil, fmt.Errorf("failed to get vote by intent: %w", err)
	}

	return &rec, nil
}

// Tally returns the live per-candidate vote counts for a contest, ordered
// by vote count descending.
func (r *VoteRepository) Tally(ctx context.Context, contestID string) ([]model.CandidateTally, error) {
	const query = `
		SELECT candidate_id, COUNT(*) AS votes, COALESCE(SUM(amount), 0) AS amount
		FROM votes
		WHERE contest_id = $1
		GROUP BY candidate_id
		ORDER BY votes DESC, candidate_id
	`

	rows, err := r.pool.Query(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}
	defer rows.Close()

	var tallies []model.CandidateTally
	for rows.Next() {
		var t model.CandidateTally
		if err := rows.Scan(&t.CandidateID, &t.Votes, &t.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan tally: %w", err)
		}
		tallies = append(tallies, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tallies: %w", err)
	}

	return tallies, nil
}
