package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Settlement is one row of the payment settlement ledger, keyed by the
// provider-assigned transaction ID. The ledger is written by both the
// client's verification call and the provider webhook; applying the same
// outcome twice is a no-op, and a final status never regresses to pending.
type Settlement struct {
	TransactionID string    `db:"transaction_id"`
	IntentID      string    `db:"intent_id"`
	Status        string    `db:"status"`
	Amount        int64     `db:"amount"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// SettlementRepository persists the payment settlement ledger.
type SettlementRepository struct {
	pool *pgxpool.Pool
}

// NewSettlementRepository creates a new SettlementRepository instance.
func NewSettlementRepository(pool *pgxpool.Pool) *SettlementRepository {
	return &SettlementRepository{pool: pool}
}

// Apply records a settlement outcome idempotently. A pending row may move
// to succeeded or failed; a settled row keeps its status no matter how
// often the webhook redelivers.
func (r *SettlementRepository) Apply(ctx context.Context, transactionID, intentID, status string, amount int64) (*Settlement, error) {
	const query = `
		INSERT INTO settlements (transaction_id, intent_id, status, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (transaction_id) DO UPDATE
		SET status = CASE
			WHEN settlements.status = 'pending' THEN EXCLUDED.status
			ELSE settlements.status
		END,
		updated_at = NOW()
		RETURNING transaction_id, intent_id, status, amount, created_at, updated_at
	`

	var s Settlement
	err := r.pool.QueryRow(ctx, query, transactionID, intentID, status, amount).Scan(
		&s.TransactionID,
		&s.IntentID,
		&s.Status,
		&s.Amount,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to apply settlement: %w", err)
	}

	return &s, nil
}

// Get retrieves a settlement by transaction ID.
// Returns ErrSettlementNotFound if the transaction is unknown.
func (r *SettlementRepository) Get(ctx context.Context, transactionID string) (*Settlement, error) {
	const query = `
		SELECT transaction_id, intent_id, status, amount, created_at, updated_at
		FROM settlements
		WHERE transaction_id = $1
	`

	var s Settlement
	err := r.pool.QueryRow(ctx, query, transactionID).Scan(
		&s.TransactionID,
		&s.IntentID,
		&s.Status,
		&s.Amount,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettlementNotFound
		}
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}

	return &s, nil
}
