package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fanpulse/internal/model"
)

// ProfileRepository persists the server-synced engagement profile,
// including the share counter backing the prediction gate for signed-in
// users.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository instance.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// GetOrCreate retrieves a profile, creating an empty one on first access.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, actorID string) (*model.Profile, error) {
	const query = `
		INSERT INTO profiles (actor_id, share_count, created_at, updated_at)
		VALUES ($1, 0, NOW(), NOW())
		ON CONFLICT (actor_id) DO UPDATE SET updated_at = profiles.updated_at
		RETURNING actor_id, share_count, created_at, updated_at
	`

	var p model.Profile
	err := r.pool.QueryRow(ctx, query, actorID).Scan(
		&p.ActorID,
		&p.ShareCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create profile: %w", err)
	}

	return &p, nil
}

// IncrementShare bumps the share counter by one, capped at max. The
// increment and cap happen in a single statement so concurrent shares
// never push the counter past the cap or backwards.
func (r *ProfileRepository) IncrementShare(ctx context.Context, actorID string, max int) (*model.Profile, error) {
	const query = `
		INSERT INTO profiles (actor_id, share_count, created_at, updated_at)
		VALUES ($1, LEAST(1, $2), NOW(), NOW())
		ON CONFLICT (actor_id) DO UPDATE
		SET share_count = LEAST(profiles.share_count + 1, $2), updated_at = NOW()
		RETURNING actor_id, share_count, created_at, updated_at
	`

	var p model.Profile
	err := r.pool.QueryRow(ctx, query, actorID, max).Scan(
		&p.ActorID,
		&p.ShareCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to increment share count: %w", err)
	}

	return &p, nil
}

// Get retrieves a profile without creating one.
// Returns ErrProfileNotFound if the profile does not exist.
func (r *ProfileRepository) Get(ctx context.Context, actorID string) (*model.Profile, error) {
	const query = `
		SELECT actor_id, share_count, created_at, updated_at
		FROM profiles
		WHERE actor_id = $1
	`

	var p model.Profile
	err := r.pool.QueryRow(ctx, query, actorID).Scan(
		&p.ActorID,
		&p.ShareCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}
