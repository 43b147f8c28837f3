// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"fanpulse/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = runMigrations(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// runMigrations applies the database schema
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS intents (
			id UUID PRIMARY KEY,
			contest_id TEXT NOT NULL,
			candidate_id TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS votes (
			id BIGSERIAL PRIMARY KEY,
			contest_id TEXT NOT NULL,
			candidate_id TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			intent_id UUID NOT NULL REFERENCES intents(id),
			transaction_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (contest_id, actor_id)
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS predictions (
			id BIGSERIAL PRIMARY KEY,
			match_id TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			score_a INT NOT NULL,
			score_b INT NOT NULL,
			contact TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (match_id, actor_id)
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS profiles (
			actor_id TEXT PRIMARY KEY,
			share_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS settlements (
			transaction_id TEXT PRIMARY KEY,
			intent_id UUID NOT NULL REFERENCES intents(id),
			status TEXT NOT NULL,
			amount BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// ============================================================================
// IntentRepository Tests
// ============================================================================

func TestIntentRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewIntentRepository(pool)
	ctx := context.Background()

	intent, err := repo.Create(ctx, "contest-1", "cand-9", "u-1", 500)
	require.NoError(t, err)
	assert.NotEmpty(t, intent.ID)
	assert.Equal(t, "contest-1", intent.ContestID)
	assert.Equal(t, int64(500), intent.Amount)
	assert.False(t, intent.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.ID, got.ID)

	_, err = repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestIntentRepository_FreshIntentPerAttempt(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewIntentRepository(pool)
	ctx := context.Background()

	first, err := repo.Create(ctx, "contest-1", "cand-9", "u-1", 500)
	require.NoError(t, err)
	second, err := repo.Create(ctx, "contest-1", "cand-9", "u-1", 500)
	require.NoError(t, err)

	// A retry always mints a new correlation.
	assert.NotEqual(t, first.ID, second.ID)
}

// ============================================================================
// VoteRepository Tests
// ============================================================================

func TestVoteRepository_ConfirmIsIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	intents := NewIntentRepository(pool)
	votes := NewVoteRepository(pool)
	ctx := context.Background()

	intent, err := intents.Create(ctx, "contest-1", "cand-9", "u-1", 500)
	require.NoError(t, err)

	rec, created, err := votes.Confirm(ctx, "contest-1", "cand-9", "u-1", 500, intent.ID, "tx-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, rec.ID)

	// A redelivered confirmation returns the original record untouched.
	again, created, err := votes.Confirm(ctx, "contest-1", "cand-9", "u-1", 500, intent.ID, "tx-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, rec.ID, again.ID)

	// Even a retry under a fresh intent cannot create a second vote for the
	// same (contest, actor).
	retry, err := intents.Create(ctx, "contest-1", "cand-2", "u-1", 700)
	require.NoError(t, err)
	third, created, err := votes.Confirm(ctx, "contest-1", "cand-2", "u-1", 700, retry.ID, "tx-2")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, rec.ID, third.ID)
	assert.Equal(t, "cand-9", third.CandidateID)
}

func TestVoteRepository_GetByActorAndIntent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	intents := NewIntentRepository(pool)
	votes := NewVoteRepository(pool)
	ctx := context.Background()

	_, err := votes.GetByActor(ctx, "contest-1", "u-1")
	assert.ErrorIs(t, err, ErrVoteNotFound)

	intent, err := intents.Create(ctx, "contest-1", "cand-9", "u-1", 500)
	require.NoError(t, err)
	_, _, err = votes.Confirm(ctx, "contest-1", "cand-9", "u-1", 500, intent.ID, "tx-1")
	require.NoError(t, err)

	byActor, err := votes.GetByActor(ctx, "contest-1", "u-1")
	require.NoError(t, err)
	byIntent, err := votes.GetByIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, byActor.ID, byIntent.ID)
	assert.Equal(t, "tx-1", byIntent.TransactionID)

	byID, err := votes.GetByID(ctx, byActor.ID)
	require.NoError(t, err)
	assert.Equal(t, byActor.ID, byID.ID)
	assert.Equal(t, "cand-9", byID.CandidateID)

	_, err = votes.GetByID(ctx, byActor.ID+1000)
	assert.ErrorIs(t, err, ErrVoteNotFound)
}

func TestVoteRepository_Tally(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	intents := NewIntentRepository(pool)
	votes := NewVoteRepository(pool)
	ctx := context.Background()

	cast := func(actorID, candidateID string, amount int64) {
		intent, err := intents.Create(ctx, "contest-1", candidateID, actorID, amount)
		require.NoError(t, err)
		_, _, err = votes.Confirm(ctx, "contest-1", candidateID, actorID, amount, intent.ID, "tx-"+actorID)
		require.NoError(t, err)
	}
	cast("u-1", "cand-9", 500)
	cast("u-2", "cand-9", 300)
	cast("u-3", "cand-2", 900)

	tally, err := votes.Tally(ctx, "contest-1")
	require.NoError(t, err)
	require.Len(t, tally, 2)
	assert.Equal(t, model.CandidateTally{CandidateID: "cand-9", Votes: 2, Amount: 800}, tally[0])
	assert.Equal(t, model.CandidateTally{CandidateID: "cand-2", Votes: 1, Amount: 900}, tally[1])

	empty, err := votes.Tally(ctx, "contest-none")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// ============================================================================
// PredictionRepository Tests
// ============================================================================

func TestPredictionRepository_CreateOrGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPredictionRepository(pool)
	ctx := context.Background()

	req := model.PredictionRequest{
		MatchID: "match-1",
		ActorID: "g-1",
		ScoreA:  2,
		ScoreB:  1,
		Contact: "fan@example.com",
	}
	rec, created, err := repo.CreateOrGet(ctx, req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, rec.ID)

	// Repeat submission with different scores returns the original record.
	req.ScoreA = 9
	again, created, err := repo.CreateOrGet(ctx, req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, rec.ID, again.ID)
	assert.Equal(t, 2, again.ScoreA)

	// A different match is a separate record.
	req.MatchID = "match-2"
	other, created, err := repo.CreateOrGet(ctx, req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, rec.ID, other.ID)
}

func TestPredictionRepository_Get(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPredictionRepository(pool)
	ctx := context.Background()

	_, err := repo.GetByActor(ctx, "match-1", "g-1")
	assert.ErrorIs(t, err, ErrPredictionNotFound)
	_, err = repo.GetByID(ctx, 12345)
	assert.ErrorIs(t, err, ErrPredictionNotFound)

	rec, _, err := repo.CreateOrGet(ctx, model.PredictionRequest{
		MatchID: "match-1",
		ActorID: "g-1",
		ScoreA:  0,
		ScoreB:  0,
		Contact: "+12025550100",
	})
	require.NoError(t, err)

	byID, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ActorID, byID.ActorID)
}

// ============================================================================
// ProfileRepository Tests
// ============================================================================

func TestProfileRepository_GetOrCreate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProfileRepository(pool)
	ctx := context.Background()

	_, err := repo.Get(ctx, "u-1")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	p, err := repo.GetOrCreate(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.ShareCount)

	// Second call returns the existing profile rather than resetting it.
	_, err = repo.IncrementShare(ctx, "u-1", 3)
	require.NoError(t, err)
	p, err = repo.GetOrCreate(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.ShareCount)
}

func TestProfileRepository_IncrementShareCapped(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProfileRepository(pool)
	ctx := context.Background()

	// First increment creates the profile at 1.
	p, err := repo.IncrementShare(ctx, "u-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ShareCount)

	// The counter never decreases and never exceeds the cap.
	for i := 0; i < 5; i++ {
		p, err = repo.IncrementShare(ctx, "u-1", 3)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, p.ShareCount)
}

// ============================================================================
// SettlementRepository Tests
// ============================================================================

func TestSettlementRepository_ApplyNeverRegresses(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	intents := NewIntentRepository(pool)
	repo := NewSettlementRepository(pool)
	ctx := context.Background()

	intent, err := intents.Create(ctx, "contest-1", "cand-9", "u-1", 500)
	require.NoError(t, err)

	s, err := repo.Apply(ctx, "tx-1", intent.ID, model.SettlementPending, 500)
	require.NoError(t, err)
	assert.Equal(t, model.SettlementPending, s.Status)

	// Pending moves to a final status.
	s, err = repo.Apply(ctx, "tx-1", intent.ID, model.SettlementSucceeded, 500)
	require.NoError(t, err)
	assert.Equal(t, model.SettlementSucceeded, s.Status)

	// A settled transaction keeps its status no matter what arrives next.
	s, err = repo.Apply(ctx, "tx-1", intent.ID, model.SettlementFailed, 500)
	require.NoError(t, err)
	assert.Equal(t, model.SettlementSucceeded, s.Status)
	s, err = repo.Apply(ctx, "tx-1", intent.ID, model.SettlementPending, 500)
	require.NoError(t, err)
	assert.Equal(t, model.SettlementSucceeded, s.Status)
}

func TestSettlementRepository_Get(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	intents := NewIntentRepository(pool)
	repo := NewSettlementRepository(pool)
	ctx := context.Background()

	_, err := repo.Get(ctx, "tx-missing")
	assert.ErrorIs(t, err, ErrSettlementNotFound)

	intent, err := intents.Create(ctx, "contest-1", "cand-9", "u-1", 500)
	require.NoError(t, err)
	_, err = repo.Apply(ctx, "tx-1", intent.ID, model.SettlementFailed, 500)
	require.NoError(t, err)

	s, err := repo.Get(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, model.SettlementFailed, s.Status)
	assert.Equal(t, intent.ID, s.IntentID)
}
