// Package main is the entry point for the fanpulse backend server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fanpulse/internal/config"
	"fanpulse/internal/pkg/db"
	"fanpulse/internal/repository"
	"fanpulse/internal/server"
	"fanpulse/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	intentRepo := repository.NewIntentRepository(dbPool.Pool)
	voteRepo := repository.NewVoteRepository(dbPool.Pool)
	predictionRepo := repository.NewPredictionRepository(dbPool.Pool)
	profileRepo := repository.NewProfileRepository(dbPool.Pool)
	settlementRepo := repository.NewSettlementRepository(dbPool.Pool)

	// Initialize services
	voteService := service.NewVoteService(
		intentRepo,
		voteRepo,
		settlementRepo,
		cfg.Contest.MinAmount,
		cfg.Contest.MaxAmount,
	)
	predictionService := service.NewPredictionService(predictionRepo)
	profileService := service.NewProfileService(profileRepo, cfg.Gate.RequiredShares)

	// Initialize HTTP server
	srv := server.New(&server.Dependencies{
		Config:      cfg,
		DB:          dbPool,
		Votes:       voteService,
		Predictions: predictionService,
		Profiles:    profileService,
	})

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create intents table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS intents (
			id UUID PRIMARY KEY,
			contest_id TEXT NOT NULL,
			candidate_id TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_intents_contest_actor ON intents(contest_id, actor_id, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: intents table created")

	// Migration 2: Create votes table
	// The unique constraint is what makes vote confirmation idempotent.
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
		);
		CREATE INDEX IF NOT EXISTS idx_votes_contest_candidate ON votes(contest_id, candidate_id);
		CREATE INDEX IF NOT EXISTS idx_votes_intent ON votes(intent_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: votes table created")

	// Migration 3: Create predictions table
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
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: predictions table created")

	// Migration 4: Create profiles table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS profiles (
			actor_id TEXT PRIMARY KEY,
			share_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: profiles table created")

	// Migration 5: Create settlements ledger
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS settlements (
			transaction_id TEXT PRIMARY KEY,
			intent_id UUID NOT NULL REFERENCES intents(id),
			status TEXT NOT NULL,
			amount BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_settlements_intent ON settlements(intent_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: settlements table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
