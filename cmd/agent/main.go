// Package main is the entry point for the fanpulse engagement agent. The
// agent hosts the gated-action engine: it connects the engine to the
// backend callable endpoints over HTTP and to the payment provider's event
// feed over websocket, and resumes any drafts that survived a restart.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fanpulse/internal/client"
	"fanpulse/internal/config"
	"fanpulse/internal/engage"
	"fanpulse/internal/pkg/kv"
	"fanpulse/internal/provider"
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

	// Local persistent key-value storage
	store, err := kv.New(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to local store")
	}
	defer store.Close()

	// Backend callable endpoints
	api := client.New(cfg.API.BaseURL, cfg.API.Timeout)

	// Payment provider surface
	checkout := provider.NewCheckout(cfg.Payment.CheckoutURL, cfg.Payment.DialTimeout)

	engine := engage.New(engage.Options{
		API:            api,
		KV:             store,
		Surface:        checkout,
		Session:        engage.StaticSession{ID: cfg.Agent.UserID},
		RequiredShares: cfg.Gate.RequiredShares,
		AllowGateReset: cfg.Gate.AllowReset,
		MinVoteAmount:  cfg.Contest.MinAmount,
		MaxVoteAmount:  cfg.Contest.MaxAmount,
		PaymentReason:  cfg.Payment.Reason,
		OnOutcome:      logOutcome,
		Logger:         log.Logger,
	})

	// Submit any drafts whose gate was satisfied before the last shutdown.
	resumeDrafts(ctx, engine, cfg.Agent.Matches)

	// The confirmation listener stays registered for the life of the
	// process; an event may arrive long after the attempt began.
	feed := provider.NewFeed(cfg.Payment.FeedURL, cfg.Payment.DialTimeout, log.Logger)
	go func() {
		if err := feed.Run(ctx, engine.HandlePaymentEvent); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Payment feed terminated")
		}
	}()

	log.Info().Msg("Engagement agent started")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	cancel()
	log.Info().Msg("Agent stopped gracefully")
}

// resumeDrafts replays the pending prediction drafts for the configured
// matches. Submission is idempotent, so resuming an already-recorded draft
// is harmless; a failed resume is retried on the next share or restart.
func resumeDrafts(ctx context.Context, engine *engage.Engine, matches []string) {
	for _, matchID := range matches {
		rec, err := engine.ResumePending(ctx, matchID)
		if err != nil {
			log.Warn().Err(err).Str("match_id", matchID).Msg("Draft resume failed")
			continue
		}
		if rec != nil {
			log.Info().
				Str("match_id", matchID).
				Int64("prediction_id", rec.ID).
				Msg("Resumed pending prediction")
		}
	}
}

// logOutcome surfaces confirmation results. A real surface layer would
// render these; the agent logs them.
func logOutcome(o engage.Outcome) {
	switch o.Kind {
	case engage.OutcomeSucceeded:
		log.Info().
			Str("intent_id", o.IntentID).
			Str("transaction_id", o.TransactionID).
			Msg("Vote recorded")
	case engage.OutcomePending:
		log.Info().
			Str("intent_id", o.IntentID).
			Msg("Payment pending")
	case engage.OutcomeFailed:
		log.Warn().
			Err(o.Err).
			Str("intent_id", o.IntentID).
			Str("reason", o.Reason).
			Msg("Vote attempt failed; draft preserved")
	}
}
