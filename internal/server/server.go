// Package server provides the backend HTTP server and route registration.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"fanpulse/internal/config"
	"fanpulse/internal/handler"
	"fanpulse/internal/service"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all the services needed by the HTTP handlers.
type Dependencies struct {
	Config      *config.Config
	DB          HealthChecker
	Votes       *service.VoteService
	Predictions *service.PredictionService
	Profiles    *service.ProfileService
}

// Server wraps the HTTP server with route registration.
type Server struct {
	cfg  *config.Config
	http *http.Server
}

// New creates a server with all routes registered.
func New(deps *Dependencies) *Server {
	voteHandler := handler.NewVoteHandler(deps.Votes)
	paymentHandler := handler.NewPaymentHandler(deps.Votes)
	predictionHandler := handler.NewPredictionHandler(deps.Predictions)
	profileHandler := handler.NewProfileHandler(deps.Profiles)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/contests/{contestID}/intents", voteHandler.CreateIntent)
		r.Get("/contests/{contestID}/tally", voteHandler.Tally)
		r.Post("/votes/confirm", voteHandler.ConfirmVote)
		r.Post("/payments/verify", paymentHandler.Verify)
		r.Post("/payments/webhook", paymentHandler.Webhook)
		r.Post("/predictions", predictionHandler.Submit)
		r.Get("/profiles/{actorID}", profileHandler.Get)
		r.Post("/profiles/{actorID}/shares", profileHandler.IncrementShare)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.DB != nil {
			if err := deps.DB.HealthCheck(req.Context()); err != nil {
				log.Error().Err(err).Msg("Health check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return &Server{
		cfg: deps.Config,
		http: &http.Server{
			Addr:         deps.Config.Server.Addr,
			Handler:      r,
			ReadTimeout:  deps.Config.Server.ReadTimeout,
			WriteTimeout: deps.Config.Server.WriteTimeout,
		},
	}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	log.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.http.Shutdown(ctx)
}
