// Package handler provides the HTTP handlers for the backend callable
// endpoints.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"fanpulse/internal/service"
)

// errorResponse is the structured error envelope clients map back onto
// their own error taxonomy.
type errorResponse struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Error().Err(err).Msg("Failed to encode response")
		}
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// writeServiceError maps service-layer errors onto HTTP statuses and
// structured codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidScore),
		errors.Is(err, service.ErrInvalidContact),
		errors.Is(err, service.ErrMissingCandidate),
		errors.Is(err, service.ErrMissingActor),
		errors.Is(err, service.ErrMissingMatch):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, service.ErrMissingReference):
		writeError(w, http.StatusBadRequest, "missing_correlation", err.Error())
	case errors.Is(err, service.ErrAlreadyFinalized):
		writeError(w, http.StatusConflict, "already_finalized", err.Error())
	case errors.Is(err, service.ErrIntentNotFound),
		errors.Is(err, service.ErrUnknownTransaction):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		log.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "malformed request body")
		return false
	}
	return true
}
