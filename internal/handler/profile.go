package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fanpulse/internal/service"
)

// ProfileHandler exposes the engagement profile endpoints backing the
// share gate for signed-in users.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler instance.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get handles GET /v1/profiles/{actorID}.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID := chi.URLParam(r, "actorID")

	p, err := h.profiles.Get(r.Context(), actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// IncrementShare handles POST /v1/profiles/{actorID}/shares.
func (h *ProfileHandler) IncrementShare(w http.ResponseWriter, r *http.Request) {
	actorID := chi.URLParam(r, "actorID")

	p, err := h.profiles.IncrementShare(r.Context(), actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
