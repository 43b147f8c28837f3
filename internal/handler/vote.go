package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fanpulse/internal/model"
	"fanpulse/internal/service"
)

// VoteHandler exposes the pay-to-vote callable endpoints.
type VoteHandler struct {
	votes *service.VoteService
}

// NewVoteHandler creates a new VoteHandler instance.
func NewVoteHandler(votes *service.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

type createIntentRequest struct {
	CandidateID string `json:"candidate_id"`
	ActorID     string `json:"actor_id"`
	Amount      int64  `json:"amount"`
}

// CreateIntent handles POST /v1/contests/{contestID}/intents.
func (h *VoteHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	contestID := chi.URLParam(r, "contestID")

	var req createIntentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	intent, err := h.votes.CreateIntent(r.Context(), contestID, req.CandidateID, req.ActorID, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, intent)
}

type confirmVoteRequest struct {
	IntentID      string `json:"intent_id"`
	TransactionID string `json:"transaction_id"`
	ExistingID    int64  `json:"existing_id"`
}

// ConfirmVote handles POST /v1/votes/confirm. Repeat confirmations under
// the same intent return the existing record with 200; a duplicate under a
// different intent gets 409 already_finalized, which clients treat as
// success.
func (h *VoteHandler) ConfirmVote(w http.ResponseWriter, r *http.Request) {
	var req confirmVoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.IntentID == "" {
		writeError(w, http.StatusBadRequest, "missing_correlation", "intent_id is required")
		return
	}

	rec, created, err := h.votes.ConfirmVote(r.Context(), req.IntentID, req.TransactionID, req.ExistingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, rec)
}

// Tally handles GET /v1/contests/{contestID}/tally.
func (h *VoteHandler) Tally(w http.ResponseWriter, r *http.Request) {
	contestID := chi.URLParam(r, "contestID")

	tallies, err := h.votes.Tally(r.Context(), contestID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tallies == nil {
		tallies = []model.CandidateTally{}
	}

	writeJSON(w, http.StatusOK, tallies)
}
