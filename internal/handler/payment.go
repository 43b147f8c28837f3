package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"fanpulse/internal/model"
	"fanpulse/internal/service"
)

// PaymentHandler exposes payment settlement endpoints: the client's
// best-effort verify call and the provider's authoritative webhook.
type PaymentHandler struct {
	votes *service.VoteService
}

// NewPaymentHandler creates a new PaymentHandler instance.
func NewPaymentHandler(votes *service.VoteService) *PaymentHandler {
	return &PaymentHandler{votes: votes}
}

type verifyRequest struct {
	TransactionID string `json:"transaction_id"`
}

// Verify handles POST /v1/payments/verify.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TransactionID == "" {
		writeError(w, http.StatusBadRequest, "validation", "transaction_id is required")
		return
	}

	if err := h.votes.VerifyPayment(r.Context(), req.TransactionID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Webhook handles POST /v1/payments/webhook, the provider's
// server-to-server settlement notification. Redeliveries are idempotent.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var ev model.PaymentEvent
	if !decodeBody(w, r, &ev) {
		return
	}

	if err := h.votes.HandleProviderEvent(r.Context(), ev); err != nil {
		log.Warn().Err(err).
			Str("transaction_id", ev.TransactionID).
			Str("partner_ref", ev.PartnerRef).
			Msg("Webhook settlement rejected")
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
