package handler

import (
	"net/http"

	"fanpulse/internal/model"
	"fanpulse/internal/service"
)

// PredictionHandler exposes the submitPrediction callable endpoint.
type PredictionHandler struct {
	predictions *service.PredictionService
}

// NewPredictionHandler creates a new PredictionHandler instance.
func NewPredictionHandler(predictions *service.PredictionService) *PredictionHandler {
	return &PredictionHandler{predictions: predictions}
}

// Submit handles POST /v1/predictions. An existing record for the same
// (match, actor) pair is returned unchanged with 200.
func (h *PredictionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.PredictionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rec, created, err := h.predictions.Submit(r.Context(), req)
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
