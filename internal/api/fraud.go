package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/fraud"
)

// Page size of the prediction log and audit listings.
const defaultLogLimit = 50

// FraudSummary handles GET /api/fraud/summary.
func (h *Handler) FraudSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.stats.FraudSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// FraudByType handles GET /api/fraud/by-type.
func (h *Handler) FraudByType(w http.ResponseWriter, r *http.Request) {
	s, err := h.stats.FraudByType(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Predict handles POST /api/fraud/predict.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.PredictionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	verdict := fraud.Score(fraud.Input{
		Type:       req.Type,
		Amount:     *req.Amount,
		OldBalance: req.OldBalance,
		NewBalance: req.NewBalance,
	})

	p := &domain.Prediction{
		ID:          uuid.New().String(),
		Type:        req.Type,
		Amount:      *req.Amount,
		OldBalance:  req.OldBalance,
		NewBalance:  req.NewBalance,
		Probability: verdict.Probability,
		IsFraud:     verdict.IsFraud,
		RequestID:   GetRequestID(ctx),
		CreatedAt:   time.Now().UTC(),
	}
	h.metrics.observePrediction(p.IsFraud)
	h.publish(ctx, domain.TopicPredictionScored, p)

	writeJSON(w, http.StatusOK, p.ToResponse())
}

// ListPredictions handles GET /api/fraud/predictions.
func (h *Handler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, errRepositoryUnavailable)
		return
	}

	var p params
	limit := p.intValue("limit", r.URL.Query().Get("limit"), defaultLogLimit)
	if err := p.err(); err != nil {
		writeError(w, err)
		return
	}

	predictions, err := h.repo.ListPredictions(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, predictions)
}

// GetPrediction handles GET /api/fraud/predictions/{id}.
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, errRepositoryUnavailable)
		return
	}

	p, err := h.repo.GetPrediction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
