package api

import (
	"net/http"
)

// Overview handles GET /api/stats/overview.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	o, err := h.stats.Overview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// AmountDistribution handles GET /api/stats/amount-distribution.
func (h *Handler) AmountDistribution(w http.ResponseWriter, r *http.Request) {
	d, err := h.stats.AmountDistribution(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// StatsByType handles GET /api/stats/by-type.
func (h *Handler) StatsByType(w http.ResponseWriter, r *http.Request) {
	s, err := h.stats.ByType(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DailyStats handles GET /api/stats/daily.
func (h *Handler) DailyStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.stats.Daily(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if len(s) == 0 {
		writeError(w, notFoundf("no dated transactions"))
		return
	}
	writeJSON(w, http.StatusOK, s)
}
