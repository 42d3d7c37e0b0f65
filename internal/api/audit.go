package api

import (
	"net/http"
)

// ListDeletions handles GET /api/audit/deletions.
func (h *Handler) ListDeletions(w http.ResponseWriter, r *http.Request) {
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

	events, err := h.repo.ListDeletions(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
