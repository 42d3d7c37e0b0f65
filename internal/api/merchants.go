package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/heron/internal/domain"
)

// ListCategories handles GET /api/merchants/categories, ordered by code.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.store.Categories(r.Context())

	out := make([]domain.MerchantCategory, 0, len(categories))
	for code, desc := range categories {
		out = append(out, domain.MerchantCategory{Code: code, Description: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })

	writeJSON(w, http.StatusOK, out)
}

// GetCategory handles GET /api/merchants/categories/{code}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	var p params
	code := int(p.int64Value("code", chi.URLParam(r, "code")))
	if err := p.err(); err != nil {
		writeError(w, err)
		return
	}

	desc, ok := h.store.Categories(r.Context())[code]
	if !ok {
		writeError(w, notFoundf("merchant category %d", code))
		return
	}
	writeJSON(w, http.StatusOK, domain.MerchantCategory{Code: code, Description: desc})
}
