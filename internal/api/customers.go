package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/query"
	"github.com/opensource-finance/heron/internal/stats"
)

// Default page size of the customer listing.
const defaultCustomerLimit = 10

// ListCustomers handles GET /api/customers.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var p params
	page := p.intValue("page", q.Get("page"), 1)
	limit := p.intValue("limit", q.Get("limit"), defaultCustomerLimit)
	if err := p.err(); err != nil {
		writeError(w, err)
		return
	}

	all := h.stats.Customers(r.Context())
	customers, err := query.Paginate(all, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.CustomerPage{
		Page:      page,
		Limit:     limit,
		Total:     len(all),
		Customers: customers,
	})
}

// TopCustomers handles GET /api/customers/top.
func (h *Handler) TopCustomers(w http.ResponseWriter, r *http.Request) {
	var p params
	n := p.intValue("n", r.URL.Query().Get("n"), stats.DefaultTop)
	if n < 1 {
		p.fail("n", "must be at least 1")
	}
	if err := p.err(); err != nil {
		writeError(w, err)
		return
	}

	top, err := h.stats.TopCustomers(r.Context(), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

// GetCustomer handles GET /api/customers/{customerId}.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := stats.ParseCustomerID(chi.URLParam(r, "customerId"))
	if err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.stats.CustomerProfile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
