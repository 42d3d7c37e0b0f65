package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/query"
	"github.com/opensource-finance/heron/internal/stats"
)

// Default page size of the transaction listing.
const defaultTransactionLimit = 20

// ListTransactions handles GET /api/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	if !h.requireDataset(w, r) {
		return
	}

	q := r.URL.Query()
	var p params
	req := query.ListRequest{
		Page:  p.intValue("page", q.Get("page"), 1),
		Limit: p.intValue("limit", q.Get("limit"), defaultTransactionLimit),
		Filter: query.Filter{
			Type:      q.Get("type"),
			MinAmount: p.floatPtr("min_amount", q.Get("min_amount")),
			MaxAmount: p.floatPtr("max_amount", q.Get("max_amount")),
			Expr:      q.Get("expr"),
		},
	}
	if raw := q.Get("isFraud"); raw != "" {
		flag := p.intValue("isFraud", raw, 0)
		if flag != 0 && flag != 1 {
			p.fail("isFraud", "must be 0 or 1")
		}
		req.Filter.FraudFlag = &flag
	}
	if err := p.err(); err != nil {
		writeError(w, err)
		return
	}

	page, err := h.engine.List(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// TransactionTypes handles GET /api/transactions/types.
func (h *Handler) TransactionTypes(w http.ResponseWriter, r *http.Request) {
	if !h.requireDataset(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Types(r.Context()))
}

// GetTransaction handles GET /api/transactions/{id}.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	var p params
	id := p.int64Value("id", chi.URLParam(r, "id"))
	if err := p.err(); err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.engine.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// DeleteResponse is the response for DELETE /api/transactions/{id}.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DeleteTransaction handles DELETE /api/transactions/{id}. The row is removed
// from the working table only; the source file is untouched.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p params
	id := p.int64Value("id", chi.URLParam(r, "id"))
	if err := p.err(); err != nil {
		writeError(w, err)
		return
	}

	if !h.engine.Delete(ctx, id) {
		writeJSON(w, http.StatusNotFound, DeleteResponse{
			Success: false,
			Message: "transaction " + chi.URLParam(r, "id") + " not found",
		})
		return
	}

	h.publish(ctx, domain.TopicTransactionDeleted, &domain.DeletionEvent{
		ID:            uuid.New().String(),
		TransactionID: id,
		RequestID:     GetRequestID(ctx),
		DeletedAt:     time.Now().UTC(),
	})

	slog.Info("transaction deleted", "transaction_id", id)
	writeJSON(w, http.StatusOK, DeleteResponse{
		Success: true,
		Message: "transaction " + chi.URLParam(r, "id") + " deleted",
	})
}

// FlowResponse lists one direction of a customer's money flow.
type FlowResponse struct {
	CustomerID   int64                `json:"customer_id"`
	Direction    domain.FlowDirection `json:"type"`
	Transactions []domain.Transaction `json:"transactions"`
}

// CustomerDebits handles GET /api/transactions/by-customer/{customerId}.
func (h *Handler) CustomerDebits(w http.ResponseWriter, r *http.Request) {
	h.customerFlow(w, r, domain.FlowDebit)
}

// CustomerCredits handles GET /api/transactions/to-customer/{customerId}.
func (h *Handler) CustomerCredits(w http.ResponseWriter, r *http.Request) {
	h.customerFlow(w, r, domain.FlowCredit)
}

func (h *Handler) customerFlow(w http.ResponseWriter, r *http.Request, dir domain.FlowDirection) {
	if !h.requireDataset(w, r) {
		return
	}

	customerID, err := stats.ParseCustomerID(chi.URLParam(r, "customerId"))
	if err != nil {
		writeError(w, err)
		return
	}

	rows := h.engine.Flow(r.Context(), customerID, dir)
	if len(rows) == 0 {
		writeError(w, notFoundf("no %s transactions for customer %d", dir, customerID))
		return
	}

	writeJSON(w, http.StatusOK, FlowResponse{
		CustomerID:   customerID,
		Direction:    dir,
		Transactions: rows,
	})
}
