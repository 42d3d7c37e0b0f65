package query

import (
	"context"
	"fmt"

	"github.com/opensource-finance/heron/internal/dataset"
	"github.com/opensource-finance/heron/internal/domain"
)

// Engine answers transaction queries against the store's current snapshot.
type Engine struct {
	store *dataset.Store
}

// NewEngine creates a query engine over store.
func NewEngine(store *dataset.Store) *Engine {
	return &Engine{store: store}
}

// ListRequest is a filtered, paginated listing.
type ListRequest struct {
	Page   int
	Limit  int
	Filter Filter
}

// List filters the working table and returns the requested page.
func (e *Engine) List(ctx context.Context, req ListRequest) (domain.TransactionPage, error) {
	rows, err := Apply(e.store.Get(ctx).Rows(), req.Filter)
	if err != nil {
		return domain.TransactionPage{}, err
	}

	page, err := Paginate(rows, req.Page, req.Limit)
	if err != nil {
		return domain.TransactionPage{}, err
	}

	return domain.TransactionPage{
		Page:         req.Page,
		Limit:        req.Limit,
		TotalResults: len(rows),
		Transactions: page,
	}, nil
}

// Get returns one transaction by id.
func (e *Engine) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	tx, ok := e.store.Get(ctx).Get(id)
	if !ok {
		return domain.Transaction{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return tx, nil
}

// Flow returns a customer's debit or credit transactions.
func (e *Engine) Flow(ctx context.Context, customerID int64, dir domain.FlowDirection) []domain.Transaction {
	return CustomerFlow(e.store.Get(ctx).Rows(), customerID, dir)
}

// Delete removes a transaction from the working table.
func (e *Engine) Delete(ctx context.Context, id int64) bool {
	return e.store.Delete(ctx, id)
}

// Types returns the distinct transaction types.
func (e *Engine) Types(ctx context.Context) []string {
	return DistinctTypes(e.store.Get(ctx).Rows())
}
