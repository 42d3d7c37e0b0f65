// Package query filters, pages and looks up transactions in the working table.
package query

import (
	"errors"
	"fmt"
	"sort"

	"github.com/opensource-finance/heron/internal/domain"
)

var (
	ErrNotFound          = errors.New("transaction not found")
	ErrInvalidPage       = errors.New("invalid pagination")
	ErrInvalidExpression = errors.New("invalid filter expression")
)

// MaxLimit is the largest page size accepted by Paginate.
const MaxLimit = 100

// Filter selects transactions. Unset fields match everything; set fields
// are combined with AND. Amount bounds are inclusive.
type Filter struct {
	Type      string
	FraudFlag *int
	MinAmount *float64
	MaxAmount *float64

	// Expr is an optional CEL boolean expression, see ExprCompiler.
	Expr string
}

// IsZero reports whether f matches every transaction.
func (f Filter) IsZero() bool {
	return f.Type == "" && f.FraudFlag == nil && f.MinAmount == nil && f.MaxAmount == nil && f.Expr == ""
}

func (f Filter) match(tx *domain.Transaction) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.FraudFlag != nil && tx.IsFraud != *f.FraudFlag {
		return false
	}
	if f.MinAmount != nil && tx.Amount < *f.MinAmount {
		return false
	}
	if f.MaxAmount != nil && tx.Amount > *f.MaxAmount {
		return false
	}
	return true
}

// Apply returns the rows matching f in their original order. With a zero
// filter the input slice itself is returned.
func Apply(rows []domain.Transaction, f Filter) ([]domain.Transaction, error) {
	if f.IsZero() {
		return rows, nil
	}

	var pred Predicate
	if f.Expr != "" {
		compiler, err := defaultCompiler()
		if err != nil {
			return nil, err
		}
		if pred, err = compiler.Compile(f.Expr); err != nil {
			return nil, err
		}
	}

	out := make([]domain.Transaction, 0)
	for i := range rows {
		tx := &rows[i]
		if !f.match(tx) {
			continue
		}
		if pred != nil {
			ok, err := pred(tx)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, *tx)
	}
	return out, nil
}

// Paginate returns the 1-based page of rows. page must be at least 1 and
// limit between 1 and MaxLimit. A page past the end is empty.
func Paginate[T any](rows []T, page, limit int) ([]T, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidPage, page)
	}
	if limit < 1 || limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d, got %d", ErrInvalidPage, MaxLimit, limit)
	}

	// Compare page counts before multiplying so huge pages cannot overflow.
	if pages := (len(rows) + limit - 1) / limit; page > pages {
		return []T{}, nil
	}
	offset := (page - 1) * limit
	end := min(offset+limit, len(rows))
	return rows[offset:end], nil
}

// GetByID returns the first row with the given id.
func GetByID(rows []domain.Transaction, id int64) (domain.Transaction, error) {
	for _, tx := range rows {
		if tx.ID == id {
			return tx, nil
		}
	}
	return domain.Transaction{}, fmt.Errorf("%w: %d", ErrNotFound, id)
}

// CustomerFlow returns the customer's outgoing (debit) or incoming (credit)
// transactions. Debits are rows the customer originated with a negative
// amount; credits are rows where the customer is the counterparty and the
// amount is positive.
func CustomerFlow(rows []domain.Transaction, customerID int64, dir domain.FlowDirection) []domain.Transaction {
	out := make([]domain.Transaction, 0)
	for _, tx := range rows {
		switch dir {
		case domain.FlowDebit:
			if tx.ClientID == customerID && tx.Amount < 0 {
				out = append(out, tx)
			}
		case domain.FlowCredit:
			if tx.MerchantID == customerID && tx.Amount > 0 {
				out = append(out, tx)
			}
		}
	}
	return out
}

// DistinctTypes returns the sorted set of transaction types.
func DistinctTypes(rows []domain.Transaction) []string {
	seen := make(map[string]struct{})
	for _, tx := range rows {
		seen[tx.Type] = struct{}{}
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
