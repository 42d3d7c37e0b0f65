package query

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/heron/internal/dataset"
	"github.com/opensource-finance/heron/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func fixture() []domain.Transaction {
	return []domain.Transaction{
		{ID: 1, ClientID: 10, MerchantID: 20, Amount: -50, Type: "Swipe Transaction", MCC: 5411, MerchantState: "CA"},
		{ID: 2, ClientID: 10, MerchantID: 30, Amount: 120, Type: "Online Transaction", IsFraud: 1, MCC: 4829},
		{ID: 3, ClientID: 11, MerchantID: 10, Amount: 600, Type: "Online Transaction", MCC: 5411},
		{ID: 4, ClientID: 12, MerchantID: 10, Amount: -5, Type: "Chip Transaction", IsFraud: 1, MerchantState: "CA"},
		{ID: 5, ClientID: 10, MerchantID: 20, Amount: 100, Type: "Swipe Transaction"},
	}
}

func ids(rows []domain.Transaction) []int64 {
	out := make([]int64, len(rows))
	for i, tx := range rows {
		out[i] = tx.ID
	}
	return out
}

func TestApply(t *testing.T) {
	rows := fixture()

	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"NoFilter", Filter{}, []int64{1, 2, 3, 4, 5}},
		{"Type", Filter{Type: "Online Transaction"}, []int64{2, 3}},
		{"FraudFlag", Filter{FraudFlag: ptr(1)}, []int64{2, 4}},
		{"NotFraud", Filter{FraudFlag: ptr(0)}, []int64{1, 3, 5}},
		{"InclusiveBounds", Filter{MinAmount: ptr(100.0), MaxAmount: ptr(120.0)}, []int64{2, 5}},
		{"Conjunction", Filter{Type: "Online Transaction", FraudFlag: ptr(1), MinAmount: ptr(100.0)}, []int64{2}},
		{"Empty", Filter{Type: "Wire"}, []int64{}},
		{"Expr", Filter{Expr: `mcc == 5411 && amount > 0.0`}, []int64{3}},
		{"ExprWithType", Filter{Type: "Chip Transaction", Expr: `merchant_state == "CA"`}, []int64{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(rows, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	t.Run("ConjunctionEqualsIntersection", func(t *testing.T) {
		byType, _ := Apply(rows, Filter{Type: "Online Transaction"})
		byFraud, _ := Apply(byType, Filter{FraudFlag: ptr(1)})
		both, _ := Apply(rows, Filter{Type: "Online Transaction", FraudFlag: ptr(1)})
		assert.Equal(t, ids(byFraud), ids(both))
	})

	t.Run("InvalidExpr", func(t *testing.T) {
		_, err := Apply(rows, Filter{Expr: "amount >"})
		assert.ErrorIs(t, err, ErrInvalidExpression)

		_, err = Apply(rows, Filter{Expr: "amount + 1.0"})
		assert.ErrorIs(t, err, ErrInvalidExpression, "non-boolean expressions are rejected")

		_, err = Apply(rows, Filter{Expr: "unknown_var == 1"})
		assert.ErrorIs(t, err, ErrInvalidExpression)
	})
}

func TestPaginate(t *testing.T) {
	rows := make([]int, 45)
	for i := range rows {
		rows[i] = i
	}

	t.Run("Pages", func(t *testing.T) {
		first, err := Paginate(rows, 1, 20)
		require.NoError(t, err)
		assert.Len(t, first, 20)
		assert.Equal(t, 0, first[0])

		last, err := Paginate(rows, 3, 20)
		require.NoError(t, err)
		assert.Equal(t, []int{40, 41, 42, 43, 44}, last)
	})

	t.Run("PastEnd", func(t *testing.T) {
		page, err := Paginate(rows, 4, 20)
		require.NoError(t, err)
		assert.NotNil(t, page)
		assert.Empty(t, page)
	})

	t.Run("HugePageIsEmpty", func(t *testing.T) {
		page, err := Paginate(rows, math.MaxInt64/50, 100)
		require.NoError(t, err)
		assert.Empty(t, page)

		page, err = Paginate(rows, math.MaxInt, 1)
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("ConcatenationCoversAll", func(t *testing.T) {
		var all []int
		for p := 1; ; p++ {
			page, err := Paginate(rows, p, 7)
			require.NoError(t, err)
			if len(page) == 0 {
				break
			}
			all = append(all, page...)
		}
		assert.Equal(t, rows, all)
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, tc := range []struct{ page, limit int }{{0, 20}, {1, 0}, {1, 101}, {-1, 10}} {
			_, err := Paginate(rows, tc.page, tc.limit)
			assert.ErrorIs(t, err, ErrInvalidPage, "page=%d limit=%d", tc.page, tc.limit)
		}
	})
}

func TestGetByID(t *testing.T) {
	tx, err := GetByID(fixture(), 3)
	require.NoError(t, err)
	assert.Equal(t, 600.0, tx.Amount)

	_, err = GetByID(fixture(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCustomerFlow(t *testing.T) {
	rows := fixture()

	debits := CustomerFlow(rows, 10, domain.FlowDebit)
	assert.Equal(t, []int64{1}, ids(debits))
	for _, tx := range debits {
		assert.Less(t, tx.Amount, 0.0)
	}

	credits := CustomerFlow(rows, 10, domain.FlowCredit)
	assert.Equal(t, []int64{3}, ids(credits), "negative incoming amounts are not credits")

	assert.Empty(t, CustomerFlow(rows, 999, domain.FlowDebit))
}

func TestDistinctTypes(t *testing.T) {
	assert.Equal(t,
		[]string{"Chip Transaction", "Online Transaction", "Swipe Transaction"},
		DistinctTypes(fixture()),
	)
	assert.Empty(t, DistinctTypes(nil))
}

func TestExprCompilerCache(t *testing.T) {
	c, err := NewExprCompiler(2)
	require.NoError(t, err)

	for _, expr := range []string{"amount > 1.0", "amount > 2.0", "amount > 3.0", "amount > 1.0"} {
		_, err := c.Compile(expr)
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, c.Cached(), 2)
}

func TestEngine(t *testing.T) {
	ctx := context.Background()
	store := dataset.NewStoreFromDataset(&dataset.Dataset{Transactions: fixture()})
	engine := NewEngine(store)

	t.Run("List", func(t *testing.T) {
		page, err := engine.List(ctx, ListRequest{Page: 1, Limit: 2, Filter: Filter{Type: "Online Transaction"}})
		require.NoError(t, err)
		assert.Equal(t, 2, page.TotalResults)
		assert.Equal(t, []int64{2, 3}, ids(page.Transactions))
	})

	t.Run("ListInvalidPage", func(t *testing.T) {
		_, err := engine.List(ctx, ListRequest{Page: 0, Limit: 20})
		assert.ErrorIs(t, err, ErrInvalidPage)
	})

	t.Run("DeleteThenQuery", func(t *testing.T) {
		require.True(t, engine.Delete(ctx, 2))

		_, err := engine.Get(ctx, 2)
		assert.ErrorIs(t, err, ErrNotFound)

		page, err := engine.List(ctx, ListRequest{Page: 1, Limit: 20, Filter: Filter{Type: "Online Transaction"}})
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, ids(page.Transactions))

		assert.False(t, engine.Delete(ctx, 2))
	})

	t.Run("Types", func(t *testing.T) {
		assert.Len(t, engine.Types(ctx), 3)
	})
}
