// Package stats computes the descriptive aggregates served by the API.
// Every function is pure over a slice of rows; Service adds memoization.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/btree"

	"github.com/opensource-finance/heron/internal/dataset"
	"github.com/opensource-finance/heron/internal/domain"
)

var (
	ErrNotFound          = errors.New("customer not found")
	ErrInvalidCustomerID = errors.New("invalid customer id")
)

// DefaultEdges are the amount histogram boundaries.
var DefaultEdges = []float64{0, 100, 500, 1000, 5000}

// DefaultTop is the ranking size used when n is not positive.
const DefaultTop = 10

// Overview summarizes rows. All optional fields are nil for empty input.
// A tie for the most common type goes to the type seen first.
func Overview(rows []domain.Transaction) domain.Overview {
	if len(rows) == 0 {
		return domain.Overview{}
	}

	var frauds int
	var sum float64
	counts := make(map[string]int)
	var order []string
	for _, tx := range rows {
		frauds += tx.IsFraud
		sum += tx.Amount
		if _, ok := counts[tx.Type]; !ok {
			order = append(order, tx.Type)
		}
		counts[tx.Type]++
	}

	mostCommon := order[0]
	for _, t := range order[1:] {
		if counts[t] > counts[mostCommon] {
			mostCommon = t
		}
	}

	n := float64(len(rows))
	fraudRate := float64(frauds) / n
	avg := sum / n
	return domain.Overview{
		TotalTransactions: len(rows),
		FraudRate:         &fraudRate,
		AvgAmount:         &avg,
		MostCommonType:    &mostCommon,
	}
}

// AmountDistribution counts amounts into the half-open bins [edges[i], edges[i+1]).
// Amounts outside every bin are ignored. Nil edges means DefaultEdges.
// Empty input yields empty bins.
func AmountDistribution(rows []domain.Transaction, edges []float64) domain.Distribution {
	if edges == nil {
		edges = DefaultEdges
	}
	if len(rows) == 0 || len(edges) < 2 {
		return domain.Distribution{Bins: []string{}, Counts: []int{}}
	}

	bins := make([]string, len(edges)-1)
	for i := range bins {
		bins[i] = formatEdge(edges[i]) + "-" + formatEdge(edges[i+1])
	}

	counts := make([]int, len(bins))
	for _, tx := range rows {
		// first edge strictly greater than the amount
		j := sort.SearchFloat64s(edges, math.Nextafter(tx.Amount, math.Inf(1)))
		if j == 0 || j == len(edges) {
			continue
		}
		counts[j-1]++
	}

	return domain.Distribution{Bins: bins, Counts: counts}
}

func formatEdge(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ByType returns count and mean amount per type, in first-seen order.
func ByType(rows []domain.Transaction) []domain.TypeStats {
	type agg struct {
		count int
		sum   float64
	}
	groups := make(map[string]*agg)
	var order []string
	for _, tx := range rows {
		g, ok := groups[tx.Type]
		if !ok {
			g = &agg{}
			groups[tx.Type] = g
			order = append(order, tx.Type)
		}
		g.count++
		g.sum += tx.Amount
	}

	out := make([]domain.TypeStats, 0, len(order))
	for _, t := range order {
		g := groups[t]
		out = append(out, domain.TypeStats{
			Type:      t,
			Count:     g.count,
			AvgAmount: g.sum / float64(g.count),
		})
	}
	return out
}

// FraudByType returns per-type fraud counts sorted by type name.
func FraudByType(rows []domain.Transaction) []domain.FraudTypeStats {
	groups := make(map[string]*domain.FraudTypeStats)
	for _, tx := range rows {
		g, ok := groups[tx.Type]
		if !ok {
			g = &domain.FraudTypeStats{Type: tx.Type}
			groups[tx.Type] = g
		}
		g.Total++
		g.FraudCount += tx.IsFraud
	}

	out := make([]domain.FraudTypeStats, 0, len(groups))
	for _, g := range groups {
		g.FraudRate = dataset.Round(float64(g.FraudCount)/float64(g.Total), 4)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Daily groups rows by the UTC calendar date of their timestamp, ascending.
// Rows without a parsed timestamp are left out.
func Daily(rows []domain.Transaction) []domain.DailyStats {
	type agg struct {
		count int
		sum   float64
	}
	days := btree.NewMap[string, *agg](32)
	for _, tx := range rows {
		if tx.Timestamp.IsZero() {
			continue
		}
		day := tx.Timestamp.UTC().Format("2006-01-02")
		g, ok := days.Get(day)
		if !ok {
			g = &agg{}
			days.Set(day, g)
		}
		g.count++
		g.sum += tx.Amount
	}

	out := make([]domain.DailyStats, 0, days.Len())
	days.Scan(func(day string, g *agg) bool {
		out = append(out, domain.DailyStats{
			Date:      day,
			Count:     g.count,
			AvgAmount: g.sum / float64(g.count),
		})
		return true
	})
	return out
}

// CustomerProfile rolls up the transactions a client originated.
func CustomerProfile(rows []domain.Transaction, customerID int64) (domain.CustomerProfile, error) {
	var count int
	var sum float64
	var fraudulent bool
	for _, tx := range rows {
		if tx.ClientID != customerID {
			continue
		}
		count++
		sum += tx.Amount
		if tx.IsFraud == 1 {
			fraudulent = true
		}
	}
	if count == 0 {
		return domain.CustomerProfile{}, fmt.Errorf("%w: %s", ErrNotFound, FormatCustomerID(customerID))
	}

	return domain.CustomerProfile{
		ID:                FormatCustomerID(customerID),
		TransactionsCount: count,
		AvgAmount:         dataset.Round(sum/float64(count), 2),
		Fraudulent:        fraudulent,
	}, nil
}

// TopCustomers ranks clients by summed amount, highest first. Equal volumes
// keep the order in which the clients first appear.
func TopCustomers(rows []domain.Transaction, n int) []domain.CustomerVolume {
	if n <= 0 {
		n = DefaultTop
	}

	type agg struct {
		id    int64
		count int
		sum   float64
	}
	groups := make(map[int64]*agg)
	var order []*agg
	for _, tx := range rows {
		g, ok := groups[tx.ClientID]
		if !ok {
			g = &agg{id: tx.ClientID}
			groups[tx.ClientID] = g
			order = append(order, g)
		}
		g.count++
		g.sum += tx.Amount
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].sum > order[j].sum })
	if len(order) > n {
		order = order[:n]
	}

	out := make([]domain.CustomerVolume, 0, len(order))
	for _, g := range order {
		out = append(out, domain.CustomerVolume{
			ID:                FormatCustomerID(g.id),
			TotalVolume:       dataset.Round(g.sum, 2),
			TransactionsCount: g.count,
		})
	}
	return out
}

// CustomerIDs returns the distinct holder ids in file order.
func CustomerIDs(holders []domain.AccountHolder) []domain.CustomerRef {
	seen := make(map[int64]struct{}, len(holders))
	out := make([]domain.CustomerRef, 0, len(holders))
	for _, h := range holders {
		if _, ok := seen[h.ID]; ok {
			continue
		}
		seen[h.ID] = struct{}{}
		out = append(out, domain.CustomerRef{ID: FormatCustomerID(h.ID)})
	}
	return out
}

// FormatCustomerID renders a client id the way the API exposes it.
func FormatCustomerID(id int64) string {
	return "C" + strconv.FormatInt(id, 10)
}

// ParseCustomerID accepts "C123", "c123" or "123".
func ParseCustomerID(s string) (int64, error) {
	raw := strings.TrimSpace(s)
	if strings.HasPrefix(raw, "C") || strings.HasPrefix(raw, "c") {
		raw = raw[1:]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCustomerID, s)
	}
	return id, nil
}
