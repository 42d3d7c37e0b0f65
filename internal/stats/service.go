package stats

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/opensource-finance/heron/internal/cache"
	"github.com/opensource-finance/heron/internal/dataset"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/fraud"
)

// Service serves aggregates over the store's current snapshot. Results are
// memoized in the response cache under a key that carries the snapshot
// version, so a delete makes every earlier entry unreachable.
type Service struct {
	store *dataset.Store
	cache domain.Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewService creates a stats service. c may be nil to disable memoization.
func NewService(store *dataset.Store, c domain.Cache, ttl time.Duration) *Service {
	return &Service{store: store, cache: c, ttl: ttl}
}

// cacheKey names an aggregate of one snapshot version.
func cacheKey(name string, version uint64) string {
	return "stats:" + name + ":v" + strconv.FormatUint(version, 10)
}

// memo returns the cached aggregate for the current snapshot or computes it.
// Concurrent misses for the same key share one computation.
func memo[T any](ctx context.Context, s *Service, name string, compute func(rows []domain.Transaction) T) (T, error) {
	var out T

	table := s.store.Get(ctx)
	if table.Len() == 0 {
		return out, dataset.ErrDatasetUnavailable
	}
	key := cacheKey(name, table.Version())

	if s.cache != nil {
		hit, err := cache.GetJSON(ctx, s.cache, key, &out)
		if err != nil {
			slog.Warn("stats cache read failed", "key", key, "error", err)
		}
		if hit {
			return out, nil
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		res := compute(table.Rows())
		if s.cache != nil {
			if err := cache.SetJSON(ctx, s.cache, key, res, s.ttl); err != nil {
				slog.Warn("stats cache write failed", "key", key, "error", err)
			}
		}
		return res, nil
	})
	if err != nil {
		return out, err
	}
	return v.(T), nil
}

// Overview summarizes the working table.
func (s *Service) Overview(ctx context.Context) (domain.Overview, error) {
	return memo(ctx, s, "overview", Overview)
}

// AmountDistribution bins amounts with DefaultEdges.
func (s *Service) AmountDistribution(ctx context.Context) (domain.Distribution, error) {
	return memo(ctx, s, "amount_distribution", func(rows []domain.Transaction) domain.Distribution {
		return AmountDistribution(rows, DefaultEdges)
	})
}

// ByType returns the per-type breakdown.
func (s *Service) ByType(ctx context.Context) ([]domain.TypeStats, error) {
	return memo(ctx, s, "by_type", ByType)
}

// Daily returns the per-day breakdown.
func (s *Service) Daily(ctx context.Context) ([]domain.DailyStats, error) {
	return memo(ctx, s, "daily", Daily)
}

// FraudByType returns per-type fraud rates.
func (s *Service) FraudByType(ctx context.Context) ([]domain.FraudTypeStats, error) {
	return memo(ctx, s, "fraud_by_type", FraudByType)
}

// FraudSummary evaluates the heuristic against the labels.
func (s *Service) FraudSummary(ctx context.Context) (domain.FraudSummary, error) {
	return memo(ctx, s, "fraud_summary", fraud.Evaluate)
}

// TopCustomers ranks clients by volume.
func (s *Service) TopCustomers(ctx context.Context, n int) ([]domain.CustomerVolume, error) {
	if n <= 0 {
		n = DefaultTop
	}
	return memo(ctx, s, fmt.Sprintf("top_customers_%d", n), func(rows []domain.Transaction) []domain.CustomerVolume {
		return TopCustomers(rows, n)
	})
}

// CustomerProfile rolls up one client's transactions.
func (s *Service) CustomerProfile(ctx context.Context, customerID int64) (domain.CustomerProfile, error) {
	return CustomerProfile(s.store.Get(ctx).Rows(), customerID)
}

// Customers returns the distinct account holders.
func (s *Service) Customers(ctx context.Context) []domain.CustomerRef {
	return CustomerIDs(s.store.Holders(ctx))
}
