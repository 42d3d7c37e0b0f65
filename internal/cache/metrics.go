package cache

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opensource-finance/heron/internal/domain"
)

// Instrumented counts hits and misses of the wrapped cache.
type Instrumented struct {
	domain.Cache
	lookups *prometheus.CounterVec
}

// NewInstrumented wraps c. lookups must have a single "result" label.
func NewInstrumented(c domain.Cache, lookups *prometheus.CounterVec) *Instrumented {
	return &Instrumented{Cache: c, lookups: lookups}
}

// Get records "hit", "miss" or "error" for every lookup.
func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.Cache.Get(ctx, key)
	switch {
	case err != nil:
		c.lookups.WithLabelValues("error").Inc()
	case val == nil:
		c.lookups.WithLabelValues("miss").Inc()
	default:
		c.lookups.WithLabelValues("hit").Inc()
	}
	return val, err
}
