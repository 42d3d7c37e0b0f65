package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opensource-finance/heron/internal/dataset"
	"github.com/opensource-finance/heron/internal/worker"
)

// Metrics owns a private Prometheus registry so several servers can run
// in one process.
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	predictions *prometheus.CounterVec

	// CacheLookups is handed to cache.NewInstrumented.
	CacheLookups *prometheus.CounterVec
}

// NewMetrics creates and registers the service collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heron",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "heron",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heron",
			Name:      "predictions_total",
			Help:      "Fraud predictions by verdict.",
		}, []string{"verdict"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heron",
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.predictions,
		m.CacheLookups,
	)
	return m
}

// WatchDataset exports the live row count of store. The gauge reads 0
// until the dataset has been loaded.
func (m *Metrics) WatchDataset(store *dataset.Store) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "heron",
		Name:      "dataset_rows",
		Help:      "Live rows in the working transaction table.",
	}, func() float64 {
		if !store.Loaded() {
			return 0
		}
		return float64(store.Get(context.Background()).Len())
	}))
}

// WorkerStats is implemented by the audit worker.
type WorkerStats interface {
	GetStats() worker.Stats
}

// WatchWorker exports the audit worker's event counters and subscription
// count.
func (m *Metrics) WatchWorker(w WorkerStats) {
	for result, read := range map[string]func(worker.Stats) int64{
		"processed": func(s worker.Stats) int64 { return s.Processed },
		"failed":    func(s worker.Stats) int64 { return s.Failed },
	} {
		read := read
		m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   "heron",
			Name:        "audit_events_total",
			Help:        "Bus events handled by the audit worker.",
			ConstLabels: prometheus.Labels{"result": result},
		}, func() float64 {
			return float64(read(w.GetStats()))
		}))
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "heron",
		Name:      "audit_subscriptions",
		Help:      "Active bus subscriptions of the audit worker.",
	}, func() float64 {
		return float64(w.GetStats().SubscriptionCount)
	}))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrapResponseWriter(w)

		next.ServeHTTP(rw, r)

		route := routePattern(r)
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) observePrediction(isFraud bool) {
	if m == nil {
		return
	}
	verdict := "legit"
	if isFraud {
		verdict = "fraud"
	}
	m.predictions.WithLabelValues(verdict).Inc()
}
