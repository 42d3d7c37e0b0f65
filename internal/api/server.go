package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/heron/internal/domain"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server. A nil deps.Metrics gets a fresh
// registry.
func NewServer(cfg domain.ServerConfig, deps Deps) *Server {
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
		deps.Metrics.WatchDataset(deps.Store)
	}
	handler := NewHandler(deps)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)          // CORS for browser clients
	router.Use(RecoverMiddleware)       // Recover from panics
	router.Use(TracingMiddleware)       // OpenTelemetry tracing
	router.Use(LoggingMiddleware)       // Request logging
	router.Use(deps.Metrics.Middleware) // Prometheus request metrics
	router.Use(middleware.RealIP)       // Extract real IP
	router.Use(middleware.Compress(5))  // Gzip compression

	// Probes and metrics
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/health", handler.SystemHealth)
			r.Get("/metadata", handler.Metadata)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", handler.ListTransactions)
			r.Get("/types", handler.TransactionTypes)
			r.Get("/by-customer/{customerId}", handler.CustomerDebits)
			r.Get("/to-customer/{customerId}", handler.CustomerCredits)
			r.Get("/{id}", handler.GetTransaction)
			r.Delete("/{id}", handler.DeleteTransaction)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/overview", handler.Overview)
			r.Get("/amount-distribution", handler.AmountDistribution)
			r.Get("/by-type", handler.StatsByType)
			r.Get("/daily", handler.DailyStats)
		})

		r.Route("/fraud", func(r chi.Router) {
			r.Get("/summary", handler.FraudSummary)
			r.Get("/by-type", handler.FraudByType)
			r.Post("/predict", handler.Predict)
			r.Get("/predictions", handler.ListPredictions)
			r.Get("/predictions/{id}", handler.GetPrediction)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", handler.ListCustomers)
			r.Get("/top", handler.TopCustomers)
			r.Get("/{customerId}", handler.GetCustomer)
		})

		r.Get("/merchants/categories", handler.ListCategories)
		r.Get("/merchants/categories/{code}", handler.GetCategory)
		r.Get("/audit/deletions", handler.ListDeletions)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
