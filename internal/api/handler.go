package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/opensource-finance/heron/internal/dataset"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/query"
	"github.com/opensource-finance/heron/internal/repository"
	"github.com/opensource-finance/heron/internal/stats"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	store    *dataset.Store
	engine   *query.Engine
	stats    *stats.Service
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	metrics  *Metrics
	metadata domain.MetadataConfig
	started  time.Time
}

// Deps are the collaborators a Handler serves from. Store is required;
// the rest may be nil.
type Deps struct {
	Store    *dataset.Store
	Stats    *stats.Service
	Repo     domain.Repository
	Cache    domain.Cache
	Bus      domain.EventBus
	Metrics  *Metrics
	Metadata domain.MetadataConfig
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	svc := deps.Stats
	if svc == nil {
		svc = stats.NewService(deps.Store, deps.Cache, 0)
	}
	return &Handler{
		store:    deps.Store,
		engine:   query.NewEngine(deps.Store),
		stats:    svc,
		repo:     deps.Repo,
		cache:    deps.Cache,
		bus:      deps.Bus,
		metrics:  deps.Metrics,
		metadata: deps.Metadata,
		started:  time.Now(),
	}
}

// requireDataset writes a 404 and reports false when the working table is empty.
func (h *Handler) requireDataset(w http.ResponseWriter, r *http.Request) bool {
	if h.store.Get(r.Context()).Len() == 0 {
		writeError(w, dataset.ErrDatasetUnavailable)
		return false
	}
	return true
}

// publish emits an audit event. Without a bus the event is written to the
// repository directly so the audit trail stays complete.
func (h *Handler) publish(ctx context.Context, topic string, v any) {
	if h.bus == nil {
		h.record(ctx, v)
		return
	}

	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode event", "topic", topic, "error", err)
		return
	}
	if err := h.bus.Publish(ctx, topic, payload); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

func (h *Handler) record(ctx context.Context, v any) {
	if h.repo == nil {
		return
	}

	var err error
	switch ev := v.(type) {
	case *domain.Prediction:
		err = h.repo.SavePrediction(ctx, ev)
	case *domain.DeletionEvent:
		err = h.repo.SaveDeletion(ctx, ev)
	}
	if err != nil {
		slog.Error("failed to record event", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorResponse is the body of every non-2xx answer.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError maps package errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var verr *validationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.fields})
	case errors.Is(err, errMalformedBody):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errMalformedBody.Error()})
	case errors.Is(err, dataset.ErrDatasetUnavailable):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "dataset unavailable"})
	case errors.Is(err, query.ErrNotFound),
		errors.Is(err, stats.ErrNotFound),
		errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, query.ErrInvalidPage),
		errors.Is(err, query.ErrInvalidExpression),
		errors.Is(err, stats.ErrInvalidCustomerID):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, errRepositoryUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

var errRepositoryUnavailable = errors.New("repository not available")

// params collects query-string and path values, remembering every value
// that failed to parse.
type params struct {
	fields map[string]string
}

func (p *params) fail(name, msg string) {
	if p.fields == nil {
		p.fields = make(map[string]string)
	}
	p.fields[name] = msg
}

func (p *params) intValue(name, raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(name, "must be an integer")
		return def
	}
	return v
}

func (p *params) int64Value(name, raw string) int64 {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.fail(name, "must be an integer")
	}
	return v
}

func (p *params) floatPtr(name, raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(name, "must be a number")
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		p.fail(name, "must be a finite number")
		return nil
	}
	return &v
}

func (p *params) err() error {
	if len(p.fields) == 0 {
		return nil
	}
	return &validationError{fields: p.fields}
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{query.ErrNotFound}, args...)...)
}
