// Package worker persists dataset events published on the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/opensource-finance/heron/internal/domain"
)

// Worker consumes deletion and prediction events and writes them to the
// audit repository.
type Worker struct {
	bus  domain.EventBus
	repo domain.Repository

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc

	processed atomic.Int64
	failed    atomic.Int64
}

// NewWorker creates a new audit worker.
func NewWorker(bus domain.EventBus, repo domain.Repository) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the deletion and prediction topics.
func (w *Worker) Start() error {
	handlers := map[string]domain.MessageHandler{
		domain.TopicTransactionDeleted: w.handleDeleted,
		domain.TopicPredictionScored:   w.handleScored,
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for topic, handler := range handlers {
		sub, err := w.bus.Subscribe(w.ctx, topic, w.track(handler))
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		w.subscriptions = append(w.subscriptions, sub)
	}

	slog.Info("audit worker started", "topics", len(handlers))
	return nil
}

func (w *Worker) track(handler domain.MessageHandler) domain.MessageHandler {
	return func(ctx context.Context, msg *domain.Message) error {
		if err := handler(ctx, msg); err != nil {
			w.failed.Add(1)
			return err
		}
		w.processed.Add(1)
		return nil
	}
}

func (w *Worker) handleDeleted(ctx context.Context, msg *domain.Message) error {
	var ev domain.DeletionEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return fmt.Errorf("parse deletion event %s: %w", msg.ID, err)
	}
	if ev.ID == "" {
		ev.ID = msg.ID
	}

	if err := w.repo.SaveDeletion(ctx, &ev); err != nil {
		return fmt.Errorf("save deletion %d: %w", ev.TransactionID, err)
	}

	slog.Debug("deletion recorded",
		"transaction_id", ev.TransactionID,
		"request_id", ev.RequestID,
	)
	return nil
}

func (w *Worker) handleScored(ctx context.Context, msg *domain.Message) error {
	var p domain.Prediction
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return fmt.Errorf("parse prediction %s: %w", msg.ID, err)
	}
	if p.ID == "" {
		p.ID = msg.ID
	}

	if err := w.repo.SavePrediction(ctx, &p); err != nil {
		return fmt.Errorf("save prediction %s: %w", p.ID, err)
	}

	slog.Debug("prediction recorded",
		"prediction_id", p.ID,
		"is_fraud", p.IsFraud,
	)
	return nil
}

// Stop unsubscribes from all topics.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("audit worker stopped",
		"processed", w.processed.Load(),
		"failed", w.failed.Load(),
	)
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Processed         int64    `json:"processed"`
	Failed            int64    `json:"failed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Processed:         w.processed.Load(),
		Failed:            w.failed.Load(),
	}
}
