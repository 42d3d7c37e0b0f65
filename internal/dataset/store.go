package dataset

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

// LoadFunc loads the raw dataset. Load is the default.
type LoadFunc func(ctx context.Context, cfg domain.DatasetConfig) (*Dataset, error)

// Store owns the dataset for the life of the process. The first access
// loads it exactly once; deletes swap in a new Table snapshot.
type Store struct {
	cfg  domain.DatasetConfig
	load LoadFunc

	once    sync.Once
	initErr error

	mu         sync.RWMutex
	table      *Table
	holders    []domain.AccountHolder
	categories domain.MerchantCategories
	labels     domain.FraudLabels
	loaded     bool
}

// NewStore creates a store that loads lazily with load, or Load when nil.
func NewStore(cfg domain.DatasetConfig, load LoadFunc) *Store {
	if load == nil {
		load = Load
	}
	return &Store{cfg: cfg, load: load}
}

// NewStoreFromDataset creates an already-initialized store. Labels are
// joined into the transactions.
func NewStoreFromDataset(ds *Dataset) *Store {
	s := &Store{}
	s.once.Do(func() { s.install(ds) })
	return s
}

// Init loads the dataset on first call. Later calls return the first
// call's error without reloading. On error the store serves whatever
// was read, possibly nothing.
func (s *Store) Init(ctx context.Context) error {
	s.once.Do(func() {
		start := time.Now()
		ds, err := s.load(ctx, s.cfg)
		if err != nil {
			slog.Error("dataset load failed", "error", err)
			s.initErr = err
		}
		if ds == nil {
			ds = &Dataset{}
		}
		s.install(ds)

		slog.Info("dataset loaded",
			"transactions", len(ds.Transactions),
			"holders", len(ds.Holders),
			"categories", len(ds.Categories),
			"labels", len(ds.Labels),
			"skipped_rows", ds.SkippedRows,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
	return s.initErr
}

func (s *Store) install(ds *Dataset) {
	labels := ds.Labels
	if labels == nil {
		labels = domain.FraudLabels{}
	}
	categories := ds.Categories
	if categories == nil {
		categories = domain.MerchantCategories{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = newTable(JoinLabels(ds.Transactions, labels))
	s.holders = ds.Holders
	s.categories = categories
	s.labels = labels
	s.loaded = len(ds.Transactions) > 0
}

// Get returns the current snapshot, loading the dataset if needed.
func (s *Store) Get(ctx context.Context) *Table {
	_ = s.Init(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Loaded reports whether a non-empty transaction table was loaded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Holders returns the account holders in file order.
func (s *Store) Holders(ctx context.Context) []domain.AccountHolder {
	_ = s.Init(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holders
}

// Categories returns the merchant category reference.
func (s *Store) Categories(ctx context.Context) domain.MerchantCategories {
	_ = s.Init(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories
}

// Labels returns the ground-truth fraud labels.
func (s *Store) Labels(ctx context.Context) domain.FraudLabels {
	_ = s.Init(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.labels
}

// Delete removes the transaction with id from the working table.
// It reports false when no live row has that id.
func (s *Store) Delete(ctx context.Context, id int64) bool {
	_ = s.Init(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.table.without(id)
	if !ok {
		return false
	}
	s.table = next
	return true
}
