// Package repository persists the prediction log and the deletion audit trail.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/opensource-finance/heron/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// defaultListLimit applies when a caller passes a non-positive limit.
const defaultListLimit = 50

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "memory":
		db, err = openMemory()
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	driver := cfg.Driver
	if driver == "memory" {
		driver = "sqlite"
	}
	repo := &SQLRepository{db: db, driver: driver}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SavePrediction appends a scored request to the prediction log.
func (r *SQLRepository) SavePrediction(ctx context.Context, p *domain.Prediction) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: prediction id is required", ErrInvalidInput)
	}

	isFraud := 0
	if p.IsFraud {
		isFraud = 1
	}

	query := `
		INSERT INTO predictions (
			id, type, amount, old_balance, new_balance,
			probability, is_fraud, request_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		p.ID, p.Type, p.Amount,
		nullFloat(p.OldBalance), nullFloat(p.NewBalance),
		p.Probability, isFraud, p.RequestID, p.CreatedAt.UTC(),
	)
	return err
}

// GetPrediction retrieves a logged prediction by ID.
func (r *SQLRepository) GetPrediction(ctx context.Context, id string) (*domain.Prediction, error) {
	query := `
		SELECT id, type, amount, old_balance, new_balance,
			   probability, is_fraud, request_id, created_at
		FROM predictions
		WHERE id = ?
	`

	p, err := scanPrediction(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPredictions returns the most recent predictions first.
func (r *SQLRepository) ListPredictions(ctx context.Context, limit int) ([]*domain.Prediction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, type, amount, old_balance, new_balance,
			   probability, is_fraud, request_id, created_at
		FROM predictions
		ORDER BY created_at DESC, id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	predictions := make([]*domain.Prediction, 0)
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}

	return predictions, rows.Err()
}

// SaveDeletion records a delete against the working table.
func (r *SQLRepository) SaveDeletion(ctx context.Context, ev *domain.DeletionEvent) error {
	if ev == nil || ev.ID == "" {
		return fmt.Errorf("%w: deletion event id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO deletion_events (id, transaction_id, request_id, deleted_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		ev.ID, ev.TransactionID, ev.RequestID, ev.DeletedAt.UTC(),
	)
	return err
}

// ListDeletions returns the most recent deletions first.
func (r *SQLRepository) ListDeletions(ctx context.Context, limit int) ([]*domain.DeletionEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, transaction_id, request_id, deleted_at
		FROM deletion_events
		ORDER BY deleted_at DESC, id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.DeletionEvent, 0)
	for rows.Next() {
		var ev domain.DeletionEvent
		if err := rows.Scan(&ev.ID, &ev.TransactionID, &ev.RequestID, &ev.DeletedAt); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}

	return events, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row rowScanner) (*domain.Prediction, error) {
	var p domain.Prediction
	var oldBalance, newBalance sql.NullFloat64
	var isFraud int

	if err := row.Scan(
		&p.ID, &p.Type, &p.Amount,
		&oldBalance, &newBalance,
		&p.Probability, &isFraud, &p.RequestID, &p.CreatedAt,
	); err != nil {
		return nil, err
	}

	p.IsFraud = isFraud == 1
	if oldBalance.Valid {
		p.OldBalance = &oldBalance.Float64
	}
	if newBalance.Valid {
		p.NewBalance = &newBalance.Float64
	}
	return &p, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}
