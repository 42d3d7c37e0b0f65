// Package dataset loads the card transaction dataset and keeps the working
// table that queries and aggregates read from.
package dataset

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

// ErrDatasetUnavailable wraps I/O failures on an input file that exists.
var ErrDatasetUnavailable = errors.New("dataset unavailable")

// Dataset is the raw result of loading the four input files.
// Transactions are not yet joined with Labels.
type Dataset struct {
	Transactions []domain.Transaction
	Holders      []domain.AccountHolder
	Categories   domain.MerchantCategories
	Labels       domain.FraudLabels

	// SkippedRows counts transaction rows dropped for an unparseable id.
	SkippedRows int
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// Load reads every file named in cfg. A missing file yields an empty
// collection. Other read failures are returned wrapped with
// ErrDatasetUnavailable together with whatever was loaded.
func Load(ctx context.Context, cfg domain.DatasetConfig) (*Dataset, error) {
	ds := &Dataset{
		Categories: domain.MerchantCategories{},
		Labels:     domain.FraudLabels{},
	}
	var errs []error

	if err := readFile(cfg.TransactionsPath, func(r io.Reader) error {
		txs, skipped, err := readTransactions(ctx, r, cfg.MaxRows)
		ds.Transactions, ds.SkippedRows = txs, skipped
		return err
	}); err != nil {
		errs = append(errs, err)
	}

	if err := readFile(cfg.UsersPath, func(r io.Reader) error {
		holders, err := readHolders(ctx, r)
		ds.Holders = holders
		return err
	}); err != nil {
		errs = append(errs, err)
	}

	// Reference files degrade to empty maps on any problem.
	if err := readFile(cfg.MCCPath, func(r io.Reader) error {
		categories, err := readCategories(r)
		if err == nil {
			ds.Categories = categories
		}
		return err
	}); err != nil {
		slog.Warn("merchant categories unavailable", "path", cfg.MCCPath, "error", err)
	}

	if err := readFile(cfg.FraudLabelsPath, func(r io.Reader) error {
		labels, skipped, err := ParseLabels(r)
		if err == nil {
			ds.Labels = labels
		}
		if skipped > 0 {
			slog.Warn("fraud labels with non-numeric ids skipped", "skipped", skipped)
		}
		return err
	}); err != nil {
		slog.Warn("fraud labels unavailable", "path", cfg.FraudLabelsPath, "error", err)
	}

	if len(errs) > 0 {
		return ds, fmt.Errorf("%w: %w", ErrDatasetUnavailable, errors.Join(errs...))
	}
	return ds, nil
}

// readFile opens path and hands it to fn. A missing file is logged and
// treated as empty.
func readFile(path string, fn func(io.Reader) error) error {
	if path == "" {
		return nil
	}

	start := time.Now()
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("dataset file not found", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := fn(f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	slog.Debug("dataset file read",
		"path", path,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// header maps lower-cased, trimmed column names to their index.
type header map[string]int

func newHeader(cols []string) header {
	h := make(header, len(cols))
	for i, c := range cols {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h
}

func (h header) has(col string) bool {
	_, ok := h[col]
	return ok
}

func (h header) get(rec []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}

func readTransactions(ctx context.Context, r io.Reader, maxRows int) ([]domain.Transaction, int, error) {
	cr := newCSVReader(r)
	cols, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	h := newHeader(cols)

	typeCol := "type"
	if !h.has(typeCol) {
		typeCol = "use_chip"
	}

	var txs []domain.Transaction
	skipped := 0
	for n := 0; maxRows <= 0 || len(txs) < maxRows; n++ {
		if n%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return txs, skipped, err
			}
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return txs, skipped, err
		}

		id, ok := parseInt(h.get(rec, "id"))
		if !ok {
			skipped++
			continue
		}

		tx := domain.Transaction{
			ID:            id,
			Amount:        ParseCurrency(h.get(rec, "amount")),
			Type:          h.get(rec, typeCol),
			Date:          h.get(rec, "date"),
			MerchantCity:  h.get(rec, "merchant_city"),
			MerchantState: h.get(rec, "merchant_state"),
			Zip:           h.get(rec, "zip"),
			Errors:        h.get(rec, "errors"),
		}
		tx.ClientID, _ = parseInt(h.get(rec, "client_id"))
		tx.CardID, _ = parseInt(h.get(rec, "card_id"))
		tx.MerchantID, _ = parseInt(h.get(rec, "merchant_id"))
		mcc, _ := parseInt(h.get(rec, "mcc"))
		tx.MCC = int(mcc)
		tx.Timestamp = parseDate(tx.Date)
		tx.OldBalance = parseOptionalFloat(h.get(rec, "oldbalanceorg"))
		tx.NewBalance = parseOptionalFloat(h.get(rec, "newbalanceorig"))

		txs = append(txs, tx)
	}

	if skipped > 0 {
		slog.Warn("transaction rows with invalid id skipped", "skipped", skipped)
	}
	return txs, skipped, nil
}

func readHolders(ctx context.Context, r io.Reader) ([]domain.AccountHolder, error) {
	cr := newCSVReader(r)
	cols, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	h := newHeader(cols)

	var holders []domain.AccountHolder
	for {
		if err := ctx.Err(); err != nil {
			return holders, err
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return holders, err
		}

		id, ok := parseInt(h.get(rec, "id"))
		if !ok {
			continue
		}

		holder := domain.AccountHolder{
			ID:              id,
			Gender:          h.get(rec, "gender"),
			Address:         h.get(rec, "address"),
			PerCapitaIncome: ParseCurrency(h.get(rec, "per_capita_income")),
			YearlyIncome:    ParseCurrency(h.get(rec, "yearly_income")),
			TotalDebt:       ParseCurrency(h.get(rec, "total_debt")),
		}
		holder.CurrentAge = parseSmallInt(h.get(rec, "current_age"))
		holder.RetirementAge = parseSmallInt(h.get(rec, "retirement_age"))
		holder.BirthYear = parseSmallInt(h.get(rec, "birth_year"))
		holder.BirthMonth = parseSmallInt(h.get(rec, "birth_month"))
		holder.CreditScore = parseSmallInt(h.get(rec, "credit_score"))
		holder.NumCreditCards = parseSmallInt(h.get(rec, "num_credit_cards"))
		holder.Latitude, _ = strconv.ParseFloat(h.get(rec, "latitude"), 64)
		holder.Longitude, _ = strconv.ParseFloat(h.get(rec, "longitude"), 64)

		holders = append(holders, holder)
	}
	return holders, nil
}

func readCategories(r io.Reader) (domain.MerchantCategories, error) {
	var raw map[string]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode merchant categories: %w", err)
	}

	categories := make(domain.MerchantCategories, len(raw))
	for k, v := range raw {
		code, ok := parseInt(k)
		if !ok {
			continue
		}
		categories[int(code)] = v
	}
	return categories, nil
}

// parseInt accepts plain integers and whole floats such as "58523.0".
func parseInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

func parseSmallInt(s string) int {
	v, _ := parseInt(s)
	return int(v)
}

func parseOptionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
