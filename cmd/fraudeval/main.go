// Fraud heuristic evaluation against the labelled transaction dataset.
//
// Usage:
//
//	go run ./cmd/fraudeval -transactions ./data/transactions_data.csv -labels ./data/train_fraud_labels.json
//	go run ./cmd/fraudeval -url http://localhost:8000 -workers 10
//
// Without -url the heuristic is scored in-process. With -url every row is
// posted to a running server's /api/fraud/predict and the verdicts are
// compared with the labels.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/heron/internal/config"
	"github.com/opensource-finance/heron/internal/dataset"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/fraud"
)

// runStats tracks request-level counters of a replay.
type runStats struct {
	processed        atomic.Int64
	errors           atomic.Int64
	processingTimeMs atomic.Int64
}

func main() {
	txPath := flag.String("transactions", "", "Transactions CSV (default from config)")
	labelsPath := flag.String("labels", "", "Fraud labels JSON (default from config)")
	baseURL := flag.String("url", "", "Replay against this Heron server instead of scoring locally")
	limit := flag.Int("limit", 10000, "Maximum transactions to evaluate, counted after -fraud-only (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers for -url")
	fraudOnly := flag.Bool("fraud-only", false, "Only evaluate labelled fraud")
	verbose := flag.Bool("verbose", false, "Print each transaction result")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("ERROR: failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *txPath != "" {
		cfg.Dataset.TransactionsPath = *txPath
	}
	if *labelsPath != "" {
		cfg.Dataset.FraudLabelsPath = *labelsPath
	}
	// With -fraud-only the cap applies to the frauds, so read everything.
	if !*fraudOnly {
		cfg.Dataset.MaxRows = *limit
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║            HERON FRAUD HEURISTIC EVALUATION                   ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nTransactions: %s\n", cfg.Dataset.TransactionsPath)
	fmt.Printf("Labels:       %s\n", cfg.Dataset.FraudLabelsPath)
	fmt.Printf("Limit:        %d\n", *limit)
	fmt.Printf("Fraud Only:   %v\n", *fraudOnly)
	if *baseURL != "" {
		fmt.Printf("Heron URL:    %s\n", *baseURL)
		fmt.Printf("Workers:      %d\n", workerCount(*workers))
	}
	fmt.Println()

	rows, err := loadRows(context.Background(), cfg.Dataset, *fraudOnly, *limit)
	if err != nil {
		fmt.Printf("ERROR: failed to load dataset: %v\n", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		fmt.Println("ERROR: no transactions to evaluate")
		os.Exit(1)
	}

	fraudCount := 0
	for _, tx := range rows {
		fraudCount += tx.IsFraud
	}
	fmt.Printf("✓ Loaded %d transactions\n", len(rows))
	fmt.Printf("  - Fraud:     %d (%.2f%%)\n", fraudCount, 100*float64(fraudCount)/float64(len(rows)))
	fmt.Printf("  - Non-fraud: %d (%.2f%%)\n", len(rows)-fraudCount, 100*float64(len(rows)-fraudCount)/float64(len(rows)))

	var m fraud.Matrix
	stats := &runStats{}
	start := time.Now()

	if *baseURL == "" {
		for i := range rows {
			verdict := fraud.Score(fraud.InputFor(&rows[i]))
			m.Add(verdict.IsFraud, rows[i].IsFraud == 1)
			stats.processed.Add(1)
			if *verbose {
				printRow(&rows[i], verdict.IsFraud, verdict.Probability)
			}
		}
	} else {
		if err := checkHealth(*baseURL); err != nil {
			fmt.Printf("ERROR: Heron not reachable at %s: %v\n", *baseURL, err)
			fmt.Println("\nMake sure Heron is running:")
			fmt.Println("  go run ./cmd/heron")
			os.Exit(1)
		}
		fmt.Println("✓ Heron is healthy")
		fmt.Printf("\nReplaying with %d workers...\n", workerCount(*workers))
		m = replay(rows, *baseURL, *workers, *verbose, stats)
	}

	printResults(m, stats, time.Since(start))
}

// loadRows reads the dataset and joins the labels.
func loadRows(ctx context.Context, cfg domain.DatasetConfig, fraudOnly bool, limit int) ([]domain.Transaction, error) {
	ds, err := dataset.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return selectRows(dataset.JoinLabels(ds.Transactions, ds.Labels), fraudOnly, limit), nil
}

// selectRows keeps the labelled frauds when fraudOnly is set, then caps the
// result at limit rows (0 = all).
func selectRows(rows []domain.Transaction, fraudOnly bool, limit int) []domain.Transaction {
	if fraudOnly {
		out := rows[:0]
		for _, tx := range rows {
			if tx.IsFraud == 1 {
				out = append(out, tx)
			}
		}
		rows = out
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// workerCount clamps the -workers flag; zero workers would leave the
// producer blocked forever.
func workerCount(n int) int {
	return max(n, 1)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// replay posts every row to the server. Each worker keeps its own matrix;
// they are merged once all workers are done.
func replay(rows []domain.Transaction, baseURL string, numWorkers int, verbose bool, stats *runStats) fraud.Matrix {
	numWorkers = workerCount(numWorkers)
	work := make(chan *domain.Transaction, 100)

	var mu sync.Mutex
	var total fraud.Matrix
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			var local fraud.Matrix
			for tx := range work {
				start := time.Now()
				result, err := predict(client, baseURL, tx)
				stats.processingTimeMs.Add(time.Since(start).Milliseconds())
				stats.processed.Add(1)

				if err != nil {
					stats.errors.Add(1)
					if verbose {
						fmt.Printf("ERROR: %d -> %v\n", tx.ID, err)
					}
					continue
				}

				local.Add(result.IsFraud, tx.IsFraud == 1)
				if verbose {
					printRow(tx, result.IsFraud, result.Probability)
				}
			}

			mu.Lock()
			total.Merge(local)
			mu.Unlock()
		}()
	}

	for i := range rows {
		work <- &rows[i]
	}
	close(work)
	wg.Wait()

	return total
}

func predict(client *http.Client, baseURL string, tx *domain.Transaction) (*domain.PredictionResponse, error) {
	amount := tx.Amount
	body, err := json.Marshal(domain.PredictionRequest{
		Type:       tx.Type,
		Amount:     &amount,
		OldBalance: tx.OldBalance,
		NewBalance: tx.NewBalance,
	})
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(baseURL+"/api/fraud/predict", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result domain.PredictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func printRow(tx *domain.Transaction, predicted bool, probability float64) {
	status := "✓"
	if predicted != (tx.IsFraud == 1) {
		status = "✗"
	}
	fmt.Printf("%s %-10d | Type: %-20s | Amount: $%12.2f | Fraud: %-5v | Heron: %-5v (%.2f)\n",
		status, tx.ID, tx.Type, tx.Amount, tx.IsFraud == 1, predicted, probability)
}

func printResults(m fraud.Matrix, stats *runStats, duration time.Duration) {
	s := m.Summary()

	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      EVALUATION RESULTS                       ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", stats.processed.Load())
	fmt.Printf("   Total Fraud:      %d\n", s.TotalFrauds)
	fmt.Printf("   Flagged:          %d\n", s.Flagged)
	fmt.Printf("   Errors:           %d\n", stats.errors.Load())

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                   FRAUD       LEGIT")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  F  │ %8d │ %8d │  (TP, FN)\n", s.TruePositives, s.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("          NF  │ %8d │ %8d │  (FP, TN)\n", s.FalsePositives, s.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of flags, how many were actual fraud)\n", m.Precision())
	fmt.Printf("   Recall:     %.4f  (of fraud, how many were flagged)\n", m.Recall())
	fmt.Printf("   F1-Score:   %.4f\n", m.F1())
	fmt.Printf("   Accuracy:   %.4f\n", m.Accuracy())

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if n := stats.processed.Load(); n > 0 {
		if ms := stats.processingTimeMs.Load(); ms > 0 {
			fmt.Printf("   Avg Latency:      %.2f ms\n", float64(ms)/float64(n))
		}
		fmt.Printf("   Throughput:       %.2f tx/sec\n", float64(n)/duration.Seconds())
	}

	fmt.Println()
}
