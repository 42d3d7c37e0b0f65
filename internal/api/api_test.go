package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/heron/internal/cache"
	"github.com/opensource-finance/heron/internal/dataset"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/repository"
	"github.com/opensource-finance/heron/internal/worker"
)

func testDataset() *dataset.Dataset {
	at := func(s string) time.Time {
		ts, _ := time.Parse("2006-01-02 15:04:05", s)
		return ts
	}
	return &dataset.Dataset{
		Transactions: []domain.Transaction{
			{ID: 1, ClientID: 10, MerchantID: 20, Amount: -50, Type: "Swipe Transaction", Date: "2010-01-01 08:00:00", Timestamp: at("2010-01-01 08:00:00"), MCC: 5411},
			{ID: 2, ClientID: 10, MerchantID: 30, Amount: 600, Type: "Online Transaction", Date: "2010-01-01 09:00:00", Timestamp: at("2010-01-01 09:00:00")},
			{ID: 3, ClientID: 20, MerchantID: 10, Amount: 150, Type: "Swipe Transaction", Date: "2010-01-02 10:00:00", Timestamp: at("2010-01-02 10:00:00")},
			{ID: 4, ClientID: 30, MerchantID: 10, Amount: -80, Type: "Chip Transaction", Date: "not a date"},
		},
		Holders:    []domain.AccountHolder{{ID: 10}, {ID: 20}, {ID: 30}},
		Categories: domain.MerchantCategories{5411: "Grocery Stores, Supermarkets", 4829: "Money Transfer"},
		Labels:     domain.FraudLabels{2: 1},
	}
}

// createTestServer creates a server over the fixture dataset with an
// in-memory repository and no event bus.
func createTestServer(t *testing.T, ds *dataset.Dataset) (*Server, domain.Repository) {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8000,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	server := NewServer(cfg, Deps{
		Store:    dataset.NewStoreFromDataset(ds),
		Repo:     repo,
		Cache:    cache.NewLRUCache(100, time.Minute),
		Metadata: domain.MetadataConfig{Version: "test-v1", LastUpdate: "2025-12-20T22:00:00Z"},
	})
	return server, repo
}

func do(s *Server, method, path string, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to parse response %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func txIDs(txs []domain.Transaction) []int64 {
	out := make([]int64, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

func sameIDs(got, want []int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestTransactionEndpoints(t *testing.T) {
	server, _ := createTestServer(t, testDataset())

	t.Run("ListDefault", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/transactions", "")
		expectStatus(t, rr, http.StatusOK)

		var page domain.TransactionPage
		decode(t, rr, &page)

		if page.Page != 1 || page.Limit != 20 {
			t.Errorf("expected page 1 limit 20, got %d/%d", page.Page, page.Limit)
		}
		if page.TotalResults != 4 {
			t.Errorf("expected 4 results, got %d", page.TotalResults)
		}
		if !sameIDs(txIDs(page.Transactions), []int64{1, 2, 3, 4}) {
			t.Errorf("unexpected ids %v", txIDs(page.Transactions))
		}
		if page.Transactions[1].IsFraud != 1 {
			t.Error("expected label joined into transaction 2")
		}
	})

	t.Run("ListFiltered", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/transactions?type=Swipe+Transaction&min_amount=0", "")
		expectStatus(t, rr, http.StatusOK)

		var page domain.TransactionPage
		decode(t, rr, &page)
		if !sameIDs(txIDs(page.Transactions), []int64{3}) {
			t.Errorf("expected [3], got %v", txIDs(page.Transactions))
		}

		rr = do(server, http.MethodGet, "/api/transactions?isFraud=1", "")
		expectStatus(t, rr, http.StatusOK)
		decode(t, rr, &page)
		if !sameIDs(txIDs(page.Transactions), []int64{2}) {
			t.Errorf("expected [2], got %v", txIDs(page.Transactions))
		}
	})

	t.Run("ListExpression", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/transactions?expr=client_id+%3D%3D+10+%26%26+amount+%3C+0.0", "")
		expectStatus(t, rr, http.StatusOK)

		var page domain.TransactionPage
		decode(t, rr, &page)
		if !sameIDs(txIDs(page.Transactions), []int64{1}) {
			t.Errorf("expected [1], got %v", txIDs(page.Transactions))
		}
	})

	t.Run("ListPagePastEnd", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/transactions?page=3&limit=2", "")
		expectStatus(t, rr, http.StatusOK)

		var page domain.TransactionPage
		decode(t, rr, &page)
		if len(page.Transactions) != 0 || page.TotalResults != 4 {
			t.Errorf("expected empty page of 4 results, got %d/%d", len(page.Transactions), page.TotalResults)
		}
	})

	t.Run("ListValidation", func(t *testing.T) {
		for _, path := range []string{
			"/api/transactions?page=0",
			"/api/transactions?limit=101",
			"/api/transactions?min_amount=abc",
			"/api/transactions?min_amount=NaN&max_amount=NaN",
			"/api/transactions?max_amount=Inf",
			"/api/transactions?min_amount=-Inf",
			"/api/transactions?isFraud=2",
			"/api/transactions?page=x",
			"/api/transactions?expr=amount+%2B",
			"/api/transactions?expr=amount",
		} {
			rr := do(server, http.MethodGet, path, "")
			if rr.Code != http.StatusUnprocessableEntity {
				t.Errorf("%s: expected status 422, got %d: %s", path, rr.Code, rr.Body.String())
			}
		}

		rr := do(server, http.MethodGet, "/api/transactions?min_amount=abc", "")
		var resp errorResponse
		decode(t, rr, &resp)
		if resp.Fields["min_amount"] == "" {
			t.Errorf("expected min_amount field error, got %+v", resp)
		}

		rr = do(server, http.MethodGet, "/api/transactions?min_amount=NaN", "")
		resp = errorResponse{}
		decode(t, rr, &resp)
		if resp.Fields["min_amount"] != "must be a finite number" {
			t.Errorf("expected finite-number error, got %+v", resp)
		}
	})

	t.Run("HugePageIsEmpty", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/transactions?limit=100&page=184467440737095516", "")
		expectStatus(t, rr, http.StatusOK)

		var page domain.TransactionPage
		decode(t, rr, &page)
		if len(page.Transactions) != 0 || page.TotalResults != 4 {
			t.Errorf("expected empty page of 4 results, got %d/%d", len(page.Transactions), page.TotalResults)
		}
	})

	t.Run("Types", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/transactions/types", "")
		expectStatus(t, rr, http.StatusOK)

		var types []string
		decode(t, rr, &types)
		want := []string{"Chip Transaction", "Online Transaction", "Swipe Transaction"}
		if strings.Join(types, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, types)
		}
	})

	t.Run("GetByID", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/transactions/3", "")
		expectStatus(t, rr, http.StatusOK)

		var tx domain.Transaction
		decode(t, rr, &tx)
		if tx.ID != 3 || tx.Amount != 150 {
			t.Errorf("unexpected transaction %+v", tx)
		}

		expectStatus(t, do(server, http.MethodGet, "/api/transactions/999", ""), http.StatusNotFound)
		expectStatus(t, do(server, http.MethodGet, "/api/transactions/abc", ""), http.StatusUnprocessableEntity)
	})

	t.Run("CustomerFlow", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/transactions/by-customer/10", "")
		expectStatus(t, rr, http.StatusOK)

		var flow FlowResponse
		decode(t, rr, &flow)
		if flow.Direction != domain.FlowDebit || !sameIDs(txIDs(flow.Transactions), []int64{1}) {
			t.Errorf("unexpected debit flow %+v", flow)
		}

		rr = do(server, http.MethodGet, "/api/transactions/to-customer/C10", "")
		expectStatus(t, rr, http.StatusOK)
		decode(t, rr, &flow)
		if flow.Direction != domain.FlowCredit || !sameIDs(txIDs(flow.Transactions), []int64{3}) {
			t.Errorf("unexpected credit flow %+v", flow)
		}

		expectStatus(t, do(server, http.MethodGet, "/api/transactions/to-customer/20", ""), http.StatusNotFound)
		expectStatus(t, do(server, http.MethodGet, "/api/transactions/by-customer/xyz", ""), http.StatusUnprocessableEntity)
	})
}

func TestDeleteTransaction(t *testing.T) {
	server, _ := createTestServer(t, testDataset())

	rr := do(server, http.MethodDelete, "/api/transactions/2", "")
	expectStatus(t, rr, http.StatusOK)

	var resp DeleteResponse
	decode(t, rr, &resp)
	if !resp.Success {
		t.Errorf("expected success, got %+v", resp)
	}

	expectStatus(t, do(server, http.MethodGet, "/api/transactions/2", ""), http.StatusNotFound)

	var page domain.TransactionPage
	decode(t, do(server, http.MethodGet, "/api/transactions", ""), &page)
	if !sameIDs(txIDs(page.Transactions), []int64{1, 3, 4}) {
		t.Errorf("expected [1 3 4] after delete, got %v", txIDs(page.Transactions))
	}

	// aggregates see the delete
	var overview domain.Overview
	decode(t, do(server, http.MethodGet, "/api/stats/overview", ""), &overview)
	if overview.TotalTransactions != 3 {
		t.Errorf("expected 3 transactions in overview, got %d", overview.TotalTransactions)
	}

	rr = do(server, http.MethodDelete, "/api/transactions/2", "")
	expectStatus(t, rr, http.StatusNotFound)
	decode(t, rr, &resp)
	if resp.Success {
		t.Error("expected success=false for a second delete")
	}

	rr = do(server, http.MethodGet, "/api/audit/deletions", "")
	expectStatus(t, rr, http.StatusOK)

	var events []domain.DeletionEvent
	decode(t, rr, &events)
	if len(events) != 1 || events[0].TransactionID != 2 {
		t.Errorf("expected one deletion of transaction 2, got %+v", events)
	}
	if events[0].RequestID == "" {
		t.Error("expected request id on deletion event")
	}
}

func TestStatsEndpoints(t *testing.T) {
	server, _ := createTestServer(t, testDataset())

	t.Run("Overview", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/stats/overview", "")
		expectStatus(t, rr, http.StatusOK)

		var o domain.Overview
		decode(t, rr, &o)
		if o.TotalTransactions != 4 {
			t.Errorf("expected 4 transactions, got %d", o.TotalTransactions)
		}
		if o.FraudRate == nil || *o.FraudRate != 0.25 {
			t.Errorf("expected fraud rate 0.25, got %v", o.FraudRate)
		}
		if o.AvgAmount == nil || *o.AvgAmount != 155 {
			t.Errorf("expected avg amount 155, got %v", o.AvgAmount)
		}
		if o.MostCommonType == nil || *o.MostCommonType != "Swipe Transaction" {
			t.Errorf("expected Swipe Transaction, got %v", o.MostCommonType)
		}
	})

	t.Run("AmountDistribution", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/stats/amount-distribution", "")
		expectStatus(t, rr, http.StatusOK)

		var d domain.Distribution
		decode(t, rr, &d)
		if len(d.Bins) != 4 || d.Bins[0] != "0-100" || d.Bins[3] != "1000-5000" {
			t.Errorf("unexpected bins %v", d.Bins)
		}
		if len(d.Counts) != 4 || d.Counts[0] != 0 || d.Counts[1] != 1 || d.Counts[2] != 1 || d.Counts[3] != 0 {
			t.Errorf("unexpected counts %v", d.Counts)
		}
	})

	t.Run("ByType", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/stats/by-type", "")
		expectStatus(t, rr, http.StatusOK)

		var s []domain.TypeStats
		decode(t, rr, &s)
		if len(s) != 3 || s[0].Type != "Swipe Transaction" || s[0].Count != 2 || s[0].AvgAmount != 50 {
			t.Errorf("unexpected by-type stats %+v", s)
		}
	})

	t.Run("Daily", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/stats/daily", "")
		expectStatus(t, rr, http.StatusOK)

		var s []domain.DailyStats
		decode(t, rr, &s)
		if len(s) != 2 || s[0].Date != "2010-01-01" || s[0].Count != 2 || s[0].AvgAmount != 275 {
			t.Errorf("unexpected daily stats %+v", s)
		}
	})
}

func TestFraudEndpoints(t *testing.T) {
	server, _ := createTestServer(t, testDataset())

	t.Run("Predict", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/api/fraud/predict", `{"type":"Online Transaction","amount":600}`)
		expectStatus(t, rr, http.StatusOK)

		var resp domain.PredictionResponse
		decode(t, rr, &resp)
		if !resp.IsFraud || resp.Probability != 0.7 {
			t.Errorf("expected fraud with probability 0.7, got %+v", resp)
		}
		if resp.PredictionID == "" {
			t.Fatal("expected prediction id")
		}

		rr = do(server, http.MethodGet, "/api/fraud/predictions/"+resp.PredictionID, "")
		expectStatus(t, rr, http.StatusOK)

		var logged domain.Prediction
		decode(t, rr, &logged)
		if logged.Amount != 600 || logged.Type != "Online Transaction" || !logged.IsFraud {
			t.Errorf("unexpected logged prediction %+v", logged)
		}
	})

	t.Run("PredictBalanceMismatch", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/api/fraud/predict",
			`{"type":"Swipe Transaction","amount":50,"oldbalanceOrg":1000,"newbalanceOrig":1000}`)
		expectStatus(t, rr, http.StatusOK)

		var resp domain.PredictionResponse
		decode(t, rr, &resp)
		if resp.IsFraud || resp.Probability != 0.25 {
			t.Errorf("expected probability 0.25, got %+v", resp)
		}
	})

	t.Run("PredictInvalidJSON", func(t *testing.T) {
		expectStatus(t, do(server, http.MethodPost, "/api/fraud/predict", "not-json"), http.StatusBadRequest)
	})

	t.Run("PredictMissingFields", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/api/fraud/predict", `{"type":"Online Transaction"}`)
		expectStatus(t, rr, http.StatusUnprocessableEntity)

		var resp errorResponse
		decode(t, rr, &resp)
		if resp.Fields["amount"] != "required" {
			t.Errorf("expected amount required, got %+v", resp.Fields)
		}

		rr = do(server, http.MethodPost, "/api/fraud/predict", `{"amount":10}`)
		expectStatus(t, rr, http.StatusUnprocessableEntity)
	})

	t.Run("PredictWrongType", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/api/fraud/predict", `{"type":"Online Transaction","amount":"lots"}`)
		expectStatus(t, rr, http.StatusUnprocessableEntity)
	})

	t.Run("Predictions", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/fraud/predictions?limit=10", "")
		expectStatus(t, rr, http.StatusOK)

		var list []domain.Prediction
		decode(t, rr, &list)
		if len(list) != 2 {
			t.Errorf("expected 2 logged predictions, got %d", len(list))
		}

		expectStatus(t, do(server, http.MethodGet, "/api/fraud/predictions/unknown", ""), http.StatusNotFound)
	})

	t.Run("Summary", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/fraud/summary", "")
		expectStatus(t, rr, http.StatusOK)

		var s domain.FraudSummary
		decode(t, rr, &s)
		if s.TotalFrauds != 1 || s.Flagged != 1 || s.Precision != 1 || s.Recall != 1 {
			t.Errorf("unexpected summary %+v", s)
		}
	})

	t.Run("ByType", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/fraud/by-type", "")
		expectStatus(t, rr, http.StatusOK)

		var s []domain.FraudTypeStats
		decode(t, rr, &s)
		if len(s) != 3 || s[1].Type != "Online Transaction" || s[1].FraudRate != 1 {
			t.Errorf("unexpected fraud by type %+v", s)
		}
	})
}

func TestCustomerEndpoints(t *testing.T) {
	server, _ := createTestServer(t, testDataset())

	t.Run("List", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/customers?page=2&limit=2", "")
		expectStatus(t, rr, http.StatusOK)

		var page domain.CustomerPage
		decode(t, rr, &page)
		if page.Total != 3 || len(page.Customers) != 1 || page.Customers[0].ID != "C30" {
			t.Errorf("unexpected customer page %+v", page)
		}

		expectStatus(t, do(server, http.MethodGet, "/api/customers?limit=0", ""), http.StatusUnprocessableEntity)
	})

	t.Run("Top", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/customers/top?n=2", "")
		expectStatus(t, rr, http.StatusOK)

		var top []domain.CustomerVolume
		decode(t, rr, &top)
		if len(top) != 2 || top[0].ID != "C10" || top[0].TotalVolume != 550 || top[1].ID != "C20" {
			t.Errorf("unexpected ranking %+v", top)
		}

		expectStatus(t, do(server, http.MethodGet, "/api/customers/top?n=0", ""), http.StatusUnprocessableEntity)
	})

	t.Run("Profile", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/customers/C10", "")
		expectStatus(t, rr, http.StatusOK)

		var p domain.CustomerProfile
		decode(t, rr, &p)
		if p.ID != "C10" || p.TransactionsCount != 2 || p.AvgAmount != 275 || !p.Fraudulent {
			t.Errorf("unexpected profile %+v", p)
		}

		expectStatus(t, do(server, http.MethodGet, "/api/customers/C999", ""), http.StatusNotFound)
		expectStatus(t, do(server, http.MethodGet, "/api/customers/nobody", ""), http.StatusUnprocessableEntity)
	})
}

func TestMerchantEndpoints(t *testing.T) {
	server, _ := createTestServer(t, testDataset())

	rr := do(server, http.MethodGet, "/api/merchants/categories", "")
	expectStatus(t, rr, http.StatusOK)

	var categories []domain.MerchantCategory
	decode(t, rr, &categories)
	if len(categories) != 2 || categories[0].Code != 4829 {
		t.Errorf("expected categories ordered by code, got %+v", categories)
	}

	rr = do(server, http.MethodGet, "/api/merchants/categories/5411", "")
	expectStatus(t, rr, http.StatusOK)

	var category domain.MerchantCategory
	decode(t, rr, &category)
	if category.Description != "Grocery Stores, Supermarkets" {
		t.Errorf("unexpected category %+v", category)
	}

	expectStatus(t, do(server, http.MethodGet, "/api/merchants/categories/1", ""), http.StatusNotFound)
}

func TestSystemEndpoints(t *testing.T) {
	server, _ := createTestServer(t, testDataset())

	t.Run("HealthCheck", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/health", "")
		expectStatus(t, rr, http.StatusOK)

		var resp map[string]string
		decode(t, rr, &resp)
		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		expectStatus(t, do(server, http.MethodGet, "/ready", ""), http.StatusOK)
	})

	t.Run("SystemHealth", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/system/health", "")
		expectStatus(t, rr, http.StatusOK)

		var resp SystemHealth
		decode(t, rr, &resp)
		if resp.Status != "ok" || !resp.DatasetLoaded || resp.Uptime != "0h 0min" {
			t.Errorf("unexpected system health %+v", resp)
		}
	})

	t.Run("Metadata", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/system/metadata", "")
		expectStatus(t, rr, http.StatusOK)

		var resp map[string]string
		decode(t, rr, &resp)
		if resp["version"] != "test-v1" || resp["last_update"] != "2025-12-20T22:00:00Z" {
			t.Errorf("unexpected metadata %v", resp)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		do(server, http.MethodGet, "/api/transactions/1", "")

		rr := do(server, http.MethodGet, "/metrics", "")
		expectStatus(t, rr, http.StatusOK)

		body := rr.Body.String()
		if !strings.Contains(body, `heron_http_requests_total{method="GET",route="/api/transactions/{id}",status="200"}`) {
			t.Error("expected request counter labelled by route pattern")
		}
		if !strings.Contains(body, "heron_dataset_rows 4") {
			t.Error("expected dataset row gauge")
		}
	})
}

type fixedWorkerStats worker.Stats

func (f fixedWorkerStats) GetStats() worker.Stats { return worker.Stats(f) }

func TestWatchWorker(t *testing.T) {
	metrics := NewMetrics()
	metrics.WatchWorker(fixedWorkerStats{SubscriptionCount: 2, Processed: 7, Failed: 1})

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	for _, want := range []string{
		`heron_audit_events_total{result="processed"} 7`,
		`heron_audit_events_total{result="failed"} 1`,
		`heron_audit_subscriptions 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestEmptyDataset(t *testing.T) {
	server, _ := createTestServer(t, &dataset.Dataset{})

	for _, path := range []string{
		"/api/transactions",
		"/api/transactions/types",
		"/api/transactions/1",
		"/api/stats/overview",
		"/api/stats/amount-distribution",
		"/api/stats/by-type",
		"/api/stats/daily",
		"/api/fraud/summary",
		"/api/customers/top",
	} {
		rr := do(server, http.MethodGet, path, "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, rr.Code)
		}
	}

	var resp errorResponse
	decode(t, do(server, http.MethodGet, "/api/stats/overview", ""), &resp)
	if resp.Error != "dataset unavailable" {
		t.Errorf("expected 'dataset unavailable', got %q", resp.Error)
	}

	expectStatus(t, do(server, http.MethodGet, "/ready", ""), http.StatusServiceUnavailable)

	var health SystemHealth
	decode(t, do(server, http.MethodGet, "/api/system/health", ""), &health)
	if health.DatasetLoaded {
		t.Error("expected dataset_loaded=false")
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedRequestID = GetRequestID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}
		if rr.Header().Get(RequestIDHeader) != capturedRequestID {
			t.Error("expected X-Request-ID response header to match context")
		}
		if rr.Header().Get(TraceIDHeader) == "" {
			t.Error("expected X-Trace-ID response header")
		}
	})

	t.Run("TracingMiddlewareKeepsIncomingID", func(t *testing.T) {
		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Header().Get(RequestIDHeader) != "req-123" {
			t.Errorf("expected req-123, got %s", rr.Header().Get(RequestIDHeader))
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})

	t.Run("CORSPreflight", func(t *testing.T) {
		handler := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("preflight must not reach the handler")
		}))

		req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rr.Code)
		}
		if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
			t.Error("expected origin to be echoed")
		}
		if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Error("expected credentials for an explicit origin")
		}
	})

	t.Run("CORSWildcardWithoutOrigin", func(t *testing.T) {
		handler := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("expected wildcard origin")
		}
		if rr.Header().Get("Access-Control-Allow-Credentials") != "" {
			t.Error("wildcard origin must not allow credentials")
		}
	})

	t.Run("ResponseWriterKeepsFirstStatus", func(t *testing.T) {
		rr := httptest.NewRecorder()
		rw := wrapResponseWriter(rr)
		rw.WriteHeader(http.StatusNotFound)
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("gone"))

		if rw.statusCode != http.StatusNotFound || rw.bytes != 4 {
			t.Errorf("expected 404 and 4 bytes, got %d and %d", rw.statusCode, rw.bytes)
		}
		if wrapResponseWriter(rw) != rw {
			t.Error("expected an existing wrapper to be reused")
		}
	})
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0h 0min"},
		{59 * time.Second, "0h 0min"},
		{61 * time.Minute, "1h 1min"},
		{26*time.Hour + 5*time.Minute + 30*time.Second, "26h 5min"},
	}

	for _, tt := range tests {
		if got := formatUptime(tt.in); got != tt.want {
			t.Errorf("formatUptime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
