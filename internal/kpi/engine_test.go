package kpi

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/storage/memory"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testEngine(t *testing.T) (*Engine, *memory.TransactionStore, *memory.MetricStore) {
	t.Helper()

	txnStore := memory.NewTransactionStore()
	metricStore := memory.NewMetricStore()
	engine := NewEngine(EngineOptions{
		TransactionStore: txnStore,
		MetricStore:      metricStore,
		Logger:           log.New(os.Stderr, "[test] ", log.LstdFlags),
		Now:              func() time.Time { return fixedNow },
	})
	return engine, txnStore, metricStore
}

func seedTxn(t *testing.T, store *memory.TransactionStore, id, date string, amount int64, category string) {
	t.Helper()

	err := store.Insert(context.Background(), &domain.Transaction{
		ID:           id,
		TenantID:     "t1",
		DataSourceID: "ds1",
		Date:         day(date),
		Amount:       decimal.NewFromInt(amount),
		Category:     category,
		ExternalID:   id,
	})
	if err != nil {
		t.Fatalf("Insert transaction failed: %v", err)
	}
}

func TestEngine_ComputeAll(t *testing.T) {
	engine, txnStore, metricStore := testEngine(t)

	seedTxn(t, txnStore, "tx1", "2026-02-10", 3000, domain.CategoryRevenue)
	seedTxn(t, txnStore, "tx2", "2026-02-10", -600, domain.CategorySaaS)
	seedTxn(t, txnStore, "tx3", "2026-02-20", 1500, domain.CategoryRevenue)
	seedTxn(t, txnStore, "tx4", "2026-02-25", -900, domain.CategoryPayroll)

	snapshot, err := engine.ComputeAll(context.Background(), "t1", day("2026-02-01"), day("2026-02-28"))
	if err != nil {
		t.Fatalf("ComputeAll failed: %v", err)
	}

	if !snapshot.TotalRevenue.Equal(decimal.NewFromInt(4500)) {
		t.Errorf("Expected total revenue 4500, got %s", snapshot.TotalRevenue)
	}
	if !snapshot.TotalExpenses.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Expected total expenses 1500, got %s", snapshot.TotalExpenses)
	}
	if !snapshot.TotalNetCash.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("Expected total net cash 3000, got %s", snapshot.TotalNetCash)
	}

	// Burn window is the trailing 30 days from fixedNow: 1500 spent / 30.
	if !snapshot.BurnRate.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected burn rate 50, got %s", snapshot.BurnRate)
	}
	// Cash position 3000 at burn 50.
	if snapshot.RunwayDays != 60 {
		t.Errorf("Expected 60 days runway, got %d", snapshot.RunwayDays)
	}

	// Persisted series: 2 revenue days, 2 expense days, 3 net-cash days.
	revenue, _ := metricStore.GetByMetric(context.Background(), "t1", domain.MetricRevenue)
	if len(revenue) != 2 {
		t.Errorf("Expected 2 revenue points, got %d", len(revenue))
	}
	netCash, _ := metricStore.GetByMetric(context.Background(), "t1", domain.MetricNetCash)
	if len(netCash) != 3 {
		t.Errorf("Expected 3 net-cash points, got %d", len(netCash))
	}
}

func TestEngine_ComputeAllRerunKeepsExistingDays(t *testing.T) {
	engine, txnStore, metricStore := testEngine(t)

	seedTxn(t, txnStore, "tx1", "2026-02-10", 3000, domain.CategoryRevenue)

	if _, err := engine.ComputeAll(context.Background(), "t1", day("2026-02-01"), day("2026-02-28")); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	// New transaction on a new day; the old day is already stored.
	seedTxn(t, txnStore, "tx2", "2026-02-15", 1000, domain.CategoryRevenue)

	if _, err := engine.ComputeAll(context.Background(), "t1", day("2026-02-01"), day("2026-02-28")); err != nil {
		t.Fatalf("Re-run failed: %v", err)
	}

	revenue, _ := metricStore.GetByMetric(context.Background(), "t1", domain.MetricRevenue)
	if len(revenue) != 2 {
		t.Fatalf("Expected 2 revenue points after re-run, got %d", len(revenue))
	}
	// The already stored day keeps its original value.
	if !revenue[0].Value.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("Expected stored day untouched, got %s", revenue[0].Value)
	}
}

func TestEngine_ComputeAllEmpty(t *testing.T) {
	engine, _, _ := testEngine(t)

	snapshot, err := engine.ComputeAll(context.Background(), "t1", day("2026-02-01"), day("2026-02-28"))
	if err != nil {
		t.Fatalf("ComputeAll failed: %v", err)
	}

	if !snapshot.TotalRevenue.IsZero() || !snapshot.TotalExpenses.IsZero() {
		t.Errorf("Expected zero totals, got %+v", snapshot)
	}
	if snapshot.RunwayDays != RunwayCap {
		t.Errorf("Expected capped runway with zero burn, got %d", snapshot.RunwayDays)
	}
}
