package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

func TestMetricStore_InsertBulkAndGet(t *testing.T) {
	store := NewMetricStore()
	ctx := context.Background()

	points := []*domain.MetricPoint{
		{TenantID: "t1", Date: day("2026-01-01"), Metric: domain.MetricRevenue, Value: decimal.NewFromInt(100)},
		{TenantID: "t1", Date: day("2026-01-02"), Metric: domain.MetricRevenue, Value: decimal.NewFromInt(200)},
		{TenantID: "t1", Date: day("2026-01-01"), Metric: domain.MetricExpenses, Value: decimal.NewFromInt(50)},
	}

	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByMetric(ctx, "t1", domain.MetricRevenue)
	if err != nil {
		t.Fatalf("GetByMetric failed: %v", err)
	}

	if len(result) != 2 {
		t.Errorf("Expected 2 revenue points, got %d", len(result))
	}
}

func TestMetricStore_IntraBatchDuplicate(t *testing.T) {
	store := NewMetricStore()
	ctx := context.Background()

	points := []*domain.MetricPoint{
		{TenantID: "t1", Date: day("2026-01-01"), Metric: domain.MetricRevenue, Value: decimal.NewFromInt(100)},
		{TenantID: "t1", Date: day("2026-01-01"), Metric: domain.MetricRevenue, Value: decimal.NewFromInt(200)},
	}

	err := store.InsertBulk(ctx, points)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Verify no partial insert
	result, _ := store.GetByMetric(ctx, "t1", domain.MetricRevenue)
	if len(result) != 0 {
		t.Errorf("Expected 0 points (rollback), got %d", len(result))
	}
}

func TestMetricStore_GetByDateRange(t *testing.T) {
	store := NewMetricStore()
	ctx := context.Background()

	points := []*domain.MetricPoint{
		{TenantID: "t1", Date: day("2026-01-01"), Metric: domain.MetricRevenue, Value: decimal.NewFromInt(100)},
		{TenantID: "t1", Date: day("2026-01-15"), Metric: domain.MetricRevenue, Value: decimal.NewFromInt(200)},
		{TenantID: "t1", Date: day("2026-02-01"), Metric: domain.MetricRevenue, Value: decimal.NewFromInt(300)},
	}

	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByDateRange(ctx, "t1", domain.MetricRevenue, day("2026-01-10"), day("2026-01-31"))
	if err != nil {
		t.Fatalf("GetByDateRange failed: %v", err)
	}

	if len(result) != 1 {
		t.Fatalf("Expected 1 point in range, got %d", len(result))
	}
	if !result[0].Value.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected value 200, got %s", result[0].Value)
	}
}

func TestMetricStore_GetLatest(t *testing.T) {
	store := NewMetricStore()
	ctx := context.Background()

	points := []*domain.MetricPoint{
		{TenantID: "t1", Date: day("2026-01-01"), Metric: domain.MetricNetCash, Value: decimal.NewFromInt(100)},
		{TenantID: "t1", Date: day("2026-01-20"), Metric: domain.MetricNetCash, Value: decimal.NewFromInt(300)},
		{TenantID: "t1", Date: day("2026-01-10"), Metric: domain.MetricNetCash, Value: decimal.NewFromInt(200)},
	}

	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	latest, err := store.GetLatest(ctx, "t1", domain.MetricNetCash)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}

	if latest.Day() != "2026-01-20" {
		t.Errorf("Expected latest 2026-01-20, got %s", latest.Day())
	}
}

func TestMetricStore_GetLatestNotFound(t *testing.T) {
	store := NewMetricStore()
	ctx := context.Background()

	_, err := store.GetLatest(ctx, "t1", domain.MetricRevenue)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
