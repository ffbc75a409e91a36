package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DayFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestTransactionStore_InsertAndGet(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	txn := &domain.Transaction{
		ID:           "txn1",
		TenantID:     "t1",
		DataSourceID: "ds1",
		Date:         day("2026-01-15"),
		Amount:       decimal.NewFromFloat(1200.50),
		Category:     domain.CategoryRevenue,
		Description:  "Invoice #42",
		ExternalID:   "ext1",
	}

	if err := store.Insert(ctx, txn); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByTenant(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByTenant failed: %v", err)
	}

	if len(result) != 1 {
		t.Errorf("Expected 1 transaction, got %d", len(result))
	}

	if !result[0].Amount.Equal(decimal.NewFromFloat(1200.50)) {
		t.Errorf("Amount mismatch: got %s", result[0].Amount)
	}
}

func TestTransactionStore_DuplicateKey(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	txn := &domain.Transaction{
		ID:       "txn1",
		TenantID: "t1",
		Date:     day("2026-01-15"),
		Amount:   decimal.NewFromInt(100),
	}

	if err := store.Insert(ctx, txn); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, txn)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTransactionStore_InsertBulkPartialDuplicate(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	first := &domain.Transaction{ID: "txn1", TenantID: "t1", Date: day("2026-01-01")}
	if err := store.Insert(ctx, first); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	txns := []*domain.Transaction{
		{ID: "txn2", TenantID: "t1", Date: day("2026-01-02")}, // new
		{ID: "txn1", TenantID: "t1", Date: day("2026-01-01")}, // duplicate
	}

	err := store.InsertBulk(ctx, txns)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Verify no partial insert
	result, _ := store.GetByTenant(ctx, "t1")
	if len(result) != 1 {
		t.Errorf("Expected 1 transaction (rollback), got %d", len(result))
	}
}

func TestTransactionStore_GetByDateRange(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	txns := []*domain.Transaction{
		{ID: "txn1", TenantID: "t1", Date: day("2026-01-01")},
		{ID: "txn2", TenantID: "t1", Date: day("2026-01-15")},
		{ID: "txn3", TenantID: "t1", Date: day("2026-02-01")},
		{ID: "txn4", TenantID: "t2", Date: day("2026-01-15")}, // different tenant
	}

	if err := store.InsertBulk(ctx, txns); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByDateRange(ctx, "t1", day("2026-01-10"), day("2026-01-31"))
	if err != nil {
		t.Fatalf("GetByDateRange failed: %v", err)
	}

	if len(result) != 1 {
		t.Fatalf("Expected 1 transaction in range, got %d", len(result))
	}
	if result[0].ID != "txn2" {
		t.Errorf("Expected txn2, got %s", result[0].ID)
	}
}

func TestTransactionStore_GetByCategory(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	txns := []*domain.Transaction{
		{ID: "txn1", TenantID: "t1", Date: day("2026-01-01"), Category: domain.CategoryRevenue},
		{ID: "txn2", TenantID: "t1", Date: day("2026-01-02"), Category: domain.CategoryPayroll},
		{ID: "txn3", TenantID: "t1", Date: day("2026-01-03"), Category: domain.CategoryRevenue},
	}

	if err := store.InsertBulk(ctx, txns); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByCategory(ctx, "t1", domain.CategoryRevenue, day("2026-01-01"), day("2026-01-31"))
	if err != nil {
		t.Fatalf("GetByCategory failed: %v", err)
	}

	if len(result) != 2 {
		t.Errorf("Expected 2 revenue transactions, got %d", len(result))
	}
}

func TestTransactionStore_SumByTenant(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	txns := []*domain.Transaction{
		{ID: "txn1", TenantID: "t1", Date: day("2026-01-01"), Amount: decimal.NewFromFloat(100.25)},
		{ID: "txn2", TenantID: "t1", Date: day("2026-01-02"), Amount: decimal.NewFromFloat(-40.25)},
		{ID: "txn3", TenantID: "t2", Date: day("2026-01-03"), Amount: decimal.NewFromInt(999)},
	}

	if err := store.InsertBulk(ctx, txns); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	sum, err := store.SumByTenant(ctx, "t1")
	if err != nil {
		t.Fatalf("SumByTenant failed: %v", err)
	}

	if !sum.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Expected sum 60, got %s", sum)
	}
}

func TestTransactionStore_ExistsExternal(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	txn := &domain.Transaction{
		ID:           "txn1",
		TenantID:     "t1",
		DataSourceID: "ds1",
		Date:         day("2026-01-01"),
		ExternalID:   "ext1",
	}
	if err := store.Insert(ctx, txn); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	exists, err := store.ExistsExternal(ctx, "t1", "ds1", "ext1")
	if err != nil {
		t.Fatalf("ExistsExternal failed: %v", err)
	}
	if !exists {
		t.Error("Expected exists=true for known external id")
	}

	exists, _ = store.ExistsExternal(ctx, "t1", "ds1", "other")
	if exists {
		t.Error("Expected exists=false for unknown external id")
	}
}

func TestTransactionStore_OrderByDate(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	// Insert in random order
	txns := []*domain.Transaction{
		{ID: "txn3", TenantID: "t1", Date: day("2026-03-01")},
		{ID: "txn1", TenantID: "t1", Date: day("2026-01-01")},
		{ID: "txn2", TenantID: "t1", Date: day("2026-02-01")},
	}

	if err := store.InsertBulk(ctx, txns); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, _ := store.GetByTenant(ctx, "t1")

	for i := 1; i < len(result); i++ {
		if result[i].Date.Before(result[i-1].Date) {
			t.Errorf("Results not ordered: %s before %s", result[i].Day(), result[i-1].Day())
		}
	}
}
