package idhash

import (
	"testing"
	"time"

	"aurix/internal/domain"
)

func TestComputeTransactionID_Deterministic(t *testing.T) {
	id1 := ComputeTransactionID("tenant-1", "source-1", "stripe_txn_123")
	id2 := ComputeTransactionID("tenant-1", "source-1", "stripe_txn_123")

	if id1 != id2 {
		t.Errorf("expected identical ids, got %s and %s", id1, id2)
	}
	if id1 == "" {
		t.Error("expected non-empty id")
	}
}

func TestComputeTransactionID_FieldSensitivity(t *testing.T) {
	base := ComputeTransactionID("tenant-1", "source-1", "ext-1")

	variants := []string{
		ComputeTransactionID("tenant-2", "source-1", "ext-1"),
		ComputeTransactionID("tenant-1", "source-2", "ext-1"),
		ComputeTransactionID("tenant-1", "source-1", "ext-2"),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d: expected different id for changed field", i)
		}
	}
}

func TestComputeReportID_Deterministic(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	id1 := ComputeReportID("tenant-1", domain.ReportMonthly, start, end)
	id2 := ComputeReportID("tenant-1", domain.ReportMonthly, start, end)
	if id1 != id2 {
		t.Errorf("expected identical ids, got %s and %s", id1, id2)
	}

	other := ComputeReportID("tenant-1", domain.ReportMonthly, start, end.AddDate(0, 0, 1))
	if other == id1 {
		t.Error("expected different id for different period end")
	}
}
