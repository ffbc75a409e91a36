package ingestion

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/idhash"
)

// ValidateRaw checks a raw row for required fields and sane values.
// Returns a descriptive error for the first violation found.
func ValidateRaw(raw *RawTransaction, now time.Time) error {
	if raw == nil {
		return fmt.Errorf("nil transaction")
	}
	if raw.ExternalID == "" {
		return fmt.Errorf("missing required field: external_id")
	}
	if raw.Date.IsZero() {
		return fmt.Errorf("missing required field: date")
	}
	if raw.Date.After(domain.Midnight(now)) {
		return fmt.Errorf("transaction date cannot be in the future")
	}
	return nil
}

// dedupeKey identifies a transaction for batch-level duplicate detection.
func dedupeKey(raw *RawTransaction) string {
	return fmt.Sprintf("%s|%s|%s", raw.Date.UTC().Format(domain.DayFormat), raw.Amount.String(), raw.Description)
}

// DedupeRaw removes duplicate rows within a batch, keyed on
// (date, amount, description). First occurrence wins; order is preserved.
// Returns the unique rows and the number removed.
func DedupeRaw(raws []*RawTransaction) ([]*RawTransaction, int) {
	seen := make(map[string]struct{}, len(raws))
	unique := make([]*RawTransaction, 0, len(raws))
	removed := 0

	for _, raw := range raws {
		key := dedupeKey(raw)
		if _, exists := seen[key]; exists {
			removed++
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, raw)
	}

	return unique, removed
}

// Categorizer resolves a taxonomy category for a raw transaction.
type Categorizer interface {
	Categorize(description string, amount decimal.Decimal, rawCategory string) string
}

// Enrich converts a validated raw row into a domain transaction with a
// deterministic id and a normalized category.
func Enrich(raw *RawTransaction, tenantID, dataSourceID string, categorizer Categorizer) *domain.Transaction {
	return &domain.Transaction{
		ID:           idhash.ComputeTransactionID(tenantID, dataSourceID, raw.ExternalID),
		TenantID:     tenantID,
		DataSourceID: dataSourceID,
		Date:         domain.Midnight(raw.Date),
		Amount:       raw.Amount,
		Category:     categorizer.Categorize(raw.Description, raw.Amount, raw.Category),
		Subcategory:  raw.Subcategory,
		Description:  raw.Description,
		Memo:         raw.Memo,
		ExternalID:   raw.ExternalID,
	}
}
