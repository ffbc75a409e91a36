package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single financial transaction for a tenant.
// Corresponds to transactions table in PostgreSQL.
// Unique on (tenant_id, data_source_id, external_id).
type Transaction struct {
	ID           string // deterministic fingerprint, see idhash
	TenantID     string // FK to tenants
	DataSourceID string // FK to datasources

	Date   time.Time       // transaction date (UTC midnight)
	Amount decimal.Decimal // positive = inflow, negative = outflow

	Category    string // normalized taxonomy category
	Subcategory string
	Description string
	Memo        string

	ExternalID string // id in the source system

	CreatedAt time.Time
}

// DayFormat is the canonical layout for daily series keys.
const DayFormat = "2006-01-02"

// Day returns the transaction's daily series key.
func (t *Transaction) Day() string {
	return t.Date.UTC().Format(DayFormat)
}

// Midnight truncates a timestamp to UTC midnight.
func Midnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
