package domain

import "time"

// Report represents a generated financial report for a tenant period.
// Corresponds to reports table in PostgreSQL.
type Report struct {
	ID       string // deterministic fingerprint, see idhash
	TenantID string // FK to tenants

	Title      string
	ReportType string // "monthly" | "quarterly" | "annual" | "custom"

	PeriodStart time.Time // UTC midnight, inclusive
	PeriodEnd   time.Time // UTC midnight, inclusive

	Markdown  string // rendered report body
	AISummary string // raw JSON from the narrative service, empty if skipped

	CreatedAt time.Time
}

// Report type constants
const (
	ReportMonthly   = "monthly"
	ReportQuarterly = "quarterly"
	ReportAnnual    = "annual"
	ReportCustom    = "custom"
)
