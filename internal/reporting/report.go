// Package reporting renders tenant financial reports from stored
// analytics data.
package reporting

import (
	"time"

	"aurix/internal/kpi"
	"aurix/internal/narrative"
)

// ReportData is the render model for one tenant period report.
type ReportData struct {
	// Metadata
	TenantID    string
	TenantName  string
	ReportType  string
	GeneratedAt time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time

	// KPI snapshot for the period
	Snapshot *kpi.Snapshot

	// Transactions underlying the snapshot
	TransactionCount int

	// Expense breakdown (largest spend first)
	Expenses []narrative.CategoryExpense

	// Latest stored forecast per metric
	Forecasts []ForecastRow

	// Optional LLM commentary
	AISummary *narrative.Summary
}

// ForecastRow is one row of the forecast summary table.
type ForecastRow struct {
	Metric        string
	HorizonDays   int
	ForecastStart string
	ForecastEnd   string
	EndValue      float64  // projected value on the last forecast day
	AccuracyScore *float64 // nil when not computable
}
