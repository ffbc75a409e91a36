package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetricPoint represents one daily aggregated metric value.
// Corresponds to metrics_daily table in ClickHouse.
// Unique on (tenant_id, date, metric).
type MetricPoint struct {
	TenantID string          // tenant identifier
	Date     time.Time       // day (UTC midnight)
	Metric   string          // "revenue" | "expenses" | "net_cash"
	Value    decimal.Decimal // aggregated value for the day

	CreatedAt time.Time
}

// Metric name constants
const (
	MetricRevenue  = "revenue"
	MetricExpenses = "expenses"
	MetricNetCash  = "net_cash"
)

// ForecastableMetrics are the metrics the forecast engine covers.
var ForecastableMetrics = []string{MetricRevenue, MetricExpenses, MetricNetCash}

// Day returns the point's daily series key.
func (p *MetricPoint) Day() string {
	return p.Date.UTC().Format(DayFormat)
}
