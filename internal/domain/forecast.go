package domain

import "time"

// ConfidenceInterval is the 95% band around a predicted value.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Forecast represents a persisted metric projection.
// Corresponds to forecasts table in ClickHouse.
type Forecast struct {
	ID       string // UUID primary key
	TenantID string // tenant identifier

	Metric      string // forecasted metric name
	HorizonDays int    // number of future days covered

	// Series maps day keys (YYYY-MM-DD) to predicted values; Intervals holds
	// the matching confidence bands.
	Series    map[string]float64
	Intervals map[string]ConfidenceInterval

	ModelType     string            // "additive"
	ModelParams   map[string]string // data points, forecast start/end
	AccuracyScore *float64          // max(0, 1-MAPE); nil when not computable

	CreatedAt time.Time
}

// Forecast model type constants
const (
	ModelTypeAdditive = "additive"
)
