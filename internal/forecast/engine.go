package forecast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"aurix/internal/domain"
	"aurix/internal/observability"
	"aurix/internal/storage"
)

// Default engine parameters.
const (
	DefaultMinDataPoints = 30
	DefaultHorizonDays   = 90
)

// ErrInsufficientData means a metric's history is too short to fit.
var ErrInsufficientData = errors.New("insufficient data for forecasting")

// Engine generates and persists metric forecasts.
type Engine struct {
	metrics       storage.MetricStore
	forecasts     storage.ForecastStore
	minDataPoints int
	horizonDays   int
	logger        *log.Logger
	now           func() time.Time
	newID         func() string
}

// EngineOptions contains configuration for creating an Engine.
type EngineOptions struct {
	MetricStore   storage.MetricStore
	ForecastStore storage.ForecastStore
	MinDataPoints int // default: 30
	HorizonDays   int // default: 90
	Logger        *log.Logger
	Now           func() time.Time
	NewID         func() string // default: uuid
}

// NewEngine creates a forecast engine.
func NewEngine(opts EngineOptions) *Engine {
	minPoints := opts.MinDataPoints
	if minPoints == 0 {
		minPoints = DefaultMinDataPoints
	}
	horizon := opts.HorizonDays
	if horizon == 0 {
		horizon = DefaultHorizonDays
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Engine{
		metrics:       opts.MetricStore,
		forecasts:     opts.ForecastStore,
		minDataPoints: minPoints,
		horizonDays:   horizon,
		logger:        logger,
		now:           now,
		newID:         newID,
	}
}

// Generate fits the metric's full history and persists a forecast covering
// the horizon after the last observed day. Returns ErrInsufficientData
// (wrapped) when the history is shorter than the minimum.
func (e *Engine) Generate(ctx context.Context, tenantID, metric string) (*domain.Forecast, error) {
	points, err := e.metrics.GetByMetric(ctx, tenantID, metric)
	if err != nil {
		return nil, fmt.Errorf("load %s history: %w", metric, err)
	}
	if len(points) < e.minDataPoints {
		return nil, fmt.Errorf("%w: need at least %d data points for %s, got %d",
			ErrInsufficientData, e.minDataPoints, metric, len(points))
	}

	obs := make([]Observation, len(points))
	for i, p := range points {
		v, _ := p.Value.Float64()
		obs[i] = Observation{Date: domain.Midnight(p.Date), Value: v}
	}

	model, err := Fit(obs)
	if err != nil {
		return nil, fmt.Errorf("fit %s model: %w", metric, err)
	}

	lastDay := obs[len(obs)-1].Date
	forecastStart := lastDay.AddDate(0, 0, 1)
	forecastEnd := lastDay.AddDate(0, 0, e.horizonDays)

	series := make(map[string]float64, e.horizonDays)
	intervals := make(map[string]domain.ConfidenceInterval, e.horizonDays)
	for d := 1; d <= e.horizonDays; d++ {
		date := lastDay.AddDate(0, 0, d)
		key := date.Format(domain.DayFormat)
		series[key] = model.Predict(date)
		intervals[key] = model.Interval(date)
	}

	forecast := &domain.Forecast{
		ID:          e.newID(),
		TenantID:    tenantID,
		Metric:      metric,
		HorizonDays: e.horizonDays,
		Series:      series,
		Intervals:   intervals,
		ModelType:   domain.ModelTypeAdditive,
		ModelParams: map[string]string{
			"data_points":    strconv.Itoa(len(obs)),
			"forecast_start": forecastStart.Format(domain.DayFormat),
			"forecast_end":   forecastEnd.Format(domain.DayFormat),
		},
		AccuracyScore: model.Accuracy(obs),
		CreatedAt:     e.now().UTC(),
	}

	if err := e.forecasts.Insert(ctx, forecast); err != nil {
		return nil, fmt.Errorf("save %s forecast: %w", metric, err)
	}

	observability.RecordForecastGenerated()
	e.logger.Printf("[forecast] tenant %s: %d-day %s forecast from %d points",
		tenantID, e.horizonDays, metric, len(obs))

	return forecast, nil
}

// ForecastAll generates forecasts for every forecastable metric. Failures
// are collected per metric and do not abort the remaining metrics.
func (e *Engine) ForecastAll(ctx context.Context, tenantID string) (map[string]*domain.Forecast, map[string]error) {
	results := make(map[string]*domain.Forecast)
	failures := make(map[string]error)

	for _, metric := range domain.ForecastableMetrics {
		forecast, err := e.Generate(ctx, tenantID, metric)
		if err != nil {
			e.logger.Printf("[forecast] tenant %s: %s skipped: %v", tenantID, metric, err)
			failures[metric] = err
			continue
		}
		results[metric] = forecast
	}

	return results, failures
}
