package kpi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/observability"
	"aurix/internal/storage"
)

// Default derived-indicator windows in days.
const (
	DefaultBurnWindowDays   = 30
	DefaultGrowthPeriodDays = 30
)

// Engine computes KPI snapshots and persists daily metric series.
type Engine struct {
	transactions     storage.TransactionStore
	metrics          storage.MetricStore
	burnWindowDays   int
	growthPeriodDays int
	logger           *log.Logger
	now              func() time.Time
}

// EngineOptions contains configuration for creating an Engine.
type EngineOptions struct {
	TransactionStore storage.TransactionStore
	MetricStore      storage.MetricStore
	BurnWindowDays   int // default: 30
	GrowthPeriodDays int // default: 30
	Logger           *log.Logger
	Now              func() time.Time
}

// NewEngine creates a KPI engine.
func NewEngine(opts EngineOptions) *Engine {
	burnWindow := opts.BurnWindowDays
	if burnWindow == 0 {
		burnWindow = DefaultBurnWindowDays
	}
	growthPeriod := opts.GrowthPeriodDays
	if growthPeriod == 0 {
		growthPeriod = DefaultGrowthPeriodDays
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		transactions:     opts.TransactionStore,
		metrics:          opts.MetricStore,
		burnWindowDays:   burnWindow,
		growthPeriodDays: growthPeriod,
		logger:           logger,
		now:              now,
	}
}

// Snapshot is the computed KPI view for a tenant and period.
type Snapshot struct {
	TenantID    string    `json:"tenant_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	TotalNetCash  decimal.Decimal `json:"total_net_cash"`

	AvgDailyRevenue  decimal.Decimal `json:"avg_daily_revenue"`
	AvgDailyExpenses decimal.Decimal `json:"avg_daily_expenses"`
	BurnRate         decimal.Decimal `json:"burn_rate"`

	RunwayDays int    `json:"runway_days"`
	Growth     Growth `json:"growth"`
}

// ComputeAll computes the daily revenue, expenses and net-cash series over
// [start, end], persists them, and returns a snapshot with derived
// indicators. Days already stored from earlier runs are kept as is.
func (e *Engine) ComputeAll(ctx context.Context, tenantID string, start, end time.Time) (*Snapshot, error) {
	txns, err := e.transactions.GetByDateRange(ctx, tenantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	revenue := DailyRevenue(txns)
	expenses := DailyExpenses(txns)
	netCash := NetCash(revenue, expenses)

	burn, err := e.burnRate(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	runway, err := e.runway(ctx, tenantID, burn)
	if err != nil {
		return nil, err
	}
	growth, err := e.growth(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stored := 0
	for metric, series := range map[string]DailySeries{
		domain.MetricRevenue:  revenue,
		domain.MetricExpenses: expenses,
		domain.MetricNetCash:  netCash,
	} {
		n, err := e.persistSeries(ctx, tenantID, metric, series)
		if err != nil {
			return nil, fmt.Errorf("persist %s series: %w", metric, err)
		}
		stored += n
	}

	observability.RecordMetricsComputed(stored)
	e.logger.Printf("[kpi] tenant %s: %d metric points stored for %s..%s",
		tenantID, stored, start.Format(domain.DayFormat), end.Format(domain.DayFormat))

	snapshot := &Snapshot{
		TenantID:      tenantID,
		PeriodStart:   domain.Midnight(start),
		PeriodEnd:     domain.Midnight(end),
		TotalRevenue:  revenue.Total(),
		TotalExpenses: expenses.Total(),
		TotalNetCash:  netCash.Total(),
		BurnRate:      burn,
		RunwayDays:    runway,
		Growth:        growth,
	}
	if len(revenue) > 0 {
		snapshot.AvgDailyRevenue = snapshot.TotalRevenue.Div(decimal.NewFromInt(int64(len(revenue))))
	}
	if len(expenses) > 0 {
		snapshot.AvgDailyExpenses = snapshot.TotalExpenses.Div(decimal.NewFromInt(int64(len(expenses))))
	}
	return snapshot, nil
}

// burnRate averages expenses over the trailing burn window ending today.
func (e *Engine) burnRate(ctx context.Context, tenantID string) (decimal.Decimal, error) {
	end := domain.Midnight(e.now())
	start := end.AddDate(0, 0, -e.burnWindowDays)

	txns, err := e.transactions.GetByDateRange(ctx, tenantID, start, end)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load burn window: %w", err)
	}
	return BurnRate(DailyExpenses(txns), e.burnWindowDays), nil
}

// runway derives the cash position from all transactions to date.
func (e *Engine) runway(ctx context.Context, tenantID string, burn decimal.Decimal) (int, error) {
	cash, err := e.transactions.SumByTenant(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("sum cash position: %w", err)
	}
	return Runway(cash, burn), nil
}

// growth compares revenue in the current period against the one before it.
func (e *Engine) growth(ctx context.Context, tenantID string) (Growth, error) {
	end := domain.Midnight(e.now())
	mid := end.AddDate(0, 0, -e.growthPeriodDays)
	start := end.AddDate(0, 0, -2*e.growthPeriodDays)

	txns, err := e.transactions.GetByDateRange(ctx, tenantID, start, end)
	if err != nil {
		return Growth{}, fmt.Errorf("load growth window: %w", err)
	}
	return GrowthRate(DailyRevenue(txns), mid.Format(domain.DayFormat)), nil
}

// persistSeries writes a daily series to the metric store. The whole batch
// is tried first; on a duplicate key the points are retried one by one so
// days from earlier runs are skipped without losing new ones.
func (e *Engine) persistSeries(ctx context.Context, tenantID, metric string, series DailySeries) (int, error) {
	if len(series) == 0 {
		return 0, nil
	}

	points := make([]*domain.MetricPoint, 0, len(series))
	for _, day := range series.Days() {
		date, err := time.Parse(domain.DayFormat, day)
		if err != nil {
			return 0, fmt.Errorf("parse series day %q: %w", day, err)
		}
		points = append(points, &domain.MetricPoint{
			TenantID: tenantID,
			Date:     date,
			Metric:   metric,
			Value:    series[day],
		})
	}

	err := e.metrics.InsertBulk(ctx, points)
	if err == nil {
		return len(points), nil
	}
	if !errors.Is(err, storage.ErrDuplicateKey) {
		return 0, err
	}

	stored := 0
	for _, p := range points {
		if err := e.metrics.InsertBulk(ctx, []*domain.MetricPoint{p}); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			return stored, err
		}
		stored++
	}
	return stored, nil
}
