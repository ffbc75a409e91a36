// Package orchestrator chains the per-tenant analytics phases: KPI
// computation, forecasting, and the alert sweep.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"aurix/internal/alerts"
	"aurix/internal/domain"
	"aurix/internal/forecast"
	"aurix/internal/kpi"
	"aurix/internal/observability"
	"aurix/internal/storage"
)

// Phase labels used in logs and metrics.
const (
	PhaseKPI      = "kpi"
	PhaseForecast = "forecast"
	PhaseAlerts   = "alerts"
	PhaseTotal    = "total"
)

// DefaultPeriodDays is the KPI lookback window.
const DefaultPeriodDays = 90

// Pipeline runs the analytics phases for one tenant at a time.
type Pipeline struct {
	kpis       *kpi.Engine
	forecasts  *forecast.Engine
	alerts     *alerts.Evaluator
	tenants    storage.TenantStore
	periodDays int
	logger     *log.Logger
	now        func() time.Time
}

// PipelineOptions contains configuration for creating a Pipeline.
type PipelineOptions struct {
	KPIEngine      *kpi.Engine
	ForecastEngine *forecast.Engine
	AlertEvaluator *alerts.Evaluator
	TenantStore    storage.TenantStore // required for RunAll only
	PeriodDays     int                 // default: 90
	Logger         *log.Logger
	Now            func() time.Time
}

// NewPipeline creates an analytics pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	periodDays := opts.PeriodDays
	if periodDays == 0 {
		periodDays = DefaultPeriodDays
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Pipeline{
		kpis:       opts.KPIEngine,
		forecasts:  opts.ForecastEngine,
		alerts:     opts.AlertEvaluator,
		tenants:    opts.TenantStore,
		periodDays: periodDays,
		logger:     logger,
		now:        now,
	}
}

// PhaseError is a non-fatal failure from one pipeline phase.
type PhaseError struct {
	Phase  string
	Metric string // set for per-metric forecast failures
	Err    error
}

func (e PhaseError) Error() string {
	if e.Metric != "" {
		return fmt.Sprintf("%s (%s): %v", e.Phase, e.Metric, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e PhaseError) Unwrap() error { return e.Err }

// RunResult summarizes one pipeline run for a tenant.
type RunResult struct {
	TenantID   string
	StartedAt  time.Time
	FinishedAt time.Time

	Snapshot           *kpi.Snapshot
	ForecastsGenerated int
	AlertsEvaluated    int
	AlertsTriggered    int
	AlertEvents        []*domain.AlertEvent

	Errors []PhaseError
}

// Failed reports whether any phase recorded an error.
func (r *RunResult) Failed() bool { return len(r.Errors) > 0 }

// Run executes all phases for one tenant. Phase failures are accumulated
// on the result; later phases still run so a broken forecast does not
// stop the alert sweep.
func (p *Pipeline) Run(ctx context.Context, tenantID string) (*RunResult, error) {
	started := p.now()
	result := &RunResult{TenantID: tenantID, StartedAt: started}

	p.runKPIs(ctx, tenantID, result)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	p.runForecasts(ctx, tenantID, result)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	p.runAlerts(ctx, tenantID, result)

	result.FinishedAt = p.now()
	observability.DefaultMetrics.PipelineDuration.WithLabelValues(PhaseTotal).Observe(result.FinishedAt.Sub(started).Seconds())
	if !result.Failed() {
		observability.DefaultMetrics.LastSuccessfulPipeline.SetToCurrentTime()
	}

	p.logger.Printf("[orchestrator] tenant %s: forecasts=%d alerts_evaluated=%d alerts_triggered=%d errors=%d in %s",
		tenantID, result.ForecastsGenerated, result.AlertsEvaluated, result.AlertsTriggered,
		len(result.Errors), result.FinishedAt.Sub(started).Round(time.Millisecond))

	return result, nil
}

// RunAll runs the pipeline for every active tenant. Per-tenant failures
// are logged and do not abort the remaining tenants.
func (p *Pipeline) RunAll(ctx context.Context) ([]*RunResult, error) {
	tenants, err := p.tenants.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}

	results := make([]*RunResult, 0, len(tenants))
	for _, tenant := range tenants {
		result, err := p.Run(ctx, tenant.ID)
		if err != nil {
			return results, err
		}
		if result.Failed() {
			p.logger.Printf("[orchestrator] tenant %s: %d phase errors", tenant.ID, len(result.Errors))
		}
		results = append(results, result)
	}
	return results, nil
}

func (p *Pipeline) runKPIs(ctx context.Context, tenantID string, result *RunResult) {
	started := p.now()
	end := p.now()
	start := domain.Midnight(end).AddDate(0, 0, -p.periodDays)

	snapshot, err := p.kpis.ComputeAll(ctx, tenantID, start, end)
	observability.DefaultMetrics.PipelineDuration.WithLabelValues(PhaseKPI).Observe(p.now().Sub(started).Seconds())
	if err != nil {
		observability.RecordPipelineRun(PhaseKPI, "error")
		result.Errors = append(result.Errors, PhaseError{Phase: PhaseKPI, Err: err})
		p.logger.Printf("[orchestrator] tenant %s: kpi phase: %v", tenantID, err)
		return
	}

	observability.RecordPipelineRun(PhaseKPI, "success")
	result.Snapshot = snapshot
}

func (p *Pipeline) runForecasts(ctx context.Context, tenantID string, result *RunResult) {
	started := p.now()
	forecasts, failures := p.forecasts.ForecastAll(ctx, tenantID)
	observability.DefaultMetrics.PipelineDuration.WithLabelValues(PhaseForecast).Observe(p.now().Sub(started).Seconds())

	result.ForecastsGenerated = len(forecasts)

	hardFailure := false
	for metric, err := range failures {
		// Too little history is the normal state for young tenants.
		if errors.Is(err, forecast.ErrInsufficientData) {
			p.logger.Printf("[orchestrator] tenant %s: forecast %s skipped: %v", tenantID, metric, err)
			continue
		}
		hardFailure = true
		result.Errors = append(result.Errors, PhaseError{Phase: PhaseForecast, Metric: metric, Err: err})
		p.logger.Printf("[orchestrator] tenant %s: forecast %s: %v", tenantID, metric, err)
	}

	if hardFailure {
		observability.RecordPipelineRun(PhaseForecast, "error")
	} else {
		observability.RecordPipelineRun(PhaseForecast, "success")
	}
}

func (p *Pipeline) runAlerts(ctx context.Context, tenantID string, result *RunResult) {
	started := p.now()
	sweep, err := p.alerts.Sweep(ctx, tenantID)
	observability.DefaultMetrics.PipelineDuration.WithLabelValues(PhaseAlerts).Observe(p.now().Sub(started).Seconds())
	if err != nil {
		observability.RecordPipelineRun(PhaseAlerts, "error")
		result.Errors = append(result.Errors, PhaseError{Phase: PhaseAlerts, Err: err})
		p.logger.Printf("[orchestrator] tenant %s: alert phase: %v", tenantID, err)
		return
	}

	observability.RecordPipelineRun(PhaseAlerts, "success")
	result.AlertsEvaluated = sweep.Evaluated
	result.AlertsTriggered = sweep.Triggered
	result.AlertEvents = sweep.Events
}
