package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"aurix/internal/domain"
	"aurix/internal/idhash"
	"aurix/internal/kpi"
	"aurix/internal/narrative"
	"aurix/internal/observability"
	"aurix/internal/storage"
)

// Summarizer produces the optional LLM commentary for a report.
type Summarizer interface {
	FinancialSummary(ctx context.Context, tenantID string, snapshot *kpi.Snapshot) (*narrative.Summary, error)
}

// Generator produces and persists tenant period reports.
type Generator struct {
	tenants      storage.TenantStore
	transactions storage.TransactionStore
	forecasts    storage.ForecastStore
	reports      storage.ReportStore
	kpis         *kpi.Engine
	summarizer   Summarizer
	logger       *log.Logger
	now          func() time.Time
}

// GeneratorOptions contains configuration for creating a Generator.
type GeneratorOptions struct {
	TenantStore      storage.TenantStore
	TransactionStore storage.TransactionStore
	ForecastStore    storage.ForecastStore
	ReportStore      storage.ReportStore
	KPIEngine        *kpi.Engine
	Summarizer       Summarizer // optional
	Logger           *log.Logger
	Now              func() time.Time
}

// NewGenerator creates a report generator.
func NewGenerator(opts GeneratorOptions) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Generator{
		tenants:      opts.TenantStore,
		transactions: opts.TransactionStore,
		forecasts:    opts.ForecastStore,
		reports:      opts.ReportStore,
		kpis:         opts.KPIEngine,
		summarizer:   opts.Summarizer,
		logger:       logger,
		now:          now,
	}
}

// Result bundles the persisted report with its render model and the CSV
// transaction export for the same period.
type Result struct {
	Report *domain.Report
	Data   *ReportData
	CSV    string
}

// Generate builds a report for the tenant period, persists it, and
// returns the rendered outputs. Re-generating an identical period is a
// no-op on storage. An LLM summary failure downgrades the report rather
// than failing it.
func (g *Generator) Generate(ctx context.Context, tenantID, reportType string, start, end time.Time) (*Result, error) {
	tenant, err := g.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}

	snapshot, err := g.kpis.ComputeAll(ctx, tenantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("compute kpis: %w", err)
	}

	txns, err := g.transactions.GetByDateRange(ctx, tenantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	forecastRows, err := g.forecastRows(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	data := &ReportData{
		TenantID:         tenantID,
		TenantName:       tenant.Name,
		ReportType:       reportType,
		GeneratedAt:      g.now().UTC(),
		PeriodStart:      domain.Midnight(start),
		PeriodEnd:        domain.Midnight(end),
		Snapshot:         snapshot,
		TransactionCount: len(txns),
		Expenses:         narrative.ExpenseBreakdown(txns),
		Forecasts:        forecastRows,
	}

	aiSummary := ""
	if g.summarizer != nil {
		summary, err := g.summarizer.FinancialSummary(ctx, tenantID, snapshot)
		if err != nil {
			g.logger.Printf("[report] tenant %s: ai summary skipped: %v", tenantID, err)
		} else {
			data.AISummary = summary
			raw, err := json.Marshal(summary)
			if err != nil {
				return nil, fmt.Errorf("marshal ai summary: %w", err)
			}
			aiSummary = string(raw)
		}
	}

	report := &domain.Report{
		ID:          idhash.ComputeReportID(tenantID, reportType, data.PeriodStart, data.PeriodEnd),
		TenantID:    tenantID,
		Title:       titleFor(reportType, data.PeriodStart, data.PeriodEnd),
		ReportType:  reportType,
		PeriodStart: data.PeriodStart,
		PeriodEnd:   data.PeriodEnd,
		Markdown:    RenderMarkdown(data),
		AISummary:   aiSummary,
		CreatedAt:   data.GeneratedAt,
	}

	if err := g.reports.Insert(ctx, report); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("store report: %w", err)
		}
		g.logger.Printf("[report] tenant %s: report %s already stored", tenantID, report.ID)
	}

	observability.RecordReportGenerated()
	g.logger.Printf("[report] tenant %s: %s report %s..%s (%d transactions)",
		tenantID, reportType, data.PeriodStart.Format(domain.DayFormat),
		data.PeriodEnd.Format(domain.DayFormat), len(txns))

	return &Result{Report: report, Data: data, CSV: RenderCSV(txns)}, nil
}

// forecastRows loads the latest stored forecast per forecastable metric.
func (g *Generator) forecastRows(ctx context.Context, tenantID string) ([]ForecastRow, error) {
	var rows []ForecastRow
	for _, metric := range domain.ForecastableMetrics {
		forecast, err := g.forecasts.GetLatestByMetric(ctx, tenantID, metric)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load %s forecast: %w", metric, err)
		}

		rows = append(rows, ForecastRow{
			Metric:        forecast.Metric,
			HorizonDays:   forecast.HorizonDays,
			ForecastStart: forecast.ModelParams["forecast_start"],
			ForecastEnd:   forecast.ModelParams["forecast_end"],
			EndValue:      lastValue(forecast.Series),
			AccuracyScore: forecast.AccuracyScore,
		})
	}
	return rows, nil
}

// lastValue returns the projection for the latest day in the series.
func lastValue(series map[string]float64) float64 {
	days := make([]string, 0, len(series))
	for day := range series {
		days = append(days, day)
	}
	if len(days) == 0 {
		return 0
	}
	sort.Strings(days)
	return series[days[len(days)-1]]
}

func titleFor(reportType string, start, end time.Time) string {
	label := reportType
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	return fmt.Sprintf("%s Financial Report %s to %s",
		label, start.Format(domain.DayFormat), end.Format(domain.DayFormat))
}
