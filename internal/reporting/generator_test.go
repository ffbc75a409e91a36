package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/idhash"
	"aurix/internal/kpi"
	"aurix/internal/narrative"
	"aurix/internal/storage/memory"
)

var (
	fixedNow    = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	periodStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
)

type fakeSummarizer struct {
	summary *narrative.Summary
	err     error
	calls   int
}

func (f *fakeSummarizer) FinancialSummary(context.Context, string, *kpi.Snapshot) (*narrative.Summary, error) {
	f.calls++
	return f.summary, f.err
}

type fixture struct {
	generator *Generator
	reports   *memory.ReportStore
	forecasts *memory.ForecastStore
	txns      *memory.TransactionStore
}

func setup(t *testing.T, summarizer Summarizer) *fixture {
	t.Helper()

	f := &fixture{
		reports:   memory.NewReportStore(),
		forecasts: memory.NewForecastStore(),
		txns:      memory.NewTransactionStore(),
	}
	tenants := memory.NewTenantStore()
	metrics := memory.NewMetricStore()
	now := func() time.Time { return fixedNow }

	err := tenants.Insert(context.Background(), &domain.Tenant{
		ID:     "t1",
		Name:   "Acme",
		Plan:   domain.PlanStarter,
		Status: domain.TenantStatusActive,
	})
	if err != nil {
		t.Fatalf("Insert tenant failed: %v", err)
	}

	f.generator = NewGenerator(GeneratorOptions{
		TenantStore:      tenants,
		TransactionStore: f.txns,
		ForecastStore:    f.forecasts,
		ReportStore:      f.reports,
		KPIEngine: kpi.NewEngine(kpi.EngineOptions{
			TransactionStore: f.txns,
			MetricStore:      metrics,
			Now:              now,
		}),
		Summarizer: summarizer,
		Now:        now,
	})
	return f
}

func seedData(t *testing.T, f *fixture) {
	t.Helper()

	txns := []*domain.Transaction{
		{ID: "txn1", TenantID: "t1", Date: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
			Description: "Stripe payout", Amount: decimal.NewFromInt(5000), Category: domain.CategoryRevenue},
		{ID: "txn2", TenantID: "t1", Date: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
			Description: "Gusto, Inc", Amount: decimal.NewFromInt(-2000), Category: domain.CategoryPayroll},
		{ID: "txn3", TenantID: "t1", Date: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
			Description: "Figma", Amount: decimal.NewFromInt(-500), Category: domain.CategorySaaS},
	}
	for _, txn := range txns {
		if err := f.txns.Insert(context.Background(), txn); err != nil {
			t.Fatalf("Insert transaction failed: %v", err)
		}
	}

	accuracy := 0.91
	err := f.forecasts.Insert(context.Background(), &domain.Forecast{
		ID:          "f1",
		TenantID:    "t1",
		Metric:      domain.MetricRevenue,
		HorizonDays: 90,
		Series:      map[string]float64{"2026-02-01": 1200.5, "2026-05-01": 1500.25},
		ModelType:   domain.ModelTypeAdditive,
		ModelParams: map[string]string{"forecast_start": "2026-02-01", "forecast_end": "2026-05-01"},
		AccuracyScore: &accuracy,
		CreatedAt:   fixedNow,
	})
	if err != nil {
		t.Fatalf("Insert forecast failed: %v", err)
	}
}

func TestGenerate(t *testing.T) {
	summarizer := &fakeSummarizer{summary: &narrative.Summary{
		Summary:  "Solid month.",
		Insights: []string{"Revenue concentrated in one payout"},
		Risks:    []string{"Single revenue source"},
		Actions:  []string{"Diversify billing"},
	}}
	f := setup(t, summarizer)
	seedData(t, f)

	result, err := f.generator.Generate(context.Background(), "t1", domain.ReportMonthly, periodStart, periodEnd)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	report := result.Report
	wantID := idhash.ComputeReportID("t1", domain.ReportMonthly, periodStart, periodEnd)
	if report.ID != wantID {
		t.Errorf("Expected deterministic id %s, got %s", wantID, report.ID)
	}
	if report.Title != "Monthly Financial Report 2026-01-01 to 2026-01-31" {
		t.Errorf("Unexpected title %q", report.Title)
	}
	if report.AISummary == "" || !strings.Contains(report.AISummary, "Solid month.") {
		t.Errorf("Expected ai summary JSON on report, got %q", report.AISummary)
	}

	md := report.Markdown
	for _, want := range []string{
		"# Acme",
		"| Total Revenue | 5000.00 |",
		"| Total Expenses | 2500.00 |",
		"| Payroll | 2000.00 | 1 |",
		"| revenue | 90d | 2026-05-01 | 1500.25 | 0.91 |",
		"## AI Summary",
		"- Diversify billing",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q", want)
		}
	}

	// CSV: header plus one row per transaction, quoted free text intact.
	lines := strings.Split(strings.TrimSpace(result.CSV), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 4 csv lines, got %d", len(lines))
	}
	if !strings.Contains(result.CSV, `"Gusto, Inc"`) {
		t.Errorf("Expected quoted description in csv, got %q", result.CSV)
	}

	stored, err := f.reports.GetByID(context.Background(), wantID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Markdown != md {
		t.Error("Stored markdown differs from rendered markdown")
	}
}

func TestGenerate_Regenerate(t *testing.T) {
	f := setup(t, nil)
	seedData(t, f)

	if _, err := f.generator.Generate(context.Background(), "t1", domain.ReportMonthly, periodStart, periodEnd); err != nil {
		t.Fatalf("First Generate failed: %v", err)
	}
	if _, err := f.generator.Generate(context.Background(), "t1", domain.ReportMonthly, periodStart, periodEnd); err != nil {
		t.Fatalf("Expected regeneration to succeed, got %v", err)
	}

	reports, _ := f.reports.GetByTenant(context.Background(), "t1")
	if len(reports) != 1 {
		t.Errorf("Expected 1 stored report, got %d", len(reports))
	}
}

func TestGenerate_SummarizerFailureIsNotFatal(t *testing.T) {
	summarizer := &fakeSummarizer{err: errors.New("quota exhausted")}
	f := setup(t, summarizer)
	seedData(t, f)

	result, err := f.generator.Generate(context.Background(), "t1", domain.ReportMonthly, periodStart, periodEnd)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Report.AISummary != "" {
		t.Errorf("Expected empty ai summary, got %q", result.Report.AISummary)
	}
	if strings.Contains(result.Report.Markdown, "## AI Summary") {
		t.Error("Expected no AI section without a summary")
	}
}

func TestGenerate_EmptyPeriod(t *testing.T) {
	f := setup(t, nil)

	result, err := f.generator.Generate(context.Background(), "t1", domain.ReportCustom, periodStart, periodEnd)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Data.TransactionCount != 0 {
		t.Errorf("Expected no transactions, got %d", result.Data.TransactionCount)
	}
	if !strings.Contains(result.Report.Markdown, "No expenses recorded in this period.") {
		t.Error("Expected empty-period placeholder in markdown")
	}
}
