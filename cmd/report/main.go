// Package main generates a financial report for a tenant period: the
// markdown body and CSV transaction export are written to the output
// directory and a summary is printed to the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"aurix/internal/domain"
	"aurix/internal/kpi"
	"aurix/internal/narrative"
	"aurix/internal/reporting"
	chstore "aurix/internal/storage/clickhouse"
	pgstore "aurix/internal/storage/postgres"
)

var reportTypes = map[string]bool{
	domain.ReportMonthly:   true,
	domain.ReportQuarterly: true,
	domain.ReportAnnual:    true,
	domain.ReportCustom:    true,
}

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	tenantID := flag.String("tenant", "", "Tenant id (required)")
	reportType := flag.String("type", domain.ReportMonthly, "Report type: monthly, quarterly, annual, custom")
	startStr := flag.String("start", "", "Period start (YYYY-MM-DD, default: 30 days ago)")
	endStr := flag.String("end", "", "Period end (YYYY-MM-DD, default: today)")
	outputDir := flag.String("output-dir", envOr("REPORT_OUTPUT_DIR", "reports"), "Output directory")
	anthropicKey := flag.String("anthropic-api-key", os.Getenv("ANTHROPIC_API_KEY"), "Anthropic API key for the AI summary")
	flag.Parse()

	logger := log.New(os.Stdout, "[report] ", log.LstdFlags|log.Lshortfile)

	if *postgresDSN == "" || *clickhouseDSN == "" {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required")
	}
	if *tenantID == "" {
		logger.Fatal("--tenant is required")
	}
	if !reportTypes[*reportType] {
		logger.Fatalf("Unknown report type %q", *reportType)
	}

	start, end, err := resolvePeriod(*startStr, *endStr)
	if err != nil {
		logger.Fatalf("Invalid period: %v", err)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to clickhouse: %v", err)
	}
	defer conn.Close()

	tenantStore := pgstore.NewTenantStore(pool)
	transactionStore := pgstore.NewTransactionStore(pool)

	opts := reporting.GeneratorOptions{
		TenantStore:      tenantStore,
		TransactionStore: transactionStore,
		ForecastStore:    chstore.NewForecastStore(conn),
		ReportStore:      pgstore.NewReportStore(pool),
		KPIEngine: kpi.NewEngine(kpi.EngineOptions{
			TransactionStore: transactionStore,
			MetricStore:      chstore.NewMetricStore(conn),
			Logger:           logger,
		}),
		Logger: logger,
	}
	if *anthropicKey != "" {
		quota := narrative.NewQuota(tenantStore, time.Now)
		opts.Summarizer = narrative.NewAnalyzer(narrative.NewClient(*anthropicKey), quota, logger)
	}

	result, err := reporting.NewGenerator(opts).Generate(ctx, *tenantID, *reportType, start, end)
	if err != nil {
		logger.Fatalf("Report generation failed: %v", err)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logger.Fatalf("Failed to create output directory: %v", err)
	}

	base := fmt.Sprintf("%s_%s_%s", *tenantID, *reportType, start.Format(domain.DayFormat))
	mdPath := filepath.Join(*outputDir, base+".md")
	csvPath := filepath.Join(*outputDir, base+".csv")
	if err := os.WriteFile(mdPath, []byte(result.Report.Markdown), 0644); err != nil {
		logger.Fatalf("Failed to write markdown: %v", err)
	}
	if err := os.WriteFile(csvPath, []byte(result.CSV), 0644); err != nil {
		logger.Fatalf("Failed to write csv: %v", err)
	}

	printSummary(result, mdPath, csvPath)
}

// resolvePeriod parses the period flags, defaulting to the trailing 30
// days ending today.
func resolvePeriod(startStr, endStr string) (time.Time, time.Time, error) {
	end := domain.Midnight(time.Now().UTC())
	if endStr != "" {
		parsed, err := time.Parse(domain.DayFormat, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse end: %w", err)
		}
		end = parsed
	}

	start := end.AddDate(0, 0, -30)
	if startStr != "" {
		parsed, err := time.Parse(domain.DayFormat, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse start: %w", err)
		}
		start = parsed
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s before start %s",
			end.Format(domain.DayFormat), start.Format(domain.DayFormat))
	}
	return start, end, nil
}

func printSummary(result *reporting.Result, mdPath, csvPath string) {
	color.New(color.Bold).Printf("%s\n", result.Report.Title)
	fmt.Printf("%s (%s)\n\n", result.Data.TenantName, result.Data.TenantID)

	s := result.Data.Snapshot
	fmt.Printf("  Revenue:  %s\n", color.GreenString(s.TotalRevenue.StringFixed(2)))
	fmt.Printf("  Expenses: %s\n", color.RedString(s.TotalExpenses.StringFixed(2)))

	netCash := color.GreenString(s.TotalNetCash.StringFixed(2))
	if s.TotalNetCash.IsNegative() {
		netCash = color.RedString(s.TotalNetCash.StringFixed(2))
	}
	fmt.Printf("  Net cash: %s\n", netCash)
	fmt.Printf("  Burn:     %s/day, runway %s days\n",
		s.BurnRate.StringFixed(2), color.CyanString("%d", s.RunwayDays))
	fmt.Printf("  Transactions: %d | Forecasts: %d\n\n",
		result.Data.TransactionCount, len(result.Data.Forecasts))

	if result.Data.AISummary != nil {
		color.New(color.Bold).Println("AI Summary")
		fmt.Printf("  %s\n\n", result.Data.AISummary.Summary)
	}

	fmt.Printf("Written: %s\n", mdPath)
	fmt.Printf("Written: %s\n", csvPath)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
