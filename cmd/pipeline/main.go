// Package main provides a one-shot analytics pipeline run: KPIs,
// forecasts, and the alert sweep for one tenant or all active tenants.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"aurix/internal/alerts"
	"aurix/internal/domain"
	"aurix/internal/forecast"
	"aurix/internal/integrations/slack"
	"aurix/internal/kpi"
	"aurix/internal/narrative"
	"aurix/internal/orchestrator"
	chstore "aurix/internal/storage/clickhouse"
	pgstore "aurix/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	tenantID := flag.String("tenant", "", "Tenant id to process (default: all active tenants)")
	periodDays := flag.Int("period-days", orchestrator.DefaultPeriodDays, "KPI lookback window in days")
	anthropicKey := flag.String("anthropic-api-key", os.Getenv("ANTHROPIC_API_KEY"), "Anthropic API key for alert explanations")
	slackToken := flag.String("slack-bot-token", os.Getenv("SLACK_BOT_TOKEN"), "Slack bot token for alert delivery")
	flag.Parse()

	logger := log.New(os.Stdout, "[pipeline] ", log.LstdFlags|log.Lshortfile)

	if *postgresDSN == "" || *clickhouseDSN == "" {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required")
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
	metricStore := chstore.NewMetricStore(conn)

	notifiers := map[string]alerts.Notifier{
		domain.ChannelWebhook: alerts.NewWebhookNotifier(),
	}
	if *slackToken != "" {
		notifiers[domain.ChannelSlack] = alerts.NewSlackNotifier(slack.NewClient(*slackToken))
	}

	evaluatorOpts := alerts.EvaluatorOptions{
		RuleStore:   pgstore.NewAlertRuleStore(pool),
		EventStore:  pgstore.NewAlertEventStore(pool),
		MetricStore: metricStore,
		Notifiers:   notifiers,
		Logger:      logger,
	}
	if *anthropicKey != "" {
		quota := narrative.NewQuota(tenantStore, time.Now)
		evaluatorOpts.Explainer = narrative.NewAnalyzer(narrative.NewClient(*anthropicKey), quota, logger)
	}

	pipeline := orchestrator.NewPipeline(orchestrator.PipelineOptions{
		KPIEngine: kpi.NewEngine(kpi.EngineOptions{
			TransactionStore: pgstore.NewTransactionStore(pool),
			MetricStore:      metricStore,
			Logger:           logger,
		}),
		ForecastEngine: forecast.NewEngine(forecast.EngineOptions{
			MetricStore:   metricStore,
			ForecastStore: chstore.NewForecastStore(conn),
			Logger:        logger,
		}),
		AlertEvaluator: alerts.NewEvaluator(evaluatorOpts),
		TenantStore:    tenantStore,
		PeriodDays:     *periodDays,
		Logger:         logger,
	})

	var results []*orchestrator.RunResult
	if *tenantID != "" {
		result, err := pipeline.Run(ctx, *tenantID)
		if err != nil {
			logger.Fatalf("Pipeline failed: %v", err)
		}
		results = append(results, result)
	} else {
		results, err = pipeline.RunAll(ctx)
		if err != nil {
			logger.Fatalf("Pipeline failed: %v", err)
		}
	}

	failed := 0
	for _, result := range results {
		fmt.Printf("tenant %s: forecasts=%d alerts_evaluated=%d alerts_triggered=%d errors=%d\n",
			result.TenantID, result.ForecastsGenerated, result.AlertsEvaluated,
			result.AlertsTriggered, len(result.Errors))
		for _, phaseErr := range result.Errors {
			fmt.Fprintf(os.Stderr, "  %v\n", phaseErr)
		}
		if result.Failed() {
			failed++
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "Pipeline finished with %d failed tenant(s)\n", failed)
		os.Exit(1)
	}
}
