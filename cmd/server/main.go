// Package main provides the unified service that runs all components
// together:
// - Sync (scheduled): pulls transactions from connected data sources
// - Pipeline (scheduled): KPIs → forecasts → alert sweep per tenant
// - Reporting (scheduled): markdown/CSV period reports
// - HTTP: analytics API, /ws/events stream, health/status/metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"aurix/internal/alerts"
	"aurix/internal/categorize"
	"aurix/internal/domain"
	"aurix/internal/forecast"
	"aurix/internal/ingestion"
	"aurix/internal/integrations"
	"aurix/internal/integrations/oauth"
	"aurix/internal/integrations/slack"
	"aurix/internal/kpi"
	"aurix/internal/narrative"
	"aurix/internal/orchestrator"
	"aurix/internal/reporting"
	"aurix/internal/server"
	"aurix/internal/storage"
	chstore "aurix/internal/storage/clickhouse"
	"aurix/internal/storage/memory"
	"aurix/internal/storage/migrations"
	pgstore "aurix/internal/storage/postgres"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	useMemory        bool
	outputDir        string
	syncInterval     time.Duration
	pipelineInterval time.Duration
	reportInterval   time.Duration

	// Stores
	stores *allStores

	// Components
	rules     *categorize.RuleSet
	factory   *integrations.Factory
	refresher *oauth.Refresher
	analyzer  *narrative.Analyzer // nil without an API key
	pipeline  *orchestrator.Pipeline
	generator *reporting.Generator
	api       *server.Server
	hub       *server.Hub

	logger *log.Logger

	// Overlap guards
	mu              sync.Mutex
	syncRunning     bool
	pipelineRunning bool
	reportRunning   bool
}

// allStores holds all storage implementations.
type allStores struct {
	tenantStore      storage.TenantStore
	dataSourceStore  storage.DataSourceStore
	tokenStore       storage.OAuthTokenStore
	transactionStore storage.TransactionStore
	metricStore      storage.MetricStore
	forecastStore    storage.ForecastStore
	alertRuleStore   storage.AlertRuleStore
	alertEventStore  storage.AlertEventStore
	reportStore      storage.ReportStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("AURIX_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	rulesPath := flag.String("category-rules", os.Getenv("CATEGORY_RULES"), "YAML category rule file")
	outputDir := flag.String("output-dir", envOr("REPORT_OUTPUT_DIR", "reports"), "Output directory for report files")
	syncInterval := flag.Duration("sync-interval", time.Hour, "Data source sync interval")
	pipelineInterval := flag.Duration("pipeline-interval", time.Hour, "Analytics pipeline interval")
	reportInterval := flag.Duration("report-interval", 24*time.Hour, "Report generation interval")
	stripeKey := flag.String("stripe-api-key", os.Getenv("STRIPE_API_KEY"), "Stripe secret key")
	anthropicKey := flag.String("anthropic-api-key", os.Getenv("ANTHROPIC_API_KEY"), "Anthropic API key (AI features off when empty)")
	slackToken := flag.String("slack-bot-token", os.Getenv("SLACK_BOT_TOKEN"), "Slack bot token for alert delivery")
	googleClientID := flag.String("google-client-id", os.Getenv("GOOGLE_CLIENT_ID"), "Google OAuth client id")
	googleClientSecret := flag.String("google-client-secret", os.Getenv("GOOGLE_CLIENT_SECRET"), "Google OAuth client secret")
	intuitClientID := flag.String("intuit-client-id", os.Getenv("INTUIT_CLIENT_ID"), "Intuit OAuth client id")
	intuitClientSecret := flag.String("intuit-client-secret", os.Getenv("INTUIT_CLIENT_SECRET"), "Intuit OAuth client secret")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	rules, err := loadRules(*rulesPath)
	if err != nil {
		logger.Fatalf("Failed to load category rules: %v", err)
	}

	srv := newServer(serverConfig{
		stores:           stores,
		rules:            rules,
		useMemory:        *useMemory,
		outputDir:        *outputDir,
		syncInterval:     *syncInterval,
		pipelineInterval: *pipelineInterval,
		reportInterval:   *reportInterval,
		stripeKey:        *stripeKey,
		anthropicKey:     *anthropicKey,
		slackToken:       *slackToken,
		google:           oauth.ClientCredentials{ClientID: *googleClientID, ClientSecret: *googleClientSecret},
		intuit:           oauth.ClientCredentials{ClientID: *intuitClientID, ClientSecret: *intuitClientSecret},
		logger:           logger,
	})

	httpServer := &http.Server{Addr: *addr, Handler: srv.api.Handler()}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown: %v", err)
		}
		srv.hub.Close()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	go func() {
		logger.Printf("Starting HTTP server on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	err = srv.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

type serverConfig struct {
	stores           *allStores
	rules            *categorize.RuleSet
	useMemory        bool
	outputDir        string
	syncInterval     time.Duration
	pipelineInterval time.Duration
	reportInterval   time.Duration
	stripeKey        string
	anthropicKey     string
	slackToken       string
	google           oauth.ClientCredentials
	intuit           oauth.ClientCredentials
	logger           *log.Logger
}

// newServer wires all components from the stores and credentials.
func newServer(cfg serverConfig) *Server {
	s := &Server{
		useMemory:        cfg.useMemory,
		outputDir:        cfg.outputDir,
		syncInterval:     cfg.syncInterval,
		pipelineInterval: cfg.pipelineInterval,
		reportInterval:   cfg.reportInterval,
		stores:           cfg.stores,
		rules:            cfg.rules,
		factory:          &integrations.Factory{StripeAPIKey: cfg.stripeKey},
		refresher:        oauth.NewRefresher(cfg.google, cfg.intuit),
		hub:              server.NewHub(cfg.logger),
		logger:           cfg.logger,
	}

	if cfg.anthropicKey != "" {
		quota := narrative.NewQuota(cfg.stores.tenantStore, time.Now)
		s.analyzer = narrative.NewAnalyzer(narrative.NewClient(cfg.anthropicKey), quota, cfg.logger)
	}

	kpiEngine := kpi.NewEngine(kpi.EngineOptions{
		TransactionStore: cfg.stores.transactionStore,
		MetricStore:      cfg.stores.metricStore,
		Logger:           cfg.logger,
	})
	forecastEngine := forecast.NewEngine(forecast.EngineOptions{
		MetricStore:   cfg.stores.metricStore,
		ForecastStore: cfg.stores.forecastStore,
		Logger:        cfg.logger,
	})

	notifiers := map[string]alerts.Notifier{
		domain.ChannelWebhook: alerts.NewWebhookNotifier(),
	}
	if cfg.slackToken != "" {
		notifiers[domain.ChannelSlack] = alerts.NewSlackNotifier(slack.NewClient(cfg.slackToken))
	}
	evaluatorOpts := alerts.EvaluatorOptions{
		RuleStore:   cfg.stores.alertRuleStore,
		EventStore:  cfg.stores.alertEventStore,
		MetricStore: cfg.stores.metricStore,
		Notifiers:   notifiers,
		Logger:      cfg.logger,
	}
	if s.analyzer != nil {
		evaluatorOpts.Explainer = s.analyzer
	}

	s.pipeline = orchestrator.NewPipeline(orchestrator.PipelineOptions{
		KPIEngine:      kpiEngine,
		ForecastEngine: forecastEngine,
		AlertEvaluator: alerts.NewEvaluator(evaluatorOpts),
		TenantStore:    cfg.stores.tenantStore,
		Logger:         cfg.logger,
	})

	generatorOpts := reporting.GeneratorOptions{
		TenantStore:      cfg.stores.tenantStore,
		TransactionStore: cfg.stores.transactionStore,
		ForecastStore:    cfg.stores.forecastStore,
		ReportStore:      cfg.stores.reportStore,
		KPIEngine:        kpiEngine,
		Logger:           cfg.logger,
	}
	if s.analyzer != nil {
		generatorOpts.Summarizer = s.analyzer
	}
	s.generator = reporting.NewGenerator(generatorOpts)

	apiOpts := server.Options{
		KPIEngine:     kpiEngine,
		ForecastStore: cfg.stores.forecastStore,
		Hub:           s.hub,
		Logger:        cfg.logger,
	}
	if s.analyzer != nil {
		apiOpts.Summarizer = s.analyzer
	}
	s.api = server.New(apiOpts)

	return s
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			tenantStore:      memory.NewTenantStore(),
			dataSourceStore:  memory.NewDataSourceStore(),
			tokenStore:       memory.NewOAuthTokenStore(),
			transactionStore: memory.NewTransactionStore(),
			metricStore:      memory.NewMetricStore(),
			forecastStore:    memory.NewForecastStore(),
			alertRuleStore:   memory.NewAlertRuleStore(),
			alertEventStore:  memory.NewAlertEventStore(),
			reportStore:      memory.NewReportStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse: migrations create the database and return the connection.
	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		// PostgreSQL stores (row data)
		tenantStore:      pgstore.NewTenantStore(pool),
		dataSourceStore:  pgstore.NewDataSourceStore(pool),
		tokenStore:       pgstore.NewOAuthTokenStore(pool),
		transactionStore: pgstore.NewTransactionStore(pool),
		alertRuleStore:   pgstore.NewAlertRuleStore(pool),
		alertEventStore:  pgstore.NewAlertEventStore(pool),
		reportStore:      pgstore.NewReportStore(pool),

		// ClickHouse stores (analytics)
		metricStore:   chstore.NewMetricStore(conn),
		forecastStore: chstore.NewForecastStore(conn),
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the schedulers and blocks until the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting unified server...")

	errCh := make(chan error, 3)

	go func() {
		if err := s.runScheduler(ctx, "sync", s.syncInterval, s.runSyncPass); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("sync scheduler: %w", err)
		}
	}()
	go func() {
		if err := s.runScheduler(ctx, "pipeline", s.pipelineInterval, s.runPipelinePass); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("pipeline scheduler: %w", err)
		}
	}()
	go func() {
		if err := s.runScheduler(ctx, "report", s.reportInterval, s.runReportPass); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("report scheduler: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runScheduler runs pass immediately and then on every tick.
func (s *Server) runScheduler(ctx context.Context, name string, interval time.Duration, pass func(context.Context)) error {
	s.logger.Printf("Starting %s scheduler (interval: %v)...", name, interval)

	pass(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pass(ctx)
		}
	}
}

// runSyncPass syncs every active data source of every active tenant. A
// fresh classifier is trained from each tenant's categorized history.
func (s *Server) runSyncPass(ctx context.Context) {
	if !s.tryStart(&s.syncRunning, "sync") {
		return
	}
	defer s.finish(&s.syncRunning)

	tenants, err := s.stores.tenantStore.GetActive(ctx)
	if err != nil {
		s.logger.Printf("Sync pass: list tenants: %v", err)
		return
	}

	syncLogger := log.New(os.Stdout, "[sync] ", log.LstdFlags)
	for _, tenant := range tenants {
		history, err := s.stores.transactionStore.GetByTenant(ctx, tenant.ID)
		if err != nil {
			s.logger.Printf("Sync pass: history for %s: %v", tenant.ID, err)
			continue
		}

		runner := ingestion.NewRunner(ingestion.RunnerOptions{
			TransactionStore: s.stores.transactionStore,
			DataSourceStore:  s.stores.dataSourceStore,
			TokenStore:       s.stores.tokenStore,
			Factory:          s.factory.Source,
			Refresher:        s.refresher,
			Categorizer:      categorize.NewCategorizer(s.rules, categorize.TrainClassifier(history)),
			Logger:           syncLogger,
		})
		if err := runner.SyncAll(ctx, tenant.ID); err != nil {
			s.logger.Printf("Sync pass: tenant %s: %v", tenant.ID, err)
			continue
		}

		s.hub.Broadcast(server.Event{Type: server.EventSync, TenantID: tenant.ID, At: time.Now().UTC()})
	}

	s.api.NoteSyncRun()
}

// runPipelinePass runs the analytics pipeline for every active tenant.
func (s *Server) runPipelinePass(ctx context.Context) {
	if !s.tryStart(&s.pipelineRunning, "pipeline") {
		return
	}
	defer s.finish(&s.pipelineRunning)

	results, err := s.pipeline.RunAll(ctx)
	if err != nil {
		s.logger.Printf("Pipeline pass: %v", err)
		return
	}

	for _, result := range results {
		s.hub.Broadcast(server.Event{
			Type:     server.EventPipeline,
			TenantID: result.TenantID,
			At:       time.Now().UTC(),
			Payload: map[string]int{
				"forecasts":        result.ForecastsGenerated,
				"alerts_evaluated": result.AlertsEvaluated,
				"alerts_triggered": result.AlertsTriggered,
			},
		})
		for _, event := range result.AlertEvents {
			s.hub.Broadcast(server.Event{
				Type:     server.EventAlert,
				TenantID: result.TenantID,
				At:       event.TriggeredAt,
				Payload:  event,
			})
		}
	}

	s.api.NotePipelineRun()
}

// runReportPass generates a trailing 30 day report per active tenant and
// writes markdown/CSV files to the output directory.
func (s *Server) runReportPass(ctx context.Context) {
	if !s.tryStart(&s.reportRunning, "report") {
		return
	}
	defer s.finish(&s.reportRunning)

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		s.logger.Printf("Report pass: create output directory: %v", err)
		return
	}

	tenants, err := s.stores.tenantStore.GetActive(ctx)
	if err != nil {
		s.logger.Printf("Report pass: list tenants: %v", err)
		return
	}

	end := domain.Midnight(time.Now().UTC())
	start := end.AddDate(0, 0, -30)

	for _, tenant := range tenants {
		result, err := s.generator.Generate(ctx, tenant.ID, domain.ReportMonthly, start, end)
		if err != nil {
			s.logger.Printf("Report pass: tenant %s: %v", tenant.ID, err)
			continue
		}
		if err := writeReportFiles(s.outputDir, tenant.ID, result); err != nil {
			s.logger.Printf("Report pass: write files for %s: %v", tenant.ID, err)
		}
	}

	s.api.NoteReportRun()
}

func (s *Server) tryStart(running *bool, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *running {
		s.logger.Printf("%s already running, skipping...", name)
		return false
	}
	*running = true
	return true
}

func (s *Server) finish(running *bool) {
	s.mu.Lock()
	*running = false
	s.mu.Unlock()
}

// writeReportFiles writes the markdown body and CSV export next to each
// other, named by tenant and period start.
func writeReportFiles(outputDir, tenantID string, result *reporting.Result) error {
	base := fmt.Sprintf("%s_%s_%s", tenantID, result.Report.ReportType,
		result.Report.PeriodStart.Format(domain.DayFormat))

	mdPath := filepath.Join(outputDir, base+".md")
	if err := os.WriteFile(mdPath, []byte(result.Report.Markdown), 0644); err != nil {
		return err
	}
	csvPath := filepath.Join(outputDir, base+".csv")
	return os.WriteFile(csvPath, []byte(result.CSV), 0644)
}

// loadRules reads the category rule file; an empty path means rule-less
// categorization (heuristics and classifier only).
func loadRules(path string) (*categorize.RuleSet, error) {
	if path == "" {
		return nil, nil
	}
	return categorize.LoadRules(path)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads .env into the environment without overriding
// variables that are already set.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
