// Package main provides one-shot data source synchronization: pull
// transactions from every connected source of one tenant (or all active
// tenants) into PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"aurix/internal/categorize"
	"aurix/internal/domain"
	"aurix/internal/ingestion"
	"aurix/internal/integrations"
	"aurix/internal/integrations/oauth"
	pgstore "aurix/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	tenantID := flag.String("tenant", "", "Tenant id to sync (default: all active tenants)")
	rulesPath := flag.String("category-rules", os.Getenv("CATEGORY_RULES"), "YAML category rule file")
	stripeKey := flag.String("stripe-api-key", os.Getenv("STRIPE_API_KEY"), "Stripe secret key")
	googleClientID := flag.String("google-client-id", os.Getenv("GOOGLE_CLIENT_ID"), "Google OAuth client id")
	googleClientSecret := flag.String("google-client-secret", os.Getenv("GOOGLE_CLIENT_SECRET"), "Google OAuth client secret")
	intuitClientID := flag.String("intuit-client-id", os.Getenv("INTUIT_CLIENT_ID"), "Intuit OAuth client id")
	intuitClientSecret := flag.String("intuit-client-secret", os.Getenv("INTUIT_CLIENT_SECRET"), "Intuit OAuth client secret")
	flag.Parse()

	logger := log.New(os.Stdout, "[sync] ", log.LstdFlags|log.Lshortfile)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	var rules *categorize.RuleSet
	if *rulesPath != "" {
		rules, err = categorize.LoadRules(*rulesPath)
		if err != nil {
			logger.Fatalf("Failed to load category rules: %v", err)
		}
	}

	tenantStore := pgstore.NewTenantStore(pool)
	transactionStore := pgstore.NewTransactionStore(pool)
	dataSourceStore := pgstore.NewDataSourceStore(pool)
	tokenStore := pgstore.NewOAuthTokenStore(pool)

	factory := &integrations.Factory{StripeAPIKey: *stripeKey}
	refresher := oauth.NewRefresher(
		oauth.ClientCredentials{ClientID: *googleClientID, ClientSecret: *googleClientSecret},
		oauth.ClientCredentials{ClientID: *intuitClientID, ClientSecret: *intuitClientSecret},
	)

	var tenants []*domain.Tenant
	if *tenantID != "" {
		tenant, err := tenantStore.GetByID(ctx, *tenantID)
		if err != nil {
			logger.Fatalf("Failed to load tenant %s: %v", *tenantID, err)
		}
		tenants = append(tenants, tenant)
	} else {
		tenants, err = tenantStore.GetActive(ctx)
		if err != nil {
			logger.Fatalf("Failed to list active tenants: %v", err)
		}
	}

	failed := 0
	for _, tenant := range tenants {
		history, err := transactionStore.GetByTenant(ctx, tenant.ID)
		if err != nil {
			logger.Printf("Tenant %s: load history: %v", tenant.ID, err)
			failed++
			continue
		}

		runner := ingestion.NewRunner(ingestion.RunnerOptions{
			TransactionStore: transactionStore,
			DataSourceStore:  dataSourceStore,
			TokenStore:       tokenStore,
			Factory:          factory.Source,
			Refresher:        refresher,
			Categorizer:      categorize.NewCategorizer(rules, categorize.TrainClassifier(history)),
			Logger:           logger,
		})
		if err := runner.SyncAll(ctx, tenant.ID); err != nil {
			logger.Printf("Tenant %s: %v", tenant.ID, err)
			failed++
			continue
		}
		logger.Printf("Tenant %s (%s): sync complete", tenant.ID, tenant.Name)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "Sync finished with %d failed tenant(s)\n", failed)
		os.Exit(1)
	}
}
