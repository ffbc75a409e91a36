package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"aurix/internal/domain"
	"aurix/internal/observability"
	"aurix/internal/storage"
)

// SourceFactory builds a Source for a data source, using its stored OAuth
// token when the provider requires one. Token may be nil.
type SourceFactory func(ctx context.Context, ds *domain.DataSource, token *domain.OAuthToken) (Source, error)

// TokenRefresher exchanges an expired token for a fresh one.
type TokenRefresher interface {
	Refresh(ctx context.Context, ds *domain.DataSource, token *domain.OAuthToken) (*domain.OAuthToken, error)
}

// Runner syncs transactions from connected data sources into storage.
type Runner struct {
	transactionStore storage.TransactionStore
	dataSourceStore  storage.DataSourceStore
	tokenStore       storage.OAuthTokenStore
	factory          SourceFactory
	refresher        TokenRefresher
	categorizer      Categorizer
	window           time.Duration // lookback for each sync
	logger           *log.Logger
	now              func() time.Time
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	TransactionStore storage.TransactionStore
	DataSourceStore  storage.DataSourceStore
	TokenStore       storage.OAuthTokenStore
	Factory          SourceFactory
	Refresher        TokenRefresher // optional
	Categorizer      Categorizer
	Window           time.Duration // default: 90 days
	Logger           *log.Logger
	Now              func() time.Time
}

// NewRunner creates a new sync runner.
func NewRunner(opts RunnerOptions) *Runner {
	window := opts.Window
	if window == 0 {
		window = 90 * 24 * time.Hour
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{
		transactionStore: opts.TransactionStore,
		dataSourceStore:  opts.DataSourceStore,
		tokenStore:       opts.TokenStore,
		factory:          opts.Factory,
		refresher:        opts.Refresher,
		categorizer:      opts.Categorizer,
		window:           window,
		logger:           logger,
		now:              now,
	}
}

// SyncResult summarizes one data source sync.
type SyncResult struct {
	Fetched  int // raw rows returned by the source
	Deduped  int // rows removed as batch duplicates
	Invalid  int // rows rejected by validation
	Inserted int // new transactions written
	Skipped  int // rows already known by external id
}

// SyncAll syncs every active data source of a tenant. Per-source failures
// are logged and do not abort the remaining sources.
func (r *Runner) SyncAll(ctx context.Context, tenantID string) error {
	sources, err := r.dataSourceStore.GetActiveByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("list active datasources: %w", err)
	}

	for _, ds := range sources {
		if _, err := r.SyncDataSource(ctx, ds); err != nil {
			r.logger.Printf("[sync] datasource %s (%s): %v", ds.ID, ds.Kind, err)
		}
	}
	return nil
}

// SyncDataSource runs a full sync for one data source: fetch, validate,
// dedupe, categorize, insert-if-new, then record the outcome on the source.
func (r *Runner) SyncDataSource(ctx context.Context, ds *domain.DataSource) (*SyncResult, error) {
	started := r.now()

	result, err := r.sync(ctx, ds)
	if err != nil {
		observability.RecordSyncRun(ds.Kind, "error")
		if statusErr := r.dataSourceStore.UpdateSyncStatus(ctx, ds.ID, domain.SyncStatusError, err.Error(), r.now()); statusErr != nil {
			r.logger.Printf("[sync] update status for %s: %v", ds.ID, statusErr)
		}
		return nil, err
	}

	if err := r.dataSourceStore.UpdateSyncStatus(ctx, ds.ID, domain.SyncStatusSuccess, "", r.now()); err != nil {
		r.logger.Printf("[sync] update status for %s: %v", ds.ID, err)
	}

	observability.RecordSyncRun(ds.Kind, "success")
	observability.DefaultMetrics.SyncDuration.WithLabelValues(ds.Kind).Observe(r.now().Sub(started).Seconds())
	observability.DefaultMetrics.LastSuccessfulSync.SetToCurrentTime()

	r.logger.Printf("[sync] %s (%s): fetched=%d deduped=%d invalid=%d inserted=%d skipped=%d",
		ds.ID, ds.Kind, result.Fetched, result.Deduped, result.Invalid, result.Inserted, result.Skipped)

	return result, nil
}

func (r *Runner) sync(ctx context.Context, ds *domain.DataSource) (*SyncResult, error) {
	token, err := r.freshToken(ctx, ds)
	if err != nil {
		return nil, err
	}

	source, err := r.factory(ctx, ds, token)
	if err != nil {
		return nil, fmt.Errorf("build source: %w", err)
	}

	now := r.now()
	end := domain.Midnight(now)
	start := end.Add(-r.window)

	raws, err := source.FetchTransactions(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	result := &SyncResult{Fetched: len(raws)}
	observability.RecordTransactionsFetched(len(raws))

	valid := make([]*RawTransaction, 0, len(raws))
	for _, raw := range raws {
		if err := ValidateRaw(raw, now); err != nil {
			result.Invalid++
			observability.RecordTransactionRejected("invalid")
			r.logger.Printf("[sync] rejected row from %s: %v", ds.ID, err)
			continue
		}
		valid = append(valid, raw)
	}

	unique, removed := DedupeRaw(valid)
	result.Deduped = removed

	for _, raw := range unique {
		exists, err := r.transactionStore.ExistsExternal(ctx, ds.TenantID, ds.ID, raw.ExternalID)
		if err != nil {
			return nil, fmt.Errorf("check existing transaction: %w", err)
		}
		if exists {
			result.Skipped++
			continue
		}

		txn := Enrich(raw, ds.TenantID, ds.ID, r.categorizer)
		if err := r.transactionStore.Insert(ctx, txn); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("insert transaction: %w", err)
		}
		result.Inserted++
	}

	observability.RecordTransactionsStored(result.Inserted)
	return result, nil
}

// freshToken loads the data source's token and refreshes it when expired.
// Sources without a stored token get nil.
func (r *Runner) freshToken(ctx context.Context, ds *domain.DataSource) (*domain.OAuthToken, error) {
	if r.tokenStore == nil {
		return nil, nil
	}

	token, err := r.tokenStore.GetByDataSource(ctx, ds.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load oauth token: %w", err)
	}

	if !token.Expired(r.now()) || r.refresher == nil {
		return token, nil
	}

	refreshed, err := r.refresher.Refresh(ctx, ds, token)
	if err != nil {
		return nil, fmt.Errorf("refresh oauth token: %w", err)
	}
	if err := r.tokenStore.Upsert(ctx, refreshed); err != nil {
		return nil, fmt.Errorf("store refreshed token: %w", err)
	}
	return refreshed, nil
}
