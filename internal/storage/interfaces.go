package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
)

// TenantStore provides access to tenants storage.
type TenantStore interface {
	// Insert adds a new tenant. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, t *domain.Tenant) error

	// GetByID retrieves a tenant by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tenantID string) (*domain.Tenant, error)

	// GetActive retrieves all tenants with status "active".
	GetActive(ctx context.Context) ([]*domain.Tenant, error)

	// UpdateAIUsage sets the monthly AI-call counter and reset timestamp.
	UpdateAIUsage(ctx context.Context, tenantID string, calls int, lastReset time.Time) error
}

// DataSourceStore provides access to datasources storage.
type DataSourceStore interface {
	// Insert adds a new data source. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, ds *domain.DataSource) error

	// GetByID retrieves a data source by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, dataSourceID string) (*domain.DataSource, error)

	// GetByTenant retrieves all data sources for a tenant.
	GetByTenant(ctx context.Context, tenantID string) ([]*domain.DataSource, error)

	// GetActiveByTenant retrieves data sources with status "active".
	GetActiveByTenant(ctx context.Context, tenantID string) ([]*domain.DataSource, error)

	// UpdateSyncStatus records the outcome of a sync run.
	UpdateSyncStatus(ctx context.Context, dataSourceID, status, errMsg string, syncedAt time.Time) error
}

// OAuthTokenStore provides access to oauth_tokens storage.
type OAuthTokenStore interface {
	// Upsert inserts or replaces the token for a data source.
	Upsert(ctx context.Context, t *domain.OAuthToken) error

	// GetByDataSource retrieves the token for a data source.
	// Returns ErrNotFound if not exists.
	GetByDataSource(ctx context.Context, dataSourceID string) (*domain.OAuthToken, error)
}

// TransactionStore provides access to transactions storage.
type TransactionStore interface {
	// Insert adds a new transaction. Returns ErrDuplicateKey if
	// (tenant_id, data_source_id, external_id) exists.
	Insert(ctx context.Context, txn *domain.Transaction) error

	// InsertBulk adds multiple transactions atomically. Fails entire batch
	// on any duplicate.
	InsertBulk(ctx context.Context, txns []*domain.Transaction) error

	// GetByTenant retrieves all transactions for a tenant, ordered by date ASC.
	GetByTenant(ctx context.Context, tenantID string) ([]*domain.Transaction, error)

	// GetByDateRange retrieves transactions for a tenant within
	// [start, end] (inclusive), ordered by date ASC.
	GetByDateRange(ctx context.Context, tenantID string, start, end time.Time) ([]*domain.Transaction, error)

	// GetByCategory retrieves transactions for a tenant and category within
	// [start, end] (inclusive), ordered by date ASC.
	GetByCategory(ctx context.Context, tenantID, category string, start, end time.Time) ([]*domain.Transaction, error)

	// SumByTenant returns the sum of all transaction amounts for a tenant.
	SumByTenant(ctx context.Context, tenantID string) (decimal.Decimal, error)

	// ExistsExternal reports whether a transaction with the given external id
	// exists for the tenant and data source.
	ExistsExternal(ctx context.Context, tenantID, dataSourceID, externalID string) (bool, error)
}

// MetricStore provides access to metrics_daily storage.
type MetricStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (tenant_id, date, metric).
	InsertBulk(ctx context.Context, points []*domain.MetricPoint) error

	// GetByMetric retrieves all points for a tenant and metric,
	// ordered by date ASC.
	GetByMetric(ctx context.Context, tenantID, metric string) ([]*domain.MetricPoint, error)

	// GetByDateRange retrieves points for a tenant and metric within
	// [start, end] (inclusive), ordered by date ASC.
	GetByDateRange(ctx context.Context, tenantID, metric string, start, end time.Time) ([]*domain.MetricPoint, error)

	// GetLatest retrieves the most recent point for a tenant and metric.
	// Returns ErrNotFound if no points exist.
	GetLatest(ctx context.Context, tenantID, metric string) (*domain.MetricPoint, error)
}

// ForecastStore provides access to forecasts storage.
type ForecastStore interface {
	// Insert adds a new forecast. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, f *domain.Forecast) error

	// GetLatestByMetric retrieves the most recent forecast for a tenant and
	// metric. Returns ErrNotFound if none exists.
	GetLatestByMetric(ctx context.Context, tenantID, metric string) (*domain.Forecast, error)

	// GetByTenant retrieves all forecasts for a tenant, newest first.
	GetByTenant(ctx context.Context, tenantID string) ([]*domain.Forecast, error)
}

// AlertRuleStore provides access to alert_rules storage.
type AlertRuleStore interface {
	// Insert adds a new rule. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, r *domain.AlertRule) error

	// GetByID retrieves a rule by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, ruleID string) (*domain.AlertRule, error)

	// GetEnabledByTenant retrieves all enabled rules for a tenant.
	GetEnabledByTenant(ctx context.Context, tenantID string) ([]*domain.AlertRule, error)

	// MarkTriggered records a trigger: bumps the count and timestamp.
	MarkTriggered(ctx context.Context, ruleID string, triggeredAt time.Time) error
}

// AlertEventStore provides access to alert_events storage.
type AlertEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, e *domain.AlertEvent) error

	// GetByRule retrieves all events for a rule, newest first.
	GetByRule(ctx context.Context, ruleID string) ([]*domain.AlertEvent, error)
}

// ReportStore provides access to reports storage.
type ReportStore interface {
	// Insert adds a new report. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, r *domain.Report) error

	// GetByID retrieves a report by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, reportID string) (*domain.Report, error)

	// GetByTenant retrieves all reports for a tenant, newest first.
	GetByTenant(ctx context.Context, tenantID string) ([]*domain.Report, error)
}
