package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// DataSourceStore implements storage.DataSourceStore using PostgreSQL.
type DataSourceStore struct {
	pool *Pool
}

// NewDataSourceStore creates a new DataSourceStore.
func NewDataSourceStore(pool *Pool) *DataSourceStore {
	return &DataSourceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DataSourceStore = (*DataSourceStore)(nil)

// Insert adds a new data source. Returns ErrDuplicateKey if the id exists.
func (s *DataSourceStore) Insert(ctx context.Context, ds *domain.DataSource) error {
	query := `
		INSERT INTO datasources (
			id, tenant_id, kind, display_name, status, config
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		ds.ID,
		ds.TenantID,
		ds.Kind,
		ds.DisplayName,
		ds.Status,
		ds.Config,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert datasource: %w", err)
	}
	return nil
}

// GetByID retrieves a data source by id. Returns ErrNotFound if not exists.
func (s *DataSourceStore) GetByID(ctx context.Context, dataSourceID string) (*domain.DataSource, error) {
	query := selectDataSource + ` WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, dataSourceID)
	ds, err := scanDataSource(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get datasource by id: %w", err)
	}
	return ds, nil
}

// GetByTenant retrieves all data sources for a tenant.
func (s *DataSourceStore) GetByTenant(ctx context.Context, tenantID string) ([]*domain.DataSource, error) {
	query := selectDataSource + ` WHERE tenant_id = $1 ORDER BY created_at ASC`
	return s.queryDataSources(ctx, query, tenantID)
}

// GetActiveByTenant retrieves data sources with status "active".
func (s *DataSourceStore) GetActiveByTenant(ctx context.Context, tenantID string) ([]*domain.DataSource, error) {
	query := selectDataSource + ` WHERE tenant_id = $1 AND status = $2 ORDER BY created_at ASC`
	return s.queryDataSources(ctx, query, tenantID, domain.SourceStatusActive)
}

// UpdateSyncStatus records the outcome of a sync run.
func (s *DataSourceStore) UpdateSyncStatus(ctx context.Context, dataSourceID, status, errMsg string, syncedAt time.Time) error {
	query := `
		UPDATE datasources
		SET last_sync_at = $2,
		    last_sync_status = $3,
		    last_sync_error = $4,
		    sync_count = sync_count + CASE WHEN $3 = 'success' THEN 1 ELSE 0 END,
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, dataSourceID, syncedAt, status, errMsg)
	if err != nil {
		return fmt.Errorf("update datasource sync status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const selectDataSource = `
	SELECT id, tenant_id, kind, display_name, status, config,
	       last_sync_at, last_sync_status, last_sync_error, sync_count,
	       created_at, updated_at
	FROM datasources`

func (s *DataSourceStore) queryDataSources(ctx context.Context, query string, args ...interface{}) ([]*domain.DataSource, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query datasources: %w", err)
	}
	defer rows.Close()

	var sources []*domain.DataSource
	for rows.Next() {
		ds, err := scanDataSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan datasource row: %w", err)
		}
		sources = append(sources, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasource rows: %w", err)
	}
	return sources, nil
}

// scanDataSource scans a single row into a DataSource.
func scanDataSource(row pgx.Row) (*domain.DataSource, error) {
	var ds domain.DataSource
	var lastSyncAt *time.Time
	var lastSyncStatus, lastSyncError *string

	err := row.Scan(
		&ds.ID,
		&ds.TenantID,
		&ds.Kind,
		&ds.DisplayName,
		&ds.Status,
		&ds.Config,
		&lastSyncAt,
		&lastSyncStatus,
		&lastSyncError,
		&ds.SyncCount,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastSyncAt != nil {
		ds.LastSyncAt = *lastSyncAt
	}
	if lastSyncStatus != nil {
		ds.LastSyncStatus = *lastSyncStatus
	}
	if lastSyncError != nil {
		ds.LastSyncError = *lastSyncError
	}
	return &ds, nil
}
