package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// TenantStore implements storage.TenantStore using PostgreSQL.
type TenantStore struct {
	pool *Pool
}

// NewTenantStore creates a new TenantStore.
func NewTenantStore(pool *Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TenantStore = (*TenantStore)(nil)

// Insert adds a new tenant. Returns ErrDuplicateKey if the id exists.
func (s *TenantStore) Insert(ctx context.Context, t *domain.Tenant) error {
	query := `
		INSERT INTO tenants (
			id, name, plan, status, max_datasources, max_ai_calls_per_month,
			ai_calls_this_month, last_ai_reset
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		t.ID,
		t.Name,
		t.Plan,
		t.Status,
		t.MaxDataSources,
		t.MaxAICallsPerMonth,
		t.AICallsThisMonth,
		t.LastAIReset,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by id. Returns ErrNotFound if not exists.
func (s *TenantStore) GetByID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	query := `
		SELECT id, name, plan, status, max_datasources, max_ai_calls_per_month,
		       ai_calls_this_month, last_ai_reset, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`

	row := s.pool.QueryRow(ctx, query, tenantID)
	t, err := scanTenant(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tenant by id: %w", err)
	}
	return t, nil
}

// GetActive retrieves all tenants with status "active".
func (s *TenantStore) GetActive(ctx context.Context) ([]*domain.Tenant, error) {
	query := `
		SELECT id, name, plan, status, max_datasources, max_ai_calls_per_month,
		       ai_calls_this_month, last_ai_reset, created_at, updated_at
		FROM tenants
		WHERE status = $1
		ORDER BY created_at ASC
	`

	rows, err := s.pool.Query(ctx, query, domain.TenantStatusActive)
	if err != nil {
		return nil, fmt.Errorf("get active tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant row: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenant rows: %w", err)
	}
	return tenants, nil
}

// UpdateAIUsage sets the monthly AI-call counter and reset timestamp.
func (s *TenantStore) UpdateAIUsage(ctx context.Context, tenantID string, calls int, lastReset time.Time) error {
	query := `
		UPDATE tenants
		SET ai_calls_this_month = $2, last_ai_reset = $3, updated_at = now()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, tenantID, calls, lastReset)
	if err != nil {
		return fmt.Errorf("update tenant ai usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanTenant scans a single row into a Tenant.
func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var t domain.Tenant

	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Plan,
		&t.Status,
		&t.MaxDataSources,
		&t.MaxAICallsPerMonth,
		&t.AICallsThisMonth,
		&t.LastAIReset,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
