package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// ReportStore implements storage.ReportStore using PostgreSQL.
type ReportStore struct {
	pool *Pool
}

// NewReportStore creates a new ReportStore.
func NewReportStore(pool *Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReportStore = (*ReportStore)(nil)

// Insert adds a new report. Returns ErrDuplicateKey if the id exists.
func (s *ReportStore) Insert(ctx context.Context, r *domain.Report) error {
	query := `
		INSERT INTO reports (
			id, tenant_id, title, report_type, period_start, period_end,
			markdown, ai_summary
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ID,
		r.TenantID,
		r.Title,
		r.ReportType,
		r.PeriodStart,
		r.PeriodEnd,
		r.Markdown,
		r.AISummary,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

const selectReport = `
	SELECT id, tenant_id, title, report_type, period_start, period_end,
	       markdown, ai_summary, created_at
	FROM reports`

// GetByID retrieves a report by id. Returns ErrNotFound if not exists.
func (s *ReportStore) GetByID(ctx context.Context, reportID string) (*domain.Report, error) {
	query := selectReport + ` WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, reportID)
	r, err := scanReport(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get report by id: %w", err)
	}
	return r, nil
}

// GetByTenant retrieves all reports for a tenant, newest first.
func (s *ReportStore) GetByTenant(ctx context.Context, tenantID string) ([]*domain.Report, error) {
	query := selectReport + ` WHERE tenant_id = $1 ORDER BY period_end DESC, created_at DESC`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get reports by tenant: %w", err)
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}
	return reports, nil
}

// scanReport scans a single row into a Report.
func scanReport(row pgx.Row) (*domain.Report, error) {
	var r domain.Report

	err := row.Scan(
		&r.ID,
		&r.TenantID,
		&r.Title,
		&r.ReportType,
		&r.PeriodStart,
		&r.PeriodEnd,
		&r.Markdown,
		&r.AISummary,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.PeriodStart = domain.Midnight(r.PeriodStart)
	r.PeriodEnd = domain.Midnight(r.PeriodEnd)
	return &r, nil
}
