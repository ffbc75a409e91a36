package clickhouse

import (
	"context"
	"fmt"
	"time"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// MetricStore implements storage.MetricStore using ClickHouse.
type MetricStore struct {
	conn *Conn
}

// NewMetricStore creates a new MetricStore.
func NewMetricStore(conn *Conn) *MetricStore {
	return &MetricStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MetricStore = (*MetricStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (tenant_id, date, metric).
func (s *MetricStore) InsertBulk(ctx context.Context, points []*domain.MetricPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		tenantID string
		day      string
		metric   string
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.TenantID, p.Day(), p.Metric}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.TenantID, p.Date, p.Metric)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO metrics_daily (
			tenant_id, date, metric, value
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.TenantID, p.Date, p.Metric, p.Value,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMetric retrieves all points for a tenant and metric, ordered by date ASC.
func (s *MetricStore) GetByMetric(ctx context.Context, tenantID, metric string) ([]*domain.MetricPoint, error) {
	query := `
		SELECT tenant_id, date, metric, value
		FROM metrics_daily
		WHERE tenant_id = ? AND metric = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, tenantID, metric)
	if err != nil {
		return nil, fmt.Errorf("query by metric: %w", err)
	}
	defer rows.Close()

	return scanMetricPoints(rows)
}

// GetByDateRange retrieves points for a tenant and metric within [start, end] (inclusive).
func (s *MetricStore) GetByDateRange(ctx context.Context, tenantID, metric string, start, end time.Time) ([]*domain.MetricPoint, error) {
	query := `
		SELECT tenant_id, date, metric, value
		FROM metrics_daily
		WHERE tenant_id = ? AND metric = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, tenantID, metric, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by date range: %w", err)
	}
	defer rows.Close()

	return scanMetricPoints(rows)
}

// GetLatest retrieves the most recent point for a tenant and metric.
// Returns ErrNotFound if no points exist.
func (s *MetricStore) GetLatest(ctx context.Context, tenantID, metric string) (*domain.MetricPoint, error) {
	query := `
		SELECT tenant_id, date, metric, value
		FROM metrics_daily
		WHERE tenant_id = ? AND metric = ?
		ORDER BY date DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, tenantID, metric)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	points, err := scanMetricPoints(rows)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}
	return points[0], nil
}

// exists checks if a point with the given key exists.
func (s *MetricStore) exists(ctx context.Context, tenantID string, date time.Time, metric string) (bool, error) {
	query := `
		SELECT count(*) FROM metrics_daily
		WHERE tenant_id = ? AND date = ? AND metric = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, tenantID, date, metric).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanMetricPoints scans multiple rows.
func scanMetricPoints(rows chRows) ([]*domain.MetricPoint, error) {
	var points []*domain.MetricPoint

	for rows.Next() {
		var p domain.MetricPoint

		err := rows.Scan(
			&p.TenantID, &p.Date, &p.Metric, &p.Value,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}

		p.Date = domain.Midnight(p.Date)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric rows: %w", err)
	}

	return points, nil
}
