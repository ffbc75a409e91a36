package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// ForecastStore implements storage.ForecastStore using ClickHouse.
// Series and confidence intervals are stored as JSON strings.
type ForecastStore struct {
	conn *Conn
}

// NewForecastStore creates a new ForecastStore.
func NewForecastStore(conn *Conn) *ForecastStore {
	return &ForecastStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ForecastStore = (*ForecastStore)(nil)

// Insert adds a new forecast. Returns ErrDuplicateKey if the id exists.
func (s *ForecastStore) Insert(ctx context.Context, f *domain.Forecast) error {
	exists, err := s.exists(ctx, f.ID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	series, err := json.Marshal(f.Series)
	if err != nil {
		return fmt.Errorf("marshal forecast series: %w", err)
	}
	intervals, err := json.Marshal(f.Intervals)
	if err != nil {
		return fmt.Errorf("marshal forecast intervals: %w", err)
	}
	params, err := json.Marshal(f.ModelParams)
	if err != nil {
		return fmt.Errorf("marshal model params: %w", err)
	}

	// NULL accuracy means not computable (too few nonzero actuals)
	var accuracy *float64
	if f.AccuracyScore != nil {
		v := *f.AccuracyScore
		accuracy = &v
	}

	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO forecasts (
			id, tenant_id, metric, horizon_days, series, intervals,
			model_type, model_params, accuracy_score, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = s.conn.Exec(ctx, query,
		f.ID, f.TenantID, f.Metric, uint16(f.HorizonDays),
		string(series), string(intervals),
		f.ModelType, string(params), accuracy, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert forecast: %w", err)
	}
	return nil
}

const selectForecast = `
	SELECT id, tenant_id, metric, horizon_days, series, intervals,
	       model_type, model_params, accuracy_score, created_at
	FROM forecasts`

// GetLatestByMetric retrieves the most recent forecast for a tenant and metric.
// Returns ErrNotFound if none exists.
func (s *ForecastStore) GetLatestByMetric(ctx context.Context, tenantID, metric string) (*domain.Forecast, error) {
	query := selectForecast + `
		WHERE tenant_id = ? AND metric = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, tenantID, metric)
	if err != nil {
		return nil, fmt.Errorf("query latest forecast: %w", err)
	}
	defer rows.Close()

	forecasts, err := scanForecasts(rows)
	if err != nil {
		return nil, err
	}
	if len(forecasts) == 0 {
		return nil, storage.ErrNotFound
	}
	return forecasts[0], nil
}

// GetByTenant retrieves all forecasts for a tenant, newest first.
func (s *ForecastStore) GetByTenant(ctx context.Context, tenantID string) ([]*domain.Forecast, error) {
	query := selectForecast + `
		WHERE tenant_id = ?
		ORDER BY created_at DESC
	`

	rows, err := s.conn.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query forecasts by tenant: %w", err)
	}
	defer rows.Close()

	return scanForecasts(rows)
}

// exists checks if a forecast with the given id exists.
func (s *ForecastStore) exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT count(*) FROM forecasts WHERE id = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanForecasts scans multiple rows.
func scanForecasts(rows chRows) ([]*domain.Forecast, error) {
	var forecasts []*domain.Forecast

	for rows.Next() {
		var f domain.Forecast
		var horizonDays uint16
		var series, intervals, params string
		var accuracy *float64

		err := rows.Scan(
			&f.ID, &f.TenantID, &f.Metric, &horizonDays,
			&series, &intervals,
			&f.ModelType, &params, &accuracy, &f.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan forecast row: %w", err)
		}

		f.HorizonDays = int(horizonDays)
		if err := json.Unmarshal([]byte(series), &f.Series); err != nil {
			return nil, fmt.Errorf("unmarshal forecast series: %w", err)
		}
		if err := json.Unmarshal([]byte(intervals), &f.Intervals); err != nil {
			return nil, fmt.Errorf("unmarshal forecast intervals: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &f.ModelParams); err != nil {
			return nil, fmt.Errorf("unmarshal model params: %w", err)
		}
		f.AccuracyScore = accuracy

		forecasts = append(forecasts, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forecast rows: %w", err)
	}

	return forecasts, nil
}
