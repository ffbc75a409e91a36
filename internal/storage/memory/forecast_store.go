package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// ForecastStore is an in-memory implementation of storage.ForecastStore.
type ForecastStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Forecast // keyed by forecast id
}

// NewForecastStore creates a new in-memory forecast store.
func NewForecastStore() *ForecastStore {
	return &ForecastStore{
		data: make(map[string]*domain.Forecast),
	}
}

// copyForecast clones a forecast including its series maps.
func copyForecast(f *domain.Forecast) *domain.Forecast {
	copy := *f
	if f.Series != nil {
		copy.Series = make(map[string]float64, len(f.Series))
		for k, v := range f.Series {
			copy.Series[k] = v
		}
	}
	if f.Intervals != nil {
		copy.Intervals = make(map[string]domain.ConfidenceInterval, len(f.Intervals))
		for k, v := range f.Intervals {
			copy.Intervals[k] = v
		}
	}
	if f.ModelParams != nil {
		copy.ModelParams = make(map[string]string, len(f.ModelParams))
		for k, v := range f.ModelParams {
			copy.ModelParams[k] = v
		}
	}
	if f.AccuracyScore != nil {
		score := *f.AccuracyScore
		copy.AccuracyScore = &score
	}
	return &copy
}

// Insert adds a new forecast. Returns ErrDuplicateKey if the id exists.
func (s *ForecastStore) Insert(_ context.Context, f *domain.Forecast) error {
	if f == nil || f.ID == "" || f.TenantID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[f.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := copyForecast(f)
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now().UTC()
	}
	s.data[f.ID] = copy
	return nil
}

// GetLatestByMetric retrieves the most recent forecast for a tenant and metric.
// Returns ErrNotFound if none exists.
func (s *ForecastStore) GetLatestByMetric(_ context.Context, tenantID, metric string) (*domain.Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Forecast
	for _, f := range s.data {
		if f.TenantID != tenantID || f.Metric != metric {
			continue
		}
		if latest == nil || f.CreatedAt.After(latest.CreatedAt) {
			latest = f
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return copyForecast(latest), nil
}

// GetByTenant retrieves all forecasts for a tenant, newest first.
func (s *ForecastStore) GetByTenant(_ context.Context, tenantID string) ([]*domain.Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Forecast
	for _, f := range s.data {
		if f.TenantID == tenantID {
			result = append(result, copyForecast(f))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

var _ storage.ForecastStore = (*ForecastStore)(nil)
