package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// MetricStore is an in-memory implementation of storage.MetricStore.
type MetricStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MetricPoint // keyed by composite key
}

// NewMetricStore creates a new in-memory metric store.
func NewMetricStore() *MetricStore {
	return &MetricStore{
		data: make(map[string]*domain.MetricPoint),
	}
}

// metricKey generates a unique key for a point.
func metricKey(tenantID, day, metric string) string {
	return fmt.Sprintf("%s|%s|%s", tenantID, day, metric)
}

func sortMetricPoints(points []*domain.MetricPoint) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
}

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (tenant_id, date, metric).
func (s *MetricStore) InsertBulk(_ context.Context, points []*domain.MetricPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range points {
		if p == nil || p.TenantID == "" || p.Metric == "" {
			return storage.ErrInvalidInput
		}
		key := metricKey(p.TenantID, p.Day(), p.Metric)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		key := metricKey(p.TenantID, p.Day(), p.Metric)
		copy := *p
		s.data[key] = &copy
	}

	return nil
}

// GetByMetric retrieves all points for a tenant and metric, ordered by date ASC.
func (s *MetricStore) GetByMetric(_ context.Context, tenantID, metric string) ([]*domain.MetricPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MetricPoint
	for _, p := range s.data {
		if p.TenantID == tenantID && p.Metric == metric {
			copy := *p
			result = append(result, &copy)
		}
	}

	sortMetricPoints(result)
	return result, nil
}

// GetByDateRange retrieves points for a tenant and metric within [start, end] (inclusive).
func (s *MetricStore) GetByDateRange(_ context.Context, tenantID, metric string, start, end time.Time) ([]*domain.MetricPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MetricPoint
	for _, p := range s.data {
		if p.TenantID == tenantID && p.Metric == metric &&
			!p.Date.Before(start) && !p.Date.After(end) {
			copy := *p
			result = append(result, &copy)
		}
	}

	sortMetricPoints(result)
	return result, nil
}

// GetLatest retrieves the most recent point for a tenant and metric.
// Returns ErrNotFound if no points exist.
func (s *MetricStore) GetLatest(_ context.Context, tenantID, metric string) (*domain.MetricPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.MetricPoint
	for _, p := range s.data {
		if p.TenantID != tenantID || p.Metric != metric {
			continue
		}
		if latest == nil || p.Date.After(latest.Date) {
			latest = p
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	copy := *latest
	return &copy, nil
}

var _ storage.MetricStore = (*MetricStore)(nil)
