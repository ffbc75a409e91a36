package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// ReportStore is an in-memory implementation of storage.ReportStore.
type ReportStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Report // keyed by report id
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		data: make(map[string]*domain.Report),
	}
}

// Insert adds a new report. Returns ErrDuplicateKey if the id exists.
func (s *ReportStore) Insert(_ context.Context, r *domain.Report) error {
	if r == nil || r.ID == "" || r.TenantID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now().UTC()
	}
	s.data[r.ID] = &copy
	return nil
}

// GetByID retrieves a report by id. Returns ErrNotFound if not exists.
func (s *ReportStore) GetByID(_ context.Context, reportID string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[reportID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetByTenant retrieves all reports for a tenant, newest first.
func (s *ReportStore) GetByTenant(_ context.Context, tenantID string) ([]*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Report
	for _, r := range s.data {
		if r.TenantID == tenantID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].PeriodEnd.Equal(result[j].PeriodEnd) {
			return result[i].PeriodEnd.After(result[j].PeriodEnd)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

var _ storage.ReportStore = (*ReportStore)(nil)
