package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// TenantStore is an in-memory implementation of storage.TenantStore.
type TenantStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Tenant // keyed by tenant id
}

// NewTenantStore creates a new in-memory tenant store.
func NewTenantStore() *TenantStore {
	return &TenantStore{
		data: make(map[string]*domain.Tenant),
	}
}

// Insert adds a new tenant. Returns ErrDuplicateKey if the id exists.
func (s *TenantStore) Insert(_ context.Context, t *domain.Tenant) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now().UTC()
	}
	s.data[t.ID] = &copy
	return nil
}

// GetByID retrieves a tenant by id. Returns ErrNotFound if not exists.
func (s *TenantStore) GetByID(_ context.Context, tenantID string) (*domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tenantID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// GetActive retrieves all tenants with status "active".
func (s *TenantStore) GetActive(_ context.Context) ([]*domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Tenant
	for _, t := range s.data {
		if t.Status == domain.TenantStatusActive {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// UpdateAIUsage sets the monthly AI-call counter and reset timestamp.
func (s *TenantStore) UpdateAIUsage(_ context.Context, tenantID string, calls int, lastReset time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[tenantID]
	if !exists {
		return storage.ErrNotFound
	}

	t.AICallsThisMonth = calls
	t.LastAIReset = lastReset
	t.UpdatedAt = time.Now().UTC()
	return nil
}

var _ storage.TenantStore = (*TenantStore)(nil)
