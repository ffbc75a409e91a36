package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// AlertRuleStore is an in-memory implementation of storage.AlertRuleStore.
type AlertRuleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AlertRule // keyed by rule id
}

// NewAlertRuleStore creates a new in-memory alert rule store.
func NewAlertRuleStore() *AlertRuleStore {
	return &AlertRuleStore{
		data: make(map[string]*domain.AlertRule),
	}
}

// Insert adds a new rule. Returns ErrDuplicateKey if the id exists.
func (s *AlertRuleStore) Insert(_ context.Context, r *domain.AlertRule) error {
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

// GetByID retrieves a rule by id. Returns ErrNotFound if not exists.
func (s *AlertRuleStore) GetByID(_ context.Context, ruleID string) (*domain.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[ruleID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetEnabledByTenant retrieves all enabled rules for a tenant.
func (s *AlertRuleStore) GetEnabledByTenant(_ context.Context, tenantID string) ([]*domain.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AlertRule
	for _, r := range s.data {
		if r.TenantID == tenantID && r.Enabled {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// MarkTriggered records a trigger: bumps the count and timestamp.
func (s *AlertRuleStore) MarkTriggered(_ context.Context, ruleID string, triggeredAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[ruleID]
	if !exists {
		return storage.ErrNotFound
	}

	r.LastTriggeredAt = triggeredAt
	r.TriggerCount++
	r.UpdatedAt = time.Now().UTC()
	return nil
}

var _ storage.AlertRuleStore = (*AlertRuleStore)(nil)
