package memory

import (
	"context"
	"sort"
	"sync"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// AlertEventStore is an in-memory implementation of storage.AlertEventStore.
type AlertEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AlertEvent // keyed by event id
}

// NewAlertEventStore creates a new in-memory alert event store.
func NewAlertEventStore() *AlertEventStore {
	return &AlertEventStore{
		data: make(map[string]*domain.AlertEvent),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if the id exists.
func (s *AlertEventStore) Insert(_ context.Context, e *domain.AlertEvent) error {
	if e == nil || e.ID == "" || e.AlertRuleID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[e.ID] = &copy
	return nil
}

// GetByRule retrieves all events for a rule, newest first.
func (s *AlertEventStore) GetByRule(_ context.Context, ruleID string) ([]*domain.AlertEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AlertEvent
	for _, e := range s.data {
		if e.AlertRuleID == ruleID {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TriggeredAt.After(result[j].TriggeredAt)
	})

	return result, nil
}

var _ storage.AlertEventStore = (*AlertEventStore)(nil)
