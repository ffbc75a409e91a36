package memory

import (
	"context"
	"sync"
	"time"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// OAuthTokenStore is an in-memory implementation of storage.OAuthTokenStore.
type OAuthTokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OAuthToken // keyed by datasource id
}

// NewOAuthTokenStore creates a new in-memory token store.
func NewOAuthTokenStore() *OAuthTokenStore {
	return &OAuthTokenStore{
		data: make(map[string]*domain.OAuthToken),
	}
}

// Upsert inserts or replaces the token for a data source.
func (s *OAuthTokenStore) Upsert(_ context.Context, t *domain.OAuthToken) error {
	if t == nil || t.DataSourceID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *t
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now().UTC()
	}
	copy.UpdatedAt = time.Now().UTC()
	s.data[t.DataSourceID] = &copy
	return nil
}

// GetByDataSource retrieves the token for a data source.
// Returns ErrNotFound if not exists.
func (s *OAuthTokenStore) GetByDataSource(_ context.Context, dataSourceID string) (*domain.OAuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[dataSourceID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

var _ storage.OAuthTokenStore = (*OAuthTokenStore)(nil)
