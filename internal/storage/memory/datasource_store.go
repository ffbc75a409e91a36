package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// DataSourceStore is an in-memory implementation of storage.DataSourceStore.
type DataSourceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DataSource // keyed by datasource id
}

// NewDataSourceStore creates a new in-memory datasource store.
func NewDataSourceStore() *DataSourceStore {
	return &DataSourceStore{
		data: make(map[string]*domain.DataSource),
	}
}

// copyDataSource clones a datasource including its config map.
func copyDataSource(ds *domain.DataSource) *domain.DataSource {
	copy := *ds
	if ds.Config != nil {
		copy.Config = make(map[string]string, len(ds.Config))
		for k, v := range ds.Config {
			copy.Config[k] = v
		}
	}
	return &copy
}

// Insert adds a new data source. Returns ErrDuplicateKey if the id exists.
func (s *DataSourceStore) Insert(_ context.Context, ds *domain.DataSource) error {
	if ds == nil || ds.ID == "" || ds.TenantID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[ds.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := copyDataSource(ds)
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now().UTC()
	}
	s.data[ds.ID] = copy
	return nil
}

// GetByID retrieves a data source by id. Returns ErrNotFound if not exists.
func (s *DataSourceStore) GetByID(_ context.Context, dataSourceID string) (*domain.DataSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, exists := s.data[dataSourceID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyDataSource(ds), nil
}

// GetByTenant retrieves all data sources for a tenant.
func (s *DataSourceStore) GetByTenant(_ context.Context, tenantID string) ([]*domain.DataSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DataSource
	for _, ds := range s.data {
		if ds.TenantID == tenantID {
			result = append(result, copyDataSource(ds))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// GetActiveByTenant retrieves data sources with status "active".
func (s *DataSourceStore) GetActiveByTenant(_ context.Context, tenantID string) ([]*domain.DataSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DataSource
	for _, ds := range s.data {
		if ds.TenantID == tenantID && ds.Status == domain.SourceStatusActive {
			result = append(result, copyDataSource(ds))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// UpdateSyncStatus records the outcome of a sync run.
func (s *DataSourceStore) UpdateSyncStatus(_ context.Context, dataSourceID, status, errMsg string, syncedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, exists := s.data[dataSourceID]
	if !exists {
		return storage.ErrNotFound
	}

	ds.LastSyncAt = syncedAt
	ds.LastSyncStatus = status
	ds.LastSyncError = errMsg
	if status == domain.SyncStatusSuccess {
		ds.SyncCount++
	}
	ds.UpdatedAt = time.Now().UTC()
	return nil
}

var _ storage.DataSourceStore = (*DataSourceStore)(nil)
