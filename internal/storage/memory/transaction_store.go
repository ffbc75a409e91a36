package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Transaction // keyed by transaction id
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data: make(map[string]*domain.Transaction),
	}
}

func sortTransactions(txns []*domain.Transaction) {
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})
}

// Insert adds a new transaction. Returns ErrDuplicateKey if exists.
func (s *TransactionStore) Insert(_ context.Context, txn *domain.Transaction) error {
	if txn == nil || txn.ID == "" || txn.TenantID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[txn.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *txn
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now().UTC()
	}
	s.data[txn.ID] = &copy
	return nil
}

// InsertBulk adds multiple transactions atomically. Fails entire batch on
// any duplicate.
func (s *TransactionStore) InsertBulk(_ context.Context, txns []*domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track ids in this batch to detect intra-batch duplicates
	batchIDs := make(map[string]struct{}, len(txns))

	// First pass: check for duplicates (existing + intra-batch)
	for _, txn := range txns {
		if txn == nil || txn.ID == "" || txn.TenantID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[txn.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchIDs[txn.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchIDs[txn.ID] = struct{}{}
	}

	// Second pass: insert all
	for _, txn := range txns {
		copy := *txn
		if copy.CreatedAt.IsZero() {
			copy.CreatedAt = time.Now().UTC()
		}
		s.data[txn.ID] = &copy
	}

	return nil
}

// GetByTenant retrieves all transactions for a tenant, ordered by date ASC.
func (s *TransactionStore) GetByTenant(_ context.Context, tenantID string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, txn := range s.data {
		if txn.TenantID == tenantID {
			copy := *txn
			result = append(result, &copy)
		}
	}

	sortTransactions(result)
	return result, nil
}

// GetByDateRange retrieves transactions for a tenant within [start, end] (inclusive).
func (s *TransactionStore) GetByDateRange(_ context.Context, tenantID string, start, end time.Time) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, txn := range s.data {
		if txn.TenantID == tenantID && !txn.Date.Before(start) && !txn.Date.After(end) {
			copy := *txn
			result = append(result, &copy)
		}
	}

	sortTransactions(result)
	return result, nil
}

// GetByCategory retrieves transactions for a tenant and category within
// [start, end] (inclusive).
func (s *TransactionStore) GetByCategory(_ context.Context, tenantID, category string, start, end time.Time) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, txn := range s.data {
		if txn.TenantID == tenantID && txn.Category == category &&
			!txn.Date.Before(start) && !txn.Date.After(end) {
			copy := *txn
			result = append(result, &copy)
		}
	}

	sortTransactions(result)
	return result, nil
}

// SumByTenant returns the sum of all transaction amounts for a tenant.
func (s *TransactionStore) SumByTenant(_ context.Context, tenantID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := decimal.Zero
	for _, txn := range s.data {
		if txn.TenantID == tenantID {
			sum = sum.Add(txn.Amount)
		}
	}
	return sum, nil
}

// ExistsExternal reports whether a transaction with the given external id
// exists for the tenant and data source.
func (s *TransactionStore) ExistsExternal(_ context.Context, tenantID, dataSourceID, externalID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, txn := range s.data {
		if txn.TenantID == tenantID && txn.DataSourceID == dataSourceID && txn.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

var _ storage.TransactionStore = (*TransactionStore)(nil)
