package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const insertTransaction = `
	INSERT INTO transactions (
		id, tenant_id, data_source_id, date, amount, category, subcategory,
		description, memo, external_id
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Insert adds a new transaction. Returns ErrDuplicateKey if
// (tenant_id, data_source_id, external_id) exists.
func (s *TransactionStore) Insert(ctx context.Context, txn *domain.Transaction) error {
	_, err := s.pool.Exec(ctx, insertTransaction,
		txn.ID,
		txn.TenantID,
		txn.DataSourceID,
		txn.Date,
		txn.Amount,
		txn.Category,
		txn.Subcategory,
		txn.Description,
		txn.Memo,
		txn.ExternalID,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// InsertBulk adds multiple transactions atomically. Fails entire batch on
// any duplicate.
func (s *TransactionStore) InsertBulk(ctx context.Context, txns []*domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, txn := range txns {
		_, err := tx.Exec(ctx, insertTransaction,
			txn.ID,
			txn.TenantID,
			txn.DataSourceID,
			txn.Date,
			txn.Amount,
			txn.Category,
			txn.Subcategory,
			txn.Description,
			txn.Memo,
			txn.ExternalID,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert transaction in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const selectTransaction = `
	SELECT id, tenant_id, data_source_id, date, amount, category, subcategory,
	       description, memo, external_id, created_at
	FROM transactions`

// GetByTenant retrieves all transactions for a tenant, ordered by date ASC.
func (s *TransactionStore) GetByTenant(ctx context.Context, tenantID string) ([]*domain.Transaction, error) {
	query := selectTransaction + `
		WHERE tenant_id = $1
		ORDER BY date ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get transactions by tenant: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetByDateRange retrieves transactions for a tenant within [start, end]
// (inclusive), ordered by date ASC.
func (s *TransactionStore) GetByDateRange(ctx context.Context, tenantID string, start, end time.Time) ([]*domain.Transaction, error) {
	query := selectTransaction + `
		WHERE tenant_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, tenantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get transactions by date range: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetByCategory retrieves transactions for a tenant and category within
// [start, end] (inclusive), ordered by date ASC.
func (s *TransactionStore) GetByCategory(ctx context.Context, tenantID, category string, start, end time.Time) ([]*domain.Transaction, error) {
	query := selectTransaction + `
		WHERE tenant_id = $1 AND category = $2 AND date >= $3 AND date <= $4
		ORDER BY date ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, tenantID, category, start, end)
	if err != nil {
		return nil, fmt.Errorf("get transactions by category: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// SumByTenant returns the sum of all transaction amounts for a tenant.
func (s *TransactionStore) SumByTenant(ctx context.Context, tenantID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE tenant_id = $1
	`

	var sum decimal.Decimal
	if err := s.pool.QueryRow(ctx, query, tenantID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions by tenant: %w", err)
	}
	return sum, nil
}

// ExistsExternal reports whether a transaction with the given external id
// exists for the tenant and data source.
func (s *TransactionStore) ExistsExternal(ctx context.Context, tenantID, dataSourceID, externalID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE tenant_id = $1 AND data_source_id = $2 AND external_id = $3
		)
	`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, tenantID, dataSourceID, externalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check transaction exists: %w", err)
	}
	return exists, nil
}

// scanTransactions scans multiple rows into a slice of Transaction.
func scanTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction

	for rows.Next() {
		var txn domain.Transaction

		err := rows.Scan(
			&txn.ID,
			&txn.TenantID,
			&txn.DataSourceID,
			&txn.Date,
			&txn.Amount,
			&txn.Category,
			&txn.Subcategory,
			&txn.Description,
			&txn.Memo,
			&txn.ExternalID,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}

		txn.Date = domain.Midnight(txn.Date)
		txns = append(txns, &txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}

	return txns, nil
}
