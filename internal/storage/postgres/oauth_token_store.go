package postgres

import (
	"context"
	"fmt"
	"time"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// OAuthTokenStore implements storage.OAuthTokenStore using PostgreSQL.
type OAuthTokenStore struct {
	pool *Pool
}

// NewOAuthTokenStore creates a new OAuthTokenStore.
func NewOAuthTokenStore(pool *Pool) *OAuthTokenStore {
	return &OAuthTokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OAuthTokenStore = (*OAuthTokenStore)(nil)

// Upsert inserts or replaces the token for a data source.
func (s *OAuthTokenStore) Upsert(ctx context.Context, t *domain.OAuthToken) error {
	query := `
		INSERT INTO oauth_tokens (
			id, tenant_id, data_source_id, access_token, refresh_token,
			expires_at, token_type, scope
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (data_source_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			updated_at = now()
	`

	var expiresAt *time.Time
	if !t.ExpiresAt.IsZero() {
		expiresAt = &t.ExpiresAt
	}

	_, err := s.pool.Exec(ctx, query,
		t.ID,
		t.TenantID,
		t.DataSourceID,
		t.AccessToken,
		t.RefreshToken,
		expiresAt,
		t.TokenType,
		t.Scope,
	)
	if err != nil {
		return fmt.Errorf("upsert oauth token: %w", err)
	}
	return nil
}

// GetByDataSource retrieves the token for a data source.
// Returns ErrNotFound if not exists.
func (s *OAuthTokenStore) GetByDataSource(ctx context.Context, dataSourceID string) (*domain.OAuthToken, error) {
	query := `
		SELECT id, tenant_id, data_source_id, access_token, refresh_token,
		       expires_at, token_type, scope, created_at, updated_at
		FROM oauth_tokens
		WHERE data_source_id = $1
	`

	var t domain.OAuthToken
	var expiresAt *time.Time

	err := s.pool.QueryRow(ctx, query, dataSourceID).Scan(
		&t.ID,
		&t.TenantID,
		&t.DataSourceID,
		&t.AccessToken,
		&t.RefreshToken,
		&expiresAt,
		&t.TokenType,
		&t.Scope,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get oauth token by datasource: %w", err)
	}

	if expiresAt != nil {
		t.ExpiresAt = *expiresAt
	}
	return &t, nil
}
