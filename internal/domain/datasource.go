package domain

import "time"

// DataSource represents an external data source connection for a tenant
// (spreadsheet, QuickBooks, Stripe). Corresponds to datasources table.
type DataSource struct {
	ID       string // UUID primary key
	TenantID string // FK to tenants

	Kind        string            // "sheets" | "quickbooks" | "stripe"
	DisplayName string            // human-readable label
	Status      string            // "active" | "error" | "disconnected"
	Config      map[string]string // connection metadata (spreadsheet id, realm id, ...)

	// Sync tracking
	LastSyncAt     time.Time // zero if never synced
	LastSyncStatus string    // "success" | "error"
	LastSyncError  string    // last error message, empty on success
	SyncCount      int       // successful syncs

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Data source kind constants
const (
	SourceKindSheets     = "sheets"
	SourceKindQuickBooks = "quickbooks"
	SourceKindStripe     = "stripe"
)

// Data source status constants
const (
	SourceStatusActive       = "active"
	SourceStatusError        = "error"
	SourceStatusDisconnected = "disconnected"
)

// Sync outcome constants
const (
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// OAuthToken holds credentials for a data source connection.
// One token per data source.
type OAuthToken struct {
	ID           string // UUID primary key
	TenantID     string // FK to tenants
	DataSourceID string // FK to datasources, unique

	AccessToken  string
	RefreshToken string    // empty if the provider issues no refresh token
	ExpiresAt    time.Time // zero if the token does not expire
	TokenType    string    // usually "Bearer"
	Scope        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the access token has expired at the given instant.
// Tokens without an expiry never expire.
func (t *OAuthToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}
