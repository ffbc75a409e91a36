package domain

import "time"

// Tenant represents an isolated customer organization.
// Corresponds to tenants table in PostgreSQL. All financial data is
// partitioned by TenantID.
type Tenant struct {
	ID     string // UUID primary key
	Name   string // organization name
	Plan   string // "starter" | "pro" | "enterprise"
	Status string // "active" | "suspended" | "cancelled"

	// Plan limits
	MaxDataSources     int // max connected data sources
	MaxAICallsPerMonth int // monthly LLM call quota

	// Usage tracking
	AICallsThisMonth int       // LLM calls consumed in the current month
	LastAIReset      time.Time // when the monthly counter was last reset

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tenant plan constants
const (
	PlanStarter    = "starter"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Tenant status constants
const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
	TenantStatusCancelled = "cancelled"
)
