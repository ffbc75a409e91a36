package narrative

import (
	"context"
	"fmt"
	"time"

	"aurix/internal/observability"
	"aurix/internal/storage"
)

// QuotaExceededError means a tenant has used up its monthly AI calls.
type QuotaExceededError struct {
	TenantID string
	Limit    int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("tenant %s exhausted its monthly AI quota of %d calls", e.TenantID, e.Limit)
}

// Quota enforces per-tenant monthly AI call limits. The counter resets on
// the first call of a new calendar month.
type Quota struct {
	tenants storage.TenantStore
	now     func() time.Time
}

// NewQuota creates a quota gate backed by the tenant store.
func NewQuota(tenants storage.TenantStore, now func() time.Time) *Quota {
	if now == nil {
		now = time.Now
	}
	return &Quota{tenants: tenants, now: now}
}

// Consume reserves one AI call for the tenant, resetting the monthly
// counter first when the calendar month has rolled over. Returns
// *QuotaExceededError when the limit is reached.
func (q *Quota) Consume(ctx context.Context, tenantID string) error {
	tenant, err := q.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}

	now := q.now().UTC()
	calls := tenant.AICallsThisMonth
	lastReset := tenant.LastAIReset

	if monthRolledOver(lastReset, now) {
		calls = 0
		lastReset = now
	}

	if tenant.MaxAICallsPerMonth > 0 && calls >= tenant.MaxAICallsPerMonth {
		observability.RecordAIQuotaDenial()
		return &QuotaExceededError{TenantID: tenantID, Limit: tenant.MaxAICallsPerMonth}
	}

	if err := q.tenants.UpdateAIUsage(ctx, tenantID, calls+1, lastReset); err != nil {
		return fmt.Errorf("record AI usage: %w", err)
	}
	return nil
}

func monthRolledOver(lastReset, now time.Time) bool {
	if lastReset.IsZero() {
		return true
	}
	last := lastReset.UTC()
	return last.Year() != now.Year() || last.Month() != now.Month()
}
