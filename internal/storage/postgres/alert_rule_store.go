package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// AlertRuleStore implements storage.AlertRuleStore using PostgreSQL.
type AlertRuleStore struct {
	pool *Pool
}

// NewAlertRuleStore creates a new AlertRuleStore.
func NewAlertRuleStore(pool *Pool) *AlertRuleStore {
	return &AlertRuleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AlertRuleStore = (*AlertRuleStore)(nil)

// Insert adds a new rule. Returns ErrDuplicateKey if the id exists.
func (s *AlertRuleStore) Insert(ctx context.Context, r *domain.AlertRule) error {
	query := `
		INSERT INTO alert_rules (
			id, tenant_id, name, description, metric, operator, threshold,
			channel, target, enabled
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ID,
		r.TenantID,
		r.Name,
		r.Description,
		r.Metric,
		r.Operator,
		r.Threshold,
		r.Channel,
		r.Target,
		r.Enabled,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert alert rule: %w", err)
	}
	return nil
}

const selectAlertRule = `
	SELECT id, tenant_id, name, description, metric, operator, threshold,
	       channel, target, enabled, last_triggered_at, trigger_count,
	       created_at, updated_at
	FROM alert_rules`

// GetByID retrieves a rule by id. Returns ErrNotFound if not exists.
func (s *AlertRuleStore) GetByID(ctx context.Context, ruleID string) (*domain.AlertRule, error) {
	query := selectAlertRule + ` WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, ruleID)
	r, err := scanAlertRule(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get alert rule by id: %w", err)
	}
	return r, nil
}

// GetEnabledByTenant retrieves all enabled rules for a tenant.
func (s *AlertRuleStore) GetEnabledByTenant(ctx context.Context, tenantID string) ([]*domain.AlertRule, error) {
	query := selectAlertRule + ` WHERE tenant_id = $1 AND enabled ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get enabled alert rules: %w", err)
	}
	defer rows.Close()

	var rules []*domain.AlertRule
	for rows.Next() {
		r, err := scanAlertRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert rule row: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rule rows: %w", err)
	}
	return rules, nil
}

// MarkTriggered records a trigger: bumps the count and timestamp.
func (s *AlertRuleStore) MarkTriggered(ctx context.Context, ruleID string, triggeredAt time.Time) error {
	query := `
		UPDATE alert_rules
		SET last_triggered_at = $2,
		    trigger_count = trigger_count + 1,
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, ruleID, triggeredAt)
	if err != nil {
		return fmt.Errorf("mark alert rule triggered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanAlertRule scans a single row into an AlertRule.
func scanAlertRule(row pgx.Row) (*domain.AlertRule, error) {
	var r domain.AlertRule
	var lastTriggeredAt *time.Time

	err := row.Scan(
		&r.ID,
		&r.TenantID,
		&r.Name,
		&r.Description,
		&r.Metric,
		&r.Operator,
		&r.Threshold,
		&r.Channel,
		&r.Target,
		&r.Enabled,
		&lastTriggeredAt,
		&r.TriggerCount,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastTriggeredAt != nil {
		r.LastTriggeredAt = *lastTriggeredAt
	}
	return &r, nil
}
