package postgres

import (
	"context"
	"fmt"

	"aurix/internal/domain"
	"aurix/internal/storage"
)

// AlertEventStore implements storage.AlertEventStore using PostgreSQL.
type AlertEventStore struct {
	pool *Pool
}

// NewAlertEventStore creates a new AlertEventStore.
func NewAlertEventStore(pool *Pool) *AlertEventStore {
	return &AlertEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AlertEventStore = (*AlertEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if the id exists.
func (s *AlertEventStore) Insert(ctx context.Context, e *domain.AlertEvent) error {
	query := `
		INSERT INTO alert_events (
			id, tenant_id, alert_rule_id, triggered_at, metric_value,
			threshold_value, sent, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		e.ID,
		e.TenantID,
		e.AlertRuleID,
		e.TriggeredAt,
		e.MetricValue,
		e.ThresholdValue,
		e.Sent,
		e.ErrorMessage,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert alert event: %w", err)
	}
	return nil
}

// GetByRule retrieves all events for a rule, newest first.
func (s *AlertEventStore) GetByRule(ctx context.Context, ruleID string) ([]*domain.AlertEvent, error) {
	query := `
		SELECT id, tenant_id, alert_rule_id, triggered_at, metric_value,
		       threshold_value, sent, error_message
		FROM alert_events
		WHERE alert_rule_id = $1
		ORDER BY triggered_at DESC
	`

	rows, err := s.pool.Query(ctx, query, ruleID)
	if err != nil {
		return nil, fmt.Errorf("get alert events by rule: %w", err)
	}
	defer rows.Close()

	var events []*domain.AlertEvent
	for rows.Next() {
		var e domain.AlertEvent

		err := rows.Scan(
			&e.ID,
			&e.TenantID,
			&e.AlertRuleID,
			&e.TriggeredAt,
			&e.MetricValue,
			&e.ThresholdValue,
			&e.Sent,
			&e.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert event row: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert event rows: %w", err)
	}
	return events, nil
}
