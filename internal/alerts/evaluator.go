package alerts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/observability"
	"aurix/internal/storage"
)

// Explainer generates a short plain-text explanation for a triggered
// rule. Optional; failures fall back to the default message.
type Explainer interface {
	AlertExplanation(ctx context.Context, tenantID string, rule *domain.AlertRule, currentValue decimal.Decimal) (string, error)
}

// Evaluator sweeps enabled alert rules against the latest metric values.
type Evaluator struct {
	rules     storage.AlertRuleStore
	events    storage.AlertEventStore
	metrics   storage.MetricStore
	notifiers map[string]Notifier // by rule channel
	explainer Explainer
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
}

// EvaluatorOptions contains configuration for creating an Evaluator.
type EvaluatorOptions struct {
	RuleStore   storage.AlertRuleStore
	EventStore  storage.AlertEventStore
	MetricStore storage.MetricStore
	Notifiers   map[string]Notifier // keyed by domain.ChannelSlack / ChannelWebhook
	Explainer   Explainer           // optional
	Logger      *log.Logger
	Now         func() time.Time
	NewID       func() string
}

// NewEvaluator creates an alert evaluator.
func NewEvaluator(opts EvaluatorOptions) *Evaluator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	notifiers := opts.Notifiers
	if notifiers == nil {
		notifiers = map[string]Notifier{}
	}

	return &Evaluator{
		rules:     opts.RuleStore,
		events:    opts.EventStore,
		metrics:   opts.MetricStore,
		notifiers: notifiers,
		explainer: opts.Explainer,
		logger:    logger,
		now:       now,
		newID:     newID,
	}
}

// SweepResult summarizes one alert sweep over a tenant's rules.
type SweepResult struct {
	Evaluated int
	Triggered int
	Events    []*domain.AlertEvent
}

// Sweep evaluates every enabled rule of the tenant. Rules whose metric
// has no stored values yet are skipped. Delivery failures are recorded on
// the event and do not abort the sweep.
func (e *Evaluator) Sweep(ctx context.Context, tenantID string) (*SweepResult, error) {
	rules, err := e.rules.GetEnabledByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list enabled rules: %w", err)
	}

	result := &SweepResult{}
	for _, rule := range rules {
		latest, err := e.metrics.GetLatest(ctx, tenantID, rule.Metric)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("latest %s value: %w", rule.Metric, err)
		}
		result.Evaluated++

		if !Compare(latest.Value, rule.Operator, rule.Threshold) {
			continue
		}

		event, err := e.trigger(ctx, rule, latest.Value)
		if err != nil {
			return nil, err
		}
		result.Triggered++
		result.Events = append(result.Events, event)
	}

	return result, nil
}

// trigger records the event, marks the rule, and attempts delivery.
func (e *Evaluator) trigger(ctx context.Context, rule *domain.AlertRule, value decimal.Decimal) (*domain.AlertEvent, error) {
	now := e.now().UTC()
	event := &domain.AlertEvent{
		ID:             e.newID(),
		TenantID:       rule.TenantID,
		AlertRuleID:    rule.ID,
		TriggeredAt:    now,
		MetricValue:    value,
		ThresholdValue: rule.Threshold,
	}

	message := fmt.Sprintf("Alert `%s` has been triggered.", rule.Name)
	if e.explainer != nil {
		explanation, err := e.explainer.AlertExplanation(ctx, rule.TenantID, rule, value)
		if err != nil {
			e.logger.Printf("[alerts] explanation for rule %s: %v", rule.ID, err)
		} else {
			message = explanation
		}
	}

	if err := e.deliver(ctx, rule, value, message); err != nil {
		e.logger.Printf("[alerts] delivery for rule %s: %v", rule.ID, err)
		event.ErrorMessage = err.Error()
	} else {
		event.Sent = true
	}

	if err := e.events.Insert(ctx, event); err != nil {
		return nil, fmt.Errorf("record alert event: %w", err)
	}
	if err := e.rules.MarkTriggered(ctx, rule.ID, now); err != nil {
		return nil, fmt.Errorf("mark rule triggered: %w", err)
	}

	observability.RecordAlertTriggered()
	e.logger.Printf("[alerts] rule %s (%s %s %s) triggered at %s",
		rule.Name, rule.Metric, rule.Operator, rule.Threshold, value)

	return event, nil
}

func (e *Evaluator) deliver(ctx context.Context, rule *domain.AlertRule, value decimal.Decimal, message string) error {
	notifier, ok := e.notifiers[rule.Channel]
	if !ok {
		return fmt.Errorf("no notifier for channel %q", rule.Channel)
	}

	return notifier.Send(ctx, rule.Target, Notification{
		Title:    rule.Name,
		Message:  message,
		Severity: slackSeverityWarning,
		Fields: []Field{
			{Title: "Metric", Value: rule.Metric},
			{Title: "Current Value", Value: value.String()},
			{Title: "Threshold", Value: rule.Threshold.String()},
		},
	})
}

const slackSeverityWarning = "warning"

// Compare applies a rule operator to a value and threshold. Unknown
// operators never match.
func Compare(value decimal.Decimal, operator string, threshold decimal.Decimal) bool {
	switch operator {
	case domain.OpLess:
		return value.LessThan(threshold)
	case domain.OpGreater:
		return value.GreaterThan(threshold)
	case domain.OpLessEqual:
		return value.LessThanOrEqual(threshold)
	case domain.OpGreaterEqual:
		return value.GreaterThanOrEqual(threshold)
	case domain.OpEqual:
		return value.Equal(threshold)
	default:
		return false
	}
}
