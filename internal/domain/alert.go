package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRule represents a metric threshold rule for a tenant.
// Corresponds to alert_rules table in PostgreSQL.
type AlertRule struct {
	ID       string // UUID primary key
	TenantID string // FK to tenants

	Name        string
	Description string

	// Condition, e.g. runway < 90
	Metric    string          // metric name the rule watches
	Operator  string          // "<" | ">" | "<=" | ">=" | "=="
	Threshold decimal.Decimal // comparison value

	Channel string // "slack" | "webhook"
	Target  string // channel id or webhook URL

	Enabled bool

	LastTriggeredAt time.Time // zero if never triggered
	TriggerCount    int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Alert operator constants
const (
	OpLess         = "<"
	OpGreater      = ">"
	OpLessEqual    = "<="
	OpGreaterEqual = ">="
	OpEqual        = "=="
)

// Alert channel constants
const (
	ChannelSlack   = "slack"
	ChannelWebhook = "webhook"
)

// AlertEvent records one triggered alert.
// Corresponds to alert_events table in PostgreSQL.
type AlertEvent struct {
	ID          string // UUID primary key
	TenantID    string // FK to tenants
	AlertRuleID string // FK to alert_rules

	TriggeredAt time.Time

	// Values at trigger time
	MetricValue    decimal.Decimal
	ThresholdValue decimal.Decimal

	// Delivery result
	Sent         bool
	ErrorMessage string
}
