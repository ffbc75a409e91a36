package alerts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/storage/memory"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeNotifier records deliveries and can fail on demand.
type fakeNotifier struct {
	sent []Notification
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, target string, n Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

type fixture struct {
	evaluator *Evaluator
	rules     *memory.AlertRuleStore
	events    *memory.AlertEventStore
	metrics   *memory.MetricStore
	notifier  *fakeNotifier
}

func setup(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		rules:    memory.NewAlertRuleStore(),
		events:   memory.NewAlertEventStore(),
		metrics:  memory.NewMetricStore(),
		notifier: &fakeNotifier{},
	}
	counter := 0
	f.evaluator = NewEvaluator(EvaluatorOptions{
		RuleStore:   f.rules,
		EventStore:  f.events,
		MetricStore: f.metrics,
		Notifiers:   map[string]Notifier{domain.ChannelSlack: f.notifier},
		Now:         func() time.Time { return fixedNow },
		NewID: func() string {
			counter++
			return fmt.Sprintf("ev%d", counter)
		},
	})
	return f
}

func seedRule(t *testing.T, f *fixture, id, metric, operator string, threshold int64) {
	t.Helper()

	err := f.rules.Insert(context.Background(), &domain.AlertRule{
		ID:        id,
		TenantID:  "t1",
		Name:      "Rule " + id,
		Metric:    metric,
		Operator:  operator,
		Threshold: decimal.NewFromInt(threshold),
		Channel:   domain.ChannelSlack,
		Target:    "C123",
		Enabled:   true,
	})
	if err != nil {
		t.Fatalf("Insert rule failed: %v", err)
	}
}

func seedMetric(t *testing.T, f *fixture, metric string, value int64) {
	t.Helper()

	err := f.metrics.InsertBulk(context.Background(), []*domain.MetricPoint{{
		TenantID: "t1",
		Date:     fixedNow.AddDate(0, 0, -1),
		Metric:   metric,
		Value:    decimal.NewFromInt(value),
	}})
	if err != nil {
		t.Fatalf("Insert metric failed: %v", err)
	}
}

func TestSweep_TriggersRule(t *testing.T) {
	f := setup(t)
	seedRule(t, f, "r1", domain.MetricNetCash, domain.OpLess, 1000)
	seedMetric(t, f, domain.MetricNetCash, 500)

	result, err := f.evaluator.Sweep(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if result.Evaluated != 1 || result.Triggered != 1 {
		t.Errorf("Unexpected result %+v", result)
	}

	if len(f.notifier.sent) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(f.notifier.sent))
	}
	n := f.notifier.sent[0]
	if n.Title != "Rule r1" {
		t.Errorf("Unexpected title %q", n.Title)
	}
	if len(n.Fields) != 3 || n.Fields[1].Value != "500" {
		t.Errorf("Unexpected fields %+v", n.Fields)
	}

	events, _ := f.events.GetByRule(context.Background(), "r1")
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if !events[0].Sent {
		t.Error("Expected event marked sent")
	}
	if !events[0].MetricValue.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Unexpected metric value %s", events[0].MetricValue)
	}

	rule, _ := f.rules.GetByID(context.Background(), "r1")
	if rule.TriggerCount != 1 || rule.LastTriggeredAt.IsZero() {
		t.Errorf("Expected trigger recorded on rule, got %+v", rule)
	}
}

func TestSweep_NoTriggerBelowThreshold(t *testing.T) {
	f := setup(t)
	seedRule(t, f, "r1", domain.MetricNetCash, domain.OpLess, 1000)
	seedMetric(t, f, domain.MetricNetCash, 5000)

	result, err := f.evaluator.Sweep(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Triggered != 0 || len(f.notifier.sent) != 0 {
		t.Errorf("Expected no trigger, got %+v", result)
	}
}

func TestSweep_SkipsRuleWithoutMetricData(t *testing.T) {
	f := setup(t)
	seedRule(t, f, "r1", domain.MetricRevenue, domain.OpGreater, 100)

	result, err := f.evaluator.Sweep(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Evaluated != 0 {
		t.Errorf("Expected rule skipped without data, got %+v", result)
	}
}

func TestSweep_DeliveryFailureRecordedOnEvent(t *testing.T) {
	f := setup(t)
	f.notifier.err = errors.New("channel_not_found")
	seedRule(t, f, "r1", domain.MetricExpenses, domain.OpGreater, 100)
	seedMetric(t, f, domain.MetricExpenses, 900)

	result, err := f.evaluator.Sweep(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Triggered != 1 {
		t.Fatalf("Expected trigger despite delivery failure, got %+v", result)
	}

	events, _ := f.events.GetByRule(context.Background(), "r1")
	if events[0].Sent {
		t.Error("Expected event not marked sent")
	}
	if events[0].ErrorMessage == "" {
		t.Error("Expected delivery error recorded on event")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		value     int64
		operator  string
		threshold int64
		want      bool
	}{
		{5, domain.OpLess, 10, true},
		{10, domain.OpLess, 10, false},
		{10, domain.OpLessEqual, 10, true},
		{15, domain.OpGreater, 10, true},
		{10, domain.OpGreaterEqual, 10, true},
		{10, domain.OpEqual, 10, true},
		{10, "!=", 10, false}, // unknown operator never matches
	}

	for _, tt := range tests {
		got := Compare(decimal.NewFromInt(tt.value), tt.operator, decimal.NewFromInt(tt.threshold))
		if got != tt.want {
			t.Errorf("Compare(%d %s %d) = %v, want %v", tt.value, tt.operator, tt.threshold, got, tt.want)
		}
	}
}
