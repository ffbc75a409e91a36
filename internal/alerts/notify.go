// Package alerts evaluates metric threshold rules and delivers
// notifications when they trigger.
package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"aurix/internal/integrations/httpretry"
	"aurix/internal/integrations/slack"
)

// Field is a labeled value attached to a notification.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Notification is a channel-independent alert message.
type Notification struct {
	Title    string  `json:"title"`
	Message  string  `json:"message"`
	Severity string  `json:"severity"`
	Fields   []Field `json:"fields,omitempty"`
}

// Notifier delivers a notification to a channel target (Slack channel id,
// webhook URL).
type Notifier interface {
	Send(ctx context.Context, target string, n Notification) error
}

// SlackNotifier delivers notifications as Slack Block Kit messages.
type SlackNotifier struct {
	client *slack.Client
}

// NewSlackNotifier wraps a Slack client.
func NewSlackNotifier(client *slack.Client) *SlackNotifier {
	return &SlackNotifier{client: client}
}

var _ Notifier = (*SlackNotifier)(nil)

// Send posts the notification to the target channel.
func (s *SlackNotifier) Send(ctx context.Context, target string, n Notification) error {
	fields := make([]slack.Field, len(n.Fields))
	for i, f := range n.Fields {
		fields[i] = slack.Field{Title: f.Title, Value: f.Value}
	}
	return s.client.SendAlert(ctx, target, n.Title, n.Message, n.Severity, fields)
}

// WebhookNotifier delivers notifications as JSON POSTs to the target URL.
type WebhookNotifier struct {
	rc *httpretry.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(opts ...httpretry.Option) *WebhookNotifier {
	return &WebhookNotifier{rc: httpretry.New(opts...)}
}

var _ Notifier = (*WebhookNotifier)(nil)

// Send posts the notification to the webhook URL. Any non-2xx status is
// a delivery failure.
func (w *WebhookNotifier) Send(ctx context.Context, target string, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	body, status, err := w.rc.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d: %s", status, string(body))
	}
	return nil
}
