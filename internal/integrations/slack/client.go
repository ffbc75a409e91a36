// Package slack posts alert notifications to Slack channels.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"aurix/internal/integrations/httpretry"
)

// DefaultBaseURL is the Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

// Severity levels for alert messages.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Client is a minimal Slack Web API client.
type Client struct {
	baseURL  string
	botToken string
	rc       *httpretry.Client
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithRetryOptions configures the underlying HTTP executor.
func WithRetryOptions(opts ...httpretry.Option) Option {
	return func(c *Client) {
		c.rc = httpretry.New(opts...)
	}
}

// NewClient creates a Slack client authenticated with a bot token.
func NewClient(botToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		botToken: botToken,
		rc:       httpretry.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Block is a Block Kit layout block. Fields not used by a block type stay
// empty and are omitted from the payload.
type Block struct {
	Type     string        `json:"type"`
	Text     *BlockText    `json:"text,omitempty"`
	Elements []interface{} `json:"elements,omitempty"`
}

// BlockText is a Block Kit text object.
type BlockText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type postMessageRequest struct {
	Channel string  `json:"channel"`
	Text    string  `json:"text"`
	Blocks  []Block `json:"blocks,omitempty"`
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	TS    string `json:"ts"`
}

// PostMessage posts a message to a channel. Text is the plain fallback
// shown by clients that cannot render blocks.
func (c *Client) PostMessage(ctx context.Context, channel, text string, blocks []Block) error {
	payload, err := json.Marshal(postMessageRequest{
		Channel: channel,
		Text:    text,
		Blocks:  blocks,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	body, status, err := c.rc.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.botToken)
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		return req, nil
	})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", status, string(body))
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if !resp.OK {
		// API-level errors (bad channel, revoked token) are not retried
		return fmt.Errorf("slack API error: %s", resp.Error)
	}
	return nil
}

// Field is a labeled value shown in an alert message. Order is preserved.
type Field struct {
	Title string
	Value string
}

// SendAlert posts a formatted alert with a header, message body, optional
// fields and a severity footer.
func (c *Client) SendAlert(ctx context.Context, channel, title, message, severity string, fields []Field) error {
	blocks := []Block{
		{
			Type: "header",
			Text: &BlockText{Type: "plain_text", Text: "🚨 " + title, Emoji: true},
		},
		{
			Type: "section",
			Text: &BlockText{Type: "mrkdwn", Text: message},
		},
	}

	if len(fields) > 0 {
		lines := make([]string, 0, len(fields))
		for _, f := range fields {
			lines = append(lines, fmt.Sprintf("*%s:* %s", f.Title, f.Value))
		}
		blocks = append(blocks, Block{
			Type: "section",
			Text: &BlockText{Type: "mrkdwn", Text: strings.Join(lines, "\n")},
		})
	}

	blocks = append(blocks, Block{
		Type: "context",
		Elements: []interface{}{
			BlockText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("Severity: *%s* | Aurix Financial Intelligence", strings.ToUpper(severity)),
			},
		},
	})

	return c.PostMessage(ctx, channel, fmt.Sprintf("%s: %s", title, message), blocks)
}
