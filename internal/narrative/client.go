// Package narrative turns numeric analytics into LLM-generated
// commentary, with per-tenant monthly call quotas.
package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Default client parameters.
const (
	DefaultModel      = anthropic.Model("claude-sonnet-4-5-20250929")
	DefaultMaxTokens  = 2048
	DefaultMaxRetries = 3
)

// LLM produces a completion for a system prompt and user message.
type LLM interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client is an Anthropic Messages API client. Rate-limit and overload
// responses are retried with exponential backoff by the SDK.
type Client struct {
	api       anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithModel overrides the model.
func WithModel(model anthropic.Model) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithMaxTokens overrides the response token budget.
func WithMaxTokens(n int64) ClientOption {
	return func(c *Client) {
		c.maxTokens = n
	}
}

// NewClient creates an Anthropic-backed LLM client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		api:       anthropic.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(DefaultMaxRetries)),
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ LLM = (*Client)(nil)

// Complete sends one user message under a system prompt and returns the
// concatenated text blocks of the response.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	message, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("messages API: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	return text.String(), nil
}

// extractJSON returns the substring between the first '{' and the last
// '}'. Models occasionally wrap JSON in prose or code fences.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return s[start : end+1], nil
}
