// Package sheets reads financial transactions from Google Sheets.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"aurix/internal/integrations/httpretry"
)

// DefaultBaseURL is the Google Sheets API root.
const DefaultBaseURL = "https://sheets.googleapis.com/v4"

// Client is a minimal Sheets API client authenticated with an OAuth
// access token.
type Client struct {
	baseURL     string
	accessToken string
	rc          *httpretry.Client
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

// NewClient creates a Sheets client using the given access token.
func NewClient(accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		accessToken: accessToken,
		rc:          httpretry.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type valuesResponse struct {
	Range  string          `json:"range"`
	Values [][]interface{} `json:"values"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Values reads a range in A1 notation, returning unformatted cell values.
// Numeric cells come back as float64, text cells as string.
func (c *Client) Values(ctx context.Context, spreadsheetID, rangeName string) ([][]interface{}, error) {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s?valueRenderOption=UNFORMATTED_VALUE",
		c.baseURL, url.PathEscape(spreadsheetID), url.PathEscape(rangeName))

	body, status, err := c.rc.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("sheets API error (%s): %s", apiErr.Error.Status, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("unexpected status %d: %s", status, string(body))
	}

	var result valuesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return result.Values, nil
}
