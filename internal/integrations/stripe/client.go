// Package stripe fetches balance transactions from the Stripe API.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"aurix/internal/integrations/httpretry"
)

// DefaultBaseURL is the Stripe REST API root.
const DefaultBaseURL = "https://api.stripe.com/v1"

// pageLimit is the maximum page size Stripe allows for list endpoints.
const pageLimit = 100

// Client is a minimal Stripe API client scoped to transaction extraction.
type Client struct {
	baseURL string
	apiKey  string
	account string // optional Connect account id
	rc      *httpretry.Client
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithAccount sets the Stripe Connect account to act on behalf of.
func WithAccount(accountID string) Option {
	return func(c *Client) {
		c.account = accountID
	}
}

// WithRetryOptions configures the underlying HTTP executor.
func WithRetryOptions(opts ...httpretry.Option) Option {
	return func(c *Client) {
		c.rc = httpretry.New(opts...)
	}
}

// NewClient creates a Stripe client authenticated with the given secret key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		rc:      httpretry.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is the error envelope Stripe returns on non-2xx responses.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	body, status, err := c.rc.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if c.account != "" {
			req.Header.Set("Stripe-Account", c.account)
		}
		return req, nil
	})
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("stripe API error (%s): %s", apiErr.Error.Type, apiErr.Error.Message)
		}
		return fmt.Errorf("unexpected status %d: %s", status, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// BalanceTransaction is a single entry in the Stripe balance ledger.
// Amounts are in the smallest currency unit (cents).
type BalanceTransaction struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Fee         int64  `json:"fee"`
	Created     int64  `json:"created"` // unix seconds
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type balanceTransactionList struct {
	Data    []BalanceTransaction `json:"data"`
	HasMore bool                 `json:"has_more"`
}

// BalanceTransactions fetches all balance transactions created within
// [start, end], following starting_after cursors until exhausted.
func (c *Client) BalanceTransactions(ctx context.Context, start, end time.Time) ([]BalanceTransaction, error) {
	createdGTE := start.Unix()
	createdLTE := end.Add(24*time.Hour - time.Second).Unix() // end of day

	var all []BalanceTransaction
	startingAfter := ""

	for {
		query := url.Values{}
		query.Set("created[gte]", strconv.FormatInt(createdGTE, 10))
		query.Set("created[lte]", strconv.FormatInt(createdLTE, 10))
		query.Set("limit", strconv.Itoa(pageLimit))
		if startingAfter != "" {
			query.Set("starting_after", startingAfter)
		}

		var page balanceTransactionList
		if err := c.get(ctx, "/balance_transactions", query, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Data...)

		if !page.HasMore || len(page.Data) == 0 {
			break
		}
		startingAfter = page.Data[len(page.Data)-1].ID
	}

	return all, nil
}
