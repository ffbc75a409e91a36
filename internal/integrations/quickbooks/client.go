// Package quickbooks extracts purchases and journal entries from the
// QuickBooks Online API.
package quickbooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"aurix/internal/domain"
	"aurix/internal/integrations/httpretry"
)

// API roots per environment.
const (
	BaseURLProduction = "https://quickbooks.api.intuit.com/v3/company"
	BaseURLSandbox    = "https://sandbox-quickbooks.api.intuit.com/v3/company"
)

// Client is a minimal QuickBooks Online client scoped to one company
// (realm) and authenticated with an OAuth access token.
type Client struct {
	baseURL     string
	accessToken string
	realmID     string
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

// WithSandbox points the client at the sandbox environment.
func WithSandbox() Option {
	return func(c *Client) {
		c.baseURL = BaseURLSandbox
	}
}

// WithRetryOptions configures the underlying HTTP executor.
func WithRetryOptions(opts ...httpretry.Option) Option {
	return func(c *Client) {
		c.rc = httpretry.New(opts...)
	}
}

// NewClient creates a QuickBooks client for the given company.
func NewClient(accessToken, realmID string, opts ...Option) *Client {
	c := &Client{
		baseURL:     BaseURLProduction,
		accessToken: accessToken,
		realmID:     realmID,
		rc:          httpretry.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type faultResponse struct {
	Fault struct {
		Error []struct {
			Message string `json:"Message"`
			Code    string `json:"code"`
		} `json:"Error"`
	} `json:"Fault"`
}

// query runs a QuickBooks SQL-like query and decodes the QueryResponse
// envelope into result.
func (c *Client) query(ctx context.Context, q string, result interface{}) error {
	endpoint := fmt.Sprintf("%s/%s/query?query=%s", c.baseURL, c.realmID, url.QueryEscape(q))

	body, status, err := c.rc.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		var fault faultResponse
		if json.Unmarshal(body, &fault) == nil && len(fault.Fault.Error) > 0 {
			return fmt.Errorf("quickbooks API error (%s): %s", fault.Fault.Error[0].Code, fault.Fault.Error[0].Message)
		}
		return fmt.Errorf("unexpected status %d: %s", status, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// Purchase is a QuickBooks purchase transaction.
type Purchase struct {
	ID          string      `json:"Id"`
	TxnDate     string      `json:"TxnDate"` // "2006-01-02"
	TotalAmt    json.Number `json:"TotalAmt"`
	PrivateNote string      `json:"PrivateNote"`
	PaymentType string      `json:"PaymentType"`
}

// JournalEntry is a QuickBooks journal entry with its line items.
type JournalEntry struct {
	ID          string        `json:"Id"`
	TxnDate     string        `json:"TxnDate"`
	PrivateNote string        `json:"PrivateNote"`
	Line        []JournalLine `json:"Line"`
}

// JournalLine is a single line of a journal entry.
type JournalLine struct {
	ID          string      `json:"Id"`
	Amount      json.Number `json:"Amount"`
	Description string      `json:"Description"`
}

type purchaseQueryResponse struct {
	QueryResponse struct {
		Purchase []Purchase `json:"Purchase"`
	} `json:"QueryResponse"`
}

type journalQueryResponse struct {
	QueryResponse struct {
		JournalEntry []JournalEntry `json:"JournalEntry"`
	} `json:"QueryResponse"`
}

func dateClause(start, end time.Time) string {
	return fmt.Sprintf("TxnDate >= '%s' AND TxnDate <= '%s'",
		start.Format(domain.DayFormat), end.Format(domain.DayFormat))
}

// Purchases fetches purchase transactions within [start, end].
func (c *Client) Purchases(ctx context.Context, start, end time.Time) ([]Purchase, error) {
	q := fmt.Sprintf("SELECT * FROM Purchase WHERE %s ORDERBY TxnDate DESC", dateClause(start, end))

	var result purchaseQueryResponse
	if err := c.query(ctx, q, &result); err != nil {
		return nil, err
	}
	return result.QueryResponse.Purchase, nil
}

// JournalEntries fetches journal entries within [start, end].
func (c *Client) JournalEntries(ctx context.Context, start, end time.Time) ([]JournalEntry, error) {
	q := fmt.Sprintf("SELECT * FROM JournalEntry WHERE %s ORDERBY TxnDate DESC", dateClause(start, end))

	var result journalQueryResponse
	if err := c.query(ctx, q, &result); err != nil {
		return nil, err
	}
	return result.QueryResponse.JournalEntry, nil
}
