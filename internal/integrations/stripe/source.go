package stripe

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"aurix/internal/ingestion"
)

// typeCategories maps Stripe balance transaction types to raw categories.
// Unknown types fall through to "Other".
var typeCategories = map[string]string{
	"charge":          "Revenue",
	"payment":         "Revenue",
	"refund":          "Refund",
	"payout":          "Payout",
	"adjustment":      "Adjustment",
	"application_fee": "Fee",
	"stripe_fee":      "Fee",
}

// Source adapts the Stripe balance ledger to the ingestion pipeline.
type Source struct {
	client *Client
}

// NewSource creates an ingestion source backed by a Stripe client.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

var _ ingestion.Source = (*Source)(nil)

// FetchTransactions returns balance transactions within [start, end] as
// raw rows. Amounts are converted from cents to currency units.
func (s *Source) FetchTransactions(ctx context.Context, start, end time.Time) ([]*ingestion.RawTransaction, error) {
	txns, err := s.client.BalanceTransactions(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list balance transactions: %w", err)
	}

	rows := make([]*ingestion.RawTransaction, 0, len(txns))
	for _, txn := range txns {
		category, ok := typeCategories[txn.Type]
		if !ok {
			category = "Other"
		}

		description := txn.Description
		if description == "" {
			description = "Stripe " + txn.Type
		}

		rows = append(rows, &ingestion.RawTransaction{
			Date:        time.Unix(txn.Created, 0).UTC(),
			Amount:      decimal.New(txn.Amount, -2),
			Category:    category,
			Description: description,
			Memo:        fmt.Sprintf("Fee: %s", decimal.New(txn.Fee, -2)),
			ExternalID:  "stripe_" + txn.ID,
		})
	}

	return rows, nil
}
