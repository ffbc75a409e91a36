package quickbooks

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/ingestion"
)

// Source adapts QuickBooks purchases and journal entries to the ingestion
// pipeline.
type Source struct {
	client *Client
}

// NewSource creates an ingestion source backed by a QuickBooks client.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

var _ ingestion.Source = (*Source)(nil)

// FetchTransactions returns purchases and journal entry lines within
// [start, end] as raw rows. Rows with unparseable dates or amounts are
// skipped.
func (s *Source) FetchTransactions(ctx context.Context, start, end time.Time) ([]*ingestion.RawTransaction, error) {
	purchases, err := s.client.Purchases(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	entries, err := s.client.JournalEntries(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}

	var rows []*ingestion.RawTransaction

	for _, p := range purchases {
		date, err := time.Parse(domain.DayFormat, p.TxnDate)
		if err != nil {
			continue
		}
		amount, err := decimal.NewFromString(p.TotalAmt.String())
		if err != nil {
			continue
		}

		rows = append(rows, &ingestion.RawTransaction{
			Date:        date,
			Amount:      amount,
			Category:    "Expense",
			Description: p.PrivateNote,
			Memo:        p.PaymentType,
			ExternalID:  "qbo_purchase_" + p.ID,
		})
	}

	for _, e := range entries {
		date, err := time.Parse(domain.DayFormat, e.TxnDate)
		if err != nil {
			continue
		}

		for _, line := range e.Line {
			amount, err := decimal.NewFromString(line.Amount.String())
			if err != nil {
				continue
			}

			rows = append(rows, &ingestion.RawTransaction{
				Date:        date,
				Amount:      amount,
				Category:    "Journal Entry",
				Description: line.Description,
				Memo:        e.PrivateNote,
				ExternalID:  fmt.Sprintf("qbo_journal_%s_%s", e.ID, line.ID),
			})
		}
	}

	return rows, nil
}
