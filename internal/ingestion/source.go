// Package ingestion pulls raw transactions from connected data sources,
// normalizes them and writes them to storage.
package ingestion

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RawTransaction is an unnormalized row as fetched from a source.
type RawTransaction struct {
	Date        time.Time
	Amount      decimal.Decimal
	Category    string // raw source category, may be empty
	Subcategory string
	Description string
	Memo        string
	ExternalID  string // id in the source system
}

// Source provides raw transactions from an external system.
type Source interface {
	// FetchTransactions returns raw rows within [start, end] (inclusive).
	// Rows may be unordered and may contain duplicates.
	FetchTransactions(ctx context.Context, start, end time.Time) ([]*RawTransaction, error)
}
