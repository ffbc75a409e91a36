// Package stub provides fixed in-memory sources for testing.
package stub

import (
	"context"
	"time"

	"aurix/internal/ingestion"
)

// Source returns fixed in-memory raw transactions for testing.
// Implements ingestion.Source interface.
type Source struct {
	rows []*ingestion.RawTransaction
	err  error
}

// NewSource creates a new stub source with the given rows.
func NewSource(rows []*ingestion.RawTransaction) *Source {
	return &Source{rows: rows}
}

// NewFailingSource creates a stub source whose fetch always fails.
func NewFailingSource(err error) *Source {
	return &Source{err: err}
}

// FetchTransactions returns rows within [start, end]. Returns copies to
// prevent mutation.
func (s *Source) FetchTransactions(_ context.Context, start, end time.Time) ([]*ingestion.RawTransaction, error) {
	if s.err != nil {
		return nil, s.err
	}

	var result []*ingestion.RawTransaction
	for _, row := range s.rows {
		if !row.Date.Before(start) && !row.Date.After(end) {
			copy := *row
			result = append(result, &copy)
		}
	}
	return result, nil
}
