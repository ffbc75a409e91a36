package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
	"aurix/internal/ingestion"
)

// DefaultRange covers the conventional transaction layout, skipping the
// header row. Expected columns: Date, Description, Amount, Category, Memo.
const DefaultRange = "Sheet1!A2:E1000"

// sheetsEpoch is day zero of the Google Sheets serial date system.
var sheetsEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Column indexes within a transaction row (0-based).
const (
	colDate = iota
	colDescription
	colAmount
	colCategory
	colMemo
)

// Source adapts a spreadsheet range to the ingestion pipeline.
type Source struct {
	client        *Client
	spreadsheetID string
	readRange     string
}

// NewSource creates an ingestion source reading the given spreadsheet.
// An empty readRange falls back to DefaultRange.
func NewSource(client *Client, spreadsheetID, readRange string) *Source {
	if readRange == "" {
		readRange = DefaultRange
	}
	return &Source{client: client, spreadsheetID: spreadsheetID, readRange: readRange}
}

var _ ingestion.Source = (*Source)(nil)

// FetchTransactions reads the configured range and parses each row into a
// raw transaction. Rows that are empty, lack a date or amount, or fail to
// parse are skipped. Only rows dated within [start, end] are returned.
func (s *Source) FetchTransactions(ctx context.Context, start, end time.Time) ([]*ingestion.RawTransaction, error) {
	rows, err := s.client.Values(ctx, s.spreadsheetID, s.readRange)
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", s.readRange, err)
	}

	var result []*ingestion.RawTransaction
	for i, row := range rows {
		rowNum := i + 2 // data starts below the header row

		raw, ok := s.parseRow(row, rowNum)
		if !ok {
			continue
		}
		if raw.Date.Before(start) || raw.Date.After(end) {
			continue
		}
		result = append(result, raw)
	}

	return result, nil
}

func (s *Source) parseRow(row []interface{}, rowNum int) (*ingestion.RawTransaction, bool) {
	if isEmptyRow(row) {
		return nil, false
	}

	date, ok := parseDate(cell(row, colDate))
	if !ok {
		return nil, false
	}
	amount, ok := parseAmount(cell(row, colAmount))
	if !ok {
		return nil, false
	}

	return &ingestion.RawTransaction{
		Date:        date,
		Amount:      amount,
		Category:    cellString(row, colCategory),
		Description: cellString(row, colDescription),
		Memo:        cellString(row, colMemo),
		ExternalID:  fmt.Sprintf("sheets_%s_%d", s.spreadsheetID, rowNum),
	}, true
}

func isEmptyRow(row []interface{}) bool {
	for _, c := range row {
		if c != nil && c != "" {
			return false
		}
	}
	return true
}

func cell(row []interface{}, idx int) interface{} {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func cellString(row []interface{}, idx int) string {
	v := cell(row, idx)
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// parseDate accepts ISO date strings and Sheets serial date numbers.
func parseDate(v interface{}) (time.Time, bool) {
	switch d := v.(type) {
	case string:
		if d == "" {
			return time.Time{}, false
		}
		parsed, err := time.Parse(domain.DayFormat, d)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	case float64:
		return sheetsEpoch.AddDate(0, 0, int(d)), true
	default:
		return time.Time{}, false
	}
}

// parseAmount accepts numeric cells and currency-formatted strings.
func parseAmount(v interface{}) (decimal.Decimal, bool) {
	switch a := v.(type) {
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "").Replace(a)
		if cleaned == "" {
			return decimal.Zero, false
		}
		parsed, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Zero, false
		}
		return parsed, true
	case float64:
		if a == 0 {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(a), true
	default:
		return decimal.Zero, false
	}
}
