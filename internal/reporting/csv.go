package reporting

import (
	"encoding/csv"
	"strings"

	"aurix/internal/domain"
)

// RenderCSV renders the period's transactions as a CSV export.
// Descriptions and memos are free text, so fields are quoted per RFC 4180.
func RenderCSV(txns []*domain.Transaction) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	_ = w.Write([]string{"date", "description", "amount", "category", "memo"})
	for _, txn := range txns {
		_ = w.Write([]string{
			txn.Date.Format(domain.DayFormat),
			txn.Description,
			txn.Amount.StringFixed(2),
			txn.Category,
			txn.Memo,
		})
	}
	w.Flush()

	return sb.String()
}
