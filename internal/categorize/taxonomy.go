// Package categorize normalizes raw transaction categories into the
// standard taxonomy and infers categories for unlabeled transactions.
package categorize

import (
	"strings"
	"unicode"

	"aurix/internal/domain"
)

// mappingEntry pairs a raw token with its taxonomy category. Order matters
// for substring matching, so the table is a slice rather than a map.
type mappingEntry struct {
	token    string
	category string
}

// categoryMapping maps raw source tokens to the standard taxonomy.
var categoryMapping = []mappingEntry{
	// Income
	{"revenue", domain.CategoryRevenue},
	{"sales", domain.CategoryRevenue},
	{"income", domain.CategoryRevenue},
	{"payment", domain.CategoryRevenue},
	{"subscription", domain.CategoryRevenue},

	// Generic expenses
	{"expense", domain.CategoryExpense},
	{"cost", domain.CategoryExpense},
	{"purchase", domain.CategoryExpense},
	{"payment_sent", domain.CategoryExpense},

	// Specific expense types
	{"saas", domain.CategorySaaS},
	{"software", domain.CategorySaaS},
	{"subscription_expense", domain.CategorySaaS},
	{"hosting", domain.CategoryInfrastructure},
	{"server", domain.CategoryInfrastructure},
	{"cloud", domain.CategoryInfrastructure},
	{"marketing", domain.CategoryMarketing},
	{"advertising", domain.CategoryMarketing},
	{"ads", domain.CategoryMarketing},
	{"payroll", domain.CategoryPayroll},
	{"salary", domain.CategoryPayroll},
	{"wages", domain.CategoryPayroll},
	{"contractor", domain.CategoryContractor},
	{"freelance", domain.CategoryContractor},
	{"office", domain.CategoryOffice},
	{"supplies", domain.CategoryOffice},
	{"travel", domain.CategoryTravel},
	{"meals", domain.CategoryMeals},
	{"entertainment", domain.CategoryMeals},

	// Other
	{"refund", domain.CategoryRefund},
	{"fee", domain.CategoryFee},
	{"interest", domain.CategoryInterest},
	{"tax", domain.CategoryTax},
	{"transfer", domain.CategoryTransfer},
}

var exactMapping = func() map[string]string {
	m := make(map[string]string, len(categoryMapping))
	for _, e := range categoryMapping {
		m[e.token] = e.category
	}
	return m
}()

// NormalizeCategory maps a raw source category to the standard taxonomy.
// Tries exact match, then substring match in table order, then falls back
// to the title-cased raw value. Empty input becomes Uncategorized.
func NormalizeCategory(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return domain.CategoryUncategorized
	}

	lower := strings.ToLower(strings.TrimSpace(raw))

	if category, ok := exactMapping[lower]; ok {
		return category
	}

	for _, e := range categoryMapping {
		if strings.Contains(lower, e.token) {
			return e.category
		}
	}

	return titleCase(raw)
}

// titleCase uppercases the first letter of every word.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
