package categorize

import (
	"strings"

	"github.com/shopspring/decimal"

	"aurix/internal/domain"
)

// Keyword tables for description-based inference, keyed on amount sign.
var (
	incomeKeywords = []string{"payment received", "invoice", "sale", "deposit"}

	expenseKeywords = []struct {
		words    []string
		category string
	}{
		{[]string{"aws", "github", "stripe", "vercel", "heroku", "digitalocean", "software"}, domain.CategorySaaS},
		{[]string{"google ads", "facebook ads", "linkedin", "marketing", "advertising"}, domain.CategoryMarketing},
		{[]string{"hosting", "server", "cloud", "domain"}, domain.CategoryInfrastructure},
		{[]string{"office", "supplies", "equipment"}, domain.CategoryOffice},
		{[]string{"airline", "hotel", "uber", "lyft", "taxi", "flight"}, domain.CategoryTravel},
	}
)

// HeuristicCategory infers a category from the description and amount sign.
// The second return is false when no keyword matched, letting callers try
// further layers before the sign-based default.
func HeuristicCategory(description string, amount decimal.Decimal) (string, bool) {
	lower := strings.ToLower(description)

	if amount.IsPositive() {
		for _, word := range incomeKeywords {
			if strings.Contains(lower, word) {
				return domain.CategoryRevenue, true
			}
		}
		return "", false
	}

	if amount.IsNegative() {
		for _, group := range expenseKeywords {
			for _, word := range group.words {
				if strings.Contains(lower, word) {
					return group.category, true
				}
			}
		}
	}

	return "", false
}
