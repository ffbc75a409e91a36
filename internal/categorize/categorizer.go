package categorize

import (
	"github.com/shopspring/decimal"

	"aurix/internal/domain"
)

// DefaultConfidenceThreshold gates classifier predictions: below it the
// prediction is discarded and later layers decide.
const DefaultConfidenceThreshold = 0.7

// Categorizer resolves a category for a transaction through layered
// strategies, first match wins:
//  1. normalization of the source-provided category,
//  2. description keyword heuristics,
//  3. tenant rule file, then the trained classifier above the threshold,
//  4. sign-based default (negative amounts are an Expense).
type Categorizer struct {
	rules      *RuleSet    // optional
	classifier *Classifier // optional
	threshold  float64
}

// NewCategorizer creates a categorizer. Both rules and classifier may be nil.
func NewCategorizer(rules *RuleSet, classifier *Classifier) *Categorizer {
	return &Categorizer{
		rules:      rules,
		classifier: classifier,
		threshold:  DefaultConfidenceThreshold,
	}
}

// SetThreshold overrides the classifier confidence threshold.
func (c *Categorizer) SetThreshold(threshold float64) {
	c.threshold = threshold
}

// Categorize resolves the category for a raw transaction.
func (c *Categorizer) Categorize(description string, amount decimal.Decimal, rawCategory string) string {
	if rawCategory != "" {
		return NormalizeCategory(rawCategory)
	}

	if category, ok := HeuristicCategory(description, amount); ok {
		return category
	}

	if category, ok := c.rules.Match(description); ok {
		return NormalizeCategory(category)
	}

	if c.classifier != nil {
		if category, confidence, ok := c.classifier.Predict(description); ok && confidence >= c.threshold {
			return category
		}
	}

	if amount.IsNegative() {
		return domain.CategoryExpense
	}
	return domain.CategoryUncategorized
}
