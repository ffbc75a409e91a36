package categorize

import (
	"math"
	"strings"

	"github.com/jbrukh/bayesian"

	"aurix/internal/domain"
)

// minTrainingPerClass is the minimum labeled transactions a category needs
// before it becomes a classifier class.
const minTrainingPerClass = 3

// Classifier predicts categories from transaction descriptions using a
// naive-Bayes model trained on a tenant's already-categorized history.
type Classifier struct {
	classes []bayesian.Class
	cl      *bayesian.Classifier
}

// TrainClassifier builds a classifier from labeled transactions. Returns nil
// when history covers fewer than two usable categories, which is too little
// signal to discriminate.
func TrainClassifier(txns []*domain.Transaction) *Classifier {
	counts := make(map[string]int)
	for _, txn := range txns {
		if txn.Category == "" || txn.Category == domain.CategoryUncategorized {
			continue
		}
		counts[txn.Category]++
	}

	var classes []bayesian.Class
	for category, n := range counts {
		if n >= minTrainingPerClass {
			classes = append(classes, bayesian.Class(category))
		}
	}
	if len(classes) < 2 {
		return nil
	}

	cl := bayesian.NewClassifierTfIdf(classes...)
	usable := make(map[string]bool, len(classes))
	for _, class := range classes {
		usable[string(class)] = true
	}
	for _, txn := range txns {
		if !usable[txn.Category] {
			continue
		}
		terms := descriptionTerms(txn.Description)
		if len(terms) == 0 {
			continue
		}
		cl.Learn(terms, bayesian.Class(txn.Category))
	}
	cl.ConvertTermsFreqToTfIdf()

	return &Classifier{classes: classes, cl: cl}
}

// Predict returns the most likely category and a softmax confidence in
// [0, 1]. The third return is false when the description yields no terms.
func (c *Classifier) Predict(description string) (string, float64, bool) {
	if c == nil {
		return "", 0, false
	}

	terms := descriptionTerms(description)
	if len(terms) == 0 {
		return "", 0, false
	}

	scores, best, _ := c.cl.LogScores(terms)

	// Log scores are unbounded; normalize via softmax for a comparable
	// confidence value.
	max := scores[0]
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - max)
	}
	confidence := math.Exp(scores[best]-max) / sum

	return string(c.classes[best]), confidence, true
}

// descriptionTerms tokenizes a description for classification.
func descriptionTerms(description string) []string {
	lower := strings.ToLower(description)
	lower = strings.ReplaceAll(lower, "*", " ")
	return strings.Fields(lower)
}
