package categorize

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	yaml "gopkg.in/yaml.v2"
)

// RuleSet holds tenant-defined categorization rules: a category mapped to a
// list of description patterns. Patterns are matched case-insensitively in
// sorted category order so results are deterministic.
type RuleSet struct {
	rules []compiledRule
}

type compiledRule struct {
	category string
	patterns []*regexp.Regexp
}

// LoadRules reads a YAML rule file of the form:
//
//	SaaS:
//	  - "datadog"
//	  - "^notion "
//	Payroll:
//	  - "gusto payroll"
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules builds a RuleSet from YAML content.
func ParseRules(data []byte) (*RuleSet, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse rule yaml: %w", err)
	}

	categories := make([]string, 0, len(raw))
	for category := range raw {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	rs := &RuleSet{}
	for _, category := range categories {
		rule := compiledRule{category: category}
		for _, pattern := range raw[category] {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return nil, fmt.Errorf("compile pattern %q for %s: %w", pattern, category, err)
			}
			rule.patterns = append(rule.patterns, re)
		}
		rs.rules = append(rs.rules, rule)
	}

	return rs, nil
}

// Match returns the category of the first rule whose pattern matches the
// description. The second return is false when nothing matches.
func (rs *RuleSet) Match(description string) (string, bool) {
	if rs == nil {
		return "", false
	}
	for _, rule := range rs.rules {
		for _, re := range rule.patterns {
			if re.MatchString(description) {
				return rule.category, true
			}
		}
	}
	return "", false
}
