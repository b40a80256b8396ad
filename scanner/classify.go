package scanner

import (
	"github.com/zero-day-ai/devdefend/catalog"
	"github.com/zero-day-ai/devdefend/finding"
)

// Classifier runs the heuristic and rule passes and deduplicates their output.
type Classifier struct {
	heuristic *HeuristicScanner
	rules     *RuleScanner
}

// NewClassifier creates a classifier over c. A nil catalog selects catalog.Default().
func NewClassifier(c *catalog.Catalog) *Classifier {
	return &Classifier{
		heuristic: NewHeuristicScanner(),
		rules:     NewRuleScanner(c),
	}
}

// Catalog returns the catalog used by the rule pass.
func (c *Classifier) Catalog() *catalog.Catalog {
	return c.rules.Catalog()
}

// Classify returns the distinct findings for text. The result is deterministic
// for a given catalog.
func (c *Classifier) Classify(text, language string) []finding.Finding {
	raw := c.heuristic.Scan(text)
	raw = append(raw, c.rules.Scan(text, language)...)
	return finding.Deduplicate(raw)
}

var defaultClassifier = NewClassifier(nil)

// Classify runs the default classifier, backed by catalog.Default().
func Classify(text, language string) []finding.Finding {
	return defaultClassifier.Classify(text, language)
}
