package scanner

import (
	"github.com/zero-day-ai/devdefend/catalog"
	"github.com/zero-day-ai/devdefend/finding"
)

// RuleContextRadius is the number of characters of context kept on each side
// of a rule match.
const RuleContextRadius = 60

// RuleScanner applies every rule of a catalog to the full text.
type RuleScanner struct {
	catalog *catalog.Catalog
}

// NewRuleScanner creates a rule scanner over c. A nil catalog selects catalog.Default().
func NewRuleScanner(c *catalog.Catalog) *RuleScanner {
	if c == nil {
		c = catalog.Default()
	}
	return &RuleScanner{catalog: c}
}

// Catalog returns the catalog the scanner applies.
func (s *RuleScanner) Catalog() *catalog.Catalog {
	return s.catalog
}

// Scan emits one finding per match of every applicable rule, in catalog order.
// A region matched by several rules yields several findings.
func (s *RuleScanner) Scan(text, language string) []finding.Finding {
	var findings []finding.Finding
	cursor := newRuneCursor(text)

	for _, rule := range s.catalog.Rules() {
		if !rule.AppliesTo(language) {
			continue
		}
		for _, loc := range rule.FindAll(text) {
			from := backRunes(text, loc[0], RuleContextRadius)
			to := forwardRunes(text, loc[1], RuleContextRadius)

			findings = append(findings, finding.Finding{
				VulnerabilityType: rule.VulnerabilityType,
				Severity:          rule.Severity,
				Start:             cursor.runeOffset(loc[0]),
				End:               cursor.runeOffset(loc[1]),
				Snippet:           text[from:to],
				Origin:            finding.OriginRule,
				RuleID:            rule.ID,
			})
		}
	}

	return findings
}
