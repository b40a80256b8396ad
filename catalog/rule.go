package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zero-day-ai/devdefend/finding"
)

// Rule is a single detection rule: a pattern, the label it yields and its severity.
type Rule struct {
	// ID uniquely identifies the rule within its catalog.
	ID string `yaml:"id"`

	// Pattern is a regular expression (RE2 syntax). It is always compiled
	// case-insensitively with "." matching newlines.
	Pattern string `yaml:"pattern"`

	// VulnerabilityType is the label given to every match.
	VulnerabilityType string `yaml:"vulnerability_type"`

	// Severity of every match, 1 through 4.
	Severity finding.Severity `yaml:"severity"`

	// Languages restricts the rule to the listed language tags.
	// Empty means the rule applies to every language.
	Languages []string `yaml:"languages,omitempty"`

	re *regexp.Regexp
}

// compile validates the rule and prepares its matcher.
func (r *Rule) compile() error {
	if r.ID == "" {
		return fmt.Errorf("rule ID is required")
	}
	if r.Pattern == "" {
		return fmt.Errorf("rule %s: pattern is required", r.ID)
	}
	if r.VulnerabilityType == "" {
		return fmt.Errorf("rule %s: vulnerability type is required", r.ID)
	}
	if !r.Severity.IsValid() {
		return fmt.Errorf("rule %s: invalid severity %d", r.ID, int(r.Severity))
	}

	re, err := regexp.Compile("(?is)" + r.Pattern)
	if err != nil {
		return fmt.Errorf("rule %s: failed to compile pattern: %w", r.ID, err)
	}
	r.re = re
	return nil
}

// AppliesTo reports whether the rule should run against text in the given language.
func (r Rule) AppliesTo(language string) bool {
	if len(r.Languages) == 0 {
		return true
	}
	for _, l := range r.Languages {
		if strings.EqualFold(l, language) {
			return true
		}
	}
	return false
}

// FindAll returns the byte bounds of every non-overlapping match in text.
// A rule that was never compiled matches nothing.
func (r Rule) FindAll(text string) [][]int {
	if r.re == nil {
		return nil
	}
	return r.re.FindAllStringIndex(text, -1)
}
