package finding

import (
	"errors"
	"fmt"
)

// Origin identifies the detection pass that produced a finding.
type Origin string

const (
	// OriginHeuristic marks findings from the token-substring pass.
	OriginHeuristic Origin = "heuristic"

	// OriginRule marks findings from the catalog-driven pattern pass.
	OriginRule Origin = "rule"
)

// IsValid returns true if the origin is valid.
func (o Origin) IsValid() bool {
	return o == OriginHeuristic || o == OriginRule
}

// String returns the string representation of the origin.
func (o Origin) String() string {
	return string(o)
}

// Finding is a single detected potential vulnerability occurrence.
//
// Start and End are character (rune) offsets into the scanned text, so they do
// not depend on how the text was encoded.
type Finding struct {
	// VulnerabilityType is the label of the detected issue (e.g. "SQL Injection").
	VulnerabilityType string `json:"vulnerability_type"`

	// Severity ranks the finding from 1 (Low) to 4 (Critical).
	Severity Severity `json:"severity"`

	// Start is the character offset where the match begins.
	Start int `json:"start"`

	// End is the character offset just past the match.
	End int `json:"end"`

	// Snippet is a bounded excerpt of the text around the match.
	Snippet string `json:"snippet"`

	// Origin is the detection pass that produced the finding.
	Origin Origin `json:"origin"`

	// RuleID names the catalog rule or heuristic token that matched.
	RuleID string `json:"rule_id,omitempty"`
}

// Key is the identity of a finding for deduplication purposes.
type Key struct {
	VulnerabilityType string
	Start             int
	End               int
}

// String renders the key as "type@start:end".
func (k Key) String() string {
	return fmt.Sprintf("%s@%d:%d", k.VulnerabilityType, k.Start, k.End)
}

// Key returns the identity key of the finding.
func (f Finding) Key() Key {
	return Key{VulnerabilityType: f.VulnerabilityType, Start: f.Start, End: f.End}
}

// Overlaps reports whether the spans of two findings intersect.
func (f Finding) Overlaps(other Finding) bool {
	return f.Start < other.End && other.Start < f.End
}

// Validate checks if the finding has all required fields and valid values.
func (f Finding) Validate() error {
	if f.VulnerabilityType == "" {
		return errors.New("vulnerability type is required")
	}
	if !f.Severity.IsValid() {
		return fmt.Errorf("invalid severity: %d", int(f.Severity))
	}
	if f.Start < 0 || f.End < f.Start {
		return fmt.Errorf("invalid span [%d, %d)", f.Start, f.End)
	}
	if !f.Origin.IsValid() {
		return fmt.Errorf("invalid origin: %s", f.Origin)
	}
	return nil
}
