package finding

import (
	"fmt"
	"strconv"
	"strings"
)

// Severity is the ordinal risk ranking of a finding, 1 (Low) through 4 (Critical).
type Severity int

const (
	// SeverityLow indicates a minor issue.
	SeverityLow Severity = 1

	// SeverityMedium indicates a moderate issue.
	// Examples: disabled TLS verification, unchecked file writes
	SeverityMedium Severity = 2

	// SeverityHigh indicates a high-impact issue.
	// Examples: command injection, insecure deserialization
	SeverityHigh Severity = 3

	// SeverityCritical indicates an issue requiring immediate attention.
	// Examples: code injection, SQL injection, shell injection
	SeverityCritical Severity = 4
)

// IsValid returns true if the severity is one of the four defined levels.
func (s Severity) IsValid() bool {
	return s >= SeverityLow && s <= SeverityCritical
}

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return strconv.Itoa(int(s))
	}
}

// DisplayName returns a human-readable name for the severity.
func (s Severity) DisplayName() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityCritical:
		return "Critical"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// SARIFLevel maps the severity onto a SARIF result level.
func (s Severity) SARIFLevel() string {
	switch {
	case s >= SeverityHigh:
		return "error"
	case s == SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

// ParseSeverity parses either a level name ("high") or its number ("3").
func ParseSeverity(s string) (Severity, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(v); err == nil {
		sev := Severity(n)
		if !sev.IsValid() {
			return 0, fmt.Errorf("invalid severity: %s", s)
		}
		return sev, nil
	}
	for _, sev := range AllSeverities() {
		if sev.String() == v {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("invalid severity: %s", s)
}

// CompareSeverity compares two severity levels.
// Returns:
//   - negative if s1 < s2
//   - zero if s1 == s2
//   - positive if s1 > s2
func CompareSeverity(s1, s2 Severity) int {
	return int(s1) - int(s2)
}

// AllSeverities returns all valid severity levels in order from critical to low.
func AllSeverities() []Severity {
	return []Severity{
		SeverityCritical,
		SeverityHigh,
		SeverityMedium,
		SeverityLow,
	}
}

// MaxSeverity returns the highest severity among findings, or 0 when there are none.
func MaxSeverity(findings []Finding) Severity {
	var highest Severity
	for _, f := range findings {
		if f.Severity > highest {
			highest = f.Severity
		}
	}
	return highest
}
