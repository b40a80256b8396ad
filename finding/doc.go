// Package finding provides the types used to describe potential vulnerabilities
// detected in source text.
//
// A Finding is a plain value: a vulnerability label, an ordinal severity, the
// character span of the match and a bounded excerpt of the surrounding text.
// Findings are produced by the scanners in package scanner and never carry
// identity beyond their (type, start, end) key; persistent identifiers are
// assigned by whoever records them.
//
// # Severity Levels
//
// Severity is ranked from 1 (Low) to 4 (Critical):
//
//	finding.SeverityLow       // 1
//	finding.SeverityMedium    // 2
//	finding.SeverityHigh      // 3
//	finding.SeverityCritical  // 4
//
// # Deduplication
//
// The heuristic and rule passes may report the same region more than once.
// Deduplicate collapses findings sharing an identity key, keeping the most
// severe one:
//
//	raw := append(heuristic, rules...)
//	findings := finding.Deduplicate(raw)
//
// Findings with different vulnerability types never collapse, even when their
// spans are identical.
//
// # Export
//
// Findings can be written as JSON, SARIF 2.1.0 or CSV with Export.
package finding
