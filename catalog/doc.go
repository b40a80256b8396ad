// Package catalog holds the ordered, versioned set of detection rules used by
// the rule pass.
//
// Rules are compiled once, when the catalog is built; a rule that does not
// compile is a build-time error, never a scan-time one. Every pattern is
// matched case-insensitively and may span line boundaries.
//
//	cat := catalog.Default()
//	for _, rule := range cat.Rules() {
//	    fmt.Println(rule.ID, rule.VulnerabilityType, rule.Severity)
//	}
//
// Custom catalogs can be loaded from YAML:
//
//	version: "2024.1-custom"
//	rules:
//	  - id: ACME001
//	    pattern: 'os\.system\('
//	    vulnerability_type: Command Injection
//	    severity: 3
//	    languages: [python]
package catalog
