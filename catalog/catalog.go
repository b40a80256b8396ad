package catalog

import (
	"fmt"
	"os"
	"sync"

	"github.com/zero-day-ai/devdefend/finding"
	"gopkg.in/yaml.v3"
)

// DefaultVersion is the version of the built-in catalog.
const DefaultVersion = "2024.1"

// Catalog is an ordered, read-only list of compiled rules.
type Catalog struct {
	version string
	rules   []Rule
}

// New validates and compiles rules into a catalog. Rule order is preserved.
func New(version string, rules []Rule) (*Catalog, error) {
	if version == "" {
		return nil, fmt.Errorf("catalog version is required")
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("catalog %s has no rules", version)
	}

	compiled := make([]Rule, len(rules))
	ids := make(map[string]struct{}, len(rules))
	for i, r := range rules {
		if err := r.compile(); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", version, err)
		}
		if _, dup := ids[r.ID]; dup {
			return nil, fmt.Errorf("catalog %s: duplicate rule ID %s", version, r.ID)
		}
		ids[r.ID] = struct{}{}
		compiled[i] = r
	}

	return &Catalog{version: version, rules: compiled}, nil
}

// MustNew is like New but panics on an invalid catalog.
func MustNew(version string, rules []Rule) *Catalog {
	c, err := New(version, rules)
	if err != nil {
		panic(err)
	}
	return c
}

// Version returns the catalog version.
func (c *Catalog) Version() string {
	return c.version
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Rules returns the rules in catalog order. The slice is a copy.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Rule returns the rule with the given ID.
func (c *Catalog) Rule(id string) (Rule, bool) {
	for _, r := range c.rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	return MustNew(DefaultVersion, DefaultRules())
})

// Default returns the built-in catalog. It is compiled on first use and shared.
func Default() *Catalog {
	return defaultCatalog()
}

// DefaultRules returns the uncompiled rule definitions of the built-in catalog.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "DD001", Pattern: `exec\(`, VulnerabilityType: "Command Injection", Severity: finding.SeverityHigh},
		{ID: "DD002", Pattern: `eval\(`, VulnerabilityType: "Code Injection", Severity: finding.SeverityCritical},
		{ID: "DD003", Pattern: `\.format\(.+\)\s*%\s*`, VulnerabilityType: "String Format Injection", Severity: finding.SeverityMedium},
		{ID: "DD004", Pattern: `SELECT\s+.*\s+FROM\s+.*\+\s*`, VulnerabilityType: "SQL Injection", Severity: finding.SeverityCritical},
		{ID: "DD005", Pattern: `password\s*=\s*['"]?[^'"]+['"]?`, VulnerabilityType: "Hardcoded Credential", Severity: finding.SeverityHigh},
		{ID: "DD006", Pattern: `subprocess\.(Popen|call)\(.*shell\s*=\s*True`, VulnerabilityType: "Shell Injection", Severity: finding.SeverityCritical},
		{ID: "DD007", Pattern: `pickle\.loads\(`, VulnerabilityType: "Insecure Deserialization", Severity: finding.SeverityHigh},
		{ID: "DD008", Pattern: `requests\.(get|post)\(.*verify\s*=\s*False`, VulnerabilityType: "TLS Verification Disabled", Severity: finding.SeverityMedium},
		{ID: "DD009", Pattern: `open\(.+['"](w|a)['"]\)`, VulnerabilityType: "Insecure File Write", Severity: finding.SeverityMedium},
	}
}

// file is the on-disk YAML layout of a catalog.
type file struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// Parse builds a catalog from YAML data.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(f.Version, f.Rules)
}

// Load reads and compiles a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}
