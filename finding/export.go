package finding

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// ExportFormat represents the format for exporting findings.
type ExportFormat string

const (
	// FormatJSON exports findings as JSON.
	FormatJSON ExportFormat = "json"

	// FormatSARIF exports findings in SARIF (Static Analysis Results Interchange Format).
	FormatSARIF ExportFormat = "sarif"

	// FormatCSV exports findings as comma-separated values.
	FormatCSV ExportFormat = "csv"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
)

// IsValid returns true if the export format is valid.
func (f ExportFormat) IsValid() bool {
	switch f {
	case FormatJSON, FormatSARIF, FormatCSV:
		return true
	default:
		return false
	}
}

// String returns the string representation of the export format.
func (f ExportFormat) String() string {
	return string(f)
}

// FileExtension returns the file extension for the export format.
func (f ExportFormat) FileExtension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatSARIF:
		return ".sarif"
	case FormatCSV:
		return ".csv"
	default:
		return ""
	}
}

// MimeType returns the MIME type for the export format.
func (f ExportFormat) MimeType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatSARIF:
		return "application/sarif+json"
	case FormatCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

// ParseExportFormat parses a string into an ExportFormat value.
// Returns an error if the string is not a valid export format.
func ParseExportFormat(s string) (ExportFormat, error) {
	format := ExportFormat(s)
	if !format.IsValid() {
		return "", fmt.Errorf("invalid export format: %s", s)
	}
	return format, nil
}

// AllExportFormats returns all valid export formats.
func AllExportFormats() []ExportFormat {
	return []ExportFormat{
		FormatJSON,
		FormatSARIF,
		FormatCSV,
	}
}

// FileReport groups the findings of one scanned file for export.
type FileReport struct {
	File     string    `json:"file"`
	Language string    `json:"language,omitempty"`
	Findings []Finding `json:"findings"`
}

// Export writes the reports to w in the given format.
func Export(w io.Writer, format ExportFormat, reports []FileReport) error {
	switch format {
	case FormatJSON:
		return exportJSON(w, reports)
	case FormatSARIF:
		return exportSARIF(w, reports)
	case FormatCSV:
		return exportCSV(w, reports)
	default:
		return fmt.Errorf("invalid export format: %s", format)
	}
}

func exportJSON(w io.Writer, reports []FileReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

func exportCSV(w io.Writer, reports []FileReport) error {
	cw := csv.NewWriter(w)
	header := []string{"file", "language", "vulnerability_type", "severity", "start", "end", "origin", "rule_id", "snippet"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range reports {
		for _, f := range r.Findings {
			row := []string{
				r.File,
				r.Language,
				f.VulnerabilityType,
				strconv.Itoa(int(f.Severity)),
				strconv.Itoa(f.Start),
				strconv.Itoa(f.End),
				f.Origin.String(),
				f.RuleID,
				f.Snippet,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID     string          `json:"ruleId"`
	Level      string          `json:"level"`
	Message    sarifMessage    `json:"message"`
	Locations  []sarifLocation `json:"locations"`
	Properties map[string]any  `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	CharOffset int          `json:"charOffset"`
	CharLength int          `json:"charLength"`
	Snippet    sarifMessage `json:"snippet"`
}

func exportSARIF(w io.Writer, reports []FileReport) error {
	var (
		rules   []sarifRule
		results = []sarifResult{}
		seen    = make(map[string]bool)
	)

	for _, r := range reports {
		for _, f := range r.Findings {
			ruleID := f.RuleID
			if ruleID == "" {
				ruleID = f.VulnerabilityType
			}
			if !seen[ruleID] {
				seen[ruleID] = true
				rules = append(rules, sarifRule{
					ID:               ruleID,
					ShortDescription: sarifMessage{Text: f.VulnerabilityType},
				})
			}
			results = append(results, sarifResult{
				RuleID:  ruleID,
				Level:   f.Severity.SARIFLevel(),
				Message: sarifMessage{Text: fmt.Sprintf("%s (%s severity)", f.VulnerabilityType, f.Severity)},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: r.File},
						Region: sarifRegion{
							CharOffset: f.Start,
							CharLength: f.End - f.Start,
							Snippet:    sarifMessage{Text: f.Snippet},
						},
					},
				}},
				Properties: map[string]any{
					"severity": int(f.Severity),
					"origin":   f.Origin.String(),
				},
			})
		}
	}

	log := sarifLog{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: "devdefend", Rules: rules}},
			Results: results,
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(log); err != nil {
		return fmt.Errorf("failed to encode SARIF report: %w", err)
	}
	return nil
}
