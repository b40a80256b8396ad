package finding

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReports() []FileReport {
	return []FileReport{
		{
			File:     "app/main.py",
			Language: "python",
			Findings: []Finding{
				{VulnerabilityType: "Code Injection", Severity: SeverityCritical, Start: 4, End: 9, Snippet: "x = eval(data)", Origin: OriginRule, RuleID: "DD002"},
				{VulnerabilityType: "Heuristic Risk", Severity: SeverityHigh, Start: 4, End: 9, Snippet: "eval(data)", Origin: OriginHeuristic, RuleID: "eval("},
			},
		},
		{File: "app/empty.py", Language: "python"},
	}
}

func TestParseExportFormat(t *testing.T) {
	for _, f := range AllExportFormats() {
		got, err := ParseExportFormat(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
		assert.NotEmpty(t, f.FileExtension())
	}

	_, err := ParseExportFormat("html")
	assert.Error(t, err)
}

func TestExport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, FormatJSON, sampleReports()))

	var decoded []FileReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "DD002", decoded[0].Findings[0].RuleID)
	assert.Equal(t, SeverityCritical, decoded[0].Findings[0].Severity)
}

func TestExport_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, FormatCSV, sampleReports()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "vulnerability_type", rows[0][2])
	assert.Equal(t, []string{"app/main.py", "python", "Code Injection", "4", "4", "9", "rule", "DD002", "x = eval(data)"}, rows[1])
}

func TestExport_SARIF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, FormatSARIF, sampleReports()))

	var log sarifLog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))
	assert.Equal(t, sarifVersion, log.Version)
	require.Len(t, log.Runs, 1)

	run := log.Runs[0]
	assert.Len(t, run.Tool.Driver.Rules, 2)
	require.Len(t, run.Results, 2)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, "app/main.py", run.Results[0].Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, 5, run.Results[0].Locations[0].PhysicalLocation.Region.CharLength)
}

func TestExport_SARIFEmptyHasResultsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, FormatSARIF, nil))
	assert.Contains(t, buf.String(), `"results": []`)
}

func TestExport_InvalidFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Export(&buf, ExportFormat("xml"), sampleReports()))
}
