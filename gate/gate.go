package gate

import (
	"sort"

	"github.com/zero-day-ai/devdefend/finding"
)

// DefaultThreshold fails a batch on any High or Critical finding.
const DefaultThreshold = int(finding.SeverityHigh)

// FileSummary aggregates the findings of one file.
type FileSummary struct {
	File        string           `json:"file"`
	Count       int              `json:"count"`
	MaxSeverity finding.Severity `json:"max_severity"`
}

// Result is the outcome of a gate evaluation.
type Result struct {
	// Files holds one summary per input file, sorted by file name.
	Files []FileSummary `json:"files"`

	// TotalCount is the number of findings across all files.
	TotalCount int `json:"total_count"`

	// Threshold is the severity threshold the batch was evaluated against.
	Threshold int `json:"threshold"`

	// Failed is true when the batch must fail the pipeline.
	Failed bool `json:"failed"`
}

// Evaluate summarizes perFile and fails the batch when any file's maximum
// severity is at least threshold. Files with no findings have maximum 0.
func Evaluate(perFile map[string][]finding.Finding, threshold int) Result {
	res := summarize(perFile, threshold)
	for _, fs := range res.Files {
		if int(fs.MaxSeverity) >= threshold {
			res.Failed = true
			break
		}
	}
	return res
}

func summarize(perFile map[string][]finding.Finding, threshold int) Result {
	res := Result{
		Files:     make([]FileSummary, 0, len(perFile)),
		Threshold: threshold,
	}
	for file, findings := range perFile {
		res.Files = append(res.Files, FileSummary{
			File:        file,
			Count:       len(findings),
			MaxSeverity: finding.MaxSeverity(findings),
		})
		res.TotalCount += len(findings)
	}
	sort.Slice(res.Files, func(i, j int) bool {
		return res.Files[i].File < res.Files[j].File
	})
	return res
}
