package pipeline

import (
	"sort"
	"time"

	"github.com/zero-day-ai/devdefend/finding"
	"github.com/zero-day-ai/devdefend/gate"
	"github.com/zero-day-ai/devdefend/remediation"
)

// FileInput is one file submitted for scanning.
type FileInput struct {
	// Project groups sessions; it is informational only.
	Project string `json:"project"`

	// Path identifies the file within the project.
	Path string `json:"path"`

	// Language is the source language, e.g. "python".
	Language string `json:"language"`

	// Content is the file text.
	Content string `json:"content"`

	// Channel, when set, receives progress messages for this scan.
	Channel string `json:"channel,omitempty"`
}

// Record pairs a finding with its remediation.
type Record struct {
	ID          string             `json:"id"`
	Finding     finding.Finding    `json:"finding"`
	Remediation remediation.Result `json:"remediation"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Session is the result of scanning one file.
type Session struct {
	ID          string           `json:"id"`
	Project     string           `json:"project"`
	File        string           `json:"file"`
	Language    string           `json:"language"`
	Records     []Record         `json:"records"`
	MaxSeverity finding.Severity `json:"max_severity"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Findings returns the session's findings in record order.
func (s *Session) Findings() []finding.Finding {
	out := make([]finding.Finding, len(s.Records))
	for i, r := range s.Records {
		out[i] = r.Finding
	}
	return out
}

// Duration returns how long the scan took.
func (s *Session) Duration() time.Duration {
	return s.CompletedAt.Sub(s.StartedAt)
}

// Stats summarizes findings across sessions.
type Stats struct {
	// Total is the number of findings.
	Total int `json:"total"`

	// HighCritical counts findings of High or Critical severity.
	HighCritical int `json:"high_critical"`

	// ByType counts findings per vulnerability type, most frequent first.
	ByType []TypeCount `json:"by_type"`
}

// TypeCount is the number of findings of one vulnerability type.
type TypeCount struct {
	VulnerabilityType string `json:"vulnerability_type"`
	Count             int    `json:"count"`
}

// Summarize computes Stats over sessions.
func Summarize(sessions []*Session) Stats {
	var st Stats
	counts := make(map[string]int)
	for _, s := range sessions {
		for _, r := range s.Records {
			st.Total++
			if r.Finding.Severity >= finding.SeverityHigh {
				st.HighCritical++
			}
			counts[r.Finding.VulnerabilityType]++
		}
	}

	st.ByType = make([]TypeCount, 0, len(counts))
	for typ, n := range counts {
		st.ByType = append(st.ByType, TypeCount{VulnerabilityType: typ, Count: n})
	}
	sort.Slice(st.ByType, func(i, j int) bool {
		if st.ByType[i].Count != st.ByType[j].Count {
			return st.ByType[i].Count > st.ByType[j].Count
		}
		return st.ByType[i].VulnerabilityType < st.ByType[j].VulnerabilityType
	})
	return st
}

// BatchResult is the outcome of a CI batch scan.
type BatchResult struct {
	Project  string      `json:"project"`
	Sessions []*Session  `json:"sessions"`
	Gate     gate.Result `json:"gate"`
	Stats    Stats       `json:"stats"`
}

// Reports converts the sessions into export reports.
func (b *BatchResult) Reports() []finding.FileReport {
	out := make([]finding.FileReport, len(b.Sessions))
	for i, s := range b.Sessions {
		out[i] = s.Report()
	}
	return out
}

// Report converts the session into an export report.
func (s *Session) Report() finding.FileReport {
	return finding.FileReport{
		File:     s.File,
		Language: s.Language,
		Findings: s.Findings(),
	}
}
