package remediation

import (
	"context"

	"github.com/zero-day-ai/devdefend/finding"
)

// Disabled is the advisor used when no backend is available. Its answers are
// a pure function of the finding.
type Disabled struct{}

// Remediate returns the disabled-tier fallback for f.
func (Disabled) Remediate(_ context.Context, f finding.Finding, _ string) Result {
	return DisabledFallback(f)
}

// DisabledFallback is the canned Result for a finding when remediation is
// switched off.
func DisabledFallback(f finding.Finding) Result {
	return Result{
		Explanation:    "[DISABLED] " + typeLabel(f) + ": replace unsafe calls and validate inputs.",
		PatchedSnippet: "[UNPATCHED] review and patch this snippet manually.\n" + f.Snippet,
		Origin:         OriginFallbackDisabled,
	}
}

// ErrorFallback is the canned Result for a finding when the backend failed.
func ErrorFallback(f finding.Finding) Result {
	return Result{
		Explanation:    "[FALLBACK] " + typeLabel(f) + ": sanitize inputs, avoid dangerous functions.",
		PatchedSnippet: "[FALLBACK PATCH]\n" + f.Snippet,
		Origin:         OriginFallbackError,
	}
}

func typeLabel(f finding.Finding) string {
	if f.VulnerabilityType == "" {
		return "Unknown"
	}
	return f.VulnerabilityType
}
