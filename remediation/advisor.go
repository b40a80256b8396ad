package remediation

import (
	"context"
	"fmt"
	"time"

	"github.com/zero-day-ai/devdefend/finding"
	"github.com/zero-day-ai/devdefend/llm"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 20 * time.Second

// Origin records which tier of the fallback chain produced a Result.
type Origin string

const (
	// OriginExternal marks a suggestion produced by the live backend.
	OriginExternal Origin = "external"

	// OriginFallbackDisabled marks the canned answer used when remediation is
	// switched off or no backend is configured.
	OriginFallbackDisabled Origin = "fallback-disabled"

	// OriginFallbackError marks the canned answer used when the backend failed.
	OriginFallbackError Origin = "fallback-error"
)

// String returns the string representation of the origin.
func (o Origin) String() string {
	return string(o)
}

// IsFallback reports whether the result did not come from the backend.
func (o Origin) IsFallback() bool {
	return o == OriginFallbackDisabled || o == OriginFallbackError
}

// Result is a remediation suggestion for one finding. Explanation and
// PatchedSnippet are never empty.
type Result struct {
	Explanation    string `json:"explanation"`
	PatchedSnippet string `json:"patched_snippet"`
	Origin         Origin `json:"origin"`
}

// Advisor produces a remediation suggestion for a finding.
//
// Implementations must always return a Result with non-empty fields and must
// be safe for concurrent use.
type Advisor interface {
	Remediate(ctx context.Context, f finding.Finding, language string) Result
}

// Settings selects and configures the advisor built by New.
type Settings struct {
	// Enabled switches remediation on. When false New returns a Disabled advisor.
	Enabled bool

	// Credential authenticates against the backend. Empty means no backend.
	Credential string

	// BaseURL overrides the OpenAI-compatible endpoint.
	BaseURL string

	// Model is the chat model requested from the backend.
	Model string

	// Timeout bounds each backend call. Zero selects DefaultTimeout.
	Timeout time.Duration
}

// New builds the advisor selected by s.
//
// A Live advisor is returned when s.Enabled is set and a backend is available:
// either s.Credential is non-empty (an OpenAI-compatible client is created) or
// an explicit client was supplied with WithClient. Otherwise the advisor is
// Disabled.
func New(s Settings, opts ...Option) (Advisor, error) {
	o := newOptions(opts)

	if !s.Enabled || (s.Credential == "" && o.client == nil) {
		o.logger.Debug("remediation backend not configured, using disabled advisor",
			"enabled", s.Enabled,
		)
		return Disabled{}, nil
	}

	client := o.client
	if client == nil {
		client = llm.NewOpenAIClient(llm.OpenAIOptions{
			APIKey:  s.Credential,
			BaseURL: s.BaseURL,
			Model:   s.Model,
		})
	}

	if s.Timeout > 0 {
		opts = append(opts, WithTimeout(s.Timeout))
	}

	live, err := NewLive(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("create live advisor: %w", err)
	}
	return live, nil
}
