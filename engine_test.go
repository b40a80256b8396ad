package devdefend

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/devdefend/catalog"
	"github.com/zero-day-ai/devdefend/config"
	"github.com/zero-day-ai/devdefend/finding"
	"github.com/zero-day-ai/devdefend/health"
	"github.com/zero-day-ai/devdefend/llm"
	"github.com/zero-day-ai/devdefend/pipeline"
	"github.com/zero-day-ai/devdefend/remediation"
)

type completionFunc func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error)

func (f completionFunc) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return f(ctx, req)
}

type captureEndpoint struct {
	mu   sync.Mutex
	msgs []string
}

func (e *captureEndpoint) Send(msg string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
	return nil
}

func (e *captureEndpoint) Close() error { return nil }

func (e *captureEndpoint) messages() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.msgs...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return e
}

func TestNew_Defaults(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, catalog.DefaultVersion, e.Catalog().Version())
	assert.Equal(t, config.DefaultFailOnSeverity, e.Config().GetFailOnSeverity())
	assert.NotNil(t, e.Registry())

	_, disabled := e.advisor.(remediation.Disabled)
	assert.True(t, disabled, "no credential selects the disabled advisor")
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(WithLogger(quietLogger()), WithConfig(&config.Config{FailOnSeverity: 9}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, &Error{Kind: KindConfiguration})
}

func TestNew_InvalidPolicy(t *testing.T) {
	_, err := New(WithLogger(quietLogger()), WithConfig(&config.Config{GatePolicy: "max_severity +"}))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_CatalogPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`version: "custom-1"
rules:
  - id: X001
    vulnerability_type: Hardcoded Token
    severity: 3
    pattern: 'tok_[a-z0-9]{8}'
`), 0o600))

	e := newTestEngine(t, WithConfig(&config.Config{CatalogPath: path}))
	assert.Equal(t, "custom-1", e.Catalog().Version())

	findings := e.Classify(`key = "tok_abcd1234"`, "python")
	require.Len(t, findings, 1)
	assert.Equal(t, "Hardcoded Token", findings[0].VulnerabilityType)

	_, err := New(WithLogger(quietLogger()), WithConfig(&config.Config{CatalogPath: filepath.Join(t.TempDir(), "missing.yaml")}))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEngine_ValidateInput(t *testing.T) {
	e := newTestEngine(t, WithConfig(&config.Config{
		MaxInputSizeBytes: 16,
		AllowedLanguages:  []string{"python"},
	}))

	tests := []struct {
		name    string
		in      pipeline.FileInput
		wantErr error
	}{
		{"accepted", pipeline.FileInput{Path: "a.py", Language: "python", Content: "print(1)"}, nil},
		{"at limit", pipeline.FileInput{Path: "a.py", Language: "python", Content: strings.Repeat("x", 16)}, nil},
		{"too large", pipeline.FileInput{Path: "a.py", Language: "python", Content: strings.Repeat("x", 17)}, ErrInputTooLarge},
		{"multibyte counts bytes", pipeline.FileInput{Path: "a.py", Language: "python", Content: strings.Repeat("é", 9)}, ErrInputTooLarge},
		{"language not allowed", pipeline.FileInput{Path: "a.rb", Language: "ruby", Content: "x"}, ErrLanguageNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.ValidateInput(tt.in)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, &Error{Kind: KindValidation})
		})
	}
}

func TestEngine_ScanFile(t *testing.T) {
	e := newTestEngine(t)

	s, err := e.ScanFile(context.Background(), pipeline.FileInput{
		Project:  "org/repo",
		Path:     "app.py",
		Language: "Python",
		Content:  "x = eval(user_input)\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "python", s.Language)
	assert.Equal(t, finding.SeverityCritical, s.MaxSeverity)
	require.NotEmpty(t, s.Records)
	for _, rec := range s.Records {
		assert.Equal(t, remediation.OriginFallbackDisabled, rec.Remediation.Origin)
	}

	_, err = e.ScanFile(context.Background(), pipeline.FileInput{Path: "x.cob", Language: "cobol", Content: "x"})
	assert.ErrorIs(t, err, ErrLanguageNotAllowed)
}

func TestEngine_ScanBatch(t *testing.T) {
	e := newTestEngine(t)
	files := []pipeline.FileInput{
		{Path: "a.py", Language: "python", Content: "x = eval(data)"},
		{Path: "b.py", Language: "python", Content: "print('ok')"},
	}

	res, err := e.ScanBatch(context.Background(), "org/repo", files, 0, "")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultFailOnSeverity, res.Gate.Threshold)
	assert.True(t, res.Gate.Failed)

	res, err = e.ScanBatch(context.Background(), "org/repo", files, 5, "")
	require.NoError(t, err)
	assert.False(t, res.Gate.Failed)
}

func TestEngine_ScanBatchRejections(t *testing.T) {
	e := newTestEngine(t, WithConfig(&config.Config{MaxInputSizeBytes: 8}))

	_, err := e.ScanBatch(context.Background(), "p", nil, 3, "")
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = e.ScanBatch(context.Background(), "p", []pipeline.FileInput{
		{Path: "ok.py", Language: "python", Content: "x"},
		{Path: "big.py", Language: "python", Content: "0123456789"},
	}, 3, "")
	require.ErrorIs(t, err, ErrInputTooLarge)

	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "big.py", de.Context["file"])
}

func TestEngine_ScanBatchPolicy(t *testing.T) {
	e := newTestEngine(t, WithConfig(&config.Config{
		GatePolicy: `!file.startsWith("tests/") && max_severity >= threshold`,
	}))

	res, err := e.ScanBatch(context.Background(), "p", []pipeline.FileInput{
		{Path: "tests/test_a.py", Language: "python", Content: "x = eval(data)"},
	}, 3, "")
	require.NoError(t, err)
	assert.False(t, res.Gate.Failed)
}

func TestEngine_LiveRemediation(t *testing.T) {
	client := completionFunc(func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{
			Content: "Avoid eval on user input.\n```python\nx = ast.literal_eval(user_input)\n```",
			Model:   "gpt-4o-mini",
			Usage:   llm.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
		}, nil
	})

	enabled := true
	e := newTestEngine(t,
		WithConfig(&config.Config{RemediationEnabled: &enabled}),
		WithLLMClient(client),
	)

	f := finding.Finding{VulnerabilityType: "Code Injection", Severity: finding.SeverityCritical, Snippet: "x = eval(user_input)"}
	r := e.Remediate(context.Background(), f, "python")
	assert.Equal(t, remediation.OriginExternal, r.Origin)
	assert.Contains(t, r.PatchedSnippet, "literal_eval")
	assert.Equal(t, 15, e.TokenUsage().TotalTokens)

	report := e.Health(context.Background())
	assert.Equal(t, health.StatusHealthy, report.Checks["remediation"].Status)
}

func TestEngine_Gate(t *testing.T) {
	e := newTestEngine(t)
	res := e.Gate(map[string][]finding.Finding{
		"a.py": {{VulnerabilityType: "Heuristic Risk", Severity: finding.SeverityMedium}},
	}, 3)
	assert.False(t, res.Failed)
	assert.Equal(t, 1, res.TotalCount)
}

func TestEngine_Channels(t *testing.T) {
	e := newTestEngine(t)
	ep := &captureEndpoint{}

	require.NoError(t, e.OpenChannel("job-1", ep))
	assert.True(t, e.Push("job-1", "hello"))

	_, err := e.ScanBatch(context.Background(), "p", []pipeline.FileInput{
		{Path: "a.py", Language: "python", Content: "x = eval(data)"},
	}, 3, "job-1")
	require.NoError(t, err)

	e.CloseChannel("job-1")
	assert.False(t, e.Push("job-1", "late"))

	msgs := ep.messages()
	require.GreaterOrEqual(t, len(msgs), 3)
	assert.Equal(t, "connected:job-1", msgs[0])
	assert.Equal(t, "hello", msgs[1])
	assert.True(t, strings.HasPrefix(msgs[len(msgs)-1], "gate failed"))
}

func TestEngine_Health(t *testing.T) {
	e := newTestEngine(t)
	e.RegisterHealthCheck("redis", func(context.Context) health.Status {
		return health.Unhealthy("connection refused", nil)
	})

	report := e.Health(context.Background())
	assert.Equal(t, health.StatusHealthy, report.Checks["catalog"].Status)
	assert.Equal(t, health.StatusDegraded, report.Checks["remediation"].Status)
	assert.Equal(t, health.StatusUnhealthy, report.Status.Status)
}
