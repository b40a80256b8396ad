package remediation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/devdefend/finding"
	"github.com/zero-day-ai/devdefend/llm"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// clientFunc adapts a function to llm.Client.
type clientFunc func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error)

func (f clientFunc) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return f(ctx, req)
}

func answer(content string) clientFunc {
	return func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{
			Content:      content,
			Model:        "gpt-4o-mini",
			FinishReason: "stop",
			Usage:        llm.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
		}, nil
	}
}

func failing(err error) clientFunc {
	return func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, err
	}
}

func evalFinding() finding.Finding {
	return finding.Finding{
		VulnerabilityType: "Code Injection",
		Severity:          finding.SeverityCritical,
		Start:             4,
		End:               9,
		Snippet:           "x = eval(user_input)",
		Origin:            finding.OriginRule,
		RuleID:            "DD002",
	}
}

func mustLive(t *testing.T, client llm.Client, opts ...Option) *Live {
	t.Helper()
	live, err := NewLive(client, opts...)
	require.NoError(t, err)
	return live
}

func assertTotal(t *testing.T, r Result) {
	t.Helper()
	assert.NotEmpty(t, r.Explanation)
	assert.NotEmpty(t, r.PatchedSnippet)
}

func TestNew_SelectsAdvisor(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		opts     []Option
		wantLive bool
	}{
		{"disabled by config", Settings{Enabled: false, Credential: "key"}, nil, false},
		{"no credential", Settings{Enabled: true}, nil, false},
		{"credential", Settings{Enabled: true, Credential: "key"}, nil, true},
		{"explicit client", Settings{Enabled: true}, []Option{WithClient(answer("ok"))}, true},
		{"explicit client but disabled", Settings{Enabled: false}, []Option{WithClient(answer("ok"))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.settings, tt.opts...)
			require.NoError(t, err)

			_, isLive := a.(*Live)
			assert.Equal(t, tt.wantLive, isLive)
		})
	}
}

func TestNew_Timeout(t *testing.T) {
	a, err := New(Settings{Enabled: true, Credential: "key"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, a.(*Live).Timeout())

	a, err = New(Settings{Enabled: true, Credential: "key", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, time.Second, a.(*Live).Timeout())
}

func TestNewLive_NilClient(t *testing.T) {
	_, err := NewLive(nil)
	assert.Error(t, err)
}

// With remediation disabled every result is tagged as the disabled fallback,
// whatever the finding looks like.
func TestDisabled_AlwaysFallback(t *testing.T) {
	a, err := New(Settings{Enabled: false, Credential: "key"})
	require.NoError(t, err)

	findings := []finding.Finding{
		evalFinding(),
		{VulnerabilityType: "Heuristic Risk", Severity: 2, Snippet: "verify=False", Origin: finding.OriginHeuristic},
		{},
	}

	for _, f := range findings {
		r := a.Remediate(context.Background(), f, "python")
		assert.Equal(t, OriginFallbackDisabled, r.Origin)
		assert.True(t, strings.HasPrefix(r.Explanation, "[DISABLED] "))
		assert.True(t, strings.HasPrefix(r.PatchedSnippet, "[UNPATCHED]"))
		assert.True(t, strings.HasSuffix(r.PatchedSnippet, f.Snippet))
		assertTotal(t, r)
	}
}

func TestFallbacksAreDistinguishable(t *testing.T) {
	f := evalFinding()
	disabled := DisabledFallback(f)
	failed := ErrorFallback(f)

	assert.NotEqual(t, disabled.Explanation, failed.Explanation)
	assert.NotEqual(t, disabled.PatchedSnippet, failed.PatchedSnippet)
	assert.Equal(t, "[FALLBACK] Code Injection: sanitize inputs, avoid dangerous functions.", failed.Explanation)
	assert.Equal(t, "[FALLBACK PATCH]\nx = eval(user_input)", failed.PatchedSnippet)
	assert.True(t, disabled.Origin.IsFallback())
	assert.True(t, failed.Origin.IsFallback())
	assert.False(t, OriginExternal.IsFallback())
}

func TestLive_ParsesFencedAnswer(t *testing.T) {
	var gotReq *llm.CompletionRequest
	client := clientFunc(func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		gotReq = req
		return answer("eval executes arbitrary code.\n```python\nx = ast.literal_eval(user_input)\n```\nDone.")(ctx, req)
	})

	tracker := llm.NewUsageTracker()
	live := mustLive(t, client, WithTokenTracker(tracker))

	r := live.Remediate(context.Background(), evalFinding(), "python")

	assert.Equal(t, OriginExternal, r.Origin)
	assert.Equal(t, "eval executes arbitrary code.", r.Explanation)
	assert.Equal(t, "x = ast.literal_eval(user_input)", r.PatchedSnippet)

	require.NotNil(t, gotReq)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, llm.RoleSystem, gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[1].Content, "Code Injection")
	assert.Contains(t, gotReq.Messages[1].Content, "x = eval(user_input)")
	require.NotNil(t, gotReq.Temperature)
	assert.InDelta(t, 0.2, *gotReq.Temperature, 1e-9)

	assert.Equal(t, 15, tracker.Report().Models[0].Usage.TotalTokens)
}

func TestLive_UnfencedAnswerKeepsSnippet(t *testing.T) {
	live := mustLive(t, answer("  Use ast.literal_eval instead of eval.  "))

	r := live.Remediate(context.Background(), evalFinding(), "python")

	assert.Equal(t, OriginExternal, r.Origin)
	assert.Equal(t, "Use ast.literal_eval instead of eval.", r.Explanation)
	assert.Equal(t, "x = eval(user_input)", r.PatchedSnippet)
}

func TestLive_FallbackTotality(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		client  llm.Client
		ctx     context.Context
		timeout time.Duration
	}{
		{
			name:   "transport error",
			client: failing(llm.NewError("openai", "complete", llm.ErrCodeNetworkError, "connection refused")),
			ctx:    context.Background(),
		},
		{
			name:   "http status",
			client: failing(llm.NewError("openai", "complete", llm.ErrCodeBackendError, "HTTP 500").WithStatus(500)),
			ctx:    context.Background(),
		},
		{
			name:   "empty content",
			client: answer(""),
			ctx:    context.Background(),
		},
		{
			name:   "whitespace content",
			client: answer(" \n\t "),
			ctx:    context.Background(),
		},
		{
			name: "nil response",
			client: clientFunc(func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
				return nil, nil
			}),
			ctx: context.Background(),
		},
		{
			name: "timeout with client ignoring context",
			client: clientFunc(func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
				time.Sleep(time.Second)
				return &llm.CompletionResponse{Content: "too late"}, nil
			}),
			ctx:     context.Background(),
			timeout: 20 * time.Millisecond,
		},
		{
			name:   "cancelled caller",
			client: answer("never used"),
			ctx:    cancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			live := mustLive(t, tt.client, WithTimeout(tt.timeout))

			start := time.Now()
			r := live.Remediate(tt.ctx, evalFinding(), "python")

			assert.Equal(t, OriginFallbackError, r.Origin)
			assert.Equal(t, ErrorFallback(evalFinding()), r)
			assertTotal(t, r)
			assert.Less(t, time.Since(start), 500*time.Millisecond)
		})
	}
}

func TestLive_OpenAIBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"Parameterize it.\n` + "```sql\\nSELECT * FROM t WHERE id = ?\\n```" + `"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	}))
	defer srv.Close()

	a, err := New(Settings{Enabled: true, Credential: "key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	r := a.Remediate(context.Background(), finding.Finding{
		VulnerabilityType: "SQL Injection",
		Severity:          4,
		Snippet:           `q = "SELECT * FROM t WHERE id = " + id`,
	}, "python")

	assert.Equal(t, OriginExternal, r.Origin)
	assert.Equal(t, "Parameterize it.", r.Explanation)
	assert.Equal(t, "SELECT * FROM t WHERE id = ?", r.PatchedSnippet)
}

func TestLive_OpenAIBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a, err := New(Settings{Enabled: true, Credential: "key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	r := a.Remediate(context.Background(), evalFinding(), "python")
	assert.Equal(t, OriginFallbackError, r.Origin)
	assertTotal(t, r)
}

func TestLive_Span(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	live := mustLive(t, failing(errors.New("boom")), WithTracer(tp.Tracer("test")))
	_ = live.Remediate(context.Background(), evalFinding(), "python")

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "remediation.remediate", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	var origin string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "remediation.origin" {
			origin = kv.Value.AsString()
		}
	}
	assert.Equal(t, "fallback-error", origin)
}

func TestRemediateAll_OrderAndLimit(t *testing.T) {
	var inFlight, peak int32
	var mu sync.Mutex
	client := clientFunc(func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		n := atomic.AddInt32(&inFlight, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)

		msg := req.Messages[1].Content
		return &llm.CompletionResponse{Content: "fix for " + msg[strings.Index(msg, "snippet-"):strings.Index(msg, "snippet-")+9]}, nil
	})
	live := mustLive(t, client)

	findings := make([]finding.Finding, 8)
	for i := range findings {
		findings[i] = finding.Finding{VulnerabilityType: "Code Injection", Severity: 4, Snippet: "snippet-" + string(rune('0'+i))}
	}

	results := RemediateAll(context.Background(), live, findings, "python", 2)

	require.Len(t, results, len(findings))
	for i, r := range results {
		assert.Equal(t, OriginExternal, r.Origin)
		assert.Equal(t, "fix for snippet-"+string(rune('0'+i)), r.Explanation)
	}
	assert.LessOrEqual(t, peak, int32(2))
}

func TestRemediateAll_CancelledSiblingsKeepResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	client := clientFunc(func(c context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if strings.Contains(req.Messages[1].Content, "slow") {
			cancel()
			<-c.Done()
			return nil, c.Err()
		}
		return &llm.CompletionResponse{Content: "fast fix"}, nil
	})
	live := mustLive(t, client)

	findings := []finding.Finding{
		{VulnerabilityType: "A", Severity: 3, Snippet: "fast"},
		{VulnerabilityType: "B", Severity: 3, Snippet: "slow"},
	}

	results := RemediateAll(ctx, live, findings, "python", 1)

	assert.Equal(t, OriginExternal, results[0].Origin)
	assert.Equal(t, "fast fix", results[0].Explanation)
	assert.Equal(t, OriginFallbackError, results[1].Origin)
}

func TestRemediateAll_Empty(t *testing.T) {
	results := RemediateAll(context.Background(), Disabled{}, nil, "go", 4)
	assert.Empty(t, results)
}
