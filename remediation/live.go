package remediation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zero-day-ai/devdefend/finding"
	"github.com/zero-day-ai/devdefend/llm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	systemPrompt = "You are a senior application security engineer."

	userPromptTemplate = `You are a secure code assistant.
The following %s code is suspected of a %s issue.
Explain the problem briefly, then propose a minimal secure fix.
Return both:
1) An explanation,
2) A patched code block.
Code:
` + "```" + `%s
%s
` + "```"

	// temperature keeps suggestions close to deterministic.
	temperature = 0.2

	providerName = "remediation"
)

// Live asks an llm.Client for remediation and falls back to ErrorFallback on
// any failure.
type Live struct {
	client  llm.Client
	timeout time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer
	tracker llm.TokenTracker

	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewLive creates a Live advisor backed by client.
func NewLive(client llm.Client, opts ...Option) (*Live, error) {
	if client == nil {
		return nil, fmt.Errorf("live advisor requires a client")
	}

	o := newOptions(opts)

	requests, err := o.meter.Int64Counter(
		"remediation.requests",
		metric.WithDescription("Remediation requests by result origin"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create requests counter: %w", err)
	}

	duration, err := o.meter.Float64Histogram(
		"remediation.duration",
		metric.WithDescription("Remediation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &Live{
		client:   client,
		timeout:  o.timeout,
		logger:   o.logger,
		tracer:   o.tracer,
		tracker:  o.tracker,
		requests: requests,
		duration: duration,
	}, nil
}

// Timeout returns the per-call deadline.
func (l *Live) Timeout() time.Duration {
	return l.timeout
}

// Remediate asks the backend for a fix for f. It never fails: any backend
// error yields ErrorFallback(f).
func (l *Live) Remediate(ctx context.Context, f finding.Finding, language string) Result {
	start := time.Now()

	ctx, span := l.tracer.Start(ctx, "remediation.remediate", trace.WithAttributes(
		attribute.String("finding.type", f.VulnerabilityType),
		attribute.Int("finding.severity", int(f.Severity)),
		attribute.String("finding.language", language),
	))
	defer span.End()

	result, err := l.suggest(ctx, f, language)
	if err != nil {
		llmErr := llm.Classify(providerName, "complete", err)
		l.logger.WarnContext(ctx, "remediation backend failed, using fallback",
			"vulnerability_type", f.VulnerabilityType,
			"code", llmErr.Code,
			"class", llmErr.Class,
			"error", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, llmErr.Code)
		result = ErrorFallback(f)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(attribute.String("remediation.origin", result.Origin.String()))

	attrs := metric.WithAttributes(attribute.String("origin", result.Origin.String()))
	l.requests.Add(ctx, 1, attrs)
	l.duration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	return result
}

type completion struct {
	resp *llm.CompletionResponse
	err  error
}

// suggest performs one bounded backend call. The call runs in its own
// goroutine so a client that ignores ctx still cannot hold the caller past
// the deadline.
func (l *Live) suggest(ctx context.Context, f finding.Finding, language string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	done := make(chan completion, 1)
	go func() {
		resp, err := l.client.Complete(ctx, buildRequest(f, language))
		done <- completion{resp: resp, err: err}
	}()

	var c completion
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case c = <-done:
	}

	if c.err != nil {
		return Result{}, c.err
	}
	if !c.resp.HasContent() {
		return Result{}, llm.ErrMalformedResponse
	}

	if l.tracker != nil {
		l.tracker.Add(c.resp.Model, c.resp.Usage)
	}

	explanation, patched := parseSuggestion(c.resp.Content, f.Snippet)
	if explanation == "" {
		explanation = typeLabel(f) + ": apply the suggested patch."
	}
	if patched == "" {
		patched = "[NO PATCH SUGGESTED]"
	}

	return Result{
		Explanation:    explanation,
		PatchedSnippet: patched,
		Origin:         OriginExternal,
	}, nil
}

func buildRequest(f finding.Finding, language string) *llm.CompletionRequest {
	lang := language
	if lang == "" {
		lang = "source"
	}
	return llm.NewRequest([]llm.Message{
		llm.System(systemPrompt),
		llm.User(fmt.Sprintf(userPromptTemplate, lang, typeLabel(f), language, f.Snippet)),
	}, llm.WithTemperature(temperature))
}
