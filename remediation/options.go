package remediation

import (
	"log/slog"
	"time"

	"github.com/zero-day-ai/devdefend/llm"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// instrumentationName identifies the tracer and meter used by this package.
const instrumentationName = "github.com/zero-day-ai/devdefend/remediation"

// Option configures an advisor.
type Option func(*options)

type options struct {
	client  llm.Client
	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter
	tracker llm.TokenTracker
	timeout time.Duration
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:  slog.Default(),
		tracer:  tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:   metricnoop.NewMeterProvider().Meter(instrumentationName),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithClient supplies the completion backend instead of building an
// OpenAI-compatible client from Settings.
func WithClient(c llm.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithLogger sets the logger used to report backend failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets the tracer for per-call spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithMeterProvider sets the meter provider for request and latency metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meter = mp.Meter(instrumentationName)
		}
	}
}

// WithTokenTracker records backend token usage per model.
func WithTokenTracker(t llm.TokenTracker) Option {
	return func(o *options) {
		o.tracker = t
	}
}

// WithTimeout bounds each backend call. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}
