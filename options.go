package devdefend

import (
	"log/slog"

	"github.com/zero-day-ai/devdefend/catalog"
	"github.com/zero-day-ai/devdefend/config"
	"github.com/zero-day-ai/devdefend/llm"
	"github.com/zero-day-ai/devdefend/progress"
	"github.com/zero-day-ai/devdefend/remediation"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures the Engine.
type Option func(*engineConfig)

// engineConfig holds configuration for the Engine instance.
type engineConfig struct {
	config        *config.Config
	logger        *slog.Logger
	tracer        trace.Tracer
	meterProvider metric.MeterProvider
	catalog       *catalog.Catalog
	advisor       remediation.Advisor
	llmClient     llm.Client
	tracker       llm.TokenTracker
	registry      *progress.Registry
	notifier      progress.Notifier
}

// WithConfig sets the engine configuration. Without it every setting takes
// its default.
func WithConfig(cfg *config.Config) Option {
	return func(c *engineConfig) {
		c.config = cfg
	}
}

// WithLogger sets a custom logger for the engine.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer for remediation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *engineConfig) {
		c.tracer = tracer
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for remediation metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *engineConfig) {
		c.meterProvider = mp
	}
}

// WithCatalog sets the pattern catalog, overriding config.CatalogPath.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(c *engineConfig) {
		c.catalog = cat
	}
}

// WithAdvisor sets the remediation advisor, bypassing selection from config.
func WithAdvisor(a remediation.Advisor) Option {
	return func(c *engineConfig) {
		c.advisor = a
	}
}

// WithLLMClient sets the completion backend used when remediation is enabled.
// It takes the place of the OpenAI-compatible client built from config.
func WithLLMClient(client llm.Client) Option {
	return func(c *engineConfig) {
		c.llmClient = client
	}
}

// WithTokenTracker records backend token usage.
func WithTokenTracker(t llm.TokenTracker) Option {
	return func(c *engineConfig) {
		c.tracker = t
	}
}

// WithRegistry sets the progress channel registry.
func WithRegistry(r *progress.Registry) Option {
	return func(c *engineConfig) {
		c.registry = r
	}
}

// WithNotifier sets where scan progress is published. Default: the engine's
// registry. Use a *progress.Relay to fan progress out across replicas.
func WithNotifier(n progress.Notifier) Option {
	return func(c *engineConfig) {
		c.notifier = n
	}
}
