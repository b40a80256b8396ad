package devdefend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zero-day-ai/devdefend/catalog"
	"github.com/zero-day-ai/devdefend/config"
	"github.com/zero-day-ai/devdefend/finding"
	"github.com/zero-day-ai/devdefend/gate"
	"github.com/zero-day-ai/devdefend/health"
	"github.com/zero-day-ai/devdefend/llm"
	"github.com/zero-day-ai/devdefend/pipeline"
	"github.com/zero-day-ai/devdefend/progress"
	"github.com/zero-day-ai/devdefend/remediation"
	"github.com/zero-day-ai/devdefend/scanner"
)

// Engine wires detection, remediation, gating and progress together.
// It is safe for concurrent use.
type Engine struct {
	cfg        *config.Config
	logger     *slog.Logger
	classifier *scanner.Classifier
	advisor    remediation.Advisor
	registry   *progress.Registry
	runner     *pipeline.Runner
	policy     *gate.Policy
	tracker    llm.TokenTracker
	checker    *health.Checker
}

// New creates an Engine.
//
// Configuration problems (an invalid config, an unreadable catalog, a gate
// policy that does not compile) are reported as KindConfiguration errors
// wrapping ErrInvalidConfig.
func New(opts ...Option) (*Engine, error) {
	ec := &engineConfig{}
	for _, opt := range opts {
		opt(ec)
	}

	if ec.config == nil {
		ec.config = &config.Config{}
	}
	if ec.logger == nil {
		ec.logger = slog.Default()
	}
	if ec.tracker == nil {
		ec.tracker = llm.NewUsageTracker()
	}
	if ec.registry == nil {
		ec.registry = progress.NewRegistry(progress.WithRegistryLogger(ec.logger))
	}
	if ec.notifier == nil {
		ec.notifier = ec.registry
	}

	configErr := func(err error) error {
		return NewConfigurationError("devdefend.New", fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}

	if err := ec.config.Validate(); err != nil {
		return nil, configErr(err)
	}

	cat := ec.catalog
	if cat == nil && ec.config.CatalogPath != "" {
		loaded, err := catalog.Load(ec.config.CatalogPath)
		if err != nil {
			return nil, configErr(err)
		}
		cat = loaded
	}
	classifier := scanner.NewClassifier(cat)

	var policy *gate.Policy
	if ec.config.GatePolicy != "" {
		p, err := gate.CompilePolicy(ec.config.GatePolicy)
		if err != nil {
			return nil, configErr(err)
		}
		policy = p
	}

	advisor := ec.advisor
	if advisor == nil {
		ropts := []remediation.Option{
			remediation.WithLogger(ec.logger),
			remediation.WithTracer(ec.tracer),
			remediation.WithMeterProvider(ec.meterProvider),
			remediation.WithTokenTracker(ec.tracker),
		}
		if ec.llmClient != nil {
			ropts = append(ropts, remediation.WithClient(ec.llmClient))
		}
		a, err := remediation.New(ec.config.RemediationSettings(), ropts...)
		if err != nil {
			return nil, NewInternalError("devdefend.New", err)
		}
		advisor = a
	}

	runner := pipeline.New(advisor,
		pipeline.WithClassifier(classifier),
		pipeline.WithNotifier(ec.notifier),
		pipeline.WithPolicy(policy),
		pipeline.WithConcurrency(ec.config.GetConcurrency()),
		pipeline.WithLogger(ec.logger),
	)

	checker := health.NewChecker()
	checker.Register("catalog", func(context.Context) health.Status {
		return health.CatalogCheck(classifier.Catalog())
	})
	checker.Register("remediation", func(context.Context) health.Status {
		return health.AdvisorCheck(advisor)
	})

	ec.logger.Info("devdefend engine ready",
		"catalog_version", classifier.Catalog().Version(),
		"rules", classifier.Catalog().Len(),
		"remediation", fmt.Sprintf("%T", advisor),
		"fail_on_severity", ec.config.GetFailOnSeverity(),
	)

	return &Engine{
		cfg:        ec.config,
		logger:     ec.logger,
		classifier: classifier,
		advisor:    advisor,
		registry:   ec.registry,
		runner:     runner,
		policy:     policy,
		tracker:    ec.tracker,
		checker:    checker,
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Catalog returns the pattern catalog in use.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.classifier.Catalog()
}

// Registry returns the progress channel registry, for mounting transports
// such as progress.Handler.
func (e *Engine) Registry() *progress.Registry {
	return e.registry
}

// Classify returns the distinct findings for text.
func (e *Engine) Classify(text, language string) []finding.Finding {
	return e.classifier.Classify(text, language)
}

// Remediate returns a remediation suggestion for f. It never fails.
func (e *Engine) Remediate(ctx context.Context, f finding.Finding, language string) remediation.Result {
	return e.advisor.Remediate(ctx, f, language)
}

// Gate evaluates perFile against threshold with the plain threshold rule.
func (e *Engine) Gate(perFile map[string][]finding.Finding, threshold int) gate.Result {
	return gate.Evaluate(perFile, threshold)
}

// OpenChannel registers ep for channelID and acknowledges it.
func (e *Engine) OpenChannel(channelID string, ep progress.Endpoint) error {
	return e.registry.Open(channelID, ep)
}

// Push delivers message to channelID's subscriber, if any.
func (e *Engine) Push(channelID, message string) bool {
	return e.registry.Push(channelID, message)
}

// CloseChannel deregisters and closes channelID's subscriber.
func (e *Engine) CloseChannel(channelID string) {
	e.registry.Close(channelID)
}

// ValidateInput applies the caller-side size limit and language allowlist.
func (e *Engine) ValidateInput(in pipeline.FileInput) error {
	if limit := e.cfg.GetMaxInputSizeBytes(); len(in.Content) > limit {
		return NewValidationError("Engine.ValidateInput", ErrInputTooLarge).WithContext(map[string]any{
			"file":  in.Path,
			"size":  len(in.Content),
			"limit": limit,
		})
	}
	if !e.cfg.LanguageAllowed(in.Language) {
		return NewValidationError("Engine.ValidateInput", ErrLanguageNotAllowed).WithContext(map[string]any{
			"file":     in.Path,
			"language": in.Language,
		})
	}
	return nil
}

// ScanFile validates in, then classifies and remediates it.
func (e *Engine) ScanFile(ctx context.Context, in pipeline.FileInput) (*pipeline.Session, error) {
	in.Language = strings.ToLower(in.Language)
	if err := e.ValidateInput(in); err != nil {
		return nil, err
	}
	return e.runner.ScanFile(ctx, in)
}

// ScanBatch validates every file, scans them and gates the batch at
// threshold. A non-positive threshold selects the configured fail_on_severity.
func (e *Engine) ScanBatch(ctx context.Context, project string, files []pipeline.FileInput, threshold int, channel string) (*pipeline.BatchResult, error) {
	if len(files) == 0 {
		return nil, NewValidationError("Engine.ScanBatch", ErrEmptyBatch)
	}

	normalized := make([]pipeline.FileInput, len(files))
	for i, in := range files {
		in.Language = strings.ToLower(in.Language)
		if err := e.ValidateInput(in); err != nil {
			return nil, err
		}
		normalized[i] = in
	}

	if threshold <= 0 {
		threshold = e.cfg.GetFailOnSeverity()
	}
	return e.runner.ScanBatch(ctx, project, normalized, threshold, channel)
}

// RegisterHealthCheck adds a named dependency check to Health.
func (e *Engine) RegisterHealthCheck(name string, fn health.CheckFunc) {
	e.checker.Register(name, fn)
}

// Health runs every registered health check.
func (e *Engine) Health(ctx context.Context) health.Report {
	return e.checker.Run(ctx)
}

// TokenUsage returns the backend token usage accumulated so far.
func (e *Engine) TokenUsage() llm.TokenUsage {
	return e.tracker.Total()
}
