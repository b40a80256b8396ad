package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/zero-day-ai/devdefend/finding"
	"github.com/zero-day-ai/devdefend/gate"
	"github.com/zero-day-ai/devdefend/progress"
	"github.com/zero-day-ai/devdefend/remediation"
	"github.com/zero-day-ai/devdefend/scanner"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds concurrent remediation calls per file and
// concurrent files per batch.
const DefaultConcurrency = 4

// Runner scans files. It is safe for concurrent use.
type Runner struct {
	classifier  *scanner.Classifier
	advisor     remediation.Advisor
	notifier    progress.Notifier
	policy      *gate.Policy
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithClassifier sets the classifier. Default: scanner.NewClassifier(nil).
func WithClassifier(c *scanner.Classifier) Option {
	return func(r *Runner) {
		if c != nil {
			r.classifier = c
		}
	}
}

// WithNotifier sets where progress messages go. Default: progress.Discard.
func WithNotifier(n progress.Notifier) Option {
	return func(r *Runner) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithPolicy replaces the plain threshold rule of batch gating.
func WithPolicy(p *gate.Policy) Option {
	return func(r *Runner) {
		r.policy = p
	}
}

// WithConcurrency bounds parallel work. Non-positive values are ignored.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Runner that remediates with advisor. A nil advisor selects
// remediation.Disabled.
func New(advisor remediation.Advisor, opts ...Option) *Runner {
	if advisor == nil {
		advisor = remediation.Disabled{}
	}
	r := &Runner{
		classifier:  scanner.NewClassifier(nil),
		advisor:     advisor,
		notifier:    progress.Discard,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ScanFile classifies in.Content, remediates every finding and returns the
// session. Remediation failures never fail the scan. The only error is the
// context's, checked before any work starts.
func (r *Runner) ScanFile(ctx context.Context, in FileInput) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", in.Path, err)
	}

	start := r.now()
	r.notify(ctx, in.Channel, "scanning "+in.Path)

	findings := r.classifier.Classify(in.Content, in.Language)
	r.notify(ctx, in.Channel, fmt.Sprintf("classified %s: %d findings", in.Path, len(findings)))

	results := remediation.RemediateAll(ctx, r.advisor, findings, in.Language, r.concurrency)

	records := make([]Record, len(findings))
	for i, f := range findings {
		records[i] = Record{
			ID:          uuid.NewString(),
			Finding:     f,
			Remediation: results[i],
			CreatedAt:   r.now(),
		}
	}

	session := &Session{
		ID:          uuid.NewString(),
		Project:     in.Project,
		File:        in.Path,
		Language:    in.Language,
		Records:     records,
		MaxSeverity: finding.MaxSeverity(findings),
		StartedAt:   start,
		CompletedAt: r.now(),
	}

	r.logger.DebugContext(ctx, "file scanned",
		"project", in.Project,
		"file", in.Path,
		"language", in.Language,
		"findings", len(findings),
		"max_severity", int(session.MaxSeverity),
		"duration", session.Duration(),
	)
	r.notify(ctx, in.Channel, fmt.Sprintf("completed %s: max severity %d", in.Path, session.MaxSeverity))

	return session, nil
}

// ScanBatch scans files concurrently and gates the batch at threshold.
// Sessions are returned in input order. If several files share a path their
// findings are gated together.
func (r *Runner) ScanBatch(ctx context.Context, project string, files []FileInput, threshold int, channel string) (*BatchResult, error) {
	sessions := make([]*Session, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, in := range files {
		if in.Project == "" {
			in.Project = project
		}
		if in.Channel == "" {
			in.Channel = channel
		}
		g.Go(func() error {
			s, err := r.ScanFile(gctx, in)
			if err != nil {
				return err
			}
			sessions[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan batch %s: %w", project, err)
	}

	perFile := make(map[string][]finding.Finding, len(sessions))
	for _, s := range sessions {
		perFile[s.File] = append(perFile[s.File], s.Findings()...)
	}

	res, err := gate.EvaluatePolicy(perFile, threshold, r.policy)
	if err != nil {
		return nil, fmt.Errorf("gate batch %s: %w", project, err)
	}

	verdict := "passed"
	if res.Failed {
		verdict = "failed"
	}
	r.logger.InfoContext(ctx, "batch scanned",
		"project", project,
		"files", len(files),
		"findings", res.TotalCount,
		"threshold", threshold,
		"failed", res.Failed,
	)
	r.notify(ctx, channel, fmt.Sprintf("gate %s: %d findings across %d files", verdict, res.TotalCount, len(res.Files)))

	return &BatchResult{
		Project:  project,
		Sessions: sessions,
		Gate:     res,
		Stats:    Summarize(sessions),
	}, nil
}

func (r *Runner) notify(ctx context.Context, channel, message string) {
	if channel == "" {
		return
	}
	r.notifier.Notify(ctx, channel, message)
}
