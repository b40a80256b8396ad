package remediation

import (
	"context"

	"github.com/zero-day-ai/devdefend/finding"
	"golang.org/x/sync/errgroup"
)

// RemediateAll remediates findings concurrently, at most limit at a time
// (limit <= 0 means unbounded). Results are returned in input order.
//
// Cancelling ctx turns calls that have not completed into error fallbacks;
// results already produced are unaffected.
func RemediateAll(ctx context.Context, a Advisor, findings []finding.Finding, language string, limit int) []Result {
	results := make([]Result, len(findings))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, f := range findings {
		g.Go(func() error {
			results[i] = a.Remediate(ctx, f, language)
			return nil
		})
	}

	_ = g.Wait()
	return results
}
