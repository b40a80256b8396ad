// Package devdefend detects insecure code patterns, suggests remediations and
// gates CI pipelines on finding severity.
//
// # Core Concepts
//
//   - Findings: a located insecure pattern with a CVSS-style severity (1..5)
//   - Catalog: the versioned set of detection rules applied to every file
//   - Advisor: turns a finding into an explanation and a patched snippet,
//     backed by a language model or a deterministic fallback
//   - Gate: decides whether a batch of findings fails the pipeline
//   - Progress channels: live status messages pushed to a subscribed endpoint
//
// # Getting Started
//
// Create an engine from a resolved configuration:
//
//	cfg, err := config.Resolve("devdefend.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	engine, err := devdefend.New(
//		devdefend.WithConfig(cfg),
//		devdefend.WithLogger(cfg.Logger(os.Stderr)),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := engine.ScanBatch(ctx, "payments", files, 0, "")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if result.Gate.Failed {
//		os.Exit(1)
//	}
//
// Remediation is never a source of failure: when the backend is disabled,
// misconfigured, slow or returns garbage, each finding still receives a
// clearly marked fallback suggestion.
//
// # Package Layout
//
//   - finding: the Finding model, severities, deduplication and report export
//   - catalog: detection rules and their YAML format
//   - scanner: heuristic and rule passes over a source file
//   - llm: the completion client abstraction and the OpenAI-compatible backend
//   - remediation: live and fallback advisors
//   - gate: threshold gate and CEL gate policies
//   - progress: channel registry, WebSocket transport and Redis relay
//   - pipeline: per-file sessions and batch scans
//   - config: YAML and environment configuration
//   - health: dependency checks
//   - serve: HTTP and gRPC health endpoints
package devdefend
