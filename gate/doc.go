// Package gate turns per-file findings into a pass/fail pipeline decision.
//
// Evaluate applies the plain rule: the batch fails when any file's highest
// severity reaches the threshold. Policies written in CEL can replace that
// rule; see CompilePolicy.
package gate
