// Package pipeline orchestrates scans: classify a file, remediate its
// findings concurrently, and report progress; or do that for a batch of files
// and gate the result.
//
// Sessions are ephemeral. Nothing here stores findings; callers own the
// returned values.
package pipeline
