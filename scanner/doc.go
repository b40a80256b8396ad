// Package scanner implements the two textual detection passes and the
// classify operation that combines them.
//
// The heuristic pass looks for a fixed set of high-risk tokens and reports
// them as low-confidence "Heuristic Risk" findings. The rule pass applies
// every rule of a catalog.Catalog. Classify runs both and deduplicates the
// result with finding.Deduplicate.
//
// All passes are pure: they hold no mutable state and may run concurrently
// on independent inputs. Offsets are character (rune) offsets.
//
// The scanners do not enforce input size or language allowlists; callers
// validate input before classifying it.
package scanner
