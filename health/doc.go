// Package health reports the operational state of devdefend and its
// dependencies.
//
// A Status is healthy, degraded or unhealthy. Checks cover the Redis relay,
// the remediation advisor and its backend, and the pattern catalog. Combine
// folds several statuses into one: unhealthy beats degraded beats healthy.
// A Checker runs named checks together for the HTTP and gRPC health endpoints.
//
// Anything that only costs suggestion quality is degraded, never unhealthy:
// remediation in its disabled fallback mode or an unreachable backend still
// lets every scan complete.
package health
