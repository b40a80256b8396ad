// Package remediation turns findings into an explanation and a patched
// snippet.
//
// An Advisor is chosen once, at construction, from Settings: a Disabled
// advisor when remediation is switched off or no backend credential is
// configured, otherwise a Live advisor that asks an llm.Client for a fix.
// Either way Remediate never fails. Backend errors of any kind (timeout,
// transport, HTTP status, malformed answer, cancellation) collapse into a
// deterministic fallback Result whose Origin tells the caller what happened.
//
// RemediateAll fans a file's findings out to an Advisor concurrently and
// returns results in input order.
package remediation
