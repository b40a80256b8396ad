package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/zero-day-ai/devdefend/catalog"
	"github.com/zero-day-ai/devdefend/remediation"
)

// Pinger is anything that can verify a remote connection, such as
// *progress.Relay.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisCheck verifies the Redis connection behind p.
// A nil pinger means Redis is not configured and is reported as healthy.
func RedisCheck(ctx context.Context, p Pinger) Status {
	if p == nil {
		return Healthy("redis relay not configured")
	}

	if err := p.Ping(ctx); err != nil {
		return Unhealthy("redis unreachable", map[string]any{
			"error": err.Error(),
		})
	}
	return Healthy("redis reachable")
}

// AdvisorCheck reports which remediation tier is active. The disabled
// advisor is degraded; any other advisor is healthy.
func AdvisorCheck(a remediation.Advisor) Status {
	switch v := a.(type) {
	case nil:
		return Unhealthy("no remediation advisor", nil)
	case remediation.Disabled, *remediation.Disabled:
		return Degraded("remediation disabled, serving fallback suggestions", map[string]any{
			"origin": remediation.OriginFallbackDisabled.String(),
		})
	case *remediation.Live:
		return Status{
			Status:  StatusHealthy,
			Message: "remediation backend configured",
			Details: map[string]any{"timeout": v.Timeout().String()},
		}
	default:
		return Healthy(fmt.Sprintf("remediation advisor %T", a))
	}
}

// CatalogCheck verifies that a pattern catalog is loaded and not empty.
func CatalogCheck(c *catalog.Catalog) Status {
	if c == nil || c.Len() == 0 {
		return Unhealthy("pattern catalog is empty", nil)
	}
	return Status{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("catalog %s loaded with %d rules", c.Version(), c.Len()),
		Details: map[string]any{"version": c.Version(), "rules": c.Len()},
	}
}

// DefaultBackendURL is the completion endpoint probed when none is configured.
const DefaultBackendURL = "https://api.openai.com/v1"

// BackendCheck dials the host behind a completion endpoint URL. An
// unreachable backend only degrades the service: remediation falls back.
func BackendCheck(ctx context.Context, baseURL string) Status {
	if baseURL == "" {
		baseURL = DefaultBackendURL
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return Unhealthy("invalid backend URL", map[string]any{"url": baseURL})
	}

	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	address := net.JoinHostPort(u.Hostname(), port)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Degraded(fmt.Sprintf("remediation backend %s unreachable", address), map[string]any{
			"address": address,
			"error":   err.Error(),
		})
	}
	conn.Close()

	return Healthy(fmt.Sprintf("remediation backend %s reachable", address))
}

// Combine folds statuses into one: any unhealthy status makes the result
// unhealthy, otherwise any degraded status makes it degraded. The messages
// of non-healthy statuses are listed in Details["problems"].
func Combine(checks ...Status) Status {
	var unhealthy, degraded []string
	for _, c := range checks {
		switch c.Status {
		case StatusUnhealthy:
			unhealthy = append(unhealthy, c.Message)
		case StatusDegraded:
			degraded = append(degraded, c.Message)
		}
	}

	switch {
	case len(unhealthy) > 0:
		return Unhealthy(fmt.Sprintf("%d of %d checks failed", len(unhealthy), len(checks)),
			map[string]any{"problems": append(unhealthy, degraded...)})
	case len(degraded) > 0:
		return Degraded(fmt.Sprintf("%d of %d checks degraded", len(degraded), len(checks)),
			map[string]any{"problems": degraded})
	default:
		return Healthy(fmt.Sprintf("%d checks passed", len(checks)))
	}
}
