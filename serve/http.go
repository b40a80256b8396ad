package serve

import (
	"encoding/json"
	"net/http"

	"github.com/zero-day-ai/devdefend/health"
)

// handleHealth writes the health report as JSON. Unhealthy reports are served
// with 503 so load balancers can act on the status code alone.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.source.Health(r.Context())

	code := http.StatusOK
	if report.Status.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.Warn("failed to write health report", "error", err)
	}
}
