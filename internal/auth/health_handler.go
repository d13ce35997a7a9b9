// health_handler.go -- GET /health.
package auth

import (
	"context"
	"net/http"
	"time"
)

// healthTimeout bounds each dependency ping so a hung backend reports "error"
// instead of hanging the probe.
const healthTimeout = 2 * time.Second

// HealthChecker pings one backing service.
// Satisfied by *store.PostgresStore and *store.RedisStore.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckHealth reports per-dependency status plus the active invalidation strategy.
// Redis is load-bearing here (blacklist cache, sessions, mail queue), so either
// dependency failing turns the probe into a 503.
func (h *AuthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"strategy": string(h.Svc.Strategy())}
	status := http.StatusOK

	for name, c := range map[string]HealthChecker{"postgres": h.PS, "redis": h.RS} {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := c.CheckHealth(ctx)
		cancel()
		if err != nil {
			logError(r, "health check failed", "dependency", name, "error", err)
			body[name] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "ok"
	}
	writeJSON(w, status, body)
}
