package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
)

// Timeout bounds all dependency checks of one request.
const Timeout = 2 * time.Second

// Check probes one backing service.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Response is the payload for the health endpoint.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler returns a plain HTTP handler for the health check endpoint. Any
// failing check turns the response into 503.
func Handler(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), Timeout)
		defer cancel()

		res := Response{Status: "healthy"}
		status := http.StatusOK
		if len(checks) > 0 {
			res.Checks = make(map[string]string, len(checks))
		}
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				applog.LogWarn(ctx, "health check failed", zap.String("check", c.Name), zap.Error(err))
				res.Checks[c.Name] = "unavailable"
				res.Status = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			res.Checks[c.Name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(res)
	}
}
