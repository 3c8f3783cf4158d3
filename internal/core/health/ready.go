package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is a dependency the service needs before it can serve, e.g. the store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Readiness pings every named dependency within timeout and answers 503 if any fails.
func Readiness(deps map[string]Pinger, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks,omitempty"`
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		out := resp{Status: "ready", Checks: make(map[string]string, len(deps))}
		for name, p := range deps {
			if err := p.Ping(ctx); err != nil {
				out.Status = "not_ready"
				out.Checks[name] = err.Error()
				continue
			}
			out.Checks[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		if out.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
