package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pickup-dispatch/dispatch/internal/models/entities"
)

const healthTimeout = 3 * time.Second

// Pinger is anything whose connectivity the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheckHandler handles GET /healthCheck. Dependencies are pinged in
// parallel; any failure turns the whole report down with a 503.
func HealthCheckHandler(checks map[string]Pinger, upSince time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := entities.HealthCheckResponse{
			Status:       "ok",
			Dependencies: make(map[string]entities.DependencyStatus, len(checks)),
			UpSince:      upSince,
			Uptime:       time.Since(upSince).Round(time.Second).String(),
		}

		var mu sync.Mutex
		var g errgroup.Group
		for name, check := range checks {
			name, check := name, check
			g.Go(func() error {
				start := time.Now()
				err := check.Ping(ctx)
				st := entities.DependencyStatus{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
				if err != nil {
					st.Status, st.Details = "down", err.Error()
				}

				mu.Lock()
				defer mu.Unlock()
				resp.Dependencies[name] = st
				if err != nil {
					resp.Status = "down"
				}
				return nil
			})
		}
		_ = g.Wait()

		code := http.StatusOK
		if resp.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}
