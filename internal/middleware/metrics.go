package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"pickup-dispatch/dispatch/internal/auth"
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/metrics"
)

const RequestIDHeader = "X-Request-ID"

// MetricsMiddleware counts and times every request by chi route pattern.
func MetricsMiddleware(metricsReg *metrics.MetricsRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			section := Section(r.URL.Path)
			metricsReg.HTTPRequestsInFlight.WithLabelValues(section).Inc()
			defer metricsReg.HTTPRequestsInFlight.WithLabelValues(section).Dec()

			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			pattern := routePattern(r)
			elapsed := time.Since(start)

			metricsReg.HTTPRequestsTotal.WithLabelValues(pattern, r.Method, strconv.Itoa(status)).Inc()
			metricsReg.HTTPRequestDuration.WithLabelValues(pattern, r.Method).Observe(elapsed.Seconds())

			// board polling is noisy
			log := logging.Info
			if r.Method == http.MethodGet && strings.HasSuffix(pattern, "/board") {
				log = logging.Debug
			}
			log("HTTP request completed",
				"request_id", auth.GetRequestID(r.Context()),
				"method", r.Method,
				"endpoint", pattern,
				"status_code", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
			)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unknown"
}

// Section maps a path to the top-level area it belongs to. The route pattern
// is not known before routing, so in-flight requests are labelled by area.
func Section(path string) string {
	first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	switch first {
	case "api", "dashboard", "auth", "healthCheck", "metrics":
		return first
	case "":
		return "root"
	default:
		return "other"
	}
}

// RequestIDMiddleware tags the request with the caller's X-Request-ID or a fresh one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(auth.SetRequestID(r.Context(), requestID)))
	})
}
