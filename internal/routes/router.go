package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pickup-dispatch/dispatch/dashboard/ui"
	"pickup-dispatch/dispatch/internal/api"
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/middleware"
)

// RegisterRoutes builds the chi router serving the dashboard, the JSON API and /healthCheck
func RegisterRoutes(deps *api.Dependencies, upSince time.Time) (http.Handler, error) {
	cfg := deps.Config

	// initialize Chi router
	r := chi.NewRouter()

	// global middleware
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(middleware.MetricsMiddleware(deps.Metrics))
	if cfg.Server.RateLimitRPS > 0 {
		r.Use(middleware.NewIPRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst).Middleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Api-Key", "X-Request-ID", "HX-Request", "HX-Target", "HX-Current-URL"},
		ExposedHeaders:   []string{"X-Request-ID", "HX-Redirect"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	logging.Info("Router initialized with metrics and logging middleware")
	// health check
	r.Get("/healthCheck", api.HealthCheckHandler(deps.HealthChecks(), upSince))

	authenticator := &middleware.SessionAuthenticator{
		Sessions:  deps.Services.Sessions,
		Signer:    deps.Services.Signer,
		Dashboard: deps.Services.Dashboard,
	}

	uiHandler, err := ui.NewUIHandler(authenticator)
	if err != nil {
		return nil, err
	}

	RegisterUIRoutes(r, uiHandler, authenticator)
	RegisterAPIRoutes(r, api.NewHandlers(deps.Services.Dashboard), authenticator)

	return r, nil
}
