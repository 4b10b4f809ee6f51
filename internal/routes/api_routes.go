package routes

import (
	"github.com/go-chi/chi/v5"

	"pickup-dispatch/dispatch/internal/api"
	"pickup-dispatch/dispatch/internal/middleware"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, handlers *api.Handlers, authenticator *middleware.SessionAuthenticator) {
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(authenticator.RequireAPIAuth) // X-Api-Key header or session cookie

		v1.Get("/board", handlers.GetBoard())
		v1.Post("/board/reload", handlers.ReloadBoard())
		v1.Post("/location", handlers.ReportLocation())

		v1.Post("/requests/{id}/accept", handlers.Accept())
		v1.Post("/requests/{id}/deny", handlers.Deny())
		v1.Get("/actions/mine", handlers.UserActions())

		// Manager-only group
		v1.Group(func(manager chi.Router) {
			manager.Use(middleware.IsManagerMiddleware)

			manager.Post("/requests", handlers.Create())
			manager.Delete("/requests/{id}", handlers.Delete())
			manager.Post("/requests/{id}/route", handlers.Route())
			manager.Get("/actions", handlers.RecentActions())
		})
	})
}
