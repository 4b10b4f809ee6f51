package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pickup-dispatch/dispatch/dashboard/ui"
	"pickup-dispatch/dispatch/internal/middleware"
)

// RegisterUIRoutes registers all UI-related routes
func RegisterUIRoutes(r chi.Router, h *ui.UIHandler, authenticator *middleware.SessionAuthenticator) {
	// Default route - redirect to the dashboard, which falls back to /auth
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
	})

	// Auth routes (public)
	r.Get("/auth", h.AuthPageHandler)
	r.Post("/auth", h.LoginHandler)
	r.Post("/auth/logout", h.LogoutHandler)

	// Dashboard routes (require a session)
	r.Route("/dashboard", func(dashboard chi.Router) {
		dashboard.Use(authenticator.RequireSession)

		dashboard.Get("/", h.RoleRedirectHandler)
		dashboard.Get("/volunteer", h.VolunteerPageHandler)
		dashboard.Get("/manager", h.ManagerPageHandler)

		// HTMX endpoints
		dashboard.Get("/board", h.BoardPartialHandler)
		dashboard.Post("/reload", h.ReloadHandler)
		dashboard.Get("/markers", h.MarkersHandler)
		dashboard.Post("/requests/{id}/accept", h.AcceptHandler)
		dashboard.Post("/requests/{id}/deny", h.DenyHandler)

		dashboard.Post("/requests", h.CreateHandler)
		dashboard.Post("/requests/{id}/delete", h.DeleteHandler)
		dashboard.Post("/requests/{id}/route", h.RouteHandler)
	})
}
