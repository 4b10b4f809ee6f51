package ui

import (
	"html/template"
	"net/http"

	"pickup-dispatch/dispatch/internal/auth"
	"pickup-dispatch/dispatch/internal/common"
	"pickup-dispatch/dispatch/internal/middleware"
	"pickup-dispatch/dispatch/internal/services"
)

// UIHandler serves the dashboard pages
type UIHandler struct {
	dashboard *services.DashboardService
	sessions  common.SessionStore
	signer    *common.SessionSigner
	auth      *middleware.SessionAuthenticator
	templates map[string]*template.Template
}

// NewUIHandler parses the embedded templates and returns the handler
func NewUIHandler(authenticator *middleware.SessionAuthenticator) (*UIHandler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &UIHandler{
		dashboard: authenticator.Dashboard,
		sessions:  authenticator.Sessions,
		signer:    authenticator.Signer,
		auth:      authenticator,
		templates: tmpl,
	}, nil
}

// RoleRedirectHandler sends /dashboard/ to the page matching the user's role
func (h *UIHandler) RoleRedirectHandler(w http.ResponseWriter, r *http.Request) {
	ws := auth.GetWorkspace(r.Context())
	if ws == nil {
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, rolePath(ws), http.StatusSeeOther)
}

func rolePath(ws *services.Workspace) string {
	if ws.User.IsManager() {
		return "/dashboard/manager"
	}
	return "/dashboard/volunteer"
}
