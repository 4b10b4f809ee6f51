package ui

import (
	"net/http"
	"net/url"
	"strings"

	"pickup-dispatch/dispatch/internal/constants"
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/middleware"
)

// AuthPageHandler shows the API key form. A visitor with a live session goes
// straight to the dashboard.
func (h *UIHandler) AuthPageHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.Session(r); err == nil {
		http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
		return
	}

	h.RenderTemplate(w, "auth.html", map[string]interface{}{
		"PageTitle": "Sign in",
		"Error":     r.URL.Query().Get("error"),
	})
}

// LoginHandler validates the submitted key against the backend and opens a session
func (h *UIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		authError(w, r, constants.MsgInvalidKey)
		return
	}

	apiKey := strings.TrimSpace(r.FormValue("apiKey"))
	if apiKey == "" {
		authError(w, r, constants.MsgInvalidKey)
		return
	}

	user, err := h.dashboard.Authenticate(r.Context(), apiKey)
	if err != nil {
		authError(w, r, err.Error())
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), apiKey, *user)
	if err != nil {
		logging.Error("Failed to create session", "user_id", user.ID, "error", err.Error())
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	token, err := h.signer.Sign(session.SessionID, session.ExpiresAt)
	if err != nil {
		logging.Error("Failed to sign session", "user_id", user.ID, "error", err.Error())
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	middleware.SetSessionCookie(w, r, token, session.ExpiresAt)
	logging.Info("Session created", "user_id", user.ID, "role", user.UserType.String())
	http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
}

// LogoutHandler deletes the session, its workspace and the cookie
func (h *UIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if session, err := h.auth.Session(r); err == nil {
		if err := h.sessions.DeleteSession(r.Context(), session.SessionID); err != nil {
			logging.Warn("Failed to delete session", "session_id", session.SessionID, "error", err.Error())
		}
		h.dashboard.CloseWorkspace(session.SessionID)
	}

	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/auth", http.StatusSeeOther)
}

func authError(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, "/auth?"+url.Values{"error": {message}}.Encode(), http.StatusSeeOther)
}
