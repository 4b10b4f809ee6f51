package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"pickup-dispatch/dispatch/internal/auth"
	"pickup-dispatch/dispatch/internal/common"
	"pickup-dispatch/dispatch/internal/constants"
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/models/dtos/responses"
	"pickup-dispatch/dispatch/internal/services"
)

// sessionRefreshWindow is how close to expiry a session gets before it is extended.
const sessionRefreshWindow = 24 * time.Hour

// SessionAuthenticator resolves the caller's workspace from the signed
// session cookie or, for API clients, the X-Api-Key header.
type SessionAuthenticator struct {
	Sessions  common.SessionStore
	Signer    *common.SessionSigner
	Dashboard *services.DashboardService
}

// Session reads and verifies the session cookie.
func (a *SessionAuthenticator) Session(r *http.Request) (*common.SessionData, error) {
	cookie, err := r.Cookie(constants.SessionCookieName)
	if err != nil {
		return nil, common.ErrSessionNotFound
	}
	sessionID, err := a.Signer.Verify(cookie.Value)
	if err != nil {
		return nil, err
	}
	return a.Sessions.GetSession(r.Context(), sessionID)
}

// RequireSession guards dashboard pages. Unauthenticated browsers go to /auth.
func (a *SessionAuthenticator) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.Session(r)
		if err != nil {
			logging.Debug("Dashboard request without a valid session", "path", r.URL.Path, "error", err.Error())
			ClearSessionCookie(w)
			redirectToAuth(w, r, "")
			return
		}

		ws, err := a.Dashboard.Workspace(session)
		if err != nil {
			logging.Error("Failed to open workspace", "session_id", session.SessionID, "error", err.Error())
			redirectToAuth(w, r, constants.MsgBackendUnreachable)
			return
		}

		a.refresh(w, r, session)
		logging.WithRequest(auth.GetRequestID(r.Context()), session.SessionID, ws.User.ID, r.URL.Path).
			Debugw("Session authenticated")
		next.ServeHTTP(w, r.WithContext(auth.SetWorkspace(r.Context(), ws)))
	})
}

// RequireAPIAuth guards JSON endpoints. The header wins over the cookie.
func (a *SessionAuthenticator) RequireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if apiKey := r.Header.Get(constants.APIKeyHeader); apiKey != "" {
			ws, err := a.Dashboard.WorkspaceForKey(ctx, apiKey)
			switch {
			case errors.Is(err, services.ErrInvalidKey):
				writeJSONError(w, r, http.StatusUnauthorized, err.Error())
				return
			case err != nil:
				writeJSONError(w, r, http.StatusBadGateway, constants.MsgBackendUnreachable)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.SetWorkspace(ctx, ws)))
			return
		}

		session, err := a.Session(r)
		if err != nil {
			writeJSONError(w, r, http.StatusUnauthorized, "Unauthorized. Missing API key or session")
			return
		}
		ws, err := a.Dashboard.Workspace(session)
		if err != nil {
			writeJSONError(w, r, http.StatusBadGateway, constants.MsgBackendUnreachable)
			return
		}
		a.refresh(w, r, session)
		next.ServeHTTP(w, r.WithContext(auth.SetWorkspace(ctx, ws)))
	})
}

// refresh slides a session that is close to expiry and reissues its cookie.
func (a *SessionAuthenticator) refresh(w http.ResponseWriter, r *http.Request, session *common.SessionData) {
	if time.Until(session.ExpiresAt) > sessionRefreshWindow {
		return
	}
	refreshed, err := a.Sessions.RefreshSession(r.Context(), session.SessionID)
	if err != nil {
		logging.Warn("Failed to refresh session", "session_id", session.SessionID, "error", err.Error())
		return
	}
	token, err := a.Signer.Sign(refreshed.SessionID, refreshed.ExpiresAt)
	if err != nil {
		logging.Warn("Failed to sign refreshed session", "session_id", session.SessionID, "error", err.Error())
		return
	}
	SetSessionCookie(w, r, token, refreshed.ExpiresAt)
}

// SetSessionCookie writes the signed session token.
func SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   scheme == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// redirectToAuth uses HX-Redirect for HTMX requests so the whole page navigates.
func redirectToAuth(w http.ResponseWriter, r *http.Request, message string) {
	target := "/auth"
	if message != "" {
		target += "?" + url.Values{"error": {message}}.Encode()
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func writeJSONError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(responses.NewError(auth.GetRequestID(r.Context()), message))
}
