package middleware

import (
	"net/http"

	"pickup-dispatch/dispatch/internal/auth"
	"pickup-dispatch/dispatch/internal/constants"
)

// IsManagerMiddleware lets only manager workspaces through.
func IsManagerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws := auth.GetWorkspace(r.Context())
		if ws != nil && ws.User.IsManager() {
			next.ServeHTTP(w, r)
			return
		}
		writeJSONError(w, r, http.StatusForbidden, constants.MsgManagerOnly)
	})
}
