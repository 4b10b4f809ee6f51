package api

import (
	"encoding/json"
	"net/http"

	"pickup-dispatch/dispatch/internal/auth"
	"pickup-dispatch/dispatch/internal/models/dtos/responses"
)

func respondWithSuccess[T any](w http.ResponseWriter, r *http.Request, statusCode int, data *T) {
	writeJSON(w, statusCode, responses.NewSuccess(auth.GetRequestID(r.Context()), data))
}

func respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	writeJSON(w, statusCode, responses.NewError(auth.GetRequestID(r.Context()), message))
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
