package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pickup-dispatch/dispatch/internal/auth"
	"pickup-dispatch/dispatch/internal/models/dtos/requests"
	"pickup-dispatch/dispatch/internal/models/dtos/responses"
	"pickup-dispatch/dispatch/internal/providers"
	"pickup-dispatch/dispatch/internal/services"
)

const maxBoardWait = 10 * time.Second

type Handlers struct {
	dashboard *services.DashboardService
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(dashboard *services.DashboardService) *Handlers {
	return &Handlers{dashboard: dashboard}
}

// GetBoard handles GET /api/v1/board. With ?wait=true it blocks until the
// current cycle is ready.
func (h *Handlers) GetBoard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws := auth.GetWorkspace(r.Context())
		if ws == nil {
			respondWithError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if r.URL.Query().Get("wait") == "true" {
			ctx, cancel := context.WithTimeout(r.Context(), maxBoardWait)
			defer cancel()
			if _, err := ws.Board.WaitReady(ctx, ws.Board.Generation()); err != nil {
				respondWithError(w, r, http.StatusGatewayTimeout, "board is still loading")
				return
			}
		}

		resp := responses.BoardResponse{
			User:    ws.User,
			Role:    ws.User.UserType.String(),
			View:    ws.View(),
			Markers: h.dashboard.Markers(ws),
		}
		respondWithSuccess(w, r, http.StatusOK, &resp)
	}
}

// ReloadBoard handles POST /api/v1/board/reload
func (h *Handlers) ReloadBoard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws := auth.GetWorkspace(r.Context())
		if ws == nil {
			respondWithError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		resp := responses.ReloadResponse{Generation: h.dashboard.Reload(ws, "api")}
		respondWithSuccess(w, r, http.StatusAccepted, &resp)
	}
}

// Accept handles POST /api/v1/requests/{id}/accept
func (h *Handlers) Accept() http.HandlerFunc {
	return h.requestCommand(h.dashboard.Accept)
}

// Deny handles POST /api/v1/requests/{id}/deny
func (h *Handlers) Deny() http.HandlerFunc {
	return h.requestCommand(h.dashboard.Deny)
}

// Delete handles DELETE /api/v1/requests/{id}
func (h *Handlers) Delete() http.HandlerFunc {
	return h.requestCommand(h.dashboard.Delete)
}

// Route handles POST /api/v1/requests/{id}/route
func (h *Handlers) Route() http.HandlerFunc {
	return h.requestCommand(h.dashboard.Route)
}

// Create handles POST /api/v1/requests
func (h *Handlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws := auth.GetWorkspace(r.Context())
		if ws == nil {
			respondWithError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var body requests.CreateRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondWithError(w, r, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		res, err := h.dashboard.Create(r.Context(), ws, body.PickupPointID)
		if err != nil {
			respondWithError(w, r, commandStatus(err), err.Error())
			return
		}
		respondWithSuccess(w, r, http.StatusCreated, res)
	}
}

// ReportLocation handles POST /api/v1/location
func (h *Handlers) ReportLocation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws := auth.GetWorkspace(r.Context())
		if ws == nil {
			respondWithError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var body requests.LocationRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondWithError(w, r, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		res, err := h.dashboard.ReportLocation(r.Context(), ws, body.Location)
		if err != nil {
			respondWithError(w, r, commandStatus(err), err.Error())
			return
		}
		respondWithSuccess(w, r, http.StatusOK, res)
	}
}

// RecentActions handles GET /api/v1/actions?limit=N
func (h *Handlers) RecentActions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws := auth.GetWorkspace(r.Context())
		if ws == nil {
			respondWithError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		logs, err := h.dashboard.RecentActions(r.Context(), ws, limit)
		if err != nil {
			respondWithError(w, r, commandStatus(err), err.Error())
			return
		}
		respondWithSuccess(w, r, http.StatusOK, &logs)
	}
}

// UserActions handles GET /api/v1/actions/mine?limit=N
func (h *Handlers) UserActions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws := auth.GetWorkspace(r.Context())
		if ws == nil {
			respondWithError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		logs, err := h.dashboard.UserActions(r.Context(), ws, limit)
		if err != nil {
			respondWithError(w, r, http.StatusInternalServerError, "Failed to load action log")
			return
		}
		respondWithSuccess(w, r, http.StatusOK, &logs)
	}
}

type requestCommandFunc func(ctx context.Context, ws *services.Workspace, requestID string) (*services.CommandResult, error)

func (h *Handlers) requestCommand(run requestCommandFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws := auth.GetWorkspace(r.Context())
		if ws == nil {
			respondWithError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		res, err := run(r.Context(), ws, chi.URLParam(r, "id"))
		if err != nil {
			respondWithError(w, r, commandStatus(err), err.Error())
			return
		}
		respondWithSuccess(w, r, http.StatusOK, res)
	}
}

// commandStatus maps a command failure to the status returned to our caller.
func commandStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrManagerOnly):
		return http.StatusForbidden
	case errors.Is(err, services.ErrMissingPickupID):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotAPickupPoint):
		return http.StatusUnprocessableEntity
	}

	switch providers.KindOf(err) {
	case providers.KindInvalidInput:
		return http.StatusBadRequest
	case providers.KindRejection:
		if s := providers.StatusOf(err); s >= 400 && s < 500 {
			return s
		}
		return http.StatusBadGateway
	case providers.KindTransport, providers.KindDecode:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

