package ui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"pickup-dispatch/dispatch/internal/auth"
	"pickup-dispatch/dispatch/internal/constants"
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/providers"
	"pickup-dispatch/dispatch/internal/services"
)

// commandWait bounds how long a command response waits for the reloaded board.
// A board still loading after that is rendered in its loading state and polled.
const commandWait = 10 * time.Second

// VolunteerPageHandler renders the volunteer's job alerts
func (h *UIHandler) VolunteerPageHandler(w http.ResponseWriter, r *http.Request) {
	ws := auth.GetWorkspace(r.Context())
	if ws.User.IsManager() {
		http.Redirect(w, r, rolePath(ws), http.StatusSeeOther)
		return
	}
	h.RenderTemplate(w, "volunteer.html", h.boardData(ws, r.URL.Query().Get("flash")))
}

// ManagerPageHandler renders active requests with their acceptance counts
func (h *UIHandler) ManagerPageHandler(w http.ResponseWriter, r *http.Request) {
	ws := auth.GetWorkspace(r.Context())
	if !ws.User.IsManager() {
		http.Redirect(w, r, rolePath(ws), http.StatusSeeOther)
		return
	}
	h.RenderTemplate(w, "manager.html", h.boardData(ws, r.URL.Query().Get("flash")))
}

// BoardPartialHandler is polled by HTMX until the board is ready
func (h *UIHandler) BoardPartialHandler(w http.ResponseWriter, r *http.Request) {
	ws := auth.GetWorkspace(r.Context())
	page, block := boardBlock(ws)
	h.RenderPartial(w, page, block, h.boardData(ws, ""))
}

// ReloadHandler starts a fresh cycle and returns the loading board
func (h *UIHandler) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	ws := auth.GetWorkspace(r.Context())
	h.dashboard.Reload(ws, "ui")
	if !isHTMX(r) {
		http.Redirect(w, r, rolePath(ws), http.StatusSeeOther)
		return
	}
	page, block := boardBlock(ws)
	h.RenderPartial(w, page, block, h.boardData(ws, ""))
}

// MarkersHandler returns the map markers of the visible alerts as JSON
func (h *UIHandler) MarkersHandler(w http.ResponseWriter, r *http.Request) {
	ws := auth.GetWorkspace(r.Context())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.dashboard.Markers(ws))
}

func (h *UIHandler) AcceptHandler(w http.ResponseWriter, r *http.Request) {
	h.requestCommand(w, r, h.dashboard.Accept)
}

func (h *UIHandler) DenyHandler(w http.ResponseWriter, r *http.Request) {
	h.requestCommand(w, r, h.dashboard.Deny)
}

func (h *UIHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	h.requestCommand(w, r, h.dashboard.Delete)
}

// RouteHandler runs execute-routing ("process") for a request
func (h *UIHandler) RouteHandler(w http.ResponseWriter, r *http.Request) {
	h.requestCommand(w, r, h.dashboard.Route)
}

// CreateHandler creates a request once the pickup point is confirmed to exist
func (h *UIHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	ws := auth.GetWorkspace(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	res, err := h.dashboard.Create(r.Context(), ws, r.FormValue("pickupPointID"))
	h.afterCommand(w, r, ws, res, err)
}

type commandFunc func(ctx context.Context, ws *services.Workspace, id string) (*services.CommandResult, error)

func (h *UIHandler) requestCommand(w http.ResponseWriter, r *http.Request, run commandFunc) {
	ws := auth.GetWorkspace(r.Context())
	res, err := run(r.Context(), ws, chi.URLParam(r, "id"))
	h.afterCommand(w, r, ws, res, err)
}

// afterCommand waits for the reload the command triggered, then renders the
// board with any failure as a flash message.
func (h *UIHandler) afterCommand(w http.ResponseWriter, r *http.Request, ws *services.Workspace, res *services.CommandResult, err error) {
	flash := ""
	switch {
	case err != nil:
		flash = commandMessage(err)
	case res != nil && !res.OK:
		flash = "The backend declined the request"
	}

	if res != nil && res.Reloaded > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), commandWait)
		defer cancel()
		if _, werr := ws.Board.WaitReady(ctx, res.Reloaded); werr != nil {
			logging.Debug("Board still loading after command", "action", res.Action, "generation", res.Reloaded)
		}
	}

	if !isHTMX(r) {
		target := rolePath(ws)
		if flash != "" {
			target += "?" + url.Values{"flash": {flash}}.Encode()
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	data := h.boardData(ws, flash)
	if res != nil && len(res.Routing) > 0 {
		data["Routing"] = string(res.Routing)
	}
	page, block := boardBlock(ws)
	h.RenderPartial(w, page, block, data)
}

func (h *UIHandler) boardData(ws *services.Workspace, flash string) map[string]interface{} {
	title := "Job alerts"
	if ws.User.IsManager() {
		title = "Active requests"
	}
	return map[string]interface{}{
		"PageTitle": title,
		"User":      ws.User,
		"Role":      ws.User.UserType.String(),
		"View":      ws.View(),
		"Flash":     flash,
	}
}

// boardBlock names the page and block that render the user's board.
func boardBlock(ws *services.Workspace) (string, string) {
	if ws.User.IsManager() {
		return "manager.html", "requests"
	}
	return "volunteer.html", "alerts"
}

func commandMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrNotAPickupPoint),
		errors.Is(err, services.ErrMissingPickupID),
		errors.Is(err, services.ErrManagerOnly):
		return err.Error()
	}

	var pe *providers.ProviderError
	if errors.As(err, &pe) && pe.Code != "" {
		return constants.GetErrorMessage(pe.Code)
	}
	return constants.MsgBackendUnreachable
}
