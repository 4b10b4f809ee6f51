package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pickup-dispatch/dispatch/internal/aggregator"
	"pickup-dispatch/dispatch/internal/common"
	"pickup-dispatch/dispatch/internal/constants"
	"pickup-dispatch/dispatch/internal/geo"
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/metrics"
	"pickup-dispatch/dispatch/internal/models/entities"
	"pickup-dispatch/dispatch/internal/providers"
)

var (
	ErrInvalidKey         = errors.New(constants.MsgInvalidKey)
	ErrBackendUnreachable = errors.New(constants.MsgBackendUnreachable)
	ErrNotAPickupPoint    = errors.New(constants.MsgNotAPickupPoint)
	ErrMissingPickupID    = errors.New(constants.MsgMissingPickupID)
	ErrManagerOnly        = errors.New(constants.MsgManagerOnly)
)

// ActionLogger records every command sent to the backend.
type ActionLogger interface {
	Insert(ctx context.Context, entry *entities.ActionLog) error
	Recent(ctx context.Context, limit int) ([]entities.ActionLog, error)
	ByUser(ctx context.Context, userID string, limit int) ([]entities.ActionLog, error)
}

// Workspace is everything one signed-in user works with: a client built
// once from their credential, their board and their identity.
type Workspace struct {
	ID     string
	User   entities.User
	Client providers.DispatchAPI
	Board  *aggregator.Board
}

// View derives the board for the workspace user's role.
func (ws *Workspace) View() aggregator.View {
	return ws.Board.View(aggregator.FilterFor(&ws.User))
}

// CommandResult is what a command produced plus the view after the reload it triggered.
type CommandResult struct {
	Action   constants.ActionType `json:"action"`
	TargetID string               `json:"target_id"`
	OK       bool                 `json:"ok"`
	Routing  json.RawMessage      `json:"routing,omitempty"`
	Reloaded uint64               `json:"generation,omitempty"`
}

type DashboardOptions struct {
	WorkspaceTTL time.Duration
	Board        aggregator.Options
	Depot        geo.Depot
}

// DashboardService owns workspaces and runs commands against them.
type DashboardService struct {
	parent     context.Context
	workspaces *common.CacheService
	factory    ClientFactory
	actions    ActionLogger
	metrics    *metrics.MetricsRegistry
	opts       DashboardOptions
}

// NewDashboardService creates the service. Boards run on contexts derived from parent.
func NewDashboardService(parent context.Context, factory ClientFactory, actions ActionLogger, m *metrics.MetricsRegistry, opts DashboardOptions) *DashboardService {
	if opts.WorkspaceTTL <= 0 {
		opts.WorkspaceTTL = 24 * time.Hour
	}
	opts.Board.Metrics = m

	svc := &DashboardService{
		parent:     parent,
		workspaces: common.NewCacheService(opts.WorkspaceTTL, 10*time.Minute),
		factory:    factory,
		actions:    actions,
		metrics:    m,
		opts:       opts,
	}
	svc.workspaces.OnEvicted(func(key string, value interface{}) {
		if ws, ok := value.(*Workspace); ok {
			ws.Board.Close()
			logging.Debug("Workspace closed", "workspace", key, "user_id", ws.User.ID)
		}
		m.SetSessions(svc.workspaces.Count())
	})
	return svc
}

// Authenticate resolves apiKey to its user. A rejected key is ErrInvalidKey;
// any other failure is ErrBackendUnreachable.
func (s *DashboardService) Authenticate(ctx context.Context, apiKey string) (*entities.User, error) {
	user, err := s.factory(apiKey).Me(ctx)
	if err != nil {
		logging.Warn("Credential check failed", "kind", providers.KindOf(err), "status", providers.StatusOf(err))
		if providers.IsRejection(err) {
			return nil, ErrInvalidKey
		}
		return nil, ErrBackendUnreachable
	}
	if user == nil || user.ID == "" {
		logging.Warn("Credential check returned no identity")
		return nil, ErrBackendUnreachable
	}
	return user, nil
}

// Workspace returns the workspace of a session, creating it on first use.
func (s *DashboardService) Workspace(session *common.SessionData) (*Workspace, error) {
	key := string(constants.CachePrefixWorkspace) + session.SessionID
	val, err := s.workspaces.GetOrSet(key, s.opts.WorkspaceTTL, func() (any, error) {
		return s.newWorkspace(key, session.APIKey, session.User), nil
	})
	if err != nil {
		return nil, err
	}
	ws := val.(*Workspace)
	ws.Board.EnsureLoaded()
	return ws, nil
}

// WorkspaceForKey serves callers that present the credential directly.
func (s *DashboardService) WorkspaceForKey(ctx context.Context, apiKey string) (*Workspace, error) {
	sum := sha256.Sum256([]byte(apiKey))
	key := string(constants.CachePrefixWorkspace) + "key_" + hex.EncodeToString(sum[:])
	val, err := s.workspaces.GetOrSet(key, s.opts.WorkspaceTTL, func() (any, error) {
		user, err := s.Authenticate(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		return s.newWorkspace(key, apiKey, *user), nil
	})
	if err != nil {
		return nil, err
	}
	ws := val.(*Workspace)
	ws.Board.EnsureLoaded()
	return ws, nil
}

// CloseWorkspace drops a session's workspace and stops its board.
func (s *DashboardService) CloseWorkspace(sessionID string) {
	s.workspaces.Delete(string(constants.CachePrefixWorkspace) + sessionID)
}

// Close stops every board.
func (s *DashboardService) Close() error {
	return s.workspaces.Close()
}

func (s *DashboardService) newWorkspace(id, apiKey string, user entities.User) *Workspace {
	client := s.factory(apiKey)
	ws := &Workspace{
		ID:     id,
		User:   user,
		Client: client,
		Board:  aggregator.NewBoard(s.parent, client, s.opts.Board),
	}
	s.metrics.SetSessions(s.workspaces.Count() + 1)
	logging.Info("Workspace created", "user_id", user.ID, "role", user.UserType.String())
	return ws
}

// Reload starts a fresh board cycle.
func (s *DashboardService) Reload(ws *Workspace, trigger string) uint64 {
	return ws.Board.Reload(trigger)
}

// Markers pins the pickup points behind the user's visible alerts. Until the
// board is ready only the depot is returned.
func (s *DashboardService) Markers(ws *Workspace) []geo.Marker {
	view := ws.View()
	points := make([]*entities.PickupPoint, 0, len(view.Alerts))
	for _, a := range view.Alerts {
		points = append(points, a.PickupPoint)
	}
	return geo.BuildMarkers(points, s.opts.Depot)
}

// ============================================================================
// Commands
// ============================================================================

func (s *DashboardService) Accept(ctx context.Context, ws *Workspace, requestID string) (*CommandResult, error) {
	return s.runBool(ctx, ws, constants.ActionAccept, requestID, ws.Client.AcceptRequest)
}

func (s *DashboardService) Deny(ctx context.Context, ws *Workspace, requestID string) (*CommandResult, error) {
	return s.runBool(ctx, ws, constants.ActionDeny, requestID, ws.Client.DenyRequest)
}

func (s *DashboardService) Delete(ctx context.Context, ws *Workspace, requestID string) (*CommandResult, error) {
	if !ws.User.IsManager() {
		return nil, ErrManagerOnly
	}
	return s.runBool(ctx, ws, constants.ActionDelete, requestID, ws.Client.DeleteRequest)
}

// Create checks that pickupPointID names a real pickup point before creating
// a request for it.
func (s *DashboardService) Create(ctx context.Context, ws *Workspace, pickupPointID string) (*CommandResult, error) {
	if !ws.User.IsManager() {
		return nil, ErrManagerOnly
	}
	pickupPointID = strings.TrimSpace(pickupPointID)
	if pickupPointID == "" {
		return nil, ErrMissingPickupID
	}

	pt, err := ws.Client.GetPickupPoint(ctx, pickupPointID)
	if pt == nil {
		s.record(ctx, ws, constants.ActionCreate, pickupPointID, "not_found", errOrDefault(err, ErrNotAPickupPoint))
		return nil, ErrNotAPickupPoint
	}

	return s.runBool(ctx, ws, constants.ActionCreate, pickupPointID, func(ctx context.Context, id string) (bool, error) {
		return ws.Client.CreateRequest(ctx, entities.PickupRequest{PickupPointID: id})
	})
}

// Route triggers execute-routing for a request and returns the backend's answer.
func (s *DashboardService) Route(ctx context.Context, ws *Workspace, requestID string) (*CommandResult, error) {
	if !ws.User.IsManager() {
		return nil, ErrManagerOnly
	}
	routing, err := ws.Client.ExecuteRouting(ctx, requestID)
	res := &CommandResult{
		Action:   constants.ActionRoute,
		TargetID: requestID,
		OK:       err == nil,
		Routing:  routing,
	}
	s.record(ctx, ws, constants.ActionRoute, requestID, providers.Outcome(err), err)
	res.Reloaded = ws.Board.Reload(string(constants.ActionRoute))
	return res, err
}

// ReportLocation does not touch pickup requests, so the board is left alone.
func (s *DashboardService) ReportLocation(ctx context.Context, ws *Workspace, location string) (*CommandResult, error) {
	ok, err := ws.Client.ReportLocation(ctx, location)
	s.record(ctx, ws, constants.ActionLocation, location, outcome(ok, err), err)
	return &CommandResult{
		Action:   constants.ActionLocation,
		TargetID: location,
		OK:       ok,
	}, err
}

// RecentActions lists the newest action log entries for managers.
func (s *DashboardService) RecentActions(ctx context.Context, ws *Workspace, limit int) ([]entities.ActionLog, error) {
	if !ws.User.IsManager() {
		return nil, ErrManagerOnly
	}
	return s.actions.Recent(ctx, actionLimit(limit))
}

// UserActions lists the workspace user's own commands, newest first.
func (s *DashboardService) UserActions(ctx context.Context, ws *Workspace, limit int) ([]entities.ActionLog, error) {
	return s.actions.ByUser(ctx, ws.User.ID, actionLimit(limit))
}

func actionLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}

// runBool sends one command, records it, then reloads the board whatever the outcome.
func (s *DashboardService) runBool(ctx context.Context, ws *Workspace, action constants.ActionType, target string, call func(context.Context, string) (bool, error)) (*CommandResult, error) {
	ok, err := call(ctx, target)
	s.record(ctx, ws, action, target, outcome(ok, err), err)

	res := &CommandResult{Action: action, TargetID: target, OK: ok}
	res.Reloaded = ws.Board.Reload(string(action))
	return res, err
}

func (s *DashboardService) record(ctx context.Context, ws *Workspace, action constants.ActionType, target, result string, err error) {
	s.metrics.ObserveCommand(string(action), result)

	entry := &entities.ActionLog{
		UserID:   ws.User.ID,
		Action:   string(action),
		TargetID: target,
		Outcome:  result,
	}
	if err != nil {
		entry.Detail = err.Error()
		logging.Warn("Command failed",
			"action", action,
			"target_id", target,
			"user_id", ws.User.ID,
			"outcome", result,
			"error", err.Error(),
		)
	} else {
		logging.Info("Command sent", "action", action, "target_id", target, "user_id", ws.User.ID, "outcome", result)
	}

	if s.actions == nil {
		return
	}
	if lerr := s.actions.Insert(ctx, entry); lerr != nil {
		logging.Error("Failed to write action log", "action", action, "error", lerr.Error())
	}
}

// outcome labels a boolean command. A 2xx "false" is its own outcome.
func outcome(ok bool, err error) string {
	if err != nil {
		return providers.Outcome(err)
	}
	if !ok {
		return "declined"
	}
	return "ok"
}

func errOrDefault(err, def error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", def, err)
	}
	return def
}
