package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"pickup-dispatch/dispatch/internal/aggregator"
	"pickup-dispatch/dispatch/internal/common"
	"pickup-dispatch/dispatch/internal/constants"
	"pickup-dispatch/dispatch/internal/geo"
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/models/entities"
	"pickup-dispatch/dispatch/internal/providers"
)

// Mock DispatchAPI. Methods without a func field panic through the nil embedded interface.
type mockDispatchAPI struct {
	providers.DispatchAPI

	meFunc       func(ctx context.Context) (*entities.User, error)
	listFunc     func(ctx context.Context) ([]entities.PickupRequest, error)
	pickupFunc   func(ctx context.Context, id string) (*entities.PickupPoint, error)
	respFunc     func(ctx context.Context, id string) ([]entities.ResponseRecord, error)
	acceptFunc   func(ctx context.Context, id string) (bool, error)
	createFunc   func(ctx context.Context, req entities.PickupRequest) (bool, error)
	routeFunc    func(ctx context.Context, id string) (json.RawMessage, error)
	locationFunc func(ctx context.Context, loc string) (bool, error)
}

func (m *mockDispatchAPI) Me(ctx context.Context) (*entities.User, error) { return m.meFunc(ctx) }
func (m *mockDispatchAPI) ListActiveRequests(ctx context.Context) ([]entities.PickupRequest, error) {
	return m.listFunc(ctx)
}
func (m *mockDispatchAPI) GetPickupPoint(ctx context.Context, id string) (*entities.PickupPoint, error) {
	return m.pickupFunc(ctx, id)
}
func (m *mockDispatchAPI) ListResponses(ctx context.Context, id string) ([]entities.ResponseRecord, error) {
	return m.respFunc(ctx, id)
}
func (m *mockDispatchAPI) AcceptRequest(ctx context.Context, id string) (bool, error) {
	return m.acceptFunc(ctx, id)
}
func (m *mockDispatchAPI) CreateRequest(ctx context.Context, req entities.PickupRequest) (bool, error) {
	return m.createFunc(ctx, req)
}
func (m *mockDispatchAPI) ExecuteRouting(ctx context.Context, id string) (json.RawMessage, error) {
	return m.routeFunc(ctx, id)
}
func (m *mockDispatchAPI) ReportLocation(ctx context.Context, loc string) (bool, error) {
	return m.locationFunc(ctx, loc)
}

// Mock action log
type memoryActionLog struct {
	mu      sync.Mutex
	entries []entities.ActionLog
}

func (l *memoryActionLog) Insert(_ context.Context, e *entities.ActionLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *e)
	return nil
}

func (l *memoryActionLog) Recent(_ context.Context, limit int) ([]entities.ActionLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []entities.ActionLog{}
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}

func (l *memoryActionLog) ByUser(_ context.Context, userID string, limit int) ([]entities.ActionLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []entities.ActionLog{}
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if l.entries[i].UserID == userID {
			out = append(out, l.entries[i])
		}
	}
	return out, nil
}

// fakeBackend keeps pickup requests and responses in memory.
type fakeBackend struct {
	mu        sync.Mutex
	requests  []entities.PickupRequest
	points    map[string]*entities.PickupPoint
	responses map[string][]entities.ResponseRecord
	user      entities.User
}

func newFakeBackend(user entities.User) *fakeBackend {
	return &fakeBackend{
		points: map[string]*entities.PickupPoint{
			"p1": {ID: "p1", Name: "Library", Location: "51.5 -0.12"},
			"p2": {ID: "p2", Name: "Church", Location: `51°30'0"N 0°6'0"W`},
		},
		requests: []entities.PickupRequest{
			{ID: "r1", PickupPointID: "p1"},
			{ID: "r2", PickupPointID: "p2"},
			{ID: "r3", PickupPointID: "p-missing"},
		},
		responses: map[string][]entities.ResponseRecord{},
		user:      user,
	}
}

func (b *fakeBackend) client() *mockDispatchAPI {
	return &mockDispatchAPI{
		meFunc: func(context.Context) (*entities.User, error) {
			u := b.user
			return &u, nil
		},
		listFunc: func(context.Context) ([]entities.PickupRequest, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			return append([]entities.PickupRequest(nil), b.requests...), nil
		},
		pickupFunc: func(_ context.Context, id string) (*entities.PickupPoint, error) {
			if pt, ok := b.points[id]; ok {
				return pt, nil
			}
			return nil, &providers.ProviderError{Kind: providers.KindRejection, Status: 404, Message: "not found"}
		},
		respFunc: func(_ context.Context, id string) ([]entities.ResponseRecord, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			return append([]entities.ResponseRecord{}, b.responses[id]...), nil
		},
		acceptFunc: func(_ context.Context, id string) (bool, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.responses[id] = append(b.responses[id], entities.ResponseRecord{UserID: b.user.ID, Response: constants.ResponseAccept})
			return true, nil
		},
		createFunc: func(_ context.Context, req entities.PickupRequest) (bool, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.requests = append(b.requests, entities.PickupRequest{ID: "r-new", PickupPointID: req.PickupPointID})
			return true, nil
		},
		routeFunc: func(context.Context, string) (json.RawMessage, error) {
			return json.RawMessage(`{"routes":[]}`), nil
		},
		locationFunc: func(context.Context, string) (bool, error) { return true, nil },
	}
}

func newTestDashboard(t *testing.T, backend *fakeBackend) (*DashboardService, *memoryActionLog) {
	t.Helper()
	logging.UseLogger(zap.NewNop())
	log := &memoryActionLog{}
	factory := func(string) providers.DispatchAPI { return backend.client() }
	svc := NewDashboardService(context.Background(), factory, log, nil, DashboardOptions{
		Depot: geo.NewDepot("Depot", "51.4995 -0.1248"),
	})
	t.Cleanup(func() { svc.Close() })
	return svc, log
}

func readyView(t *testing.T, ws *Workspace, gen uint64) aggregator.View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := ws.Board.WaitReady(ctx, gen); err != nil {
		t.Fatalf("Board never became ready: %v", err)
	}
	return ws.View()
}

func TestDashboardService_VolunteerAcceptHidesRequest(t *testing.T) {
	backend := newFakeBackend(entities.User{ID: "vol-1", Name: "Val", UserType: constants.UserTypeVolunteer})
	svc, log := newTestDashboard(t, backend)

	ws, err := svc.Workspace(&common.SessionData{SessionID: "s1", APIKey: "k", User: backend.user})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	view := readyView(t, ws, 1)
	if len(view.Alerts) != 3 {
		t.Fatalf("Expected 3 alerts, got %d", len(view.Alerts))
	}

	res, err := svc.Accept(context.Background(), ws, "r1")
	if err != nil || !res.OK {
		t.Fatalf("Expected accept to succeed, got %+v %v", res, err)
	}

	view = readyView(t, ws, res.Reloaded)
	if len(view.Alerts) != 2 {
		t.Fatalf("Expected 2 alerts after accepting, got %d", len(view.Alerts))
	}
	for _, a := range view.Alerts {
		if a.Request.ID == "r1" {
			t.Error("Expected r1 to be hidden after accepting")
		}
	}

	if len(log.entries) != 1 || log.entries[0].Action != "accept" || log.entries[0].Outcome != "ok" {
		t.Errorf("Expected one ok accept log entry, got %+v", log.entries)
	}
}

func TestDashboardService_WorkspaceIsReusedPerSession(t *testing.T) {
	backend := newFakeBackend(entities.User{ID: "vol-1"})
	svc, _ := newTestDashboard(t, backend)
	session := &common.SessionData{SessionID: "s1", APIKey: "k", User: backend.user}

	first, _ := svc.Workspace(session)
	second, _ := svc.Workspace(session)
	if first != second {
		t.Error("Expected the same workspace for the same session")
	}

	svc.CloseWorkspace("s1")
	third, _ := svc.Workspace(session)
	if third == first {
		t.Error("Expected a new workspace after closing")
	}
}

func TestDashboardService_CreateValidatesPickupPoint(t *testing.T) {
	backend := newFakeBackend(entities.User{ID: "mgr-1", UserType: constants.UserTypeManager})
	svc, log := newTestDashboard(t, backend)
	ws, _ := svc.Workspace(&common.SessionData{SessionID: "s1", APIKey: "k", User: backend.user})
	ctx := context.Background()

	if _, err := svc.Create(ctx, ws, "  "); !errors.Is(err, ErrMissingPickupID) {
		t.Errorf("Expected ErrMissingPickupID, got %v", err)
	}

	_, err := svc.Create(ctx, ws, "nope")
	if !errors.Is(err, ErrNotAPickupPoint) {
		t.Fatalf("Expected ErrNotAPickupPoint, got %v", err)
	}
	if err.Error() != "not a real pickup point id" {
		t.Errorf("Expected user-facing message, got %q", err.Error())
	}

	res, err := svc.Create(ctx, ws, "p2")
	if err != nil || !res.OK {
		t.Fatalf("Expected create to succeed, got %+v %v", res, err)
	}
	view := readyView(t, ws, res.Reloaded)
	if len(view.Alerts) != 4 {
		t.Errorf("Expected 4 requests after create, got %d", len(view.Alerts))
	}

	if len(log.entries) != 2 || log.entries[0].Outcome != "not_found" || log.entries[1].Outcome != "ok" {
		t.Errorf("Expected not_found then ok log entries, got %+v", log.entries)
	}
}

func TestDashboardService_ManagerViewAndMarkers(t *testing.T) {
	backend := newFakeBackend(entities.User{ID: "mgr-1", UserType: constants.UserTypeManager})
	backend.responses["r1"] = []entities.ResponseRecord{
		{UserID: "a", Response: constants.ResponseAccept},
		{UserID: "b", Response: constants.ResponseDeny},
	}
	svc, _ := newTestDashboard(t, backend)
	ws, _ := svc.Workspace(&common.SessionData{SessionID: "s1", APIKey: "k", User: backend.user})

	view := readyView(t, ws, 1)
	byID := map[string]aggregator.Alert{}
	for _, a := range view.Alerts {
		byID[a.Request.ID] = a
	}
	if byID["r1"].PickupName != "Library" || byID["r1"].ResponseCount != 2 || byID["r1"].AcceptCount != 1 {
		t.Errorf("Expected r1 resolved with 1/2 accepted, got %+v", byID["r1"])
	}
	if byID["r3"].PickupName != "p-missing" {
		t.Errorf("Expected raw ID fallback for missing pickup point, got %q", byID["r3"].PickupName)
	}

	markers := svc.Markers(ws)
	if len(markers) != 3 {
		t.Fatalf("Expected 2 pickup markers plus depot, got %d", len(markers))
	}
	if markers[len(markers)-1].ID != geo.DepotMarkerID {
		t.Errorf("Expected depot last, got %+v", markers[len(markers)-1])
	}
}

func TestDashboardService_ManagerOnlyCommands(t *testing.T) {
	backend := newFakeBackend(entities.User{ID: "vol-1"})
	svc, _ := newTestDashboard(t, backend)
	ws, _ := svc.Workspace(&common.SessionData{SessionID: "s1", APIKey: "k", User: backend.user})
	ctx := context.Background()

	if _, err := svc.Create(ctx, ws, "p1"); !errors.Is(err, ErrManagerOnly) {
		t.Errorf("Expected ErrManagerOnly for create, got %v", err)
	}
	if _, err := svc.Delete(ctx, ws, "r1"); !errors.Is(err, ErrManagerOnly) {
		t.Errorf("Expected ErrManagerOnly for delete, got %v", err)
	}
	if _, err := svc.Route(ctx, ws, "r1"); !errors.Is(err, ErrManagerOnly) {
		t.Errorf("Expected ErrManagerOnly for route, got %v", err)
	}
	if _, err := svc.RecentActions(ctx, ws, 10); !errors.Is(err, ErrManagerOnly) {
		t.Errorf("Expected ErrManagerOnly for action log, got %v", err)
	}
}

func TestDashboardService_UserActionsAreOwnOnly(t *testing.T) {
	backend := newFakeBackend(entities.User{ID: "vol-1", UserType: constants.UserTypeVolunteer})
	svc, log := newTestDashboard(t, backend)
	ws, _ := svc.Workspace(&common.SessionData{SessionID: "s1", APIKey: "k", User: backend.user})
	ctx := context.Background()

	_ = log.Insert(ctx, &entities.ActionLog{UserID: "someone-else", Action: "deny", TargetID: "r2"})
	if _, err := svc.ReportLocation(ctx, ws, "51.5 -0.12"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	mine, err := svc.UserActions(ctx, ws, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(mine) != 1 || mine[0].Action != "location" || mine[0].UserID != "vol-1" {
		t.Errorf("Expected only the location entry, got %+v", mine)
	}
}

func TestDashboardService_RouteReturnsBackendAnswer(t *testing.T) {
	backend := newFakeBackend(entities.User{ID: "mgr-1", UserType: constants.UserTypeManager})
	svc, _ := newTestDashboard(t, backend)
	ws, _ := svc.Workspace(&common.SessionData{SessionID: "s1", APIKey: "k", User: backend.user})

	res, err := svc.Route(context.Background(), ws, "r1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(res.Routing) != `{"routes":[]}` {
		t.Errorf("Expected routing payload, got %s", res.Routing)
	}
	actions, err := svc.RecentActions(context.Background(), ws, 10)
	if err != nil || len(actions) != 1 || actions[0].Action != "route" {
		t.Errorf("Expected one route entry, got %+v %v", actions, err)
	}
}

func TestDashboardService_Authenticate(t *testing.T) {
	logging.UseLogger(zap.NewNop())
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"valid", nil, nil},
		{"rejected", &providers.ProviderError{Kind: providers.KindRejection, Status: 401}, ErrInvalidKey},
		{"unreachable", &providers.ProviderError{Kind: providers.KindTransport}, ErrBackendUnreachable},
		{"garbled", &providers.ProviderError{Kind: providers.KindDecode}, ErrBackendUnreachable},
		{"no identity", nil, ErrBackendUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := func(string) providers.DispatchAPI {
				return &mockDispatchAPI{meFunc: func(context.Context) (*entities.User, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					if tt.name == "no identity" {
						return &entities.User{}, nil
					}
					return &entities.User{ID: "u1"}, nil
				}}
			}
			svc := NewDashboardService(context.Background(), factory, nil, nil, DashboardOptions{})
			defer svc.Close()

			user, err := svc.Authenticate(context.Background(), "key")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && user.ID != "u1" {
				t.Errorf("Expected user u1, got %+v", user)
			}
		})
	}
}

func TestDashboardService_EmptyBackendRepliesAreAbsent(t *testing.T) {
	logging.UseLogger(zap.NewNop())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	factory := func(key string) providers.DispatchAPI {
		return providers.NewDispatchAPIProvider(providers.Config{BaseURL: server.URL, APIKey: key})
	}
	svc := NewDashboardService(context.Background(), factory, nil, nil, DashboardOptions{})
	defer svc.Close()
	ctx := context.Background()

	if user, err := svc.Authenticate(ctx, "key"); !errors.Is(err, ErrBackendUnreachable) {
		t.Errorf("Expected ErrBackendUnreachable for an empty identity, got %+v %v", user, err)
	}

	mgr := entities.User{ID: "mgr-1", UserType: constants.UserTypeManager}
	ws, err := svc.Workspace(&common.SessionData{SessionID: "s1", APIKey: "k", User: mgr})
	if err != nil {
		t.Fatalf("Expected workspace, got %v", err)
	}
	if _, err := svc.Create(ctx, ws, "ghost"); !errors.Is(err, ErrNotAPickupPoint) {
		t.Errorf("Expected ErrNotAPickupPoint for an empty pickup point reply, got %v", err)
	}
}
