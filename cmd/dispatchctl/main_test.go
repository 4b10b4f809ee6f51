package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pickup-dispatch/dispatch/internal/aggregator"
	"pickup-dispatch/dispatch/internal/api"
	"pickup-dispatch/dispatch/internal/config"
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/models/entities"
)

// volunteerBackend serves one request that disappears from the volunteer's
// alerts once accepted.
// listCalls, when set, counts request list fetches.
func volunteerBackend(t *testing.T, listCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	accepted := false

	mux := http.NewServeMux()
	mux.HandleFunc("/user/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "vol-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"vol-1","name":"Val","userType":0}`))
	})
	mux.HandleFunc("/pickuprequests", func(w http.ResponseWriter, r *http.Request) {
		if listCalls != nil {
			listCalls.Add(1)
		}
		_, _ = w.Write([]byte(`[{"id":"r1","pickupPointID":"p1"}]`))
	})
	mux.HandleFunc("/pickuprequests/r1/responses", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if accepted {
			_, _ = w.Write([]byte(`[{"userID":"vol-1","response":"accept"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/pickuprequests/r1/accept", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		accepted = true
		mu.Unlock()
		_, _ = w.Write([]byte(`true`))
	})
	mux.HandleFunc("/pickup/p1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"p1","name":"Library","location":"51.5 -0.12"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupCLI(t *testing.T) (*cli, *bytes.Buffer) {
	t.Helper()
	return setupCLIWithBackend(t, volunteerBackend(t, nil).URL)
}

func setupCLIWithBackend(t *testing.T, baseURL string) (*cli, *bytes.Buffer) {
	t.Helper()
	logging.UseLogger(nopLogger())

	cfg := config.Load()
	cfg.Dispatch.BaseURL = baseURL
	cfg.DB.Driver = "sqlite"
	cfg.DB.DSN = filepath.Join(t.TempDir(), "dispatchctl.db")
	cfg.Redis.Host = ""

	deps, err := api.InitDependencies(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Failed to init dependencies: %v", err)
	}
	t.Cleanup(func() { _ = deps.Close() })

	out := &bytes.Buffer{}
	return &cli{
		creds: deps.Services.Credentials,
		dash:  deps.Services.Dashboard,
		out:   out,
		wait:  2 * time.Second,
	}, out
}

func TestCLI_AcceptPrintsRefreshedAlerts(t *testing.T) {
	c, out := setupCLI(t)
	ctx := context.Background()

	if err := c.run(ctx, "set-key", "vol-key"); err != nil {
		t.Fatalf("Expected set-key to succeed, got %v", err)
	}

	out.Reset()
	if err := c.run(ctx, "alerts", ""); err != nil {
		t.Fatalf("Expected alerts to succeed, got %v", err)
	}
	if !strings.Contains(out.String(), "r1") || !strings.Contains(out.String(), "Library") {
		t.Errorf("Expected r1 at Library, got %q", out.String())
	}

	out.Reset()
	if err := c.run(ctx, "accept", "r1"); err != nil {
		t.Fatalf("Expected accept to succeed, got %v", err)
	}
	if !strings.Contains(out.String(), "accept r1: ok") {
		t.Errorf("Expected accept result, got %q", out.String())
	}
	if !strings.HasSuffix(out.String(), "none\n") {
		t.Errorf("Expected no alerts after accepting, got %q", out.String())
	}

	out.Reset()
	if err := c.run(ctx, "history", ""); err != nil {
		t.Fatalf("Expected history to succeed, got %v", err)
	}
	if !strings.Contains(out.String(), "accept") || !strings.Contains(out.String(), "r1") {
		t.Errorf("Expected the accept in history, got %q", out.String())
	}
}

func TestCLI_Errors(t *testing.T) {
	c, _ := setupCLI(t)
	ctx := context.Background()

	if err := c.run(ctx, "alerts", ""); err == nil || !strings.Contains(err.Error(), "set-key") {
		t.Errorf("Expected missing credential error, got %v", err)
	}

	if err := c.run(ctx, "set-key", ""); !errors.Is(err, errArgument) {
		t.Errorf("Expected argument error, got %v", err)
	}

	_ = c.run(ctx, "set-key", "vol-key")
	if err := c.run(ctx, "accept", ""); !errors.Is(err, errArgument) {
		t.Errorf("Expected argument error, got %v", err)
	}
	if err := c.run(ctx, "requests", ""); err == nil {
		t.Error("Expected requests to be refused for a volunteer")
	}
	if err := c.run(ctx, "bogus", ""); err == nil {
		t.Error("Expected unknown command error")
	}
}

func TestPrintView_Manager(t *testing.T) {
	out := &bytes.Buffer{}
	v := aggregator.View{Alerts: []aggregator.Alert{
		{Request: entities.PickupRequest{ID: "r1"}, PickupName: "Library", ResponsesKnown: true, ResponseCount: 2, AcceptCount: 1},
		{Request: entities.PickupRequest{ID: "r2"}, PickupName: "p9"},
	}}

	if err := printView(out, v, true, false); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out.String(), "1/2") || !strings.Contains(out.String(), "unknown") {
		t.Errorf("Expected acceptance counts, got %q", out.String())
	}
}

func TestCLI_ReadOnlyCommandsLoadTheBoardOnce(t *testing.T) {
	var listCalls atomic.Int32
	c, out := setupCLIWithBackend(t, volunteerBackend(t, &listCalls).URL)
	ctx := context.Background()

	if err := c.run(ctx, "set-key", "vol-key"); err != nil {
		t.Fatalf("Expected set-key to succeed, got %v", err)
	}
	if err := c.run(ctx, "alerts", ""); err != nil {
		t.Fatalf("Expected alerts to succeed, got %v", err)
	}
	if !strings.Contains(out.String(), "r1") {
		t.Errorf("Expected r1 in alerts, got %q", out.String())
	}
	if n := listCalls.Load(); n != 1 {
		t.Errorf("Expected the request list fetched once, got %d", n)
	}
}
