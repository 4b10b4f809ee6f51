package common

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"pickup-dispatch/dispatch/internal/constants"
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/models/entities"
)

func TestMemorySessionStore_Lifecycle(t *testing.T) {
	logging.UseLogger(zap.NewNop())
	store := NewMemorySessionStore(time.Hour)
	ctx := context.Background()

	user := entities.User{ID: "u1", Name: "Ada", UserType: constants.UserTypeManager}
	session, err := store.CreateSession(ctx, "key-1", user)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if session.SessionID == "" {
		t.Fatal("Expected a session ID")
	}

	got, err := store.GetSession(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.APIKey != "key-1" || !got.User.IsManager() {
		t.Errorf("Expected stored key and manager user, got %+v", got)
	}
	if store.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", store.Count())
	}

	if err := store.DeleteSession(ctx, session.SessionID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := store.GetSession(ctx, session.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemorySessionStore_Expired(t *testing.T) {
	logging.UseLogger(zap.NewNop())
	store := NewMemorySessionStore(time.Hour)
	ctx := context.Background()

	session, _ := store.CreateSession(ctx, "key", entities.User{ID: "u1"})
	expired := *session
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	store.cache.Set(sessionKey(session.SessionID), expired, time.Hour)

	if _, err := store.GetSession(ctx, session.SessionID); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired, got %v", err)
	}
	if _, err := store.RefreshSession(ctx, session.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected expired session to be gone, got %v", err)
	}
}

func TestSessionSigner_RoundTrip(t *testing.T) {
	signer := NewSessionSigner([]byte("secret"))

	token, err := signer.Sign("session-123", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	id, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if id != "session-123" {
		t.Errorf("Expected session-123, got %s", id)
	}
}

func TestSessionSigner_Rejects(t *testing.T) {
	signer := NewSessionSigner([]byte("secret"))
	other := NewSessionSigner([]byte("other"))

	forged, _ := other.Sign("session-123", time.Now().Add(time.Hour))
	if _, err := signer.Verify(forged); err == nil {
		t.Error("Expected token signed with another key to be rejected")
	}

	expired, _ := signer.Sign("session-123", time.Now().Add(-time.Minute))
	if _, err := signer.Verify(expired); err == nil {
		t.Error("Expected expired token to be rejected")
	}

	valid, _ := signer.Sign("session-123", time.Now().Add(time.Hour))
	tampered := valid[:strings.LastIndex(valid, ".")+1] + "AAAA"
	if _, err := signer.Verify(tampered); err == nil {
		t.Error("Expected tampered token to be rejected")
	}
}

func TestCacheService_GetOrSetAndEviction(t *testing.T) {
	cs := NewCacheService(time.Hour, time.Minute)
	evicted := map[string]bool{}
	cs.OnEvicted(func(key string, _ interface{}) { evicted[key] = true })

	calls := 0
	loader := func() (any, error) {
		calls++
		return "value", nil
	}
	for i := 0; i < 3; i++ {
		v, err := cs.GetOrSet("k", time.Hour, loader)
		if err != nil || v != "value" {
			t.Fatalf("Expected value, got %v %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("Expected loader to run once, ran %d times", calls)
	}

	if _, err := cs.GetOrSet("bad", time.Hour, func() (any, error) { return nil, errors.New("boom") }); err == nil {
		t.Error("Expected loader error to propagate")
	}
	if _, ok := cs.Get("bad"); ok {
		t.Error("Expected failed load not to be cached")
	}

	cs.Close()
	if !evicted["k"] {
		t.Error("Expected Close to evict k")
	}
	if cs.Count() != 0 {
		t.Errorf("Expected empty cache, got %d", cs.Count())
	}
}

func TestCacheService_ConcurrentLoadsShareOneRun(t *testing.T) {
	cs := NewCacheService(time.Hour, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cs.GetOrSet("ws", time.Hour, func() (any, error) {
				calls.Add(1)
				<-release
				return "board", nil
			})
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("Expected one loader run, got %d", n)
	}
}
