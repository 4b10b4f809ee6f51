package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pickup-dispatch/dispatch/internal/constants"
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/models/entities"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// SessionData is one signed-in dashboard user.
// APIKey is the credential their workspace client is built from.
type SessionData struct {
	SessionID string        `json:"session_id"`
	APIKey    string        `json:"api_key"`
	User      entities.User `json:"user"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// SessionStore persists sessions. Implementations: RedisSessionStore, MemorySessionStore.
type SessionStore interface {
	CreateSession(ctx context.Context, apiKey string, user entities.User) (*SessionData, error)
	GetSession(ctx context.Context, sessionID string) (*SessionData, error)
	DeleteSession(ctx context.Context, sessionID string) error
	RefreshSession(ctx context.Context, sessionID string) (*SessionData, error)
	Ping(ctx context.Context) error
}

func newSession(apiKey string, user entities.User, ttl time.Duration) *SessionData {
	now := time.Now()
	return &SessionData{
		SessionID: uuid.New().String(),
		APIKey:    apiKey,
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func sessionKey(sessionID string) string {
	return string(constants.CachePrefixSession) + sessionID
}

// ============================================================================
// Redis
// ============================================================================

// RedisSessionStore manages user sessions in Redis
type RedisSessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

var _ SessionStore = (*RedisSessionStore)(nil)

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{redis: client, ttl: ttl}
}

func (s *RedisSessionStore) CreateSession(ctx context.Context, apiKey string, user entities.User) (*SessionData, error) {
	session := newSession(apiKey, user, s.ttl)
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	logging.Info("Session created", "session_id", session.SessionID, "user_id", user.ID, "store", "redis")
	return session, nil
}

func (s *RedisSessionStore) GetSession(ctx context.Context, sessionID string) (*SessionData, error) {
	val, err := s.redis.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session SessionData
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.DeleteSession(ctx, sessionID)
		return nil, ErrSessionExpired
	}
	return &session, nil
}

func (s *RedisSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// RefreshSession extends the session expiration
func (s *RedisSessionStore) RefreshSession(ctx context.Context, sessionID string) (*SessionData, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.ExpiresAt = time.Now().Add(s.ttl)
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *RedisSessionStore) save(ctx context.Context, session *SessionData) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(session.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// ============================================================================
// In-memory
// ============================================================================

// MemorySessionStore keeps sessions in a go-cache; used when no Redis is configured.
type MemorySessionStore struct {
	cache CacheInterface
	ttl   time.Duration
}

var _ SessionStore = (*MemorySessionStore)(nil)

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		cache: NewCacheService(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

func (s *MemorySessionStore) CreateSession(_ context.Context, apiKey string, user entities.User) (*SessionData, error) {
	session := newSession(apiKey, user, s.ttl)
	s.cache.Set(sessionKey(session.SessionID), *session, s.ttl)
	logging.Info("Session created", "session_id", session.SessionID, "user_id", user.ID, "store", "memory")
	return session, nil
}

func (s *MemorySessionStore) GetSession(_ context.Context, sessionID string) (*SessionData, error) {
	val, ok := s.cache.Get(sessionKey(sessionID))
	if !ok {
		return nil, ErrSessionNotFound
	}
	session := val.(SessionData)
	if time.Now().After(session.ExpiresAt) {
		s.cache.Delete(sessionKey(sessionID))
		return nil, ErrSessionExpired
	}
	return &session, nil
}

func (s *MemorySessionStore) DeleteSession(_ context.Context, sessionID string) error {
	s.cache.Delete(sessionKey(sessionID))
	return nil
}

func (s *MemorySessionStore) RefreshSession(ctx context.Context, sessionID string) (*SessionData, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.ExpiresAt = time.Now().Add(s.ttl)
	s.cache.Set(sessionKey(sessionID), *session, s.ttl)
	return session, nil
}

func (s *MemorySessionStore) Ping(context.Context) error { return nil }

// Count is the number of live sessions.
func (s *MemorySessionStore) Count() int { return s.cache.Count() }
