package common

import "time"

// CacheInterface is the in-process store behind sessions and workspaces.
type CacheInterface interface {
	Set(key string, value interface{}, ttl time.Duration)
	// Get reports false for missing and expired keys.
	Get(key string) (interface{}, bool)
	Delete(key string)
	// GetOrSet runs loader at most once per missing key. A loader error is
	// returned and nothing is stored.
	GetOrSet(key string, ttl time.Duration, loader func() (any, error)) (interface{}, error)
	Count() int
	Close() error
}
