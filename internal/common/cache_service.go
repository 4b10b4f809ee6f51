package common

import (
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// CacheService is the go-cache backed CacheInterface. Concurrent GetOrSet
// calls for the same missing key share one loader run.
type CacheService struct {
	items *cache.Cache
	loads singleflight.Group
}

var _ CacheInterface = (*CacheService)(nil)

func NewCacheService(defaultTTL, cleanupInterval time.Duration) *CacheService {
	return &CacheService{items: cache.New(defaultTTL, cleanupInterval)}
}

// OnEvicted registers fn for entries that expire or are deleted.
func (cs *CacheService) OnEvicted(fn func(key string, value interface{})) {
	cs.items.OnEvicted(fn)
}

func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.items.Set(key, value, ttl)
}

func (cs *CacheService) Get(key string) (interface{}, bool) {
	return cs.items.Get(key)
}

func (cs *CacheService) Delete(key string) {
	cs.items.Delete(key)
}

func (cs *CacheService) GetOrSet(key string, ttl time.Duration, loader func() (any, error)) (interface{}, error) {
	if val, ok := cs.items.Get(key); ok {
		return val, nil
	}
	val, err, _ := cs.loads.Do(key, func() (interface{}, error) {
		// a previous flight may have stored it while we waited
		if val, ok := cs.items.Get(key); ok {
			return val, nil
		}
		val, err := loader()
		if err != nil {
			return nil, err
		}
		cs.items.Set(key, val, ttl)
		return val, nil
	})
	return val, err
}

func (cs *CacheService) Count() int {
	return cs.items.ItemCount()
}

// Close deletes every entry so eviction callbacks run.
func (cs *CacheService) Close() error {
	for key := range cs.items.Items() {
		cs.items.Delete(key)
	}
	return nil
}
