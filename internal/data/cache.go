package data

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"signal-backtest/internal/model"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is an in-memory TTL cache. A nil *Cache is valid and caches
// nothing.
type Cache[V any] struct {
	mu    sync.RWMutex
	store map[string]cacheEntry[V]
	ttl   time.Duration
	now   func() time.Time
}

func NewCache[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		store: make(map[string]cacheEntry[V]),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns a value if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.store[key]
	if !ok || c.now().After(entry.expiresAt) {
		return zero, false
	}
	return entry.value, true
}

func (c *Cache[V]) Set(key string, value V) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = cacheEntry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

func (c *Cache[V]) Delete(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
}

// Len counts stored entries, expired or not.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *Cache[V]) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]cacheEntry[V])
}

// Sweep removes expired entries and returns how many were removed.
func (c *Cache[V]) Sweep() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.store {
		if now.After(entry.expiresAt) {
			delete(c.store, key)
			removed++
		}
	}
	return removed
}

// Janitor sweeps every interval until ctx is done.
func (c *Cache[V]) Janitor(ctx context.Context, every time.Duration) {
	if c == nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// BarsCacheFromEnv returns a bar cache when ENABLE_BARS_CACHE=true and
// API_ENV is not production, nil otherwise. BARS_CACHE_TTL overrides the
// one hour default.
//
// Provider terms may forbid caching responses; this is meant for local
// development only.
func BarsCacheFromEnv() *Cache[*model.BarSeries] {
	if os.Getenv("ENABLE_BARS_CACHE") != "true" {
		return nil
	}
	if os.Getenv("API_ENV") == "production" {
		return nil
	}
	return NewCache[*model.BarSeries](DurationFromEnv("BARS_CACHE_TTL", time.Hour))
}

// DurationFromEnv parses a time.Duration from key, falling back to def.
func DurationFromEnv(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// CacheKey hashes a bar query into a fixed-size key.
func CacheKey(q BarQuery) string {
	keyStr := fmt.Sprintf("%s:%s:%d:%s:%s",
		q.Symbol,
		q.Interval,
		q.OutputSize,
		q.StartDate,
		q.EndDate,
	)
	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:])
}
