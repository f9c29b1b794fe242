package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Cache interface defines cache operations
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// entry is a cached value held by MemoryCache
type entry struct {
	value       []byte
	createdAt   time.Time
	expiresAt   time.Time
	accessCount int
}

// Stats represents cache statistics
type Stats struct {
	Backend        string        `json:"backend"`
	TotalEntries   int           `json:"total_entries"`
	HitCount       int64         `json:"hit_count"`
	MissCount      int64         `json:"miss_count"`
	HitRate        float64       `json:"hit_rate"`
	MemoryUsage    int64         `json:"memory_usage_bytes"`
	OldestEntry    time.Time     `json:"oldest_entry"`
	AverageAge     time.Duration `json:"average_age"`
	ExpiredEntries int           `json:"expired_entries"`
}

// MemoryCache implements in-memory cache
type MemoryCache struct {
	entries   map[string]*entry
	mutex     sync.RWMutex
	duration  time.Duration
	hitCount  int64
	missCount int64
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(duration time.Duration) *MemoryCache {
	cache := &MemoryCache{
		entries:  make(map[string]*entry),
		duration: duration,
		done:     make(chan struct{}),
	}

	go cache.cleanup(cleanupInterval(duration))

	return cache
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, exists := c.entries[key]
	if !exists {
		c.missCount++
		return nil, ErrCacheMiss
	}

	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		c.missCount++
		return nil, ErrCacheMiss
	}

	e.accessCount++
	c.hitCount++

	return e.value, nil
}

// Set stores a value in cache
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	c.entries[key] = &entry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(c.duration),
	}
	return nil
}

// Delete removes an entry from cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, key)
	return nil
}

// Clear removes all entries from cache
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*entry)
	c.hitCount = 0
	c.missCount = 0
	return nil
}

// GetStats returns cache statistics
func (c *MemoryCache) GetStats(ctx context.Context) (*Stats, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats := &Stats{
		Backend:      "memory",
		TotalEntries: len(c.entries),
		HitCount:     c.hitCount,
		MissCount:    c.missCount,
	}

	if c.hitCount+c.missCount > 0 {
		stats.HitRate = float64(c.hitCount) / float64(c.hitCount+c.missCount)
	}

	var totalAge time.Duration
	now := time.Now()

	for _, e := range c.entries {
		stats.MemoryUsage += int64(len(e.value))

		if stats.OldestEntry.IsZero() || e.createdAt.Before(stats.OldestEntry) {
			stats.OldestEntry = e.createdAt
		}

		totalAge += now.Sub(e.createdAt)

		if now.After(e.expiresAt) {
			stats.ExpiredEntries++
		}
	}

	if len(c.entries) > 0 {
		stats.AverageAge = totalAge / time.Duration(len(c.entries))
	}

	return stats, nil
}

// Close stops the cleanup goroutine
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// cleanup removes expired entries periodically
func (c *MemoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.done:
			return
		}
	}
}

// cleanupExpired removes expired entries
func (c *MemoryCache) cleanupExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > 10*time.Minute {
		return 10 * time.Minute
	}
	return ttl
}

// Manager stores JSON-encoded lookup results. A Manager without a backend
// passes every call straight to the loader.
type Manager struct {
	cache Cache
}

// NewManager wraps c; c may be nil to disable caching.
func NewManager(c Cache) *Manager {
	return &Manager{cache: c}
}

// Enabled reports whether a backend is configured.
func (m *Manager) Enabled() bool {
	return m != nil && m.cache != nil
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result. Cache failures are logged and never returned.
func GetOrLoad[T any](ctx context.Context, m *Manager, key string, load func(context.Context) (T, error)) (T, error) {
	if !m.Enabled() {
		return load(ctx)
	}

	data, err := m.cache.Get(ctx, key)
	if err == nil {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		log.Warn().Str("key", key).Msg("Discarding undecodable cache entry")
	} else if !errors.Is(err, ErrCacheMiss) {
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	m.store(ctx, key, v)
	return v, nil
}

// Refresh calls load and overwrites the cached value for key.
func Refresh[T any](ctx context.Context, m *Manager, key string, load func(context.Context) (T, error)) (T, error) {
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if m.Enabled() {
		m.store(ctx, key, v)
	}
	return v, nil
}

func (m *Manager) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache encode failed")
		return
	}
	if err := m.cache.Set(ctx, key, data); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// GetStats returns cache statistics
func (m *Manager) GetStats(ctx context.Context) (*Stats, error) {
	if !m.Enabled() {
		return &Stats{Backend: "none"}, nil
	}
	return m.cache.GetStats(ctx)
}

// Clear clears all cached entries
func (m *Manager) Clear(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	return m.cache.Clear(ctx)
}

// Delete drops one cached entry
func (m *Manager) Delete(ctx context.Context, key string) error {
	if !m.Enabled() {
		return nil
	}
	return m.cache.Delete(ctx, key)
}

// Close releases the backend
func (m *Manager) Close() error {
	if !m.Enabled() {
		return nil
	}
	return m.cache.Close()
}

// Common cache errors
var (
	ErrCacheMiss = fmt.Errorf("cache miss")
)
