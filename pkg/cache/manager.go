package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in any layer
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Default memory layer settings.
const (
	DefaultMemorySize = 512
	DefaultMemoryTTL  = 10 * time.Minute
)

// Config configures the cache layers.
type Config struct {
	// MemorySize is the maximum number of entries held in process.
	MemorySize int

	// MemoryTTL caps how long an entry stays in the memory layer,
	// independent of its own expiry.
	MemoryTTL time.Duration

	// Redis enables the shared layer when non-nil.
	Redis *redis.Client
}

// Manager handles caching operations across the memory and Redis layers.
type Manager struct {
	memory *expirable.LRU[string, *CacheEntry]
	redis  *redis.Client
}

// NewManager creates a cache manager. A nil Redis client yields a
// memory-only cache.
func NewManager(cfg Config) *Manager {
	if cfg.MemorySize <= 0 {
		cfg.MemorySize = DefaultMemorySize
	}
	if cfg.MemoryTTL <= 0 {
		cfg.MemoryTTL = DefaultMemoryTTL
	}

	return &Manager{
		memory: expirable.NewLRU[string, *CacheEntry](cfg.MemorySize, onEvict, cfg.MemoryTTL),
		redis:  cfg.Redis,
	}
}

func onEvict(string, *CacheEntry) {
	CacheEvictions.Inc()
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if no layer holds a live entry.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	cacheKey := key.String()

	if entry, ok := m.memory.Get(cacheKey); ok {
		if !entry.IsExpired() {
			CacheHits.WithLabelValues(layerMemory).Inc()
			return entry, nil
		}
		m.memory.Remove(cacheKey)
	}

	if m.redis == nil {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	data, err := m.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(layerRedis).Inc()
	m.memory.Add(cacheKey, &entry)

	return &entry, nil
}

// Set stores a cache entry in every layer. Entries that are already expired
// are silently skipped.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	cacheKey := key.String()
	m.memory.Add(cacheKey, entry)
	CacheSize.WithLabelValues(layerMemory).Add(float64(len(entry.Data)))

	if m.redis == nil {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues(layerRedis).Add(float64(len(data)))

	return nil
}

// Delete removes a cache entry from every layer.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	cacheKey := key.String()
	m.memory.Remove(cacheKey)

	if m.redis == nil {
		return nil
	}

	if err := m.redis.Del(ctx, cacheKey).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// Len returns the number of entries in the memory layer.
func (m *Manager) Len() int {
	return m.memory.Len()
}
