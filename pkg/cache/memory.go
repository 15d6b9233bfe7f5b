package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/insightflow/insightflow-bff/pkg/observability"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store bounded by entry count.
// Entries carry their own expiry since views use different TTLs.
type MemoryStore struct {
	cache   *lru.Cache[string, memoryEntry]
	now     func() time.Time
	logger  *observability.Logger
	metrics *observability.Metrics
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an LRU-backed store holding at most size entries
func NewMemoryStore(size int, logger *observability.Logger, metrics *observability.Metrics, opts ...MemoryOption) (*MemoryStore, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memory cache size must be positive, got %d", size)
	}
	cache, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = observability.NewUnregisteredMetrics()
	}

	s := &MemoryStore{
		cache:   cache,
		now:     time.Now,
		logger:  logger.WithField("component", "cache"),
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get retrieves and decodes a live entry
func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) bool {
	entry, ok := s.cache.Get(key)
	if !ok {
		return false
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.cache.Remove(key)
		return false
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		s.cache.Remove(key)
		s.metrics.CacheErrorsTotal.WithLabelValues("decode").Inc()
		s.logger.WithError(err).WithField("key", key).Warn("Dropping undecodable cache entry")
		return false
	}
	return true
}

// Set stores value as JSON. A non-positive ttl never expires.
func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.metrics.CacheErrorsTotal.WithLabelValues("encode").Inc()
		s.logger.WithError(err).WithField("key", key).Warn("Failed to encode cache value")
		return false
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.cache.Add(key, entry)
	return true
}

// Delete removes a key
func (s *MemoryStore) Delete(ctx context.Context, key string) bool {
	s.cache.Remove(key)
	return true
}

// DeleteByPrefix removes keys matching a glob pattern
func (s *MemoryStore) DeleteByPrefix(ctx context.Context, pattern string) int {
	deleted := 0
	for _, key := range s.cache.Keys() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			s.metrics.CacheErrorsTotal.WithLabelValues("delete_pattern").Inc()
			s.logger.WithError(err).WithField("pattern", pattern).Warn("Invalid cache key pattern")
			return deleted
		}
		if matched && s.cache.Remove(key) {
			deleted++
		}
	}
	return deleted
}

// Ping always succeeds for the in-process store
func (s *MemoryStore) Ping(ctx context.Context) bool {
	return true
}

// MemoryInfo reports entry count and approximate payload size
func (s *MemoryStore) MemoryInfo(ctx context.Context) map[string]string {
	var used int
	for _, entry := range s.cache.Values() {
		used += len(entry.data)
	}
	return map[string]string{
		"used_memory":       strconv.Itoa(used),
		"used_memory_human": humanBytes(used),
		"keys":              strconv.Itoa(s.cache.Len()),
	}
}

// Close drops every entry
func (s *MemoryStore) Close() error {
	s.cache.Purge()
	return nil
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.2fG", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.2fM", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.2fK", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
