package cache

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/insightflow/insightflow-bff/pkg/observability"
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL      string
	PoolSize int
	// Timeout bounds every individual cache operation
	Timeout time.Duration
}

// RedisStore is a Store backed by Redis
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRedisStore creates a Redis-backed store. An unreachable server is logged
// but does not fail construction; the store serves misses until Redis returns.
func NewRedisStore(cfg RedisConfig, logger *observability.Logger, metrics *observability.Metrics) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	store := NewRedisStoreFromClient(redis.NewClient(opts), cfg.Timeout, logger, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.client.Ping(ctx).Err(); err != nil {
		store.logger.WithError(err).Warn("Redis is not reachable, cache will serve misses until it recovers")
	}

	return store, nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, timeout time.Duration, logger *observability.Logger, metrics *observability.Metrics) *RedisStore {
	if timeout <= 0 {
		timeout = time.Second
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = observability.NewUnregisteredMetrics()
	}
	return &RedisStore{
		client:  client,
		timeout: timeout,
		logger:  logger.WithField("component", "cache"),
		metrics: metrics,
	}
}

func (s *RedisStore) fail(op, key string, err error) {
	s.metrics.CacheErrorsTotal.WithLabelValues(op).Inc()
	s.logger.WithError(err).WithFields(map[string]interface{}{
		"operation": op,
		"key":       key,
	}).Warn("Cache operation failed")
}

// Get retrieves and decodes a cached value
func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	} else if err != nil {
		s.fail("get", key, err)
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		s.fail("decode", key, err)
		if delErr := s.client.Del(ctx, key).Err(); delErr != nil {
			s.fail("delete", key, delErr)
		}
		return false
	}

	return true
}

// Set stores value as JSON with SET EX
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.fail("encode", key, err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		s.fail("set", key, err)
		return false
	}
	return true
}

// Delete removes a key
func (s *RedisStore) Delete(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.fail("delete", key, err)
		return false
	}
	return true
}

// DeleteByPrefix removes keys matching pattern using SCAN so the server is never blocked
func (s *RedisStore) DeleteByPrefix(ctx context.Context, pattern string) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	deleted := 0
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n, err := s.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			s.fail("delete_pattern", iter.Val(), err)
			return deleted
		}
		deleted += int(n)
	}
	if err := iter.Err(); err != nil {
		s.fail("scan", pattern, err)
	}
	return deleted
}

// Ping checks Redis connectivity
func (s *RedisStore) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(ctx).Err() == nil
}

// MemoryInfo returns the fields of INFO memory
func (s *RedisStore) MemoryInfo(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Info(ctx, "memory").Result()
	if err != nil {
		s.fail("info", "memory", err)
		return map[string]string{}
	}
	return parseInfo(raw)
}

// Close closes the Redis connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// parseInfo parses the "field:value" lines of an INFO reply
func parseInfo(raw string) map[string]string {
	info := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			info[k] = v
		}
	}
	return info
}
