package cache

import (
	"context"
	"time"
)

// Store is a best-effort key-value cache for serialized views.
//
// Implementations never return errors: a failing backend behaves as a miss on
// read and a no-op on write, and the failure is logged and counted.
type Store interface {
	// Get decodes the value stored at key into dest. It reports false on a
	// miss, an expired entry, a backend failure or an undecodable entry.
	Get(ctx context.Context, key string, dest interface{}) bool
	// Set stores value as JSON with the given time to live
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool
	Delete(ctx context.Context, key string) bool
	// DeleteByPrefix removes every key matching a glob pattern such as
	// "dashboard:*" and returns how many were removed
	DeleteByPrefix(ctx context.Context, pattern string) int
	Ping(ctx context.Context) bool
	// MemoryInfo reports backend memory statistics keyed by field name
	MemoryInfo(ctx context.Context) map[string]string
	Close() error
}

// Key namespaces
const (
	DashboardPrefix    = "dashboard:"
	FunnelPrefix       = "funnel:"
	EventsMinutePrefix = "events:minute:"
)

// DashboardKey returns the cache key for a client type's dashboard
func DashboardKey(clientType string) string {
	return DashboardPrefix + clientType
}

// FunnelKey returns the cache key for a funnel analysis
func FunnelKey(funnelID string) string {
	return FunnelPrefix + funnelID
}

// EventsMinuteKey returns the per-minute event counter key for t
func EventsMinuteKey(t time.Time) string {
	return EventsMinutePrefix + t.Format("200601021504")
}

// DashboardPattern matches every cached dashboard
const DashboardPattern = DashboardPrefix + "*"
