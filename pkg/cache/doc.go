// Package cache provides the fail-open view cache.
//
// RedisStore is used in production; MemoryStore backs single-instance
// deployments and tests. Both store JSON and never surface backend errors
// to callers.
package cache
