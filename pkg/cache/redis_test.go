package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightflow/insightflow-bff/pkg/observability"
)

type cachedView struct {
	OnlineUsers int64    `json:"online_users"`
	Pages       []string `json:"pages"`
}

// setupRedisStoreTest creates a miniredis instance and a store pointed at it
func setupRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis, *observability.Metrics) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	metrics := observability.NewUnregisteredMetrics()
	store, err := NewRedisStore(RedisConfig{URL: "redis://" + mr.Addr(), PoolSize: 5}, nil, metrics)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, mr, metrics
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{URL: "not a url"}, nil, nil)
	assert.Error(t, err)
}

func TestNewRedisStore_UnreachableIsNotFatal(t *testing.T) {
	store, err := NewRedisStore(RedisConfig{URL: "redis://127.0.0.1:1", Timeout: 100 * time.Millisecond}, nil, nil)
	require.NoError(t, err)
	defer store.Close()

	assert.False(t, store.Ping(context.Background()))
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, mr, _ := setupRedisStoreTest(t)
	ctx := context.Background()

	view := cachedView{OnlineUsers: 7, Pages: []string{"/a", "/b"}}
	require.True(t, store.Set(ctx, DashboardKey("web"), view, 30*time.Second))

	var got cachedView
	require.True(t, store.Get(ctx, DashboardKey("web"), &got))
	assert.Equal(t, view, got)

	assert.Equal(t, 30*time.Second, mr.TTL("dashboard:web"))
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr, _ := setupRedisStoreTest(t)
	ctx := context.Background()

	require.True(t, store.Set(ctx, "dashboard:mobile", cachedView{OnlineUsers: 1}, 30*time.Second))

	mr.FastForward(29 * time.Second)
	var got cachedView
	assert.True(t, store.Get(ctx, "dashboard:mobile", &got))

	mr.FastForward(2 * time.Second)
	assert.False(t, store.Get(ctx, "dashboard:mobile", &got))
}

func TestRedisStore_Miss(t *testing.T) {
	store, _, metrics := setupRedisStoreTest(t)

	var got cachedView
	assert.False(t, store.Get(context.Background(), "dashboard:tv", &got))
	assert.Zero(t, testutil.ToFloat64(metrics.CacheErrorsTotal.WithLabelValues("get")))
}

func TestRedisStore_CorruptEntryDeleted(t *testing.T) {
	store, mr, metrics := setupRedisStoreTest(t)
	require.NoError(t, mr.Set("dashboard:web", "{broken"))

	var got cachedView
	assert.False(t, store.Get(context.Background(), "dashboard:web", &got))
	assert.False(t, mr.Exists("dashboard:web"))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheErrorsTotal.WithLabelValues("decode")))
}

// failDel makes every DEL command fail before it reaches the server
type failDel struct{}

func (failDel) BeforeProcess(ctx context.Context, cmd redis.Cmder) (context.Context, error) {
	if cmd.Name() == "del" {
		return ctx, errors.New("del refused")
	}
	return ctx, nil
}

func (failDel) AfterProcess(context.Context, redis.Cmder) error { return nil }

func (failDel) BeforeProcessPipeline(ctx context.Context, _ []redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (failDel) AfterProcessPipeline(context.Context, []redis.Cmder) error { return nil }

func TestRedisStore_CorruptEntryDeleteFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("dashboard:web", "{broken"))

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client.AddHook(failDel{})
	metrics := observability.NewUnregisteredMetrics()
	store := NewRedisStoreFromClient(client, 0, nil, metrics)
	defer store.Close()

	var got cachedView
	assert.False(t, store.Get(context.Background(), "dashboard:web", &got))
	assert.True(t, mr.Exists("dashboard:web"))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheErrorsTotal.WithLabelValues("decode")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheErrorsTotal.WithLabelValues("delete")))
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr, _ := setupRedisStoreTest(t)
	ctx := context.Background()

	store.Set(ctx, "funnel:default", map[string]int{"total_users": 3}, time.Minute)
	assert.True(t, store.Delete(ctx, "funnel:default"))
	assert.False(t, mr.Exists("funnel:default"))
	assert.True(t, store.Delete(ctx, "funnel:absent"))
}

func TestRedisStore_DeleteByPrefix(t *testing.T) {
	store, mr, _ := setupRedisStoreTest(t)
	ctx := context.Background()

	for _, ct := range []string{"web", "mobile", "tv"} {
		store.Set(ctx, DashboardKey(ct), cachedView{}, time.Minute)
	}
	store.Set(ctx, FunnelKey("default"), cachedView{}, time.Minute)

	assert.Equal(t, 3, store.DeleteByPrefix(ctx, DashboardPattern))
	assert.False(t, mr.Exists("dashboard:web"))
	assert.False(t, mr.Exists("dashboard:mobile"))
	assert.False(t, mr.Exists("dashboard:tv"))
	assert.True(t, mr.Exists("funnel:default"))

	assert.Zero(t, store.DeleteByPrefix(ctx, DashboardPattern))
}

func TestRedisStore_FailOpen(t *testing.T) {
	store, mr, metrics := setupRedisStoreTest(t)
	ctx := context.Background()
	mr.Close()

	var got cachedView
	assert.False(t, store.Get(ctx, "dashboard:web", &got))
	assert.False(t, store.Set(ctx, "dashboard:web", cachedView{}, time.Minute))
	assert.False(t, store.Delete(ctx, "dashboard:web"))
	assert.Zero(t, store.DeleteByPrefix(ctx, DashboardPattern))
	assert.False(t, store.Ping(ctx))
	assert.NotNil(t, store.MemoryInfo(ctx))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheErrorsTotal.WithLabelValues("get")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheErrorsTotal.WithLabelValues("set")))
}

func TestRedisStore_ReadsIntegerCounter(t *testing.T) {
	store, mr, _ := setupRedisStoreTest(t)
	ctx := context.Background()

	key := EventsMinuteKey(time.Date(2024, 3, 5, 9, 7, 0, 0, time.UTC))
	assert.Equal(t, "events:minute:202403050907", key)

	_, err := mr.Incr(key, 12)
	require.NoError(t, err)

	var count int64
	require.True(t, store.Get(ctx, key, &count))
	assert.Equal(t, int64(12), count)
}

func TestRedisStore_Ping(t *testing.T) {
	store, _, _ := setupRedisStoreTest(t)
	assert.True(t, store.Ping(context.Background()))
}

func TestNewRedisStoreFromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, 0, nil, nil)
	defer store.Close()

	assert.Same(t, client, store.client)
	assert.Equal(t, time.Second, store.timeout)
}

func TestParseInfo(t *testing.T) {
	raw := "# Memory\r\nused_memory:1024\r\nused_memory_human:1.00K\r\n\r\nmaxmemory_policy:noeviction\r\n"
	info := parseInfo(raw)
	assert.Equal(t, map[string]string{
		"used_memory":       "1024",
		"used_memory_human": "1.00K",
		"maxmemory_policy":  "noeviction",
	}, info)
}
