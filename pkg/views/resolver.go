package views

import (
	"context"
	"fmt"
	"time"

	"github.com/insightflow/insightflow-bff/pkg/adapter"
	"github.com/insightflow/insightflow-bff/pkg/aggregator"
	"github.com/insightflow/insightflow-bff/pkg/cache"
	"github.com/insightflow/insightflow-bff/pkg/models"
	"github.com/insightflow/insightflow-bff/pkg/observability"
	"github.com/insightflow/insightflow-bff/pkg/upstream"
)

// DefaultFunnelID is used when a request names no funnel
const DefaultFunnelID = "default"

// View names used as metric labels
const (
	viewDashboard = "dashboard"
	viewFunnel    = "funnel"
)

// Source is the upstream surface used by single-call views
type Source interface {
	FunnelAnalysis(ctx context.Context, funnelID string) (models.FunnelAnalysis, error)
	UserEvents(ctx context.Context, userID string, limit int) (upstream.UserEvents, error)
}

// Config holds view cache lifetimes
type Config struct {
	DashboardTTL time.Duration
	FunnelTTL    time.Duration
}

// DefaultConfig returns the standard TTLs
func DefaultConfig() Config {
	return Config{
		DashboardTTL: 30 * time.Second,
		FunnelTTL:    300 * time.Second,
	}
}

// Resolver serves views from the cache, computing and storing them on a miss
type Resolver struct {
	aggregator *aggregator.Aggregator
	source     Source
	store      cache.Store
	counters   *cache.Counters
	cfg        Config
	now        func() time.Time
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// Option configures a Resolver
type Option func(*Resolver)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithCounters shares hit/miss counters with another component
func WithCounters(counters *cache.Counters) Option {
	return func(r *Resolver) {
		r.counters = counters
	}
}

// NewResolver creates a resolver
func NewResolver(agg *aggregator.Aggregator, source Source, store cache.Store, cfg Config, logger *observability.Logger, metrics *observability.Metrics, opts ...Option) *Resolver {
	defaults := DefaultConfig()
	if cfg.DashboardTTL <= 0 {
		cfg.DashboardTTL = defaults.DashboardTTL
	}
	if cfg.FunnelTTL <= 0 {
		cfg.FunnelTTL = defaults.FunnelTTL
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = observability.NewUnregisteredMetrics()
	}

	r := &Resolver{
		aggregator: agg,
		source:     source,
		store:      store,
		counters:   cache.NewCounters(),
		cfg:        cfg,
		now:        time.Now,
		logger:     logger.WithField("component", "views"),
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CacheStats returns hit/miss counts across cached views
func (r *Resolver) CacheStats() cache.Stats {
	return r.counters.Snapshot()
}

func (r *Resolver) lookup(ctx context.Context, view, key string, dest interface{}) bool {
	if r.store.Get(ctx, key, dest) {
		r.counters.RecordHit()
		r.metrics.CacheHitsTotal.WithLabelValues(view).Inc()
		return true
	}
	r.counters.RecordMiss()
	r.metrics.CacheMissesTotal.WithLabelValues(view).Inc()
	return false
}

// Dashboard returns the dashboard for a client type. It never fails: upstream
// failures surface as default values.
func (r *Resolver) Dashboard(ctx context.Context, clientType adapter.ClientType, useCache bool) models.DashboardView {
	clientType = adapter.ParseClientType(string(clientType))
	key := cache.DashboardKey(clientType.String())

	if useCache {
		var cached models.DashboardView
		if r.lookup(ctx, viewDashboard, key, &cached) {
			return cached
		}
	}

	view := r.computeDashboard(ctx, clientType)

	if useCache {
		r.store.Set(ctx, key, view, r.cfg.DashboardTTL)
	}
	return view
}

// RefreshDashboard recomputes a dashboard and stores it unconditionally
func (r *Resolver) RefreshDashboard(ctx context.Context, clientType adapter.ClientType) error {
	clientType = adapter.ParseClientType(string(clientType))
	view := r.computeDashboard(ctx, clientType)
	if !r.store.Set(ctx, cache.DashboardKey(clientType.String()), view, r.cfg.DashboardTTL) {
		return fmt.Errorf("failed to store %s dashboard", clientType)
	}
	return nil
}

func (r *Resolver) computeDashboard(ctx context.Context, clientType adapter.ClientType) models.DashboardView {
	in := r.aggregator.FetchDashboardInputs(ctx)
	return adapter.Adapt(clientType, in, r.now())
}

// Funnel returns a funnel analysis. Upstream errors propagate.
func (r *Resolver) Funnel(ctx context.Context, funnelID string, useCache bool) (models.FunnelAnalysis, error) {
	if funnelID == "" {
		funnelID = DefaultFunnelID
	}
	key := cache.FunnelKey(funnelID)

	if useCache {
		var cached models.FunnelAnalysis
		if r.lookup(ctx, viewFunnel, key, &cached) {
			return cached, nil
		}
	}

	funnel, err := r.source.FunnelAnalysis(ctx, funnelID)
	if err != nil {
		return models.FunnelAnalysis{}, fmt.Errorf("funnel %s: %w", funnelID, err)
	}
	if funnel.Steps == nil {
		funnel.Steps = []map[string]interface{}{}
	}

	if useCache {
		r.store.Set(ctx, key, funnel, r.cfg.FunnelTTL)
	}
	return funnel, nil
}

// Realtime returns uncached live statistics
func (r *Resolver) Realtime(ctx context.Context) models.RealtimeStats {
	payloads := r.aggregator.FetchRealtimeInputs(ctx).Resolve()
	now := r.now()

	return models.RealtimeStats{
		OnlineUsers:     payloads.Online.Count,
		TotalEvents:     payloads.Events.TotalEvents,
		EventsPerMinute: r.eventsPerMinute(ctx, now),
		Timestamp:       now.Unix(),
		ServerTime:      now.Format(time.RFC3339),
	}
}

// eventsPerMinute reads the current minute's counter; a missing counter is 0
func (r *Resolver) eventsPerMinute(ctx context.Context, now time.Time) int64 {
	var count int64
	if !r.store.Get(ctx, cache.EventsMinuteKey(now), &count) {
		return 0
	}
	return count
}

// UserAnalytics fetches a user's recent events and summarizes them.
// Upstream errors propagate.
func (r *Resolver) UserAnalytics(ctx context.Context, userID string, limit int) (models.UserAnalytics, error) {
	out, err := r.source.UserEvents(ctx, userID, limit)
	if err != nil {
		return models.UserAnalytics{}, fmt.Errorf("user %s events: %w", userID, err)
	}
	events := out.Events
	if events == nil {
		events = []map[string]interface{}{}
	}

	return models.UserAnalytics{
		UserID:  userID,
		Events:  events,
		Summary: AnalyzeUserBehavior(events),
	}, nil
}
