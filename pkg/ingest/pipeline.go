package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/insightflow/insightflow-bff/pkg/async"
	"github.com/insightflow/insightflow-bff/pkg/cache"
	"github.com/insightflow/insightflow-bff/pkg/models"
	"github.com/insightflow/insightflow-bff/pkg/observability"
)

// DefaultMaxBatchSize bounds a single ingestion request
const DefaultMaxBatchSize = 1000

var (
	// ErrEmptyBatch is returned for a batch with no events
	ErrEmptyBatch = errors.New("event batch is empty")
	// ErrBatchTooLarge is returned when a batch exceeds the configured maximum
	ErrBatchTooLarge = errors.New("event batch too large")
)

// Poster forwards sanitized events upstream
type Poster interface {
	PostEvents(ctx context.Context, events []models.Event) (map[string]interface{}, error)
}

// Pipeline sanitizes, forwards and schedules dashboard invalidation for event batches
type Pipeline struct {
	poster       Poster
	store        cache.Store
	pool         *async.WorkerPool
	maxBatchSize int
	now          func() time.Time
	logger       *observability.Logger
	metrics      *observability.Metrics
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithMaxBatchSize overrides DefaultMaxBatchSize
func WithMaxBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxBatchSize = n
		}
	}
}

// WithClock replaces time.Now for timestamp defaults
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline creates an ingestion pipeline. Invalidations run on pool, which the
// caller owns and shuts down.
func NewPipeline(poster Poster, store cache.Store, pool *async.WorkerPool, logger *observability.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = observability.NewUnregisteredMetrics()
	}
	p := &Pipeline{
		poster:       poster,
		store:        store,
		pool:         pool,
		maxBatchSize: DefaultMaxBatchSize,
		now:          time.Now,
		logger:       logger.WithField("component", "ingest"),
		metrics:      metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxBatchSize returns the largest accepted batch
func (p *Pipeline) MaxBatchSize() int {
	return p.maxBatchSize
}

// Ingest sanitizes and forwards a batch. An upstream failure fails the whole batch.
// On success the dashboard views are invalidated in the background.
func (p *Pipeline) Ingest(ctx context.Context, raw []models.RawEvent) (models.EventResponse, error) {
	if len(raw) == 0 {
		return models.EventResponse{}, ErrEmptyBatch
	}
	if len(raw) > p.maxBatchSize {
		return models.EventResponse{}, fmt.Errorf("%w: %d events, max %d", ErrBatchTooLarge, len(raw), p.maxBatchSize)
	}

	events := SanitizeAll(raw, p.now())

	upstreamResp, err := p.poster.PostEvents(ctx, events)
	if err != nil {
		p.metrics.IngestFailuresTotal.Inc()
		return models.EventResponse{}, fmt.Errorf("failed to forward %d events: %w", len(events), err)
	}
	p.metrics.EventsIngestedTotal.Add(float64(len(events)))

	p.scheduleInvalidation()

	return models.EventResponse{
		Status:           "success",
		Message:          fmt.Sprintf("processed %d events", len(events)),
		ProcessedCount:   len(events),
		UpstreamResponse: upstreamResp,
	}, nil
}

// scheduleInvalidation never blocks; a full or closed pool drops the task
func (p *Pipeline) scheduleInvalidation() {
	if p.pool == nil {
		return
	}
	err := p.pool.TrySubmit(func(ctx context.Context) error {
		removed := p.store.DeleteByPrefix(ctx, cache.DashboardPattern)
		p.metrics.CacheInvalidationsTotal.WithLabelValues("done").Inc()
		p.logger.Debugf("Invalidated %d dashboard views", removed)
		return nil
	})
	if err != nil {
		p.metrics.CacheInvalidationsTotal.WithLabelValues("dropped").Inc()
		p.logger.WithError(err).Warn("Dashboard invalidation dropped")
	}
}
