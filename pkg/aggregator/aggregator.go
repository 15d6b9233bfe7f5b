package aggregator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/insightflow/insightflow-bff/pkg/observability"
	"github.com/insightflow/insightflow-bff/pkg/upstream"
)

const tracerName = "github.com/insightflow/insightflow-bff/pkg/aggregator"

// StatsSource is the subset of the upstream client the aggregator calls
type StatsSource interface {
	OnlineStats(ctx context.Context) (upstream.OnlineStats, error)
	HotPages(ctx context.Context) (upstream.HotPages, error)
	EventStats(ctx context.Context) (upstream.EventStats, error)
	ConversionStats(ctx context.Context) (upstream.ConversionStats, error)
}

// Aggregator fans out to the upstream and joins the results.
// A failing call never cancels its siblings.
type Aggregator struct {
	source  StatsSource
	logger  *observability.Logger
	metrics *observability.Metrics
}

// New creates an aggregator over source
func New(source StatsSource, logger *observability.Logger, metrics *observability.Metrics) *Aggregator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = observability.NewUnregisteredMetrics()
	}
	return &Aggregator{
		source:  source,
		logger:  logger.WithField("component", "aggregator"),
		metrics: metrics,
	}
}

// FetchDashboardInputs runs the four dashboard calls concurrently and waits for all of them
func (a *Aggregator) FetchDashboardInputs(ctx context.Context) DashboardInputs {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "aggregator.dashboard")
	defer span.End()

	var in DashboardInputs
	var g errgroup.Group

	g.Go(func() error {
		in.Online = fetch(ctx, SlotOnline, a.source.OnlineStats)
		return nil
	})
	g.Go(func() error {
		in.HotPages = fetch(ctx, SlotHotPages, a.source.HotPages)
		return nil
	})
	g.Go(func() error {
		in.Events = fetch(ctx, SlotEvents, a.source.EventStats)
		return nil
	})
	g.Go(func() error {
		in.Conversion = fetch(ctx, SlotConversion, a.source.ConversionStats)
		return nil
	})
	_ = g.Wait()

	a.report(ctx, "dashboard", map[string]error{
		SlotOnline:     in.Online.Err,
		SlotHotPages:   in.HotPages.Err,
		SlotEvents:     in.Events.Err,
		SlotConversion: in.Conversion.Err,
	})
	span.SetAttributes(attribute.StringSlice("aggregator.failed_slots", in.Failed()))

	return in
}

// FetchRealtimeInputs runs the online and events calls concurrently
func (a *Aggregator) FetchRealtimeInputs(ctx context.Context) RealtimeInputs {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "aggregator.realtime")
	defer span.End()

	var in RealtimeInputs
	var g errgroup.Group

	g.Go(func() error {
		in.Online = fetch(ctx, SlotOnline, a.source.OnlineStats)
		return nil
	})
	g.Go(func() error {
		in.Events = fetch(ctx, SlotEvents, a.source.EventStats)
		return nil
	})
	_ = g.Wait()

	a.report(ctx, "realtime", map[string]error{
		SlotOnline: in.Online.Err,
		SlotEvents: in.Events.Err,
	})
	span.SetAttributes(attribute.StringSlice("aggregator.failed_slots", in.Failed()))

	return in
}

func (a *Aggregator) report(ctx context.Context, view string, errs map[string]error) {
	for slot, err := range errs {
		if err == nil {
			continue
		}
		a.metrics.AggregatorSlotFailuresTotal.WithLabelValues(slot).Inc()
		observability.FromContext(ctx).
			WithError(err).
			WithFields(map[string]interface{}{"view": view, "slot": slot}).
			Warn("Upstream call failed, using default")
	}
}

// fetch runs one branch in its own span and captures the outcome.
// Panics are converted into a failed slot so one branch cannot take down the request.
func fetch[T any](ctx context.Context, name string, call func(context.Context) (T, error)) (slot Slot[T]) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "aggregator."+name)
	defer span.End()

	defer func() {
		if err := observability.MustRecover(recover()); err != nil {
			slot = Slot[T]{Err: err}
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	value, err := call(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Slot[T]{Err: err}
	}
	return Slot[T]{Value: value}
}
