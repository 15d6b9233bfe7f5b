package views

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/insightflow/insightflow-bff/pkg/adapter"
	"github.com/insightflow/insightflow-bff/pkg/async"
	"github.com/insightflow/insightflow-bff/pkg/observability"
)

// Warmer periodically recomputes every client type's dashboard so reads hit the cache
type Warmer struct {
	resolver *Resolver
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	logger   *observability.Logger
}

// NewWarmer creates a warmer for a cron schedule such as "@every 25s".
// The schedule is validated here; an empty schedule is an error.
func NewWarmer(resolver *Resolver, schedule string, timeout time.Duration, logger *observability.Logger) (*Warmer, error) {
	if schedule == "" {
		return nil, fmt.Errorf("warm schedule is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	w := &Warmer{
		resolver: resolver,
		schedule: schedule,
		timeout:  timeout,
		cron:     cron.New(),
		logger:   logger.WithField("component", "warmer"),
	}

	if _, err := w.cron.AddFunc(schedule, w.run); err != nil {
		return nil, fmt.Errorf("invalid warm schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Start begins scheduled warming
func (w *Warmer) Start() {
	w.cron.Start()
	w.logger.Infof("Dashboard warmer started with schedule %s", w.schedule)
}

// Stop halts scheduling and waits for a running warm to finish or ctx to end
func (w *Warmer) Stop(ctx context.Context) error {
	done := w.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Warmer) run() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.WarmAll(ctx); err != nil {
		w.logger.WithError(err).Warn("Dashboard warm incomplete")
	}
}

// WarmAll refreshes every client type's dashboard concurrently
func (w *Warmer) WarmAll(ctx context.Context) error {
	errs := async.Batch(ctx, adapter.ClientTypes, len(adapter.ClientTypes), "dashboard warm", w.timeout,
		func(ctx context.Context, ct adapter.ClientType) error {
			return w.resolver.RefreshDashboard(ctx, ct)
		})
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d dashboards not warmed: %v", len(errs), len(adapter.ClientTypes), errs[0])
	}
	w.logger.Debug("Dashboards warmed")
	return nil
}
