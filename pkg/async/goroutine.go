package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/insightflow/insightflow-bff/pkg/observability"
)

var (
	// ErrPoolClosed is returned when submitting to a pool that is shutting down
	ErrPoolClosed = errors.New("worker pool shut down")
	// ErrPoolFull is returned by TrySubmit when the queue has no room
	ErrPoolFull = errors.New("worker pool queue full")
)

// SafeGo executes a function in a goroutine with a timeout and panic recovery.
// Errors and panics are logged, never propagated.
//
//	SafeGo(ctx, logger, 10*time.Second, "initial cache warm", func(ctx context.Context) error {
//	    return warmer.WarmAll(ctx)
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Warn("Background task failed")
		}
	}()
}

// PoolConfig configures a WorkerPool
type PoolConfig struct {
	Workers   int
	QueueSize int
	TaskName  string
	// Timeout bounds each task
	Timeout time.Duration
	Logger  *observability.Logger
}

// WorkerPool runs submitted tasks on a fixed set of goroutines.
// Task errors and panics are logged with the worker ID.
type WorkerPool struct {
	cfg    PoolConfig
	logger *observability.Logger

	mu     sync.RWMutex
	closed bool

	workCh chan func(context.Context) error
	doneCh chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	shutdownOnce sync.Once
}

// NewWorkerPool creates a pool and starts its workers
//
//	pool := NewWorkerPool(ctx, PoolConfig{Workers: 2, TaskName: "cache invalidation", Timeout: 5 * time.Second})
//	defer pool.Shutdown(5 * time.Second)
func NewWorkerPool(ctx context.Context, cfg PoolConfig) *WorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}

	ctx, cancel := context.WithCancel(ctx)

	pool := &WorkerPool{
		cfg:    cfg,
		logger: cfg.Logger.WithField("pool", cfg.TaskName),
		workCh: make(chan func(context.Context) error, cfg.QueueSize),
		doneCh: make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}

	go func() {
		var wg sync.WaitGroup
		for i := 0; i < cfg.Workers; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				pool.worker(id)
			}(i)
		}
		wg.Wait()
		close(pool.doneCh)
	}()

	return pool
}

// Submit queues a task, blocking while the queue is full
func (p *WorkerPool) Submit(fn func(context.Context) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.workCh <- fn:
		return nil
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// TrySubmit queues a task without blocking. It returns ErrPoolFull when the
// queue has no room.
func (p *WorkerPool) TrySubmit(fn func(context.Context) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.workCh <- fn:
		return nil
	default:
		return ErrPoolFull
	}
}

// Shutdown stops accepting work and waits up to timeout for queued tasks to finish
func (p *WorkerPool) Shutdown(timeout time.Duration) error {
	var shutdownErr error

	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.workCh)
		p.mu.Unlock()

		select {
		case <-p.doneCh:
			p.cancel()
		case <-time.After(timeout):
			p.cancel()
			shutdownErr = fmt.Errorf("worker pool shutdown timed out after %v", timeout)
		}
	})

	return shutdownErr
}

func (p *WorkerPool) worker(id int) {
	for {
		select {
		case <-p.ctx.Done():
			return

		case fn, ok := <-p.workCh:
			if !ok {
				return
			}
			p.run(id, fn)
		}
	}
}

func (p *WorkerPool) run(id int, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	var err error
	func() {
		defer func() {
			if perr := observability.MustRecover(recover()); perr != nil {
				err = perr
			}
		}()
		err = fn(ctx)
	}()

	if err == nil {
		return
	}

	p.logger.WithError(err).WithField("worker", id).Warn("Task failed")
}

// Batch processes items concurrently on a temporary pool and returns every error.
//
//	errs := Batch(ctx, []string{"web", "mobile", "tv"}, 3, "dashboard warm", 10*time.Second, warmOne)
func Batch[T any](ctx context.Context, items []T, workers int, taskName string, timeout time.Duration,
	fn func(context.Context, T) error) []error {

	pool := NewWorkerPool(ctx, PoolConfig{
		Workers:   workers,
		QueueSize: len(items) + 1,
		TaskName:  taskName,
		Timeout:   timeout,
	})

	var mu sync.Mutex
	var errs []error
	for _, item := range items {
		item := item
		if err := pool.Submit(func(ctx context.Context) error {
			if err := fn(ctx, item); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		}); err != nil {
			pool.Shutdown(timeout)
			return []error{err}
		}
	}

	// Drain everything that was queued; a fresh pool never times out before its tasks do
	if err := pool.Shutdown(timeout * time.Duration(len(items)+1)); err != nil {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	mu.Lock()
	defer mu.Unlock()
	return errs
}
