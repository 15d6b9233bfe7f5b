// Package async provides safe concurrent execution primitives for background tasks.
//
// SafeGo runs a function in a goroutine with a timeout and panic recovery:
//
//	async.SafeGo(ctx, logger, 30*time.Second, "initial warm", func(ctx context.Context) error {
//		return warmer.WarmAll(ctx)
//	})
//
// WorkerPool is a fixed set of workers fed by a bounded queue. TrySubmit never
// blocks, which makes it suitable for fire-and-forget work on a request path:
//
//	pool := async.NewWorkerPool(ctx, async.PoolConfig{Workers: 2, TaskName: "cache invalidation"})
//	defer pool.Shutdown(5 * time.Second)
//
//	if err := pool.TrySubmit(invalidate); err != nil {
//		logger.WithError(err).Warn("invalidation dropped")
//	}
//
// Batch processes a slice concurrently and collects every error:
//
//	errs := async.Batch(ctx, clientTypes, 3, "dashboard warm", 10*time.Second, warmOne)
package async
