// Package worker provides a generic bounded worker pool. The executor
// uses it to run subscription and service handlers off the wait loop,
// but it carries no middleware types and can run any work shape.
//
// Submission is non-blocking: when the queue is full the item is
// dropped and Submit returns ErrQueueFull, which keeps a slow handler
// from stalling the loop that feeds it.
//
//	pool := worker.NewPool(4, 256, func(ctx context.Context, j job) error {
//		return handle(ctx, j)
//	})
//	if err := pool.Start(ctx); err != nil { ... }
//	defer pool.Stop(5 * time.Second)
//	_ = pool.Submit(job{...})
package worker
