package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"assocdesign/internal"

	"golang.org/x/sync/errgroup"
)

// Executor runs independent indexed units of work on a bounded worker pool.
// Units write only to their own result slot, so no locking is needed beyond
// the pool itself.
type Executor struct {
	workers int
	logger  *internal.Logger
}

// NewExecutor creates an executor. workers <= 0 uses every CPU; 1 runs the
// units serially in index order.
func NewExecutor(workers int, logger *internal.Logger) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Executor{workers: workers, logger: logger.With("executor")}
}

// Workers returns the pool size.
func (e *Executor) Workers() int {
	return e.workers
}

// Run calls fn for every index in [0, n). The first error cancels the
// remaining units and is returned. The context is checked between units;
// a unit that has started always runs to completion.
func (e *Executor) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	start := time.Now()
	if e.workers == 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		e.logger.Debug("%d units done serially in %v", n, time.Since(start))
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	var done atomic.Int64
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(gctx, i); err != nil {
				return fmt.Errorf("unit %d: %w", i, err)
			}
			done.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Error("%d/%d units done before failure: %v", done.Load(), n, err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.logger.Debug("%d units done on %d workers in %v", n, e.workers, time.Since(start))
	return nil
}
