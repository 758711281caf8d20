// Package parallel runs independent pieces of work on a bounded number of
// goroutines. The pipeline runner uses it to load job inputs concurrently.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// WorkerPool bounds how many work items run at once
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a pool of numWorkers workers; zero or a negative
// count uses runtime.NumCPU().
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{numWorkers: numWorkers}
}

// Workers returns the pool size
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// ProcessIndexed runs worker over items and returns the results in item
// order. The first error cancels the context passed to the remaining
// workers and is returned; results of items that finished are still
// returned so the caller can release them.
func ProcessIndexed[T, R any](
	ctx context.Context,
	wp *WorkerPool,
	items []T,
	worker func(ctx context.Context, index int, item T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(wp.numWorkers)

	results := make([]R, len(items))
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := worker(ctx, i, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	return results, g.Wait()
}
