// Package concurrency implements the two fan-out primitives the migration
// pipeline uses for I/O overlap (§4.G, §5): a bounded-parallel map that
// preserves input order in its results, and an async-lookahead iterator
// that always keeps one element pre-fetched.
package concurrency

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// TaskFunc produces the result for one input item.
type TaskFunc[T any] func(ctx context.Context) (T, error)

// BoundedParallelMap runs tasks with at most degreeOfParallelism in flight
// at once. Results are returned in the same order as tasks regardless of
// completion order. If ctx is canceled, no new tasks are started and
// already-running ones are awaited; a genuine task failure is surfaced in
// preference to the cancellation itself, matching errgroup's first-error
// semantics.
func BoundedParallelMap[T any](ctx context.Context, tasks []TaskFunc[T], degreeOfParallelism int) ([]T, error) {
	if degreeOfParallelism < 1 {
		degreeOfParallelism = 1
	}
	results := make([]T, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(degreeOfParallelism)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := task(gctx)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
