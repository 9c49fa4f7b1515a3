// Package pool runs independent tasks on a bounded number of workers and
// funnels their results through a single collector.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task produces zero or more results. Tasks report failures as data; they
// cannot abort their siblings.
type Task[T any] func(ctx context.Context) []T

// Collect runs tasks with at most workers in flight and returns every result
// in arrival order. Only the collector goroutine appends to the output.
func Collect[T any](ctx context.Context, workers int, tasks []Task[T]) []T {
	if len(tasks) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}

	results := make(chan []T, workers)
	done := make(chan []T)

	go func() {
		var out []T
		for batch := range results {
			out = append(out, batch...)
		}
		done <- out
	}()

	var g errgroup.Group
	g.SetLimit(workers)
	for _, task := range tasks {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if batch := task(ctx); len(batch) > 0 {
				results <- batch
			}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	return <-done
}
