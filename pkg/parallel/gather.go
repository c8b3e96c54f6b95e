package parallel

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Result is the outcome of one gathered task.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Failed reports whether the task returned an error.
func (result Result[T]) Failed() bool {
	return result.Err != nil
}

// Gather runs every task with at most limit in flight and returns one result
// per task in input order. Failures never cancel siblings and a panicking
// task is reported as ErrTaskPanicked. A task that could
// not start because ctx ended carries the context error. limit <= 0 means
// DefaultMaxConcurrency().
func Gather[T any](ctx context.Context, limit int64, tasks ...func(context.Context) (T, error)) []Result[T] {
	results := make([]Result[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}

	if limit <= 0 {
		limit = DefaultMaxConcurrency()
	}

	sem := semaphore.NewWeighted(limit)

	var group sync.WaitGroup

	for index, task := range tasks {
		results[index].Index = index

		group.Go(func() {
			acquireErr := sem.Acquire(ctx, 1)
			if acquireErr != nil {
				results[index].Err = fmt.Errorf("acquire semaphore: %w", acquireErr)

				return
			}

			defer sem.Release(1)

			defer func() {
				if recovered := recover(); recovered != nil {
					results[index].Err = fmt.Errorf("%w: %v", ErrTaskPanicked, recovered)
				}
			}()

			results[index].Value, results[index].Err = task(ctx)
		})
	}

	group.Wait()

	return results
}

// Errors returns the non-nil errors of results in input order.
func Errors[T any](results []Result[T]) []error {
	var errs []error

	for _, result := range results {
		if result.Err != nil {
			errs = append(errs, result.Err)
		}
	}

	return errs
}
