// Package workers runs independent jobs on a bounded tunny pool.
package workers

import (
	"context"
	"runtime"
	"sync"

	"github.com/Jeffail/tunny"
)

// Size returns n, or GOMAXPROCS when n is not positive.
func Size(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

// Run calls fn for every item using at most workers goroutines and returns
// the per-item errors in item order. A cancelled ctx fails the items that
// have not started.
func Run[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) []error {
	results := make([]error, len(items))
	if len(items) == 0 {
		return results
	}

	size := min(Size(workers), len(items))
	pool := tunny.NewFunc(size, func(payload any) any {
		return fn(ctx, items[payload.(int)])
	})
	defer pool.Close()

	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := pool.ProcessCtx(ctx, i)
			if err != nil {
				results[i] = err
				return
			}
			if jobErr, ok := out.(error); ok {
				results[i] = jobErr
			}
		}(i)
	}
	wg.Wait()
	return results
}
