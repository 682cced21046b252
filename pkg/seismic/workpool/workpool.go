// Package workpool provides a small bounded worker pool used everywhere
// spec.md calls for "a worker pool of size min(threads, len(items))": the
// waveform download pool, the metadata download pool, and the parallel
// provider-initialization step.
//
// Grounded on the khan-lab-EGAfetch reference orchestrator's
// errgroup.WithContext(ctx) + semaphore-channel pattern, and promotes
// golang.org/x/sync (present only as an indirect teacher dependency) to a
// direct one.
package workpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run executes fn(i) for each i in [0, n) with at most size concurrent
// calls. It returns the first non-nil error returned by any fn call;
// every other in-flight call is allowed to finish (errgroup cancels its
// derived context, but fn is responsible for checking it if it wants early
// exit). size is clamped to n if n is smaller, and raised to 1 if it is
// below 1. Run(ctx, 0, ...) returns nil without calling fn.
func Run(ctx context.Context, n, size int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}
	if size > n {
		size = n
	}
	if size < 1 {
		size = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, size)

	for i := 0; i < n; i++ {
		i := i
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			return g.Wait()
		}
		g.Go(func() error {
			defer func() { <-sem }()
			return fn(gctx, i)
		})
	}
	return g.Wait()
}

// Size returns min(threads, n), the pool-sizing rule spec.md uses
// throughout (§4.3 download_waveforms/download_metadata, §4.4 provider
// initialization).
func Size(threads, n int) int {
	if n < threads {
		return n
	}
	return threads
}
