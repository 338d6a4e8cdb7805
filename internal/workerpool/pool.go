// Package workerpool implements the shared, fixed-size worker pool
// described in spec.md §5 ("parallel threads backed by a shared worker
// pool whose size is fixed at startup"). It is grounded on the
// teacher's server/metadata/iceberg.WorkerPool/Worker, generalized from
// a fire-and-forget task queue into an indexed-result runner, because
// the Parallel Group Writer and the manifest enricher both require
// output order to match input order (spec.md §4.3, §9).
package workerpool

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// Pool bounds the number of goroutines concurrently doing work across
// every caller that shares it, matching the teacher's
// NewManager(...)'s runtime.GOMAXPROCS(0) sizing.
type Pool struct {
	size   int
	sem    chan struct{}
	logger zerolog.Logger
}

// New creates a pool with the given concurrency. size < 1 is clamped to 1.
func New(size int, logger zerolog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{size: size, sem: make(chan struct{}, size), logger: logger}
}

// Default creates a pool sized to GOMAXPROCS, as the teacher's Manager does.
func Default(logger zerolog.Logger) *Pool {
	return New(runtime.GOMAXPROCS(0), logger)
}

// Size returns the pool's configured concurrency.
func (p *Pool) Size() int { return p.size }

// RunIndexed runs n independent jobs bounded by the pool's concurrency
// and returns their results in index order. On the first job error,
// the shared context is cancelled so in-flight and not-yet-started
// jobs abandon their work (spec.md §4.3 "stop-on-failure"); the first
// error observed is returned. Abandoned jobs' side effects (partially
// written files) become orphans reclaimed by the caller's cleanup path.
func RunIndexed[T any](ctx context.Context, p *Pool, n int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	results := make([]T, n)
	if n == 0 {
		return results, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i := 0; i < n; i++ {
		i := i
		select {
		case p.sem <- struct{}{}:
		case <-runCtx.Done():
			mu.Lock()
			if firstErr == nil {
				firstErr = runCtx.Err()
			}
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-p.sem }()

			select {
			case <-runCtx.Done():
				return
			default:
			}

			res, err := fn(runCtx, i)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
				return
			}
			results[i] = res
		}()
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
