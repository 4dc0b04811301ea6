package directory

import (
	"context"
	"sync"
	"time"
)

// Memoizer collapses simultaneous identical directory queries into a
// single outbound request (spec.md §4.2). It holds one process-wide,
// plain (non-reentrant) mutex: Design Notes §9 prefers this over the
// source's re-entrant lock, since Do's reconnect path here is a flat
// release/sleep/reacquire sequence rather than a nested acquisition.
type Memoizer struct {
	mu sync.Mutex
}

// NewMemoizer returns a ready-to-use Memoizer.
func NewMemoizer() *Memoizer {
	return &Memoizer{}
}

// Do runs the stampede-safe protocol: lock, re-check the cache, and only
// query the directory if the cache still misses. check must be
// side-effect free and safe to call under the lock; it reports (value,
// true) on a cache hit. query performs the actual directory call. On an
// operational error from query, Do releases the lock, sleeps one second,
// and restarts from the top — so the next waiter's check() observes
// whatever the eventual winner wrote to the cache.
func Do[T any](ctx context.Context, m *Memoizer, check func() (T, bool), query func(context.Context) (T, error)) (T, error) {
	for {
		m.mu.Lock()

		if v, ok := check(); ok {
			m.mu.Unlock()
			return v, nil
		}

		v, err := query(ctx)
		if err == nil {
			m.mu.Unlock()
			return v, nil
		}

		m.mu.Unlock()

		if !isOperational(err) {
			var zero T
			return zero, err
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}
