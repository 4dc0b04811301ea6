package directory

import (
	"context"
	"database/sql/driver"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDo_CollapsesConcurrentQueries starts many concurrent Do calls against
// an empty cache and asserts only one of them actually ran query, with
// every caller observing the same result (spec.md §4.2's stampede test).
func TestDo_CollapsesConcurrentQueries(t *testing.T) {
	m := NewMemoizer()

	var (
		mu      sync.Mutex
		cached  int
		haveVal bool
	)
	check := func() (int, bool) {
		mu.Lock()
		defer mu.Unlock()
		return cached, haveVal
	}

	var queryCount atomic.Int64
	const n = 50
	var wg sync.WaitGroup
	results := make([]int, n)
	errs := make([]error, n)

	start := make(chan struct{})
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, err := Do(context.Background(), m, check, func(ctx context.Context) (int, error) {
				queryCount.Add(1)
				time.Sleep(10 * time.Millisecond)
				mu.Lock()
				cached = 7
				haveVal = true
				mu.Unlock()
				return 7, nil
			})
			results[i] = v
			errs[i] = err
		}()
	}
	close(start)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 7, results[i])
	}
	assert.Equal(t, int64(1), queryCount.Load(), "expected exactly one query to run under the lock")
}

// TestDo_CacheHitSkipsQuery asserts that when check already reports a hit,
// query is never invoked.
func TestDo_CacheHitSkipsQuery(t *testing.T) {
	m := NewMemoizer()

	check := func() (string, bool) { return "cached-value", true }
	queried := false
	query := func(ctx context.Context) (string, error) {
		queried = true
		return "fresh-value", nil
	}

	v, err := Do(context.Background(), m, check, query)
	require.NoError(t, err)
	assert.Equal(t, "cached-value", v)
	assert.False(t, queried)
}

// TestDo_RetriesOnOperationalError asserts Do restarts from check() after
// an operational error from query, rather than returning the error.
func TestDo_RetriesOnOperationalError(t *testing.T) {
	m := NewMemoizer()

	var calls int
	check := func() (int, bool) { return 0, false }
	query := func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, driver.ErrBadConn
		}
		return 9, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	v, err := Do(ctx, m, check, query)
	require.NoError(t, err)
	assert.Equal(t, 9, v)
	assert.Equal(t, 3, calls)
}

// TestDo_FatalErrorReturnsImmediately asserts a non-operational error from
// query is returned to the caller without retry.
func TestDo_FatalErrorReturnsImmediately(t *testing.T) {
	m := NewMemoizer()

	calls := 0
	check := func() (int, bool) { return 0, false }
	query := func(ctx context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("permission denied for table collection")
	}

	_, err := Do(context.Background(), m, check, query)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
