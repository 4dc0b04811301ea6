package liveness

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_CachesLookups(t *testing.T) {
	r := NewResolver(10)
	calls := 0
	r.lookup = func(host string) (string, error) {
		calls++
		return "10.0.0.1", nil
	}

	for i := 0; i < 5; i++ {
		addr, err := r.Resolve("host-a")
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.1", addr)
	}
	assert.Equal(t, 1, calls, "expected one underlying lookup despite repeated Resolve calls")
}

func TestResolver_EvictsOldestBeyondCapacity(t *testing.T) {
	r := NewResolver(2)
	r.lookup = func(host string) (string, error) {
		return fmt.Sprintf("addr-%s", host), nil
	}

	_, err := r.Resolve("a")
	require.NoError(t, err)
	_, err = r.Resolve("b")
	require.NoError(t, err)
	_, err = r.Resolve("c")
	require.NoError(t, err)

	r.mu.Lock()
	_, stillCached := r.addrs["a"]
	r.mu.Unlock()
	assert.False(t, stillCached, "oldest entry should have been evicted")
}

func TestResolver_PropagatesLookupError(t *testing.T) {
	r := NewResolver(10)
	r.lookup = func(host string) (string, error) {
		return "", fmt.Errorf("no such host")
	}

	_, err := r.Resolve("bad-host")
	assert.Error(t, err)
}
