package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundRobin_Rotates(t *testing.T) {
	rr := NewRoundRobin([]string{"a", "b", "c"})

	seen := make(map[string]int)
	for i := 0; i < 9; i++ {
		seen[rr.Next()]++
	}
	assert.Equal(t, 3, seen["a"])
	assert.Equal(t, 3, seen["b"])
	assert.Equal(t, 3, seen["c"])
}

func TestRoundRobin_DeclarationOrder(t *testing.T) {
	rr := NewRoundRobin([]string{"m1", "m2"})
	assert.Equal(t, "m1", rr.Next())
	assert.Equal(t, "m2", rr.Next())
	assert.Equal(t, "m1", rr.Next())
}

func TestRoundRobin_SingleDest(t *testing.T) {
	rr := NewRoundRobin([]string{"only"})
	for i := 0; i < 3; i++ {
		assert.Equal(t, "only", rr.Next())
	}
}
