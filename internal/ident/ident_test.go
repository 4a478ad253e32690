package ident

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext_StrictlyIncreasingWithFrozenClock(t *testing.T) {
	frozen := time.UnixMilli(1_700_000_000_000)
	g := New(func() time.Time { return frozen })

	seen := map[string]bool{}
	prev := int64(0)
	for i := 0; i < 100; i++ {
		id := g.Next()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true

		n, err := strconv.ParseInt(id, 10, 64)
		require.NoError(t, err)
		assert.Greater(t, n, prev)
		prev = n
	}
}

func TestObserve(t *testing.T) {
	frozen := time.UnixMilli(1000)
	g := New(func() time.Time { return frozen })

	g.Observe("5000")
	g.Observe("not-a-number")
	assert.Equal(t, "5001", g.Next())

	g.Observe("10")
	assert.Equal(t, "5002", g.Next())
}
