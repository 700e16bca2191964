package dedup

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckDuplicate(t *testing.T) {
	keys := NewKeys("a_1", "b_1")
	assert.Equal(t, Duplicate, CheckDuplicate("a_1", keys))
	assert.Equal(t, New, CheckDuplicate("a_2", keys))
	assert.Equal(t, New, CheckDuplicate("c_1", Keys{}))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "new", New.String())
	assert.Equal(t, "duplicate", Duplicate.String())
}

func TestGateLifecycle(t *testing.T) {
	g := NewGate([]string{"old"})
	assert.Equal(t, Duplicate, g.Reserve("old"))
	assert.Equal(t, Duplicate, CheckDuplicate("old", g))

	assert.Equal(t, New, g.Reserve("k"))
	assert.Equal(t, Duplicate, g.Reserve("k"), "pending key counts as seen")

	g.Release("k")
	assert.False(t, g.Contains("k"))
	assert.Equal(t, New, g.Reserve("k"), "released key can be retried")

	g.Commit("k")
	g.Release("k")
	assert.True(t, g.Contains("k"), "release leaves committed keys")
	assert.Equal(t, 2, g.Committed())
}

func TestGateConcurrentReserve(t *testing.T) {
	g := NewGate(nil)
	const workers = 16
	const keys = 200

	var wins atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < keys; i++ {
				if g.Reserve(fmt.Sprintf("key-%d", i)) == New {
					wins.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(keys), wins.Load(), "each key reserved exactly once")
}
