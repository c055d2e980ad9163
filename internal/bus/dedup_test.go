package bus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/convene/convene/internal/bus"
)

func TestSeenSet_FirstSeenReturnsFalse(t *testing.T) {
	s := bus.NewSeenSet(10)
	assert.False(t, s.SeenOrAdd("a"))
	assert.True(t, s.SeenOrAdd("a"))
}

func TestSeenSet_EvictsOldestOverCapacity(t *testing.T) {
	s := bus.NewSeenSet(2)
	s.SeenOrAdd("a")
	s.SeenOrAdd("b")
	s.SeenOrAdd("c") // evicts "a"

	assert.Equal(t, 2, s.Len())
	assert.False(t, s.SeenOrAdd("a")) // forgotten, treated as new
	assert.True(t, s.SeenOrAdd("c"))  // still remembered
}

func TestSeenSet_DefaultsWhenNonPositiveLimit(t *testing.T) {
	s := bus.NewSeenSet(0)
	assert.False(t, s.SeenOrAdd("x"))
}

func TestSeenSet_ContainsDoesNotInsert(t *testing.T) {
	s := bus.NewSeenSet(10)
	assert.False(t, s.Contains("a"))
	assert.False(t, s.SeenOrAdd("a")) // still first-seen
}
