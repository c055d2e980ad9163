package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListenerRegistry_EmitsInRegistrationOrder(t *testing.T) {
	reg := newListenerRegistry()
	var order []int
	reg.subscribe(func(ResolvedEvent) { order = append(order, 1) })
	reg.subscribe(func(ResolvedEvent) { order = append(order, 2) })
	reg.subscribe(func(ResolvedEvent) { order = append(order, 3) })

	reg.emit(ResolvedEvent{})
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestListenerRegistry_Unsubscribe(t *testing.T) {
	reg := newListenerRegistry()
	var called bool
	unsub := reg.subscribe(func(ResolvedEvent) { called = true })
	unsub()

	reg.emit(ResolvedEvent{})
	assert.False(t, called)
}

func TestListenerRegistry_UnsubscribeOnlyRemovesTarget(t *testing.T) {
	reg := newListenerRegistry()
	var a, b int
	unsubA := reg.subscribe(func(ResolvedEvent) { a++ })
	reg.subscribe(func(ResolvedEvent) { b++ })

	unsubA()
	reg.emit(ResolvedEvent{})
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
}
