package bus

import (
	"context"
	"sync"
)

// LocalBus is a direct in-process implementation of Bus: Publish calls
// every registered Handler synchronously. A RoomManager configured without
// a bus URL gets one shared LocalBus, so rooms on the same process still
// exercise the federation interface without a networked backbone.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[string]map[int]Handler
	nextID   int
}

// NewLocalBus returns a ready-to-use LocalBus.
func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[string]map[int]Handler)}
}

func (b *LocalBus) Connect(ctx context.Context) error { return nil }

func (b *LocalBus) Publish(ctx context.Context, channel string, msg Message) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[channel]))
	for _, h := range b.handlers[channel] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
	return nil
}

func (b *LocalBus) Subscribe(channel string, h Handler) Unsubscribe {
	b.mu.Lock()
	if b.handlers[channel] == nil {
		b.handlers[channel] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.handlers[channel][id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers[channel], id)
		b.mu.Unlock()
	}
}

func (b *LocalBus) Close() error { return nil }
