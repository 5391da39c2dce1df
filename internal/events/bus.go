package events

import (
	"context"
	"sync"
)

// Event is a balance-change notification. Data is the JSON-ready payload
// delivered to subscribers and, with RedisBus, to the Redis channel named
// after the event.
type Event struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data"`
}

type Bus interface {
	Publish(ctx context.Context, e Event)
}

// LocalBus fans events out to in-process subscribers synchronously, in
// subscription order.
type LocalBus struct {
	mu   sync.RWMutex
	subs []func(Event)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

func (b *LocalBus) Publish(_ context.Context, e Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(e)
	}
}
