// Package broadcast – in-process broker.
package broadcast

import (
	"context"
	"sync"
)

// subscriberBuffer bounds each subscriber's channel. A consumer that falls
// further behind than this loses events rather than blocking publishers;
// the snapshot-on-reconnect protocol recovers anything dropped.
const subscriberBuffer = 16

// MemoryBroker fans events out to in-process subscribers. It backs the
// single-node deployment and every test that needs live delivery without
// external infrastructure.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewMemoryBroker returns an empty hub.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[int]chan Event)}
}

// Publish delivers ev to every subscriber without blocking. Slow consumers
// are skipped once their buffer is full.
func (b *MemoryBroker) Publish(ctx context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe registers a consumer. The subscription ends when Close is called
// on it, or when the broker shuts down.
func (b *MemoryBroker) Subscribe(ctx context.Context) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan Event)
		close(ch)
		return &Subscription{C: ch}, nil
	}

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	return &Subscription{
		C: ch,
		cancel: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		},
	}, nil
}

// Subscribers reports the current membership count (the presence signal).
func (b *MemoryBroker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}
