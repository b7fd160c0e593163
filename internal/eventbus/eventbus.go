// Package eventbus provides the in-process publish/subscribe channel used
// to decouple the dispatch engine from metrics collection and the API
// layer. Delivery is non-blocking: a slow subscriber drops events rather
// than stalling a dispatch pass.
package eventbus

import "sync"

// Event is an arbitrary engine event; concrete types live in core/events.
type Event interface{}

// EventBus is the pub/sub contract.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// subscriber buffer; events beyond it are dropped for that subscriber.
const subBuffer = 16

// Bus is the default EventBus implementation.
type Bus struct {
	mu     sync.RWMutex
	subs   map[<-chan Event]chan Event
	closed bool
}

// New creates a new Bus.
func New() *Bus {
	return &Bus{subs: make(map[<-chan Event]chan Event)}
}

// Publish sends the event to all subscribers without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, subBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = ch
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.subs[sub]
	if !ok {
		return
	}
	delete(b.subs, sub)
	if !b.closed {
		close(ch)
	}
}

// Close closes all subscriber channels; subsequent publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
