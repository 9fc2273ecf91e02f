package view

import "sync"

// Event announces that a session installed a new state revision.
type Event struct {
	Revision uint64
	Kind     string // "basemap" or "dataset"
}

// Event kinds.
const (
	KindBasemap = "basemap"
	KindDataset = "dataset"
)

// Bus is a fan-out pub/sub for one session's revisions.
type Bus struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Publish sends e to every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber too slow; it re-reads the latest state on the next event
		}
	}
}

// Subscribe returns a buffered channel that receives events. On a closed bus
// the channel is returned already closed.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; !ok {
		return
	}
	delete(b.subs, ch)
	close(ch)
}

// Close closes every subscriber channel. Later subscriptions see a closed channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	clear(b.subs)
}
