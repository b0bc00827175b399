package selection

import (
	"sync"

	"github.com/google/uuid"
)

// Emitter receives the planning ID of a confirmed selection.  Emit is called
// in confirmation order and should return quickly, it must not call back into
// the Tracker.
type Emitter interface {
	Emit(planningID int)
}

// EmitterFunc adapts a function to the Emitter interface
type EmitterFunc func(planningID int)

// Emit calls f(planningID)
func (f EmitterFunc) Emit(planningID int) {
	f(planningID)
}

// MultiEmitter fans a confirmation out to several emitters in order
type MultiEmitter []Emitter

// Emit passes the planning ID to every emitter
func (m MultiEmitter) Emit(planningID int) {
	for _, e := range m {
		if e != nil {
			e.Emit(planningID)
		}
	}
}

// Broadcaster delivers confirmations to in-process subscribers.  Each
// subscriber has a buffered channel, a confirmation is dropped for a
// subscriber whose buffer is full rather than blocking the tracker.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]chan int
	buffer      int
	dropped     uint64
}

// NewBroadcaster returns a Broadcaster with the given per subscriber buffer
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}

	return &Broadcaster{
		subscribers: make(map[string]chan int),
		buffer:      buffer,
	}
}

// Subscribe creates a new channel receiving confirmed planning IDs.  The
// returned ID is used to Unsubscribe.
func (b *Broadcaster) Subscribe() (string, <-chan int) {
	id := uuid.NewString()
	ch := make(chan int, b.buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[id] = ch

	return id, ch
}

// Unsubscribe removes and closes the subscriber's channel
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Emit sends the planning ID to all subscribers without blocking
func (b *Broadcaster) Emit(planningID int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- planningID:
		default:
			b.dropped++
		}
	}
}

// Dropped returns the number of deliveries dropped due to full buffers
func (b *Broadcaster) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close unsubscribes all subscribers
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
