// Package events fans chain events out to subscribers such as websocket
// clients. A short backlog of recent events is kept so a subscriber that
// joins late still sees the latest blocks.
package events

import (
	"fmt"
	"sync"
)

// messageBuffer is the number of events a subscriber can fall behind before
// events are dropped for it.
const messageBuffer = 100

// DefaultBacklog is the number of recent events replayed to new subscribers.
const DefaultBacklog = 20

// Events maintains the set of subscribers and the backlog of recent events.
type Events struct {
	mu      sync.RWMutex
	subs    map[string]chan string
	backlog []string
	size    int
	shut    bool
}

// New constructs an Events that keeps the specified number of recent events.
// A negative size is treated as zero.
func New(backlog int) *Events {
	if backlog < 0 {
		backlog = 0
	}
	if backlog > messageBuffer {
		backlog = messageBuffer
	}

	return &Events{
		subs: make(map[string]chan string),
		size: backlog,
	}
}

// Shutdown closes every subscriber channel. Any later Acquire receives a
// closed channel.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	evt.shut = true
	for id, ch := range evt.subs {
		delete(evt.subs, id)
		close(ch)
	}
}

// Acquire registers the id and returns the channel its events arrive on.
// The backlog is queued on the channel first. Acquiring an id twice returns
// the same channel.
func (evt *Events) Acquire(id string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.subs[id]; exists {
		return ch
	}

	ch := make(chan string, messageBuffer)
	if evt.shut {
		close(ch)
		return ch
	}

	for _, s := range evt.backlog {
		ch <- s
	}
	evt.subs[id] = ch

	return ch
}

// Release closes and removes the subscriber's channel.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.subs, id)
	close(ch)

	return nil
}

// Count returns the number of subscribers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.subs)
}

// Send records the event in the backlog and offers it to every subscriber.
// A subscriber whose buffer is full misses the event; Send never blocks.
func (evt *Events) Send(s string) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if evt.shut {
		return
	}

	if evt.size > 0 {
		if len(evt.backlog) == evt.size {
			evt.backlog = append(evt.backlog[:0], evt.backlog[1:]...)
		}
		evt.backlog = append(evt.backlog, s)
	}

	for _, ch := range evt.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
