// Package tzsignal fans out time-zone change broadcasts to registered
// receivers.
package tzsignal

import (
	"sync"
)

// Broadcaster delivers each published zone id to every current receiver.
// It is safe for concurrent use.
type Broadcaster struct {
	mu        sync.Mutex
	next      int
	receivers map[int]func(zone string)
	last      string
}

// New returns a broadcaster with no receivers.
func New() *Broadcaster {
	return &Broadcaster{receivers: make(map[int]func(string))}
}

// Subscribe registers fn. The returned cancel func is safe to call more
// than once.
func (b *Broadcaster) Subscribe(fn func(zone string)) (cancel func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.receivers[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.receivers, id)
			b.mu.Unlock()
		})
	}
}

// Publish sends zone to every receiver. Receivers are called outside the
// lock, in no particular order.
func (b *Broadcaster) Publish(zone string) {
	b.mu.Lock()
	b.last = zone
	fns := make([]func(string), 0, len(b.receivers))
	for _, fn := range b.receivers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(zone)
	}
}

// Last returns the most recently published zone, or "".
func (b *Broadcaster) Last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Receivers returns the number of registered receivers.
func (b *Broadcaster) Receivers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.receivers)
}
