package weatherdb

import (
	"context"
	"sync"

	"github.com/sakaisatoru/go_sunshine_face/weathersub"
)

// watcher is one live query. It runs the query once on subscribe and again
// every time a Save touches its location, delivering each result. AsOf
// follows the store clock, so days that arrive while the query is live are
// seen once their date is reached.
type watcher struct {
	store   *Store
	key     int
	q       weathersub.Query
	deliver func([]weathersub.Row)
	changed chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Subscribe implements weathersub.Provider. deliver runs on a goroutine
// owned by the store; it receives nil when the query fails.
func (s *Store) Subscribe(q weathersub.Query, deliver func([]weathersub.Row)) (weathersub.Subscription, error) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &watcher{
		store:   s,
		q:       q,
		deliver: deliver,
		changed: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.mu.Lock()
	s.next++
	w.key = s.next
	s.watchers[w.key] = w
	s.mu.Unlock()

	go w.run()
	s.log.Debug("weatherdb: subscribed", "location", q.Location, "as_of", q.AsOf)
	return w, nil
}

func (s *Store) notify(location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchers {
		if w.q.Location != location {
			continue
		}
		select {
		case w.changed <- struct{}{}:
		default:
		}
	}
}

func (w *watcher) run() {
	defer close(w.done)
	for {
		rows, err := w.store.Latest(w.ctx, w.query())
		if w.ctx.Err() != nil {
			return
		}
		if err != nil {
			w.store.log.Warn("weatherdb: query failed", "location", w.q.Location, "error", err)
			rows = nil
		}
		w.deliver(rows)

		select {
		case <-w.ctx.Done():
			return
		case <-w.changed:
		}
	}
}

func (w *watcher) query() weathersub.Query {
	q := w.q
	if now := w.store.now(); now.After(q.AsOf) {
		q.AsOf = now
	}
	return q
}

// Cancel stops redelivery. It does not wait: a delivery already in flight
// may still arrive, and the subscriber is expected to ignore it. It is safe
// to call more than once.
func (w *watcher) Cancel() {
	w.once.Do(func() {
		w.cancel()
		w.store.mu.Lock()
		delete(w.store.watchers, w.key)
		w.store.mu.Unlock()
	})
}

// wait blocks until the watcher goroutine has returned.
func (w *watcher) wait() { <-w.done }
