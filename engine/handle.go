package engine

import (
	"sync"
	"sync/atomic"

	"github.com/sakaisatoru/go_sunshine_face/weathersub"
)

type eventKind int

const (
	evVisible eventKind = iota
	evAmbient
	evLowBit
	evRound
	evTimeTick
	evZone
	evTick
	evWeather
	evDestroy
)

func (k eventKind) String() string {
	switch k {
	case evVisible:
		return "visible"
	case evAmbient:
		return "ambient"
	case evLowBit:
		return "lowbit"
	case evRound:
		return "round"
	case evTimeTick:
		return "timetick"
	case evZone:
		return "timezone"
	case evTick:
		return "tick"
	case evWeather:
		return "weather"
	case evDestroy:
		return "destroy"
	}
	return "unknown"
}

type event struct {
	kind eventKind
	on   bool
	zone string
	seq  uint64
	id   uint64
	rows []weathersub.Row
}

type queue struct {
	events chan event
	done   chan struct{}
}

// Handle is a non-owning reference to a running engine. Timer callbacks,
// weather deliveries and outside callers reach the engine only through it;
// once the engine is torn down every post is a silent no-op.
type Handle struct {
	q    atomic.Pointer[queue]
	once sync.Once
	done chan struct{}
}

func newHandle(size int) *Handle {
	h := &Handle{done: make(chan struct{})}
	h.q.Store(&queue{events: make(chan event, size), done: h.done})
	return h
}

// Live reports whether the handle still refers to a running engine.
func (h *Handle) Live() bool {
	return h.q.Load() != nil
}

// post hands ev to the engine loop. It reports false when the engine is
// gone.
func (h *Handle) post(ev event) bool {
	q := h.q.Load()
	if q == nil {
		return false
	}
	select {
	case q.events <- ev:
		return true
	case <-q.done:
		return false
	}
}

func (h *Handle) events() <-chan event {
	if q := h.q.Load(); q != nil {
		return q.events
	}
	return nil
}

func (h *Handle) release() {
	h.once.Do(func() {
		h.q.Store(nil)
		close(h.done)
	})
}
