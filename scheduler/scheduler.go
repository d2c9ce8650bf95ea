// Package scheduler decides when the periodic redraw tick runs.
//
// The tick runs only while the face is visible and interactive. Each tick is
// armed for the remainder of the current interval so ticks land on wall-clock
// second boundaries instead of drifting from the time they were requested.
package scheduler

import (
	"time"

	"github.com/sakaisatoru/go_sunshine_face/modectl"
)

// InteractiveRate is the tick period in interactive mode.
const InteractiveRate = time.Second

// Timer is a pending callback that can be stopped.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configure a Scheduler.
type Options struct {
	Rate time.Duration
	Now  func() time.Time
	// After arms timers. Defaults to time.AfterFunc.
	After AfterFunc
	// Fire is called from the timer goroutine with the sequence number of the
	// tick. It must hand the tick back to the engine loop, which then calls
	// Fired.
	Fire func(seq uint64)
}

// Scheduler owns the single outstanding tick. It is not safe for concurrent
// use; the engine calls it from its loop only.
type Scheduler struct {
	rate  time.Duration
	now   func() time.Time
	after AfterFunc
	fire  func(uint64)

	pending  Timer
	seq      uint64
	deadline time.Time
}

// New returns a scheduler with nothing armed.
func New(opts Options) *Scheduler {
	s := &Scheduler{
		rate:  opts.Rate,
		now:   opts.Now,
		after: opts.After,
		fire:  opts.Fire,
	}
	if s.rate <= 0 {
		s.rate = InteractiveRate
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.after == nil {
		s.after = stdAfterFunc
	}
	if s.fire == nil {
		s.fire = func(uint64) {}
	}
	return s
}

// ShouldRun reports whether the tick should be armed in st.
func ShouldRun(st modectl.State) bool {
	return st.Visible && !st.Ambient
}

// Delay returns the time left until the next multiple of rate. It is zero
// when now sits exactly on a boundary.
func Delay(now time.Time, rate time.Duration) time.Duration {
	ms := now.UnixMilli()
	r := rate.Milliseconds()
	if r <= 0 {
		return 0
	}
	rem := ms % r
	if rem == 0 {
		return 0
	}
	return time.Duration(r-rem) * time.Millisecond
}

// Reconcile cancels any pending tick and arms a new one if st calls for it.
// It reports whether a tick is armed afterwards.
func (s *Scheduler) Reconcile(st modectl.State) bool {
	s.Cancel()
	if !ShouldRun(st) {
		return false
	}
	now := s.now()
	d := Delay(now, s.rate)
	s.seq++
	seq := s.seq
	s.deadline = now.Add(d)
	s.pending = s.after(d, func() { s.fire(seq) })
	return true
}

// Cancel stops the pending tick. Cancelling with nothing armed is a no-op.
func (s *Scheduler) Cancel() {
	if s.pending == nil {
		return
	}
	s.pending.Stop()
	s.pending = nil
	s.deadline = time.Time{}
	// A callback already in flight carries the old sequence and is dropped
	// by Fired.
	s.seq++
}

// Fired consumes the tick with sequence seq. It returns false for ticks that
// were cancelled or replaced before they reached the loop.
func (s *Scheduler) Fired(seq uint64) bool {
	if s.pending == nil || seq != s.seq {
		return false
	}
	s.pending = nil
	s.deadline = time.Time{}
	return true
}

// Armed reports whether a tick is pending.
func (s *Scheduler) Armed() bool { return s.pending != nil }

// Deadline returns when the pending tick fires, or the zero time.
func (s *Scheduler) Deadline() time.Time { return s.deadline }
