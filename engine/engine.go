// Package engine runs the clock face: it owns the mode controller, the tick
// scheduler, the weather subscription and the snapshots, and serialises every
// lifecycle event onto one goroutine so none of them needs a lock.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakaisatoru/go_sunshine_face/displaymodel"
	"github.com/sakaisatoru/go_sunshine_face/modectl"
	"github.com/sakaisatoru/go_sunshine_face/scheduler"
	"github.com/sakaisatoru/go_sunshine_face/snapshot"
	"github.com/sakaisatoru/go_sunshine_face/weathersub"
)

// Renderer puts a plan on the panel.
type Renderer interface {
	Render(plan displaymodel.Plan) error
}

// Blanker is implemented by renderers whose panel can be switched off while
// the face is hidden. The engine calls it from its own goroutine, between
// renders.
type Blanker interface {
	Blank() error
	Wake() error
}

// Preferences supplies the persisted preferred location.
type Preferences interface {
	PreferredLocation(ctx context.Context) (string, error)
}

// Options configure an Engine.
type Options struct {
	Width  int
	Height int
	Layout displaymodel.Layout
	Sizes  modectl.TextSizes

	Measure  displaymodel.Measurer
	Icons    displaymodel.IconLookup
	Renderer Renderer

	Provider        weathersub.Provider
	Preferences     Preferences
	DefaultLocation string
	Formatter       snapshot.TemperatureFormatter
	Fallback        snapshot.Fallback

	ZoneSignal modectl.ZoneSignal
	LocalZone  func() string

	Now   func() time.Time
	After scheduler.AfterFunc

	QueueSize int
	Logger    *slog.Logger
}

func (o *Options) defaults() {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.LocalZone == nil {
		o.LocalZone = func() string { return time.Local.String() }
	}
	if o.Icons == nil {
		o.Icons = displaymodel.SquareIcons{Size: 24}
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 16
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Engine is one clock face instance. Build it with New, drive it with Run and
// feed it lifecycle events through its methods from any goroutine.
type Engine struct {
	opts   Options
	log    *slog.Logger
	handle *Handle

	clock   *snapshot.ClockSnapshot
	weather snapshot.WeatherSnapshot
	mode    *modectl.Controller
	sched   *scheduler.Scheduler
	sub     *weathersub.Subscriber

	dirty  bool
	frames int
}

// New builds a hidden, interactive engine showing default weather.
func New(opts Options) (*Engine, error) {
	opts.defaults()
	if opts.Measure == nil {
		return nil, fmt.Errorf("engine: no text measurer")
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("engine: no renderer")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("engine: no weather provider")
	}
	h := newHandle(opts.QueueSize)
	e := &Engine{
		opts:    opts,
		log:     opts.Logger,
		handle:  h,
		clock:   snapshot.NewClock(opts.LocalZone(), opts.Now()),
		weather: snapshot.DefaultWeather(),
	}
	e.mode = modectl.New(e.clock, modectl.Options{
		Sizes:     opts.Sizes,
		Signal:    opts.ZoneSignal,
		OnZone:    func(zone string) { h.post(event{kind: evZone, zone: zone}) },
		LocalZone: opts.LocalZone,
		Now:       opts.Now,
		Logger:    opts.Logger,
	})
	e.sched = scheduler.New(scheduler.Options{
		Now:   opts.Now,
		After: opts.After,
		Fire:  func(seq uint64) { h.post(event{kind: evTick, seq: seq}) },
	})
	e.sub = weathersub.New(opts.Provider, weathersub.Options{
		Formatter: opts.Formatter,
		Fallback:  opts.Fallback,
		Logger:    opts.Logger,
		Deliver: func(id uint64, rows []weathersub.Row) {
			h.post(event{kind: evWeather, id: id, rows: rows})
		},
	})
	return e, nil
}

// Handle returns the engine's non-owning handle.
func (e *Engine) Handle() *Handle { return e.handle }

// VisibilityChanged reports that the face was shown or hidden.
func (e *Engine) VisibilityChanged(visible bool) {
	e.handle.post(event{kind: evVisible, on: visible})
}

// AmbientModeChanged reports entering or leaving ambient mode.
func (e *Engine) AmbientModeChanged(ambient bool) {
	e.handle.post(event{kind: evAmbient, on: ambient})
}

// PropertiesChanged reports whether the panel is low-bit in ambient mode.
func (e *Engine) PropertiesChanged(lowBitAmbient bool) {
	e.handle.post(event{kind: evLowBit, on: lowBitAmbient})
}

// ApplyInsets reports the panel shape.
func (e *Engine) ApplyInsets(round bool) {
	e.handle.post(event{kind: evRound, on: round})
}

// TimeTick is the host's once-a-minute tick, used while ambient.
func (e *Engine) TimeTick() {
	e.handle.post(event{kind: evTimeTick})
}

// Destroy asks the engine to tear down. Run returns once it has.
func (e *Engine) Destroy() {
	e.handle.post(event{kind: evDestroy})
}

// Run starts the weather subscription and processes events until ctx is
// cancelled or Destroy is called. The engine cannot be restarted.
func (e *Engine) Run(ctx context.Context) error {
	events := e.handle.events()
	if events == nil {
		return fmt.Errorf("engine: already destroyed")
	}
	e.create(ctx)
	defer e.teardown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if ev.kind == evDestroy {
				return nil
			}
			e.dispatch(ev)
		drain:
			for {
				select {
				case ev := <-events:
					if ev.kind == evDestroy {
						return nil
					}
					e.dispatch(ev)
				default:
					break drain
				}
			}
			e.flush()
		}
	}
}

// create reads the preferred location once and opens the weather query for
// it.
func (e *Engine) create(ctx context.Context) {
	loc := e.opts.DefaultLocation
	if e.opts.Preferences != nil {
		pref, err := e.opts.Preferences.PreferredLocation(ctx)
		switch {
		case err != nil:
			e.log.Warn("engine: preferred location unavailable", "default", loc, "error", err)
		case pref != "":
			loc = pref
		}
	}
	q := weathersub.Query{Location: loc, AsOf: e.opts.Now()}
	if err := e.sub.Start(q); err != nil {
		e.log.Warn("engine: weather subscription failed, showing defaults", "location", loc, "error", err)
	}
	e.log.Info("engine: created", "location", loc)
}

// teardown cancels the tick, the weather subscription and the time-zone
// receiver, then releases the handle so late callbacks are dropped.
func (e *Engine) teardown() {
	e.sched.Cancel()
	e.sub.Stop()
	e.mode.UnregisterZone()
	e.handle.release()
	e.log.Info("engine: destroyed", "frames", e.frames)
}

func (e *Engine) dispatch(ev event) {
	switch ev.kind {
	case evVisible:
		was := e.mode.State().Visible
		e.apply(e.mode.SetVisible(ev.on))
		if ev.on != was {
			e.power(ev.on)
		}
	case evAmbient:
		e.apply(e.mode.SetAmbientMode(ev.on))
	case evLowBit:
		e.apply(e.mode.SetLowBitAmbient(ev.on))
	case evRound:
		e.apply(e.mode.SetRound(ev.on))
	case evZone:
		e.apply(e.mode.TimeZoneChanged(ev.zone))
	case evTimeTick:
		e.dirty = true
	case evTick:
		if !e.sched.Fired(ev.seq) {
			return
		}
		e.dirty = true
		e.sched.Reconcile(e.mode.State())
	case evWeather:
		w, ok := e.sub.Deliver(ev.id, ev.rows)
		if !ok {
			e.log.Debug("engine: dropped stale weather delivery", "id", ev.id)
			return
		}
		e.weather = w
		e.dirty = true
	default:
		e.log.Warn("engine: unknown event", "kind", ev.kind)
	}
}

func (e *Engine) apply(eff modectl.Effect) {
	if eff.Redraw {
		e.dirty = true
	}
	if eff.Reconcile {
		e.sched.Reconcile(e.mode.State())
	}
}

func (e *Engine) power(on bool) {
	b, ok := e.opts.Renderer.(Blanker)
	if !ok {
		return
	}
	var err error
	if on {
		err = b.Wake()
	} else {
		err = b.Blank()
	}
	if err != nil {
		e.log.Warn("engine: panel power change failed", "visible", on, "error", err)
	}
}

// flush draws one frame if anything asked for a redraw. Nothing is drawn
// while hidden; the pending redraw waits for the face to become visible.
func (e *Engine) flush() {
	if !e.dirty || !e.mode.State().Visible {
		return
	}
	e.dirty = false
	e.clock.SetToNow(e.opts.Now())
	plan := displaymodel.Derive(displaymodel.Input{
		Clock:   *e.clock,
		Weather: e.weather,
		Paints:  e.mode.Paints(),
		State:   e.mode.State(),
		Width:   e.opts.Width,
		Height:  e.opts.Height,
		Layout:  e.opts.Layout,
		Measure: e.opts.Measure,
		Icons:   e.opts.Icons,
	})
	e.frames++
	if err := e.opts.Renderer.Render(plan); err != nil {
		e.log.Warn("engine: render failed", "error", err)
	}
}
