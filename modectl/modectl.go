// Package modectl tracks the display mode flags and derives the text paint
// policy from them.
//
// All methods are meant to be called from the engine loop only; the
// controller does no locking of its own.
package modectl

import (
	"log/slog"
	"time"

	"github.com/sakaisatoru/go_sunshine_face/snapshot"
)

// State is the full mode tuple. Redraw scheduling and anti-aliasing are
// derived from it and nothing else.
type State struct {
	Visible       bool
	Ambient       bool
	LowBitAmbient bool
	Round         bool
}

// Interactive reports whether the face is on screen and at full power.
func (s State) Interactive() bool {
	return s.Visible && !s.Ambient
}

// AntiAlias reports whether text should be drawn anti-aliased.
func (s State) AntiAlias() bool {
	return !(s.Ambient && s.LowBitAmbient)
}

// Surface names one of the text paints.
type Surface int

const (
	Hour Surface = iota
	Minute
	Date
	High
	Low
	SurfaceCount
)

var surfaceNames = [SurfaceCount]string{"hour", "minute", "date", "high", "low"}

func (s Surface) String() string {
	if s < 0 || s >= SurfaceCount {
		return "unknown"
	}
	return surfaceNames[s]
}

// Paint is the visual treatment of one text surface.
type Paint struct {
	Size      float64
	Bold      bool
	Alpha     uint8
	AntiAlias bool
}

// TextSizes are the text sizes in pixels. Round panels get the larger
// Round size for the time.
type TextSizes struct {
	Default float64 `yaml:"default"`
	Round   float64 `yaml:"round"`
	Small   float64 `yaml:"small"`
}

// TimeSize returns the hour/minute size for the given panel shape.
func (ts TextSizes) TimeSize(round bool) float64 {
	if round {
		return ts.Round
	}
	return ts.Default
}

// Effect tells the engine what to do after a mutation.
type Effect struct {
	Redraw    bool
	Reconcile bool
}

// ZoneSignal delivers time-zone change broadcasts.
type ZoneSignal interface {
	Subscribe(fn func(zone string)) (cancel func())
}

// Options configure a Controller.
type Options struct {
	Sizes TextSizes
	// Signal is the time-zone broadcast. Nil disables zone tracking.
	Signal ZoneSignal
	// OnZone receives broadcasts; the engine uses it to hop back onto its
	// loop before calling TimeZoneChanged.
	OnZone func(zone string)
	// LocalZone returns the system zone id resampled on becoming visible.
	LocalZone func() string
	Now       func() time.Time
	Logger    *slog.Logger
}

func (o *Options) defaults() {
	if o.Sizes == (TextSizes{}) {
		o.Sizes = TextSizes{Default: 40, Round: 45, Small: 20}
	}
	if o.LocalZone == nil {
		o.LocalZone = func() string { return time.Local.String() }
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.OnZone == nil {
		o.OnZone = func(string) {}
	}
}

// Controller owns the mode tuple, the five text paints and the time-zone
// receiver registration.
type Controller struct {
	opts   Options
	state  State
	paints [SurfaceCount]Paint
	clock  *snapshot.ClockSnapshot

	cancelZone func()
}

// New returns a controller for a hidden, interactive, rectangular panel.
func New(clock *snapshot.ClockSnapshot, opts Options) *Controller {
	opts.defaults()
	c := &Controller{opts: opts, clock: clock}
	c.paints[Hour] = Paint{Bold: true, Alpha: 255}
	c.paints[Minute] = Paint{Alpha: 255}
	c.paints[Date] = Paint{Alpha: 160}
	c.paints[High] = Paint{Bold: true, Alpha: 255}
	c.paints[Low] = Paint{Alpha: 255}
	c.applySizes()
	c.applyAntiAlias()
	return c
}

// State returns a copy of the mode tuple.
func (c *Controller) State() State { return c.state }

// Paint returns the paint of surface s.
func (c *Controller) Paint(s Surface) Paint { return c.paints[s] }

// Paints returns a copy of all five paints.
func (c *Controller) Paints() [SurfaceCount]Paint { return c.paints }

// ZoneRegistered reports whether the time-zone receiver is registered.
func (c *Controller) ZoneRegistered() bool { return c.cancelZone != nil }

// SetVisible records visibility. Becoming visible registers the time-zone
// receiver and resamples the clock so the time is not stale after being
// hidden; becoming hidden unregisters it.
func (c *Controller) SetVisible(visible bool) Effect {
	c.state.Visible = visible
	if visible {
		c.registerZone()
		if err := c.clock.SetZone(c.opts.LocalZone()); err != nil {
			c.opts.Logger.Warn("modectl: resample zone", "error", err)
		}
		c.clock.SetToNow(c.opts.Now())
	} else {
		c.UnregisterZone()
	}
	return Effect{Redraw: visible, Reconcile: true}
}

// SetAmbientMode records ambient mode. Repeated calls with the same value
// only ask for a reconcile.
func (c *Controller) SetAmbientMode(ambient bool) Effect {
	if c.state.Ambient == ambient {
		return Effect{Reconcile: true}
	}
	c.state.Ambient = ambient
	c.applyAntiAlias()
	return Effect{Redraw: true, Reconcile: true}
}

// SetLowBitAmbient records whether the panel drops colour depth in ambient
// mode.
func (c *Controller) SetLowBitAmbient(lowBit bool) Effect {
	if c.state.LowBitAmbient == lowBit {
		return Effect{}
	}
	c.state.LowBitAmbient = lowBit
	return Effect{Redraw: c.applyAntiAlias()}
}

// SetRound records the panel shape and picks the matching text sizes.
func (c *Controller) SetRound(round bool) Effect {
	if c.state.Round == round {
		return Effect{}
	}
	c.state.Round = round
	c.applySizes()
	return Effect{Redraw: true}
}

// TimeZoneChanged resamples the clock in zone.
func (c *Controller) TimeZoneChanged(zone string) Effect {
	if err := c.clock.SetZone(zone); err != nil {
		c.opts.Logger.Warn("modectl: time zone change", "zone", zone, "error", err)
	}
	c.clock.SetToNow(c.opts.Now())
	return Effect{Redraw: true}
}

// UnregisterZone drops the time-zone receiver. Safe to call repeatedly.
func (c *Controller) UnregisterZone() {
	if c.cancelZone == nil {
		return
	}
	c.cancelZone()
	c.cancelZone = nil
}

func (c *Controller) registerZone() {
	if c.cancelZone != nil || c.opts.Signal == nil {
		return
	}
	c.cancelZone = c.opts.Signal.Subscribe(c.opts.OnZone)
}

func (c *Controller) applySizes() {
	timeSize := c.opts.Sizes.TimeSize(c.state.Round)
	c.paints[Hour].Size = timeSize
	c.paints[Minute].Size = timeSize
	c.paints[Date].Size = c.opts.Sizes.Small
	c.paints[High].Size = c.opts.Sizes.Small
	c.paints[Low].Size = c.opts.Sizes.Small
}

// applyAntiAlias sets every surface from the mode tuple and reports whether
// anything changed.
func (c *Controller) applyAntiAlias() bool {
	aa := c.state.AntiAlias()
	changed := false
	for i := range c.paints {
		if c.paints[i].AntiAlias != aa {
			c.paints[i].AntiAlias = aa
			changed = true
		}
	}
	return changed
}
