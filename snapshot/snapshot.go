// Package snapshot holds the point-in-time copies of clock and weather data
// that the face renders from.
package snapshot

import (
	"fmt"
	"time"
)

// UnknownCondition is the weather condition id shown when nothing better is
// known.
const UnknownCondition = 501

// NoTemperature is printed in place of a temperature before any weather
// delivery has arrived.
const NoTemperature = "--°"

// ClockSnapshot is the wall-clock time the face was last resampled at.
// It is mutated in place on every redraw.
type ClockSnapshot struct {
	Hour   int
	Minute int
	Second int
	Date   time.Time
	Zone   string

	loc *time.Location
}

// NewClock returns a clock snapshot in the given zone, sampled at now.
// An unknown zone falls back to the zone of now.
func NewClock(zone string, now time.Time) *ClockSnapshot {
	c := &ClockSnapshot{loc: now.Location(), Zone: now.Location().String()}
	_ = c.SetZone(zone)
	c.SetToNow(now)
	return c
}

// SetZone switches the snapshot to zone id. The previous zone is kept when
// id cannot be loaded.
func (c *ClockSnapshot) SetZone(id string) error {
	if id == "" {
		return nil
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return fmt.Errorf("snapshot: load zone %q: %w", id, err)
	}
	c.loc = loc
	c.Zone = id
	return nil
}

// SetToNow resamples the snapshot from now, converted into the current zone.
func (c *ClockSnapshot) SetToNow(now time.Time) {
	if c.loc == nil {
		c.loc = time.Local
		c.Zone = c.loc.String()
	}
	t := now.In(c.loc)
	c.Hour, c.Minute, c.Second = t.Clock()
	c.Date = t
}

// Location returns the zone the snapshot is expressed in.
func (c *ClockSnapshot) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// WeatherSnapshot is the latest known weather. It is always replaced as a
// whole, never patched field by field.
type WeatherSnapshot struct {
	ConditionID int
	Low         string
	High        string
}

// DefaultWeather is the snapshot the engine starts with.
func DefaultWeather() WeatherSnapshot {
	return WeatherSnapshot{
		ConditionID: UnknownCondition,
		Low:         NoTemperature,
		High:        NoTemperature,
	}
}

// Fallback holds the values shown when the provider answers with no rows.
// Temperatures are Celsius.
type Fallback struct {
	ConditionID int     `yaml:"condition_id"`
	Low         float64 `yaml:"low"`
	High        float64 `yaml:"high"`
}

// DefaultFallback returns 501 / 16° / 28°.
func DefaultFallback() Fallback {
	return Fallback{ConditionID: UnknownCondition, Low: 16.0, High: 28.0}
}

// Snapshot formats the fallback with f.
func (fb Fallback) Snapshot(f TemperatureFormatter) WeatherSnapshot {
	return WeatherSnapshot{
		ConditionID: fb.ConditionID,
		Low:         f.Format(fb.Low),
		High:        f.Format(fb.High),
	}
}

// TemperatureFormatter turns a Celsius reading into display text.
type TemperatureFormatter interface {
	Format(celsius float64) string
}

// DegreeFormatter prints whole degrees followed by a degree sign, converting
// to Fahrenheit unless Metric is set.
type DegreeFormatter struct {
	Metric bool
}

func (f DegreeFormatter) Format(celsius float64) string {
	t := celsius
	if !f.Metric {
		t = celsius*1.8 + 32
	}
	return fmt.Sprintf("%.0f°", t)
}
