// Package displaymodel derives a draw plan from the clock, the weather and
// the current paints. Derive keeps no state and is called on every redraw.
package displaymodel

import (
	"fmt"

	"github.com/sakaisatoru/go_sunshine_face/modectl"
	"github.com/sakaisatoru/go_sunshine_face/snapshot"
)

// DateLayout is the fixed date pattern, e.g. "Thu, Oct 15 2026".
const DateLayout = "Mon, Jan 02 2006"

// Measurer reports text metrics for a paint.
type Measurer interface {
	// Width is the advance width of s.
	Width(p modectl.Paint, s string) float64
	// Height is the height of the ink bounds of s.
	Height(p modectl.Paint, s string) float64
}

// Icon is a weather glyph and its size.
type Icon struct {
	Name   string
	Width  float64
	Height float64
}

// IconLookup picks the icon for a condition id.
type IconLookup interface {
	Icon(conditionID int) Icon
}

// Layout holds the fixed dimensions of the face in pixels.
type Layout struct {
	YOffset    float64 `yaml:"y_offset"`
	DateMargin float64 `yaml:"date_margin"`
	LineWidth  float64 `yaml:"line_width"`
}

// Text is one string to draw with its baseline origin.
type Text struct {
	Surface modectl.Surface
	Text    string
	X, Y    float64
	Paint   modectl.Paint
}

// Line is a horizontal rule drawn with the date paint.
type Line struct {
	X0, Y0, X1, Y1 float64
	Paint          modectl.Paint
}

// IconOp places an icon by its top-left corner.
type IconOp struct {
	Icon
	X, Y float64
}

// Plan is everything one frame draws.
type Plan struct {
	Width, Height int
	State         modectl.State

	Hour    Text
	Minute  Text
	Date    Text
	Divider Line
	Icon    IconOp
	High    Text
	Low     Text
}

// Texts returns the five text operations in draw order.
func (p Plan) Texts() []Text {
	return []Text{p.Hour, p.Minute, p.Date, p.High, p.Low}
}

// Input is what Derive reads.
type Input struct {
	Clock   snapshot.ClockSnapshot
	Weather snapshot.WeatherSnapshot
	Paints  [modectl.SurfaceCount]modectl.Paint
	State   modectl.State
	Width   int
	Height  int
	Layout  Layout
	Measure Measurer
	Icons   IconLookup
}

// Derive lays out one frame. Seconds are never drawn, in either mode.
func Derive(in Input) Plan {
	p := Plan{Width: in.Width, Height: in.Height, State: in.State}
	cx := float64(in.Width) / 2
	m := in.Measure
	hourPaint := in.Paints[modectl.Hour]
	minutePaint := in.Paints[modectl.Minute]
	datePaint := in.Paints[modectl.Date]
	highPaint := in.Paints[modectl.High]
	lowPaint := in.Paints[modectl.Low]

	hour := fmt.Sprintf("%02d", in.Clock.Hour)
	minute := fmt.Sprintf(":%02d", in.Clock.Minute)
	hourW := m.Width(hourPaint, hour)
	timeX := cx - (hourW+m.Width(minutePaint, minute))/2
	p.Hour = Text{Surface: modectl.Hour, Text: hour, X: timeX, Y: in.Layout.YOffset, Paint: hourPaint}
	p.Minute = Text{Surface: modectl.Minute, Text: minute, X: timeX + hourW, Y: in.Layout.YOffset, Paint: minutePaint}

	date := in.Clock.Date.Format(DateLayout)
	dateY := in.Layout.YOffset + m.Height(hourPaint, hour[:1])
	p.Date = Text{Surface: modectl.Date, Text: date, X: cx - m.Width(datePaint, date)/2, Y: dateY, Paint: datePaint}

	lineY := dateY + m.Height(datePaint, date[:1]) + in.Layout.DateMargin
	half := in.Layout.LineWidth / 2
	p.Divider = Line{X0: cx - half, Y0: lineY, X1: cx + half, Y1: lineY, Paint: datePaint}

	icon := in.Icons.Icon(in.Weather.ConditionID)
	highW := m.Width(highPaint, in.Weather.High)
	groupW := icon.Width + in.Layout.DateMargin + highW + m.Width(lowPaint, in.Weather.Low)
	left := cx - groupW/2
	top := lineY + in.Layout.DateMargin
	baseline := top + icon.Height/2
	p.Icon = IconOp{Icon: icon, X: left, Y: top}
	textX := left + in.Layout.DateMargin + icon.Width
	p.High = Text{Surface: modectl.High, Text: in.Weather.High, X: textX, Y: baseline, Paint: highPaint}
	p.Low = Text{Surface: modectl.Low, Text: in.Weather.Low, X: textX + highW, Y: baseline, Paint: lowPaint}
	return p
}
