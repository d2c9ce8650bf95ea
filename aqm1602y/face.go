package aqm1602y

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakaisatoru/go_sunshine_face/displaymodel"
)

// Face shows plans as two text rows: time and temperatures on the first,
// the date on the second. Only rows that changed are rewritten.
type Face struct {
	dev  *AQM1602Y
	log  *slog.Logger
	last [Rows]string
}

func NewFace(dev *AQM1602Y, logger *slog.Logger) *Face {
	if logger == nil {
		logger = slog.Default()
	}
	return &Face{dev: dev, log: logger}
}

// Lines lays plan out on the 16x2 grid.
func Lines(plan displaymodel.Plan) [Rows]string {
	clock := plan.Hour.Text + plan.Minute.Text
	temps := plan.High.Text + "/" + plan.Low.Text
	gap := Columns - utf8.RuneCountInString(clock) - utf8.RuneCountInString(temps)
	if gap < 1 {
		gap = 1
	}
	return [Rows]string{
		fit(clock + strings.Repeat(" ", gap) + temps),
		fit(plan.Date.Text),
	}
}

// fit pads or cuts s to exactly Columns runes.
func fit(s string) string {
	n := utf8.RuneCountInString(s)
	if n < Columns {
		return s + strings.Repeat(" ", Columns-n)
	}
	return string([]rune(s)[:Columns])
}

// Render implements engine.Renderer.
func (f *Face) Render(plan displaymodel.Plan) error {
	lines := Lines(plan)
	for y, s := range lines {
		if s == f.last[y] {
			continue
		}
		if err := f.dev.PrintWithPos(0, uint8(y), Encode(s)); err != nil {
			return fmt.Errorf("aqm1602y: row %d: %w", y, err)
		}
		f.last[y] = s
	}
	return nil
}

// Blank clears the module and turns it off; the next Render redraws both
// rows.
func (f *Face) Blank() error {
	f.last = [Rows]string{}
	if err := f.dev.Clear(); err != nil {
		return err
	}
	return f.dev.DisplayOff()
}

// Wake turns the module back on after Blank.
func (f *Face) Wake() error {
	return f.dev.DisplayOn()
}
