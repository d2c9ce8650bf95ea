package main

import (
	"context"
	"fmt"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

type ButtonCode int

const (
	btnNone ButtonCode = iota
	btnVisible
	btnAmbient

	// btnLong is or'ed into the code of a button held past btnLongWidth.
	btnLong ButtonCode = 0x10
)

// Widths in scan periods.
const (
	btnScanPeriod = 10 * time.Millisecond
	btnPressWidth = 3
	btnLongWidth  = 90
)

// buttonScanner debounces a set of active-low buttons. A button counts as
// one press only while no other is held.
type buttonScanner struct {
	held ButtonCode
	hold int
}

// step takes one sample, pressed[i] being true when button i+1 is down,
// and reports a code when a press completes. A long press is reported as
// soon as it crosses btnLongWidth and not again on release.
func (s *buttonScanner) step(pressed []bool) (ButtonCode, bool) {
	if s.held == btnNone {
		for i, down := range pressed {
			if down {
				s.held = ButtonCode(i + 1)
				s.hold = 0
				break
			}
		}
		return btnNone, false
	}
	if pressed[s.held-1] {
		s.hold++
		if s.hold == btnLongWidth {
			return s.held | btnLong, true
		}
		return btnNone, false
	}
	code, hold := s.held, s.hold
	s.held, s.hold = btnNone, 0
	if hold >= btnPressWidth && hold < btnLongWidth {
		return code, true
	}
	return btnNone, false
}

type buttons struct {
	pins []rpio.Pin
}

// openButtons maps the GPIO memory and sets each BCM pin as a pulled-up
// input. Pin order gives the button codes: visible, then ambient.
func openButtons(visiblePin, ambientPin int) (*buttons, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("gpio: %w", err)
	}
	b := &buttons{pins: []rpio.Pin{rpio.Pin(visiblePin), rpio.Pin(ambientPin)}}
	for _, p := range b.pins {
		p.Input()
		p.PullUp()
	}
	return b, nil
}

func (b *buttons) close() error {
	return rpio.Close()
}

// btninput polls the buttons until ctx ends.
func (b *buttons) btninput(ctx context.Context, code chan<- ButtonCode) {
	var sc buttonScanner
	pressed := make([]bool, len(b.pins))
	t := time.NewTicker(btnScanPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		for i, p := range b.pins {
			pressed[i] = p.Read() == rpio.Low
		}
		if c, ok := sc.step(pressed); ok {
			select {
			case code <- c:
			case <-ctx.Done():
				return
			}
		}
	}
}

// buttonfunc maps button codes to face changes. A short press toggles,
// a long press reaches the secondary setting.
var buttonfunc = map[ButtonCode]func(c *faceControl){
	btnVisible:           (*faceControl).toggleVisible,
	btnAmbient:           (*faceControl).toggleAmbient,
	btnVisible | btnLong: (*faceControl).toggleRound,
	btnAmbient | btnLong: (*faceControl).toggleLowBit,
}
