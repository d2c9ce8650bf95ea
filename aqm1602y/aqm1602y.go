// Package aqm1602y drives a 16x2 character OLED/LCD module (SO1602 /
// AQM1602 family) over I2C.
package aqm1602y

import (
	"fmt"
	"time"

	"github.com/davecheney/i2c"
)

const (
	Columns = 16
	Rows    = 2
)

// Bus is the write side of an I2C device.
type Bus interface {
	Write(b []byte) (int, error)
}

type AQM1602Y struct {
	bus   Bus
	sleep func(time.Duration)
}

// New wraps an open bus.
func New(bus Bus) *AQM1602Y {
	return &AQM1602Y{bus: bus, sleep: time.Sleep}
}

// Open opens the module at addr on /dev/i2c-<busnum>. The returned function
// closes the bus.
func Open(addr uint8, busnum int) (*AQM1602Y, func() error, error) {
	bus, err := i2c.New(addr, busnum)
	if err != nil {
		return nil, nil, fmt.Errorf("aqm1602y: open bus %d addr %#x: %w", busnum, addr, err)
	}
	return New(bus), bus.Close, nil
}

func (d *AQM1602Y) command(c byte, wait time.Duration) error {
	if _, err := d.bus.Write([]byte{0x00, c}); err != nil {
		return fmt.Errorf("aqm1602y: command %#x: %w", c, err)
	}
	if wait > 0 {
		d.sleep(wait)
	}
	return nil
}

// Configure runs the power-on sequence: clear, home, display on.
func (d *AQM1602Y) Configure() error {
	d.sleep(100 * time.Millisecond)
	if err := d.Clear(); err != nil {
		return err
	}
	return d.DisplayOn()
}

// Clear blanks the display and homes the cursor.
func (d *AQM1602Y) Clear() error {
	if err := d.command(0x01, 20*time.Millisecond); err != nil {
		return err
	}
	return d.command(0x02, 2*time.Millisecond)
}

func (d *AQM1602Y) DisplayOff() error { return d.command(0x08, 0) }

func (d *AQM1602Y) DisplayOn() error { return d.command(0x0c, 0) }

// PrintWithPos writes raw character codes starting at column x of row y.
func (d *AQM1602Y) PrintWithPos(x, y uint8, s []byte) error {
	x &= 0x0f
	y &= 0x01
	if err := d.command(0x80+y*0x20+x, 10*time.Millisecond); err != nil {
		return err
	}
	if _, err := d.bus.Write(append([]byte{0x40}, s...)); err != nil {
		return fmt.Errorf("aqm1602y: data: %w", err)
	}
	return nil
}

// Encode maps s to the module's character ROM. ASCII passes through, the
// degree sign becomes 0xdf and anything else becomes '?'.
func Encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == '°':
			out = append(out, 0xdf)
		case r >= 0x20 && r < 0x7f:
			out = append(out, byte(r))
		default:
			out = append(out, '?')
		}
	}
	return out
}
