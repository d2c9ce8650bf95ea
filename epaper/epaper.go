// Package epaper shows face plans on a Waveshare 2.13" V4 e-paper HAT.
//
// The panel is driven in full-refresh mode and put to sleep after every
// frame. A plan that rasterises to the same pixels as the previous frame is
// not sent at all, so the 1 Hz interactive tick only costs a refresh when
// the minute changes.
package epaper

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v4"
	"periph.io/x/host/v3"

	"github.com/sakaisatoru/go_sunshine_face/displaymodel"
	"github.com/sakaisatoru/go_sunshine_face/raster"
)

// Panel is the part of the HAT driver the renderer uses.
type Panel interface {
	Init() error
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Sleep() error
	Bounds() image.Rectangle
}

// Renderer implements engine.Renderer. It is called from the engine loop
// only and is not safe for concurrent use.
type Renderer struct {
	panel   Panel
	painter *raster.Painter
	log     *slog.Logger

	sleeping bool
	last     *image.Gray
	sent     int
}

// New wraps an initialised panel.
func New(panel Panel, painter *raster.Painter, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{panel: panel, painter: painter, log: logger}
}

// Open initialises the periph host, opens the SPI port and clears the HAT.
// The returned close function halts the panel and releases the port.
func Open(port string, painter *raster.Painter, logger *slog.Logger) (*Renderer, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("epaper: host init: %w", err)
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, nil, fmt.Errorf("epaper: spi %q: %w", port, err)
	}
	opts := waveshare2in13v4.EPD2in13v4
	dev, err := waveshare2in13v4.NewHat(p, &opts)
	if err != nil {
		p.Close()
		return nil, nil, fmt.Errorf("epaper: hat: %w", err)
	}
	if err := dev.Init(); err != nil {
		p.Close()
		return nil, nil, fmt.Errorf("epaper: init: %w", err)
	}
	if err := dev.Clear(color.White); err != nil {
		p.Close()
		return nil, nil, fmt.Errorf("epaper: clear: %w", err)
	}
	closeFn := func() error {
		if err := dev.Halt(); err != nil {
			p.Close()
			return fmt.Errorf("epaper: halt: %w", err)
		}
		return p.Close()
	}
	return New(dev, painter, logger), closeFn, nil
}

// Render rasterises plan in landscape, turns it to the panel's portrait
// orientation and sends it if any pixel changed.
func (r *Renderer) Render(plan displaymodel.Plan) error {
	frame := portrait(r.painter.Frame(plan))
	if r.last != nil && samePixels(r.last, frame) {
		return nil
	}
	if r.sleeping {
		if err := r.panel.Init(); err != nil {
			return fmt.Errorf("epaper: wake: %w", err)
		}
		r.sleeping = false
	}
	img := image1bit.NewVerticalLSB(r.panel.Bounds())
	draw.Draw(img, img.Bounds(), frame, image.Point{}, draw.Src)
	if err := r.panel.Draw(r.panel.Bounds(), img, image.Point{}); err != nil {
		return fmt.Errorf("epaper: draw: %w", err)
	}
	r.last = frame
	r.sent++
	if err := r.panel.Sleep(); err != nil {
		return fmt.Errorf("epaper: sleep: %w", err)
	}
	r.sleeping = true
	r.log.Debug("epaper: frame sent", "frames", r.sent, "ambient", plan.State.Ambient)
	return nil
}

// Sent reports how many frames reached the panel.
func (r *Renderer) Sent() int { return r.sent }

// portrait rotates a landscape frame a quarter turn clockwise.
func portrait(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, h, w))
	for y := 0; y < w; y++ {
		for x := 0; x < h; x++ {
			dst.SetGray(x, y, src.GrayAt(b.Min.X+y, b.Min.Y+h-1-x))
		}
	}
	return dst
}

func samePixels(a, b *image.Gray) bool {
	if !a.Rect.Eq(b.Rect) {
		return false
	}
	for y := a.Rect.Min.Y; y < a.Rect.Max.Y; y++ {
		for x := a.Rect.Min.X; x < a.Rect.Max.X; x++ {
			if a.GrayAt(x, y) != b.GrayAt(x, y) {
				return false
			}
		}
	}
	return true
}
