package raster

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/sakaisatoru/go_sunshine_face/displaymodel"
	"github.com/sakaisatoru/go_sunshine_face/modectl"
)

// Painter turns plans into frames. A nil Log uses slog.Default().
type Painter struct {
	Fonts *Fonts
	Ink   uint8
	Paper uint8
	Log   *slog.Logger
}

// Frame draws plan into a new image of the plan's size.
func (p *Painter) Frame(plan displaymodel.Plan) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, plan.Width, plan.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.Gray{Y: p.Paper}}, image.Point{}, draw.Src)

	for _, t := range plan.Texts() {
		p.text(img, t)
	}
	d := plan.Divider
	line(img, round(d.X0), round(d.Y0), round(d.X1), round(d.Y1), p.shade(d.Paint))
	p.icon(img, plan.Icon, p.shade(plan.Hour.Paint))
	return img
}

// shade blends the ink with the paper by the paint alpha.
func (p *Painter) shade(pt modectl.Paint) uint8 {
	a := float64(pt.Alpha) / 255
	return uint8(math.Round(float64(p.Paper)*(1-a) + float64(p.Ink)*a))
}

func (p *Painter) text(img *image.Gray, t displaymodel.Text) {
	if t.Text == "" {
		return
	}
	face, err := p.Fonts.Face(t.Paint)
	if err != nil {
		log := p.Log
		if log == nil {
			log = slog.Default()
		}
		log.Warn("raster: text skipped", "surface", t.Surface, "text", t.Text, "error", err)
		return
	}
	mask := image.NewAlpha(img.Bounds())
	d := font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(t.X * 64), Y: fixed.Int26_6(t.Y * 64)},
	}
	d.DrawString(t.Text)

	ink := p.shade(t.Paint)
	if !t.Paint.AntiAlias {
		// Low-bit panels get hard edges: every covered pixel is either ink
		// or paper.
		b := mask.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if mask.AlphaAt(x, y).A >= 0x80 {
					img.SetGray(x, y, color.Gray{Y: ink})
				}
			}
		}
		return
	}
	draw.DrawMask(img, img.Bounds(), &image.Uniform{color.Gray{Y: ink}}, image.Point{}, mask, img.Bounds().Min, draw.Over)
}

func (p *Painter) icon(img *image.Gray, op displaymodel.IconOp, c uint8) {
	x0, y0 := round(op.X), round(op.Y)
	w, h := round(op.Width), round(op.Height)
	if w <= 0 || h <= 0 {
		return
	}
	cx, cy := x0+w/2, y0+h/2
	r := min(w, h) / 2

	cloud := func() {
		circle(img, cx-r/3, cy-r/6, r/2, c, false)
		circle(img, cx+r/3, cy-r/4, r/2, c, false)
		line(img, cx-r, cy+r/4, cx+r, cy+r/4, c)
	}
	switch op.Name {
	case displaymodel.IconClear:
		circle(img, cx, cy, r*2/3, c, true)
	case displaymodel.IconLightClouds:
		circle(img, cx+r/2, cy-r/2, r/3, c, true)
		cloud()
	case displaymodel.IconClouds:
		cloud()
	case displaymodel.IconLightRain, displaymodel.IconRain:
		cloud()
		step := r / 2
		if op.Name == displaymodel.IconLightRain {
			step = r
		}
		for x := cx - r/2; x <= cx+r/2 && step > 0; x += step {
			line(img, x, cy+r/2, x-r/6, cy+r, c)
		}
	case displaymodel.IconSnow:
		cloud()
		for x := cx - r/2; x <= cx+r/2; x += max(r/3, 1) {
			circle(img, x, cy+r*3/4, 1, c, true)
		}
	case displaymodel.IconStorm:
		cloud()
		line(img, cx, cy+r/4, cx-r/4, cy+r*2/3, c)
		line(img, cx-r/4, cy+r*2/3, cx+r/6, cy+r*2/3, c)
		line(img, cx+r/6, cy+r*2/3, cx-r/6, cy+r, c)
	case displaymodel.IconFog:
		for y := y0 + h/4; y < y0+h; y += max(h/5, 1) {
			line(img, x0, y, x0+w-1, y, c)
		}
	default:
		rectOutline(img, x0, y0, x0+w-1, y0+h-1, c)
		line(img, x0, y0, x0+w-1, y0+h-1, c)
	}
}

func round(v float64) int { return int(math.Round(v)) }

func rectOutline(img *image.Gray, x0, y0, x1, y1 int, c uint8) {
	line(img, x0, y0, x1, y0, c)
	line(img, x0, y1, x1, y1, c)
	line(img, x0, y0, x0, y1, c)
	line(img, x1, y0, x1, y1, c)
}

func line(img *image.Gray, x0, y0, x1, y1 int, c uint8) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		if image.Pt(x0, y0).In(img.Rect) {
			img.SetGray(x0, y0, color.Gray{Y: c})
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func circle(img *image.Gray, cx, cy, r int, c uint8, fill bool) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			d := x*x + y*y
			on := d <= r*r
			if !fill {
				on = on && d >= (r-1)*(r-1)
			}
			if !on {
				continue
			}
			if pt := image.Pt(cx+x, cy+y); pt.In(img.Rect) {
				img.SetGray(pt.X, pt.Y, color.Gray{Y: c})
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
