// Package raster draws a display plan into a grayscale image and supplies
// the text metrics the plan is laid out with.
package raster

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/sakaisatoru/go_sunshine_face/modectl"
)

type faceKey struct {
	size float64
	bold bool
}

// Fonts measures and draws text with the Go fonts. Faces are created on
// first use and cached per size and weight.
type Fonts struct {
	regular *opentype.Font
	bold    *opentype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

// NewFonts parses the embedded Go regular and bold faces.
func NewFonts() (*Fonts, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("raster: parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("raster: parse bold font: %w", err)
	}
	return &Fonts{regular: regular, bold: bold, faces: make(map[faceKey]font.Face)}, nil
}

// Face returns the face for p.
func (f *Fonts) Face(p modectl.Paint) (font.Face, error) {
	if p.Size <= 0 {
		return nil, fmt.Errorf("raster: face size %v: not positive", p.Size)
	}
	key := faceKey{size: p.Size, bold: p.Bold}
	f.mu.Lock()
	defer f.mu.Unlock()
	if face, ok := f.faces[key]; ok {
		return face, nil
	}
	src := f.regular
	if p.Bold {
		src = f.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    p.Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("raster: face size %v: %w", p.Size, err)
	}
	f.faces[key] = face
	return face, nil
}

// Width returns the advance width of s in pixels.
func (f *Fonts) Width(p modectl.Paint, s string) float64 {
	face, err := f.Face(p)
	if err != nil {
		return 0
	}
	return toFloat(font.MeasureString(face, s))
}

// Height returns the height of the ink bounds of s in pixels.
func (f *Fonts) Height(p modectl.Paint, s string) float64 {
	face, err := f.Face(p)
	if err != nil {
		return 0
	}
	b, _ := font.BoundString(face, s)
	return toFloat(b.Max.Y - b.Min.Y)
}

func toFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
