// Package surface provides drawing destinations for the compositor.
package surface

import (
	"image"
	"image/color"

	"github.com/Skryldev/image-engine/core"
)

// RGBA is a Surface backed by a standard library image.RGBA.  The clip
// rectangle defaults to the full canvas.
type RGBA struct {
	img     *image.RGBA
	clip    core.Rect
	hasClip bool
}

// NewRGBA allocates a width x height canvas.
func NewRGBA(width, height int) *RGBA {
	return &RGBA{
		img:     image.NewRGBA(image.Rect(0, 0, width, height)),
		clip:    core.Rect{X2: width, Y2: height},
		hasClip: true,
	}
}

// SetPixel writes c at (x, y).  Writes outside the canvas are dropped.
func (s *RGBA) SetPixel(x, y int, c core.Color) {
	if !(image.Point{X: x, Y: y}).In(s.img.Rect) {
		return
	}
	s.img.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A})
}

// Clip reports the active clip rectangle.
func (s *RGBA) Clip() (core.Rect, bool) {
	return s.clip, s.hasClip
}

// SetClip restricts drawing to r.
func (s *RGBA) SetClip(r core.Rect) {
	s.clip = r
	s.hasClip = true
}

// ClearClip removes the clip rectangle; only canvas bounds apply after.
func (s *RGBA) ClearClip() {
	s.hasClip = false
}

// At returns the canvas pixel at (x, y), transparent black when outside.
func (s *RGBA) At(x, y int) core.Color {
	if !(image.Point{X: x, Y: y}).In(s.img.Rect) {
		return core.Color{}
	}
	c := s.img.RGBAAt(x, y)
	return core.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Image exposes the backing canvas for encoding or inspection.
func (s *RGBA) Image() *image.RGBA { return s.img }
