// Package compositor renders decoded pixel sources onto destination
// surfaces, honoring each format's transparency rules.
package compositor

import (
	"context"

	"github.com/Skryldev/image-engine/core"
	apperrors "github.com/Skryldev/image-engine/errors"
)

// Compositor draws pixel sources onto surfaces.
type Compositor struct {
	logger core.Logger
}

// New returns a ready Compositor.
func New() *Compositor {
	return &Compositor{logger: core.NopLogger()}
}

// SetLogger replaces the compositor logger.
func (c *Compositor) SetLogger(l core.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Draw renders src with its top-left corner at (x, y) on dst.  colorOn and
// colorOff substitute for set and clear binary pixels and blend against
// alpha-channel grayscale coverage; color formats ignore them.  The context
// is checked once per row so large blits cancel promptly.
func (c *Compositor) Draw(ctx context.Context, src core.PixelSource, x, y int, dst core.Surface, colorOn, colorOff core.Color) error {
	const op = "compositor.draw"
	desc := src.Descriptor()
	if err := desc.Validate(); err != nil {
		return apperrors.Wrap(apperrors.CategoryDraw, op, err)
	}

	// --- 1. clip the source rectangle against the destination ---
	imgX0, imgY0 := 0, 0
	w, h := desc.Width, desc.Height
	if clip, ok := dst.Clip(); ok {
		if clip.X > x {
			imgX0 += clip.X - x
		}
		if clip.Y > y {
			imgY0 += clip.Y - y
		}
		if w > clip.X2-x {
			w = clip.X2 - x
		}
		if h > clip.Y2-y {
			h = clip.Y2 - y
		}
	}

	if imgX0 >= w || imgY0 >= h {
		c.logger.Debug("compositor.clipped_out", "x", x, "y", y, "width", desc.Width, "height", desc.Height)
		return nil
	}

	// --- 2. blit row by row ---
	for iy := imgY0; iy < h; iy++ {
		if err := ctx.Err(); err != nil {
			return apperrors.Wrap(apperrors.CategoryDraw, op, err)
		}
		for ix := imgX0; ix < w; ix++ {
			c.blit(src, desc, ix, iy, x, y, dst, colorOn, colorOff)
		}
	}
	return nil
}

func (c *Compositor) blit(src core.PixelSource, desc core.ImageDescriptor, ix, iy, x, y int, dst core.Surface, colorOn, colorOff core.Color) {
	sample := src.At(ix, iy)
	switch desc.Format {
	case core.FormatBinary:
		if sample.A != 0 {
			dst.SetPixel(x+ix, y+iy, colorOn)
		} else if desc.Transparency == core.Opaque {
			dst.SetPixel(x+ix, y+iy, colorOff)
		}
	case core.FormatGrayscale:
		switch desc.Transparency {
		case core.AlphaChannel:
			dst.SetPixel(x+ix, y+iy, blend(colorOn, colorOff, sample.A))
		case core.ChromaKey:
			if sample.A == 0 {
				return
			}
			dst.SetPixel(x+ix, y+iy, sample)
		default:
			dst.SetPixel(x+ix, y+iy, sample)
		}
	default:
		// Color formats draw only sufficiently opaque samples.
		if sample.A >= 0x80 {
			dst.SetPixel(x+ix, y+iy, sample)
		}
	}
}

// blend mixes on and off by coverage, truncating toward zero.  The result
// is always fully opaque.
func blend(on, off core.Color, coverage uint8) core.Color {
	f := float64(coverage) / 255
	return core.Color{
		R: uint8(float64(on.R)*f + float64(off.R)*(1-f)),
		G: uint8(float64(on.G)*f + float64(off.G)*(1-f)),
		B: uint8(float64(on.B)*f + float64(off.B)*(1-f)),
		A: 0xFF,
	}
}
