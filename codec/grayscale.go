package codec

import (
	"github.com/Skryldev/image-engine/core"
)

// Grayscale handles 8-bit-per-pixel intensity buffers.  ChromaKey reserves
// the intensity value 1 as fully transparent; AlphaChannel reinterprets the
// byte as coverage over black.
type Grayscale struct{}

// NewGrayscale returns a codec for 8-bit grayscale images.
func NewGrayscale() *Grayscale { return &Grayscale{} }

func (*Grayscale) Format() core.PixelFormat { return core.FormatGrayscale }

func (*Grayscale) DecodePixel(desc core.ImageDescriptor, data []byte, x, y int) core.Color {
	if x < 0 || x >= desc.Width || y < 0 || y >= desc.Height {
		return core.Color{}
	}
	pos := x + y*desc.Width
	if pos >= len(data) {
		return core.Color{}
	}
	gray := data[pos]
	switch desc.Transparency {
	case core.ChromaKey:
		if gray == 1 {
			return core.Color{}
		}
		return core.Color{R: gray, G: gray, B: gray, A: 0xFF}
	case core.AlphaChannel:
		return core.Color{A: gray}
	default:
		return core.Color{R: gray, G: gray, B: gray, A: 0xFF}
	}
}

func (*Grayscale) PackPixel(desc core.ImageDescriptor, c core.Color, x, y int, data []byte) {
	if x < 0 || x >= desc.Width || y < 0 || y >= desc.Height {
		return
	}
	pos := x + y*desc.Width
	if pos >= len(data) {
		return
	}
	switch desc.Transparency {
	case core.ChromaKey:
		b := luminance(c)
		// Nudge accidental sentinel hits to the nearest intensity, then
		// let transparency claim the sentinel.
		if b == 1 {
			b = 0
		}
		if c.A != 0xFF {
			b = 1
		}
		data[pos] = b
	case core.AlphaChannel:
		data[pos] = c.A
	default:
		data[pos] = luminance(c)
	}
}
