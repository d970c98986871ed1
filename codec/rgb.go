package codec

import (
	"github.com/Skryldev/image-engine/core"
)

// RGB handles 24-bit true color buffers, three bytes per pixel, plus one
// trailing alpha byte per pixel in alpha-channel mode.  ChromaKey reserves
// the triple (0, 1, 0) as fully transparent.
type RGB struct{}

// NewRGB returns a codec for 24-bit color images.
func NewRGB() *RGB { return &RGB{} }

func (*RGB) Format() core.PixelFormat { return core.FormatRGB }

func (*RGB) DecodePixel(desc core.ImageDescriptor, data []byte, x, y int) core.Color {
	if x < 0 || x >= desc.Width || y < 0 || y >= desc.Height {
		return core.Color{}
	}
	stride := desc.BitsPerPixel() / 8
	pos := (x + y*desc.Width) * stride
	if pos+stride > len(data) {
		return core.Color{}
	}
	c := core.Color{R: data[pos], G: data[pos+1], B: data[pos+2], A: 0xFF}
	switch desc.Transparency {
	case core.AlphaChannel:
		c.A = data[pos+3]
	case core.ChromaKey:
		if c.R == 0 && c.G == 1 && c.B == 0 {
			c.A = 0
		}
	}
	return c
}

func (*RGB) PackPixel(desc core.ImageDescriptor, c core.Color, x, y int, data []byte) {
	if x < 0 || x >= desc.Width || y < 0 || y >= desc.Height {
		return
	}
	stride := desc.BitsPerPixel() / 8
	pos := (x + y*desc.Width) * stride
	if pos+stride > len(data) {
		return
	}
	r, g, b := c.R, c.G, c.B
	if desc.Transparency == core.ChromaKey {
		if c.A < 0x80 {
			r, g, b = 0, 1, 0
		} else if r == 0 && g == 1 && b == 0 {
			// Opaque pixel on the sentinel triple; pull it off.
			g = 0
		}
	}
	data[pos] = r
	data[pos+1] = g
	data[pos+2] = b
	if desc.Transparency == core.AlphaChannel {
		data[pos+3] = c.A
	}
}
