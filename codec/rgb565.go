package codec

import (
	"github.com/Skryldev/image-engine/core"
)

// RGB565 handles 16-bit 5-6-5 color buffers, two bytes per pixel in the
// descriptor's byte order, plus one trailing alpha byte per pixel in
// alpha-channel mode.  ChromaKey reserves the packed value 0x0020 (pure
// minimal green) as fully transparent.
type RGB565 struct{}

// NewRGB565 returns a codec for 16-bit 5-6-5 images.
func NewRGB565() *RGB565 { return &RGB565{} }

func (*RGB565) Format() core.PixelFormat { return core.FormatRGB565 }

func (*RGB565) DecodePixel(desc core.ImageDescriptor, data []byte, x, y int) core.Color {
	if x < 0 || x >= desc.Width || y < 0 || y >= desc.Height {
		return core.Color{}
	}
	stride := desc.BitsPerPixel() / 8
	pos := (x + y*desc.Width) * stride
	if pos+stride > len(data) {
		return core.Color{}
	}
	var v uint16
	if desc.ByteOrder == core.LittleEndian {
		v = uint16(data[pos]) | uint16(data[pos+1])<<8
	} else {
		v = uint16(data[pos])<<8 | uint16(data[pos+1])
	}
	a := uint8(0xFF)
	switch desc.Transparency {
	case core.AlphaChannel:
		a = data[pos+2]
	case core.ChromaKey:
		if v == 0x0020 {
			a = 0
		}
	}
	return core.Color{
		R: expand5(uint8(v >> 11)),
		G: expand6(uint8(v >> 5 & 0x3F)),
		B: expand5(uint8(v & 0x1F)),
		A: a,
	}
}

func (*RGB565) PackPixel(desc core.ImageDescriptor, c core.Color, x, y int, data []byte) {
	if x < 0 || x >= desc.Width || y < 0 || y >= desc.Height {
		return
	}
	stride := desc.BitsPerPixel() / 8
	pos := (x + y*desc.Width) * stride
	if pos+stride > len(data) {
		return
	}
	r, g, b := c.R>>3, c.G>>2, c.B>>3
	if desc.Transparency == core.ChromaKey {
		if c.A < 0x80 {
			r, g, b = 0, 1, 0
		} else if r == 0 && g == 1 && b == 0 {
			// Opaque pixel that narrows onto the sentinel; pull it off.
			g = 0
		}
	}
	v := uint16(r)<<11 | uint16(g)<<5 | uint16(b)
	if desc.ByteOrder == core.LittleEndian {
		data[pos] = uint8(v)
		data[pos+1] = uint8(v >> 8)
	} else {
		data[pos] = uint8(v >> 8)
		data[pos+1] = uint8(v)
	}
	if desc.Transparency == core.AlphaChannel {
		data[pos+2] = c.A
	}
}
