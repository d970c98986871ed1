package codec

import (
	"github.com/Skryldev/image-engine/core"
)

// Binary handles 1-bit-per-pixel buffers.  Rows are padded to a byte
// boundary and bits fill each byte most-significant first.
type Binary struct{}

// NewBinary returns a codec for 1-bit images.
func NewBinary() *Binary { return &Binary{} }

func (*Binary) Format() core.PixelFormat { return core.FormatBinary }

func (*Binary) DecodePixel(desc core.ImageDescriptor, data []byte, x, y int) core.Color {
	if x < 0 || x >= desc.Width || y < 0 || y >= desc.Height {
		return core.Color{}
	}
	width8 := ((desc.Width + 7) / 8) * 8
	pos := x + y*width8
	idx := pos / 8
	if idx >= len(data) {
		return core.Color{}
	}
	if data[idx]&(0x80>>(pos%8)) != 0 {
		return core.Color{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	}
	return core.Color{}
}

func (*Binary) PackPixel(desc core.ImageDescriptor, c core.Color, x, y int, data []byte) {
	if x < 0 || x >= desc.Width || y < 0 || y >= desc.Height {
		return
	}
	width8 := ((desc.Width + 7) / 8) * 8
	pos := x + y*width8
	idx := pos / 8
	if idx >= len(data) {
		return
	}
	mask := byte(0x80) >> (pos % 8)
	if luminance(c) >= 0x80 {
		data[idx] |= mask
	} else {
		data[idx] &^= mask
	}
}
