// Package codec implements pixel-level access to the packed formats the
// engine serves: 1-bit binary, 8-bit grayscale, RGB565 and RGB24, each with
// optional chroma-key or alpha-channel transparency.
//
// DecodePixel and PackPixel are inverses on every byte pattern a format can
// represent exactly; narrowing formats (RGB565) lose low bits by design.
package codec

import (
	"github.com/Skryldev/image-engine/core"
)

// All returns one codec instance per supported format, for registry setup.
func All() []core.Codec {
	return []core.Codec{NewBinary(), NewGrayscale(), NewRGB565(), NewRGB()}
}

// SwapByteOrder flips multi-byte samples between big- and little-endian in
// place.  Applying it twice restores the original buffer.  Formats with
// single-byte samples are left untouched; a trailing partial sample is left
// untouched as well.
func SwapByteOrder(desc core.ImageDescriptor, data []byte) {
	switch desc.Format {
	case core.FormatRGB565:
		// The color sample is two bytes; a trailing alpha byte, when
		// present, stays where it is.
		stride := desc.BitsPerPixel() / 8
		for i := 0; i+1 < len(data); i += stride {
			data[i], data[i+1] = data[i+1], data[i]
		}
	case core.FormatRGB:
		if desc.Transparency != core.AlphaChannel {
			return
		}
		for i := 0; i+3 < len(data); i += 4 {
			data[i], data[i+3] = data[i+3], data[i]
		}
	}
}

// InvertAlpha inverts the transparency sense of a packed buffer in place.
// Binary and grayscale buffers invert every byte; alpha-channel RGB565 and
// RGB buffers invert only the alpha byte of each pixel.  Other layouts have
// no inverse representation and are left untouched.
func InvertAlpha(desc core.ImageDescriptor, data []byte) {
	switch desc.Format {
	case core.FormatBinary, core.FormatGrayscale:
		for i := range data {
			data[i] ^= 0xFF
		}
	case core.FormatRGB565:
		if desc.Transparency != core.AlphaChannel {
			return
		}
		for i := 2; i < len(data); i += 3 {
			data[i] ^= 0xFF
		}
	case core.FormatRGB:
		if desc.Transparency != core.AlphaChannel {
			return
		}
		for i := 3; i < len(data); i += 4 {
			data[i] ^= 0xFF
		}
	}
}

// expand5 widens a 5-bit channel to 8 bits, replicating high bits so that 0
// maps to 0 and 31 maps to 255.
func expand5(v uint8) uint8 { return v<<3 | v>>2 }

// expand6 widens a 6-bit channel to 8 bits.
func expand6(v uint8) uint8 { return v<<2 | v>>4 }

// luminance reduces a color to its mean channel intensity.
func luminance(c core.Color) uint8 {
	return uint8((uint16(c.R) + uint16(c.G) + uint16(c.B)) / 3)
}
