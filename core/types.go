package core

import (
	apperrors "github.com/Skryldev/image-engine/errors"
)

// PixelFormat identifies a packed pixel encoding.
type PixelFormat string

const (
	FormatBinary    PixelFormat = "binary"
	FormatGrayscale PixelFormat = "grayscale"
	FormatRGB565    PixelFormat = "rgb565"
	FormatRGB       PixelFormat = "rgb"
	FormatUnknown   PixelFormat = "unknown"
)

// TransparencyMode selects how a format encodes transparent pixels.
type TransparencyMode string

const (
	// Opaque images carry no transparency information.
	Opaque TransparencyMode = "opaque"
	// ChromaKey reserves one sentinel pixel value as fully transparent.
	ChromaKey TransparencyMode = "chroma_key"
	// AlphaChannel appends an explicit alpha byte to each pixel.
	AlphaChannel TransparencyMode = "alpha_channel"
)

// ByteOrder governs multi-byte sample interpretation.  Only formats with
// samples of two or more bytes are affected.  The empty value is treated as
// big-endian, the historical default for packed RGB565 assets.
type ByteOrder string

const (
	BigEndian    ByteOrder = "big_endian"
	LittleEndian ByteOrder = "little_endian"
)

// Dimension bounds keep the worst-case buffer size tractable for the cache.
const (
	MaxWidth  = 1024
	MaxHeight = 768
)

// ImageDescriptor describes the shape and encoding of a raw pixel buffer.
// It is a value type; construct, use, and discard per call.
type ImageDescriptor struct {
	Width        int
	Height       int
	Format       PixelFormat
	Transparency TransparencyMode
	ByteOrder    ByteOrder
}

// BitsPerPixel returns the fixed per-pixel bit width for the descriptor's
// format and transparency mode.
func (d ImageDescriptor) BitsPerPixel() int {
	switch d.Format {
	case FormatBinary:
		return 1
	case FormatGrayscale:
		return 8
	case FormatRGB565:
		if d.Transparency == AlphaChannel {
			return 24
		}
		return 16
	case FormatRGB:
		if d.Transparency == AlphaChannel {
			return 32
		}
		return 24
	}
	return 0
}

// RowStride returns the number of bytes occupied by one full row of pixels.
// Binary rows are padded to a byte boundary.
func (d ImageDescriptor) RowStride() int {
	return (d.Width*d.BitsPerPixel() + 7) / 8
}

// ExpectedSize returns the byte length a well-formed buffer should have.
func (d ImageDescriptor) ExpectedSize() int {
	return d.RowStride() * d.Height
}

// Validate reports whether the descriptor is usable.
func (d ImageDescriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 || d.Width > MaxWidth || d.Height > MaxHeight {
		return apperrors.ErrInvalidDimensions
	}
	if d.BitsPerPixel() == 0 {
		return apperrors.ErrUnknownFormat
	}
	return nil
}

// Color is the universal sample type, independent of source format.
type Color struct {
	R uint8
	G uint8
	B uint8
	A uint8
}

// Transparent reports whether the sample is fully transparent.
func (c Color) Transparent() bool { return c.A == 0 }

// Rect is a clip rectangle.  X2 and Y2 are exclusive bounds.
type Rect struct {
	X  int
	Y  int
	X2 int
	Y2 int
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() int { return r.X2 - r.X }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() int { return r.Y2 - r.Y }
