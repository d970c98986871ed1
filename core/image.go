package core

import (
	"context"
	"fmt"

	apperrors "github.com/Skryldev/image-engine/errors"
)

// ── Materialized image ────────────────────────────────────────────────────────

// Image pairs a fully resident pixel buffer with the codec that can read it.
type Image struct {
	desc  ImageDescriptor
	data  []byte
	codec Codec
}

// NewImage wraps a packed pixel buffer.  The buffer may be shorter or longer
// than desc.ExpectedSize(); reads past the end decode as transparent black.
func NewImage(desc ImageDescriptor, data []byte, codec Codec) (*Image, error) {
	if err := desc.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInput, "image.new", err)
	}
	if codec == nil {
		return nil, apperrors.New(apperrors.CategoryInput, "image.new", fmt.Errorf("nil codec"))
	}
	if codec.Format() != desc.Format {
		return nil, apperrors.New(apperrors.CategoryInput, "image.new",
			fmt.Errorf("codec handles %s, descriptor wants %s", codec.Format(), desc.Format))
	}
	return &Image{desc: desc, data: data, codec: codec}, nil
}

// Descriptor returns the image shape and encoding.
func (i *Image) Descriptor() ImageDescriptor { return i.desc }

// Data returns the backing buffer.  Callers must treat it as read-only.
func (i *Image) Data() []byte { return i.data }

// At returns the decoded pixel at (x, y), transparent black out of bounds.
func (i *Image) At(x, y int) Color {
	return i.codec.DecodePixel(i.desc, i.data, x, y)
}

// Pixel resolves (x, y) against explicit on/off colors: binary images map
// set bits to on and clear bits to off, other formats return the decoded
// sample.  Out-of-bounds coordinates return off.
func (i *Image) Pixel(x, y int, on, off Color) Color {
	return lookupPixel(i, x, y, on, off)
}

// Clone returns a deep copy of the image.
func (i *Image) Clone() *Image {
	data := make([]byte, len(i.data))
	copy(data, i.data)
	return &Image{desc: i.desc, data: data, codec: i.codec}
}

// ── Streamed image ────────────────────────────────────────────────────────────

// StreamedImage samples pixels row by row through a RangeReader instead of
// holding the whole buffer.  It keeps a single-row window, so it is not safe
// for concurrent use.
type StreamedImage struct {
	ctx     context.Context //nolint:containedctx // draw calls carry no context; rows are fetched with the load-time one
	reader  RangeReader
	path    string
	desc    ImageDescriptor
	rowDesc ImageDescriptor
	codec   Codec
	logger  Logger

	row    []byte
	rowY   int
	failed bool
}

// NewStreamedImage builds a row-windowed pixel source over reader.
func NewStreamedImage(ctx context.Context, reader RangeReader, path string, desc ImageDescriptor, codec Codec, logger Logger) (*StreamedImage, error) {
	if err := desc.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInput, "image.stream", err)
	}
	if reader == nil {
		return nil, apperrors.New(apperrors.CategoryInput, "image.stream", fmt.Errorf("nil reader"))
	}
	if codec == nil || codec.Format() != desc.Format {
		return nil, apperrors.New(apperrors.CategoryInput, "image.stream",
			fmt.Errorf("no codec for %s", desc.Format))
	}
	if logger == nil {
		logger = NopLogger()
	}
	rowDesc := desc
	rowDesc.Height = 1
	return &StreamedImage{
		ctx:     ctx,
		reader:  reader,
		path:    path,
		desc:    desc,
		rowDesc: rowDesc,
		codec:   codec,
		logger:  logger,
		rowY:    -1,
	}, nil
}

// Descriptor returns the image shape and encoding.
func (s *StreamedImage) Descriptor() ImageDescriptor { return s.desc }

// At returns the decoded pixel at (x, y).  Row fetch failures are logged
// once and all further samples decode as transparent black.
func (s *StreamedImage) At(x, y int) Color {
	if x < 0 || x >= s.desc.Width || y < 0 || y >= s.desc.Height {
		return Color{}
	}
	if !s.ensureRow(y) {
		return Color{}
	}
	return s.codec.DecodePixel(s.rowDesc, s.row, x, 0)
}

// Pixel resolves (x, y) against explicit on/off colors, like Image.Pixel.
func (s *StreamedImage) Pixel(x, y int, on, off Color) Color {
	return lookupPixel(s, x, y, on, off)
}

func (s *StreamedImage) ensureRow(y int) bool {
	if s.rowY == y {
		return true
	}
	if s.failed {
		return false
	}
	stride := s.desc.RowStride()
	row, err := s.reader.ReadRange(s.ctx, s.path, int64(y)*int64(stride), stride)
	if err != nil {
		s.failed = true
		s.logger.Warn("image.stream.read_failed", "path", s.path, "row", y, "error", err)
		return false
	}
	s.row = row
	s.rowY = y
	return true
}

func lookupPixel(src PixelSource, x, y int, on, off Color) Color {
	d := src.Descriptor()
	if x < 0 || x >= d.Width || y < 0 || y >= d.Height {
		return off
	}
	c := src.At(x, y)
	if d.Format == FormatBinary {
		if c.A != 0 {
			return on
		}
		return off
	}
	return c
}
