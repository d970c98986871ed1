// Package ingest converts external image data into packed pixel buffers.
package ingest

import (
	"fmt"
	"image"
	"image/color"

	"github.com/Skryldev/image-engine/codec"
	"github.com/Skryldev/image-engine/core"
	apperrors "github.com/Skryldev/image-engine/errors"
)

// Options tweaks the packing step.
type Options struct {
	// InvertAlpha flips the transparency sense of the packed buffer.
	InvertAlpha bool
}

// FromImage packs a decoded standard library image into the layout desc
// describes.  The image bounds must match the descriptor dimensions.
func FromImage(img image.Image, desc core.ImageDescriptor, c core.Codec, opts Options) (*core.Image, error) {
	if err := desc.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInput, "ingest.image", err)
	}
	if c == nil || c.Format() != desc.Format {
		return nil, apperrors.New(apperrors.CategoryInput, "ingest.image",
			fmt.Errorf("no codec for %s", desc.Format))
	}
	bounds := img.Bounds()
	if bounds.Dx() != desc.Width || bounds.Dy() != desc.Height {
		return nil, apperrors.New(apperrors.CategoryInput, "ingest.image",
			fmt.Errorf("%w: image is %dx%d, descriptor wants %dx%d",
				apperrors.ErrInvalidDimensions, bounds.Dx(), bounds.Dy(), desc.Width, desc.Height))
	}

	buf := make([]byte, desc.ExpectedSize())
	for y := 0; y < desc.Height; y++ {
		for x := 0; x < desc.Width; x++ {
			n := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			c.PackPixel(desc, core.Color{R: n.R, G: n.G, B: n.B, A: n.A}, x, y, buf)
		}
	}
	if opts.InvertAlpha {
		codec.InvertAlpha(desc, buf)
	}
	return core.NewImage(desc, buf, c)
}

// FromRaw wraps an already packed buffer.  Short or long buffers are
// accepted; reads past the end decode as transparent black.
func FromRaw(data []byte, desc core.ImageDescriptor, c core.Codec) (*core.Image, error) {
	return core.NewImage(desc, data, c)
}
