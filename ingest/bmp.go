package ingest

import (
	"context"

	"golang.org/x/image/bmp"

	"github.com/Skryldev/image-engine/core"
	apperrors "github.com/Skryldev/image-engine/errors"
	"github.com/Skryldev/image-engine/utils"
)

// FromBMP decodes a BMP container and packs it into the requested format.
// Dimensions come from the BMP header.
func FromBMP(ctx context.Context, data []byte, format core.PixelFormat, tr core.TransparencyMode, order core.ByteOrder, c core.Codec, opts Options) (*core.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "ingest.bmp", err)
	}
	img, err := bmp.Decode(utils.BytesReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "ingest.bmp", err)
	}
	bounds := img.Bounds()
	desc := core.ImageDescriptor{
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		Format:       format,
		Transparency: tr,
		ByteOrder:    order,
	}
	return FromImage(img, desc, c, opts)
}
