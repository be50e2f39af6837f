// Package raster turns encoded image bytes into ir.RawImage buffers and
// resizes them.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/davesmith10/imgopt/internal/ir"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when input bytes are not a recognizable image or
// fail to decode.
var ErrDecode = errors.New("decode error")

// Decode sniffs the format of data from its magic bytes, decodes it and
// normalizes the result to 8-bit straight RGBA. File names and extensions
// play no part in format identification.
func Decode(data []byte) (*ir.RawImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: unrecognized image format", ErrDecode)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, formatName(format), err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %s image has empty bounds %v", ErrDecode, format, b)
	}

	// Clone converts every source layout (paletted, gray, 16-bit, YCbCr,
	// CMYK) to *image.NRGBA anchored at the origin.
	return ir.FromNRGBA(imaging.Clone(img)), nil
}

func formatName(format string) string {
	if format == "" {
		return "image"
	}
	return format
}
