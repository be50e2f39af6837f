// Package webp encodes ir.RawImage buffers as lossy WebP using libwebp.
package webp

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/davesmith10/imgopt/internal/ir"
)

// ErrEncode is returned when the WebP encoder cannot produce output.
var ErrEncode = errors.New("webp encode error")

// Encode compresses img as a lossy WebP at the given quality (0-100).
// Quality 100 is libwebp's highest-fidelity lossy setting and 0 its most
// aggressive compression. The full RGBA buffer is encoded directly; no
// palette reduction takes place.
func Encode(img *ir.RawImage, quality int) ([]byte, error) {
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if quality < 0 || quality > 100 {
		return nil, fmt.Errorf("%w: quality %d out of range 0-100", ErrEncode, quality)
	}

	var buf bytes.Buffer
	buf.Grow(len(img.Pixels) / 8)
	opts := &webp.Options{
		Lossless: false,
		Quality:  float32(quality),
	}
	// libwebp takes straight RGBA. Handing the buffer over as *image.RGBA
	// keeps the library from converting (and premultiplying) it first.
	src := &image.RGBA{
		Pix:    img.Pixels,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
	if err := webp.Encode(&buf, src, opts); err != nil {
		return nil, fmt.Errorf("%w: libwebp: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// IsWebP reports whether data starts with a RIFF container of form WEBP.
func IsWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}
