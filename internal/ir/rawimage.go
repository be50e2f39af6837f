package ir

import (
	"fmt"
	"image"
)

// RawImage is the intermediate representation passed between the decoder,
// the resizer and the encoders. Pixels are stored as interleaved straight
// (non-premultiplied) R,G,B,A bytes (4 bytes per pixel, row-major order).
type RawImage struct {
	Width  int
	Height int
	Pixels []byte // len = Width * Height * 4
}

// Validate reports whether the dimensions and buffer length agree.
func (r *RawImage) Validate() error {
	if r == nil {
		return fmt.Errorf("nil image")
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", r.Width, r.Height)
	}
	if want := r.Width * r.Height * 4; len(r.Pixels) != want {
		return fmt.Errorf("expected %d RGBA bytes for %dx%d, got %d", want, r.Width, r.Height, len(r.Pixels))
	}
	return nil
}

// At returns the color of the pixel at (x, y).
func (r *RawImage) At(x, y int) Color {
	i := (y*r.Width + x) * 4
	p := r.Pixels[i : i+4 : i+4]
	return Color{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// NRGBA wraps the pixel buffer as an *image.NRGBA without copying.
func (r *RawImage) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    r.Pixels,
		Stride: r.Width * 4,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}
}

// FromNRGBA takes ownership of img's pixel buffer when it is tightly packed
// and anchored at the origin, and copies it otherwise.
func FromNRGBA(img *image.NRGBA) *RawImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if b.Min == (image.Point{}) && img.Stride == w*4 && len(img.Pix) == w*h*4 {
		return &RawImage{Width: w, Height: h, Pixels: img.Pix}
	}
	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(pix[y*w*4:(y+1)*w*4], img.Pix[off:off+w*4])
	}
	return &RawImage{Width: w, Height: h, Pixels: pix}
}

// HasAlpha reports whether any pixel is not fully opaque.
func (r *RawImage) HasAlpha() bool {
	for i := 3; i < len(r.Pixels); i += 4 {
		if r.Pixels[i] != 0xff {
			return true
		}
	}
	return false
}
