package ir

import "image/color"

// MaxPaletteSize is the indexed-color limit of the PNG format.
const MaxPaletteSize = 256

// Color is a straight-alpha 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

// NRGBA converts c to the standard library's non-premultiplied color type.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Opaque reports whether c has full alpha.
func (c Color) Opaque() bool { return c.A == 0xff }

// Palette is an ordered color table. Index order determines the layout of
// the PNG PLTE and tRNS chunks.
type Palette []Color

// HasAlpha reports whether any entry is not fully opaque.
func (p Palette) HasAlpha() bool {
	for _, c := range p {
		if !c.Opaque() {
			return true
		}
	}
	return false
}

// ColorPalette converts p to a color.Palette of color.NRGBA entries.
func (p Palette) ColorPalette() color.Palette {
	out := make(color.Palette, len(p))
	for i, c := range p {
		out[i] = c.NRGBA()
	}
	return out
}

// Quantized is the output of palette quantization: a palette plus one
// palette index per pixel, row-major. Every index is < len(Palette).
type Quantized struct {
	Width   int
	Height  int
	Palette Palette
	Indices []uint8
}

// Color returns the palette color assigned to pixel (x, y).
func (q *Quantized) Color(x, y int) Color {
	return q.Palette[q.Indices[y*q.Width+x]]
}
