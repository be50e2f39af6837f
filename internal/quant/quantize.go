// Package quant reduces an RGBA image to an indexed palette of at most
// 256 colors.
//
// Images that already use few enough colors get an exact palette. Others
// are clustered with k-means in CIELAB space by smallpng and remapped,
// optionally with Floyd-Steinberg error diffusion. Quality (0-100) sets
// both the palette size and the clustering effort: lower quality yields
// fewer colors, down to a floor of 16.
package quant

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/davesmith10/imgopt/internal/ir"
	"github.com/unixpickle/smallpng/smallpng"
	"golang.org/x/image/draw"
)

// DefaultMaxColors is the largest palette the quantizer builds.
const DefaultMaxColors = ir.MaxPaletteSize

// ErrQuantize is returned for invalid parameters or degenerate images.
var ErrQuantize = errors.New("quantization error")

// Options controls palette construction. Quality here sets palette size
// and clustering effort; the WebP encoder reads the same 0-100 number as
// its lossy quality.
type Options struct {
	Quality   int  // 0-100
	MaxColors int  // 2-256, 0 means DefaultMaxColors
	Dither    bool // Floyd-Steinberg error diffusion when remapping
}

// DefaultOptions returns quality 80, a 256-color limit and dithering.
func DefaultOptions() Options {
	return Options{Quality: DefaultQuality, MaxColors: DefaultMaxColors, Dither: true}
}

// Quantize builds a palette for img and maps every pixel to it.
func Quantize(img *ir.RawImage, opts Options) (*ir.Quantized, error) {
	if opts.Quality < 0 || opts.Quality > 100 {
		return nil, fmt.Errorf("%w: quality %d out of range 0-100", ErrQuantize, opts.Quality)
	}
	maxColors := opts.MaxColors
	if maxColors == 0 {
		maxColors = DefaultMaxColors
	}
	if maxColors < 2 || maxColors > ir.MaxPaletteSize {
		return nil, fmt.Errorf("%w: max colors %d out of range 2-%d", ErrQuantize, maxColors, ir.MaxPaletteSize)
	}
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("%w: degenerate image: %v", ErrQuantize, err)
	}

	if q := exact(img, maxColors); q != nil {
		return q, nil
	}

	src := img.NRGBA()
	clustered := smallpng.PaletteImage(src, &smallpng.PaletteConfig{
		MaxKMeansIters: kmeansIterations(opts.Quality),
		PaletteSize:    paletteSize(opts.Quality, maxColors),
	})
	palette, remap := compact(clustered.Palette, !img.HasAlpha())

	q := &ir.Quantized{Width: img.Width, Height: img.Height, Palette: palette}
	if opts.Dither && len(palette) > 1 {
		q.Indices = ditherRemap(src, palette)
		return q, nil
	}
	q.Indices = make([]uint8, len(clustered.Pix))
	for i, idx := range clustered.Pix {
		q.Indices[i] = remap[idx]
	}
	return q, nil
}

// compact converts a clustered palette to straight-alpha entries, drops
// the duplicates smallpng pads it with and returns the old-to-new index
// mapping. Opaque sources keep every entry opaque.
func compact(p color.Palette, opaque bool) (ir.Palette, []uint8) {
	seen := make(map[ir.Color]uint8, len(p))
	palette := make(ir.Palette, 0, len(p))
	remap := make([]uint8, len(p))
	for i, c := range p {
		e := toColor(c)
		if opaque {
			e.A = 255
		}
		if e.A == 0 {
			e = ir.Color{}
		}
		idx, ok := seen[e]
		if !ok {
			idx = uint8(len(palette))
			seen[e] = idx
			palette = append(palette, e)
		}
		remap[i] = idx
	}
	return palette, remap
}

// toColor unpremultiplies c, clamping channels that rounding pushed
// past alpha.
func toColor(c color.Color) ir.Color {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return ir.Color{}
	}
	r, g, b = min(r, a), min(g, a), min(b, a)
	return ir.Color{
		R: uint8(r * 0xffff / a >> 8),
		G: uint8(g * 0xffff / a >> 8),
		B: uint8(b * 0xffff / a >> 8),
		A: uint8(a >> 8),
	}
}

// ditherRemap maps pixels with Floyd-Steinberg error diffusion.
func ditherRemap(src *image.NRGBA, palette ir.Palette) []uint8 {
	dst := image.NewPaletted(src.Rect, palette.ColorPalette())
	draw.FloydSteinberg.Draw(dst, dst.Bounds(), src, image.Point{})
	return dst.Pix
}
