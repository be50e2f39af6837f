package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/davesmith10/imgopt/internal/ir"
	"github.com/davesmith10/imgopt/internal/png"
	"github.com/davesmith10/imgopt/internal/quant"
	"github.com/davesmith10/imgopt/internal/raster"
	"github.com/davesmith10/imgopt/internal/webp"
)

// Format is an output encoding.
type Format int

const (
	FormatPNG Format = iota
	FormatWebP
)

func (f Format) String() string {
	if f == FormatWebP {
		return "webp"
	}
	return "png"
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	return "." + f.String()
}

// ParseFormat maps a format name (or extension) to a Format. "webp" in any
// case selects WebP; everything else, including "", selects PNG.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimPrefix(s, "."), "webp") {
		return FormatWebP
	}
	return FormatPNG
}

// FormatFromPath picks the output format from a file name's extension.
func FormatFromPath(path string) Format {
	return ParseFormat(filepath.Ext(path))
}

// Options controls the decode → resize → encode pipeline.
type Options struct {
	MaxWidth     int    // 0 leaves the width unconstrained
	MaxHeight    int    // 0 leaves the height unconstrained
	Quality      int    // 0-100: palette quality for PNG, lossy quality for WebP
	Format       Format // output encoding
	Dither       bool   // Floyd-Steinberg remap for PNG
	SkipOptimize bool   // PNG only: return the unoptimized indexed stream
}

// Result holds the output of a pipeline run.
type Result struct {
	Data            []byte // encoded PNG or WebP
	Format          Format
	SrcWidth        int
	SrcHeight       int
	Width           int
	Height          int
	Colors          int        // palette entries, 0 for WebP
	Palette         ir.Palette // PNG only
	Transparent     bool       // output carries alpha
	UnoptimizedSize int        // PNG size before re-optimization, 0 for WebP
}

// Run executes the full pipeline on encoded image bytes: decode (format
// sniffed from content), downscale to fit, then either quantize → indexed
// PNG → lossless re-optimization, or lossy WebP.
func Run(data []byte, opts Options) (*Result, error) {
	// 1. Decode
	img, err := raster.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	res := &Result{Format: opts.Format, SrcWidth: img.Width, SrcHeight: img.Height}

	// 2. Resize, only ever shrinking
	img = raster.Resize(img, opts.MaxWidth, opts.MaxHeight)
	res.Width, res.Height = img.Width, img.Height

	// 3. Encode
	if opts.Format == FormatWebP {
		encoded, err := webp.Encode(img, opts.Quality)
		if err != nil {
			return nil, fmt.Errorf("encode: %w", err)
		}
		res.Data = encoded
		res.Transparent = img.HasAlpha()
		return res, nil
	}

	q, err := quant.Quantize(img, quant.Options{
		Quality:   opts.Quality,
		MaxColors: quant.DefaultMaxColors,
		Dither:    opts.Dither,
	})
	if err != nil {
		return nil, fmt.Errorf("quantize: %w", err)
	}
	res.Colors = len(q.Palette)
	res.Palette = q.Palette
	res.Transparent = q.Palette.HasAlpha()

	encoded, err := png.EncodeIndexed(img.Width, img.Height, q)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	res.UnoptimizedSize = len(encoded)
	if opts.SkipOptimize {
		res.Data = encoded
		return res, nil
	}

	// 4. Lossless re-optimization
	optimized, err := png.Optimize(encoded, png.DefaultPreset())
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	res.Data = optimized
	return res, nil
}
