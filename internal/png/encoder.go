// Package png builds indexed-color PNG streams and losslessly re-optimizes
// existing PNGs.
package png

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/davesmith10/imgopt/internal/ir"
	"github.com/klauspost/compress/zlib"
)

// ErrEncode is returned when an indexed PNG cannot be written.
var ErrEncode = errors.New("png encode error")

// EncodeIndexed writes q as an 8-bit indexed-color PNG: signature, IHDR,
// PLTE, tRNS (only when some entry is not fully opaque), IDAT, IEND.
// Scanlines are stored unfiltered; filter selection is left to Optimize.
func EncodeIndexed(width, height int, q *ir.Quantized) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrEncode, width, height)
	}
	if q == nil || len(q.Palette) == 0 || len(q.Palette) > ir.MaxPaletteSize {
		return nil, fmt.Errorf("%w: palette must have 1-%d entries", ErrEncode, ir.MaxPaletteSize)
	}
	if len(q.Indices) != width*height {
		return nil, fmt.Errorf("%w: expected %d indices for %dx%d, got %d", ErrEncode, width*height, width, height, len(q.Indices))
	}

	hdr := &Header{Width: width, Height: height, BitDepth: 8, ColorType: ColorIndexed}

	plte := make([]byte, 0, 3*len(q.Palette))
	for _, c := range q.Palette {
		plte = append(plte, c.R, c.G, c.B)
	}

	var trns []byte
	if q.Palette.HasAlpha() {
		trns = make([]byte, len(q.Palette))
		for i, c := range q.Palette {
			trns[i] = c.A
		}
	}

	idat, err := compressRows(q.Indices, width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: compressing image data: %v", ErrEncode, err)
	}

	var buf bytes.Buffer
	buf.Grow(len(signature) + 12*5 + 13 + len(plte) + len(trns) + len(idat))
	buf.WriteString(signature)
	if err := writeChunks(&buf, hdr, plte, trns, idat, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// compressRows deflates the index buffer with a filter-type-0 byte before
// each scanline.
func compressRows(indices []uint8, width, height int) ([]byte, error) {
	var out bytes.Buffer
	zw := zlib.NewWriter(&out)
	row := make([]byte, width+1)
	for y := 0; y < height; y++ {
		row[0] = filterNone
		copy(row[1:], indices[y*width:(y+1)*width])
		if _, err := zw.Write(row); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// writeChunks emits IHDR, any extra ancillary chunks that must precede
// PLTE, PLTE (when non-nil), tRNS (when non-nil), a single IDAT and IEND.
func writeChunks(buf *bytes.Buffer, hdr *Header, plte, trns, idat []byte, extra []chunk) error {
	if err := writeChunk(buf, typeIHDR, hdr.encode()); err != nil {
		return err
	}
	for _, c := range extra {
		if err := writeChunk(buf, c.typ, c.data); err != nil {
			return err
		}
	}
	if plte != nil {
		if err := writeChunk(buf, typePLTE, plte); err != nil {
			return err
		}
	}
	if trns != nil {
		if err := writeChunk(buf, typeTRNS, trns); err != nil {
			return err
		}
	}
	if err := writeChunk(buf, typeIDAT, idat); err != nil {
		return err
	}
	return writeChunk(buf, typeIEND, nil)
}
