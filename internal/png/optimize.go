package png

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
)

// ErrOptimize is returned when Optimize is handed bytes that are not a
// well-formed PNG.
var ErrOptimize = errors.New("png optimize error")

// DefaultLevel is the optimization effort used by the conversion pipeline.
const DefaultLevel = 2

// MaxLevel is the most exhaustive preset.
const MaxLevel = 3

// Preset is a fixed combination of optimization trials.
type Preset struct {
	Level      int
	Strategies []Strategy // filter strategies tried on non-interlaced images
	Deflate    []int      // zlib levels tried for every strategy
	Reduce     bool       // drop unused palette entries, trim tRNS, shrink bit depth
}

// PresetForLevel returns the preset for level, clamped to 0..MaxLevel.
//
//	0  none filter, deflate 6, no reductions
//	1  none + minsum, deflate 9
//	2  none, sub, up, paeth, minsum, deflate 9
//	3  every strategy, deflate 6 and 9
func PresetForLevel(level int) Preset {
	level = max(0, min(level, MaxLevel))
	switch level {
	case 0:
		return Preset{Level: 0, Strategies: []Strategy{StrategyNone}, Deflate: []int{6}}
	case 1:
		return Preset{Level: 1, Strategies: []Strategy{StrategyNone, StrategyMinSum}, Deflate: []int{zlib.BestCompression}, Reduce: true}
	case 2:
		return Preset{
			Level:      2,
			Strategies: []Strategy{StrategyNone, StrategySub, StrategyUp, StrategyPaeth, StrategyMinSum},
			Deflate:    []int{zlib.BestCompression},
			Reduce:     true,
		}
	default:
		return Preset{
			Level:      MaxLevel,
			Strategies: []Strategy{StrategyNone, StrategySub, StrategyUp, StrategyAverage, StrategyPaeth, StrategyMinSum},
			Deflate:    []int{6, zlib.BestCompression},
			Reduce:     true,
		}
	}
}

// DefaultPreset returns PresetForLevel(DefaultLevel).
func DefaultPreset() Preset {
	return PresetForLevel(DefaultLevel)
}

// Ancillary chunks that change how pixels render and survive optimization.
var keptAncillary = map[string]bool{
	"gAMA": true,
	"cHRM": true,
	"sRGB": true,
	"iCCP": true,
}

// Optimize losslessly re-encodes a PNG: it strips non-essential chunks,
// reduces indexed palettes and bit depth, and keeps the smallest result
// among the preset's filter and deflate trials. Decoding the output gives
// the same pixels as decoding the input. If no trial beats the input size,
// the input is returned unchanged.
func Optimize(data []byte, preset Preset) ([]byte, error) {
	img, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOptimize, err)
	}
	out, err := img.rebuild(preset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOptimize, err)
	}
	if len(out) >= len(data) {
		return data, nil
	}
	return out, nil
}

// parsed is a PNG broken into the parts Optimize rewrites.
type parsed struct {
	hdr      Header
	plte     []byte
	trns     []byte
	extra    []chunk
	filtered []byte // inflated IDAT stream, filter bytes included
}

func parse(data []byte) (*parsed, error) {
	chunks, err := readChunks(data)
	if err != nil {
		return nil, err
	}
	if chunks[0].typ != typeIHDR {
		return nil, fmt.Errorf("first chunk is %s, want IHDR", chunks[0].typ)
	}
	hdr, err := parseHeader(chunks[0].data)
	if err != nil {
		return nil, err
	}

	p := &parsed{hdr: *hdr}
	seenIDAT := false
	for _, c := range chunks[1:] {
		switch c.typ {
		case typeIHDR:
			return nil, fmt.Errorf("duplicate IHDR")
		case typePLTE:
			if p.plte != nil || seenIDAT {
				return nil, fmt.Errorf("misplaced PLTE chunk")
			}
			if len(c.data) == 0 || len(c.data)%3 != 0 || len(c.data) > 3*256 {
				return nil, fmt.Errorf("invalid PLTE length %d", len(c.data))
			}
			if hdr.ColorType == ColorIndexed && len(c.data)/3 > 1<<hdr.BitDepth {
				return nil, fmt.Errorf("%d palette entries exceed bit depth %d", len(c.data)/3, hdr.BitDepth)
			}
			p.plte = c.data
		case typeTRNS:
			if seenIDAT {
				return nil, fmt.Errorf("tRNS after IDAT")
			}
			p.trns = c.data
		case typeIDAT:
			seenIDAT = true
		case typeIEND:
		default:
			if c.critical() {
				return nil, fmt.Errorf("unknown critical chunk %s", c.typ)
			}
			if keptAncillary[c.typ] && !seenIDAT {
				p.extra = append(p.extra, c)
			}
		}
	}

	if hdr.ColorType == ColorIndexed {
		if p.plte == nil {
			return nil, errNoPalette
		}
		if len(p.trns) > len(p.plte)/3 {
			return nil, fmt.Errorf("tRNS has %d entries for %d palette colors", len(p.trns), len(p.plte)/3)
		}
	}
	if hdr.ColorType == ColorGrayAlpha || hdr.ColorType == ColorRGBA {
		p.trns = nil
	}
	if hdr.ColorType != ColorIndexed {
		// A suggested palette on a truecolor image does not affect decoding.
		p.plte = nil
	}

	idat, err := joinIDAT(chunks)
	if err != nil {
		return nil, err
	}
	want, err := hdr.streamSize()
	if err != nil {
		return nil, err
	}
	p.filtered, err = inflate(idat, want)
	if err != nil {
		return nil, fmt.Errorf("inflating image data: %v", err)
	}
	if len(p.filtered) < want {
		return nil, fmt.Errorf("image data is %d bytes, want %d", len(p.filtered), want)
	}
	return p, nil
}

// adam7 lists the pass origins and steps of Adam7 interlacing.
var adam7 = [7][4]int{
	{0, 0, 8, 8}, {4, 0, 8, 8}, {0, 4, 4, 8}, {2, 0, 4, 4}, {0, 2, 2, 4}, {1, 0, 2, 2}, {0, 1, 1, 2},
}

// streamSize is the length of the decompressed, filtered scanline stream.
// It fails for dimensions whose stream length does not fit in an int.
func (h *Header) streamSize() (int, error) {
	if h.Width > (math.MaxInt-7)/(h.channels()*h.BitDepth) {
		return 0, fmt.Errorf("image %dx%d too large", h.Width, h.Height)
	}
	if h.Interlace == 0 {
		return scanlineBytes(h, h.Width, h.Height)
	}
	total := 0
	for _, p := range adam7 {
		pw := (h.Width - p[0] + p[2] - 1) / p[2]
		ph := (h.Height - p[1] + p[3] - 1) / p[3]
		if pw <= 0 || ph <= 0 {
			continue
		}
		n, err := scanlineBytes(h, pw, ph)
		if err != nil {
			return 0, err
		}
		if total > math.MaxInt-n {
			return 0, fmt.Errorf("image %dx%d too large", h.Width, h.Height)
		}
		total += n
	}
	return total, nil
}

// scanlineBytes is rows filtered scanlines of width pixels each.
func scanlineBytes(h *Header, width, rows int) (int, error) {
	row := h.rowBytes(width) + 1
	if row > math.MaxInt/rows {
		return 0, fmt.Errorf("image %dx%d too large", h.Width, h.Height)
	}
	return rows * row, nil
}

// inflate decompresses at most limit bytes of a zlib stream.
func inflate(data []byte, limit int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, int64(limit)))
}

func deflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *parsed) rebuild(preset Preset) ([]byte, error) {
	hdr := p.hdr
	plte, trns := p.plte, p.trns

	var streams [][]byte
	if hdr.Interlace != 0 {
		// Filters of interlaced passes are kept as they are.
		streams = [][]byte{p.filtered}
		if preset.Reduce && hdr.ColorType == ColorIndexed {
			trns = trimTRNS(trns)
		}
	} else {
		raw, err := unfilter(p.filtered, hdr.Height, hdr.rowBytes(hdr.Width), hdr.bytesPerPixel())
		if err != nil {
			return nil, err
		}
		if preset.Reduce && hdr.ColorType == ColorIndexed {
			raw, plte, trns, hdr.BitDepth, err = reducePalette(raw, hdr, plte, trns)
			if err != nil {
				return nil, err
			}
		}
		rowBytes := hdr.rowBytes(hdr.Width)
		strategies := preset.Strategies
		if len(strategies) == 0 {
			strategies = []Strategy{StrategyNone}
		}
		for _, s := range strategies {
			streams = append(streams, applyFilter(raw, hdr.Height, rowBytes, hdr.bytesPerPixel(), s))
		}
	}

	levels := preset.Deflate
	if len(levels) == 0 {
		levels = []int{zlib.DefaultCompression}
	}
	var best []byte
	for _, stream := range streams {
		for _, level := range levels {
			idat, err := deflate(stream, level)
			if err != nil {
				return nil, err
			}
			if best == nil || len(idat) < len(best) {
				best = idat
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString(signature)
	if err := writeChunks(&buf, &hdr, plte, trns, best, p.extra); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
