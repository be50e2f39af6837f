package png

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// PNG color types.
const (
	ColorGray      = 0
	ColorRGB       = 2
	ColorIndexed   = 3
	ColorGrayAlpha = 4
	ColorRGBA      = 6
)

// Header holds the fields of an IHDR chunk.
type Header struct {
	Width     int
	Height    int
	BitDepth  int
	ColorType int
	Interlace int // 0 none, 1 Adam7
}

func parseHeader(data []byte) (*Header, error) {
	if len(data) != 13 {
		return nil, fmt.Errorf("IHDR is %d bytes, want 13", len(data))
	}
	w := binary.BigEndian.Uint32(data[0:4])
	h := binary.BigEndian.Uint32(data[4:8])
	if w == 0 || h == 0 || w > 1<<31-1 || h > 1<<31-1 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", w, h)
	}
	if data[10] != 0 {
		return nil, fmt.Errorf("unknown compression method %d", data[10])
	}
	if data[11] != 0 {
		return nil, fmt.Errorf("unknown filter method %d", data[11])
	}
	if data[12] > 1 {
		return nil, fmt.Errorf("unknown interlace method %d", data[12])
	}
	hdr := &Header{
		Width:     int(w),
		Height:    int(h),
		BitDepth:  int(data[8]),
		ColorType: int(data[9]),
		Interlace: int(data[12]),
	}
	if err := hdr.validDepth(); err != nil {
		return nil, err
	}
	return hdr, nil
}

func (h *Header) validDepth() error {
	var ok bool
	switch h.ColorType {
	case ColorGray:
		ok = h.BitDepth == 1 || h.BitDepth == 2 || h.BitDepth == 4 || h.BitDepth == 8 || h.BitDepth == 16
	case ColorIndexed:
		ok = h.BitDepth == 1 || h.BitDepth == 2 || h.BitDepth == 4 || h.BitDepth == 8
	case ColorRGB, ColorGrayAlpha, ColorRGBA:
		ok = h.BitDepth == 8 || h.BitDepth == 16
	default:
		return fmt.Errorf("unknown color type %d", h.ColorType)
	}
	if !ok {
		return fmt.Errorf("bit depth %d not allowed for %s", h.BitDepth, ColorTypeName(h.ColorType))
	}
	return nil
}

func (h *Header) encode() []byte {
	b := make([]byte, 13)
	binary.BigEndian.PutUint32(b[0:4], uint32(h.Width))
	binary.BigEndian.PutUint32(b[4:8], uint32(h.Height))
	b[8] = byte(h.BitDepth)
	b[9] = byte(h.ColorType)
	b[12] = byte(h.Interlace)
	return b
}

// channels returns the number of samples per pixel.
func (h *Header) channels() int {
	switch h.ColorType {
	case ColorRGB:
		return 3
	case ColorGrayAlpha:
		return 2
	case ColorRGBA:
		return 4
	default:
		return 1
	}
}

// bytesPerPixel is the filter stride: whole bytes per pixel, at least 1.
func (h *Header) bytesPerPixel() int {
	return max(1, h.channels()*h.BitDepth/8)
}

// rowBytes is the length of one unfiltered scanline of the given width.
func (h *Header) rowBytes(width int) int {
	return (width*h.channels()*h.BitDepth + 7) / 8
}

var errNoPalette = errors.New("indexed image without PLTE chunk")

// ColorTypeName returns a human-readable name for a PNG color type.
func ColorTypeName(ct int) string {
	switch ct {
	case ColorGray:
		return "Grayscale"
	case ColorRGB:
		return "RGB"
	case ColorIndexed:
		return "Indexed"
	case ColorGrayAlpha:
		return "GrayscaleAlpha"
	case ColorRGBA:
		return "RGBA"
	default:
		return fmt.Sprintf("ColorType(%d)", ct)
	}
}
