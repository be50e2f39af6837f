package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
)

// colorModelName returns a short label for the decoder's color model.
func colorModelName(m color.Model) string {
	switch m {
	case color.RGBAModel:
		return "RGBA"
	case color.RGBA64Model:
		return "RGBA64"
	case color.NRGBAModel:
		return "NRGBA"
	case color.NRGBA64Model:
		return "NRGBA64"
	case color.AlphaModel, color.Alpha16Model:
		return "Alpha"
	case color.GrayModel:
		return "Gray"
	case color.Gray16Model:
		return "Gray16"
	case color.YCbCrModel:
		return "YCbCr"
	case color.NYCbCrAModel:
		return "NYCbCrA"
	case color.CMYKModel:
		return "CMYK"
	}
	if p, ok := m.(color.Palette); ok {
		return fmt.Sprintf("Paletted(%d)", len(p))
	}
	return "Unknown"
}

// Info contains metadata about an encoded image.
type Info struct {
	Format     string // registered format name: "png", "jpeg", "gif", "webp", "bmp", "tiff"
	Width      int
	Height     int
	ColorModel string
}

// GetInfo reads image metadata without fully decoding the image.
func GetInfo(data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: unrecognized image format", ErrDecode)
		}
		return nil, fmt.Errorf("%w: %s header: %v", ErrDecode, formatName(format), err)
	}

	return &Info{
		Format:     format,
		Width:      cfg.Width,
		Height:     cfg.Height,
		ColorModel: colorModelName(cfg.ColorModel),
	}, nil
}
