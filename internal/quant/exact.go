package quant

import "github.com/davesmith10/imgopt/internal/ir"

// colorKey packs c into a map key. Every fully transparent color shares
// key 0, which no visible color can produce.
func colorKey(c ir.Color) uint32 {
	if c.A == 0 {
		return 0
	}
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// exact returns a lossless palette in first-occurrence order, or nil once
// img has more than limit distinct colors.
func exact(img *ir.RawImage, limit int) *ir.Quantized {
	index := make(map[uint32]uint8)
	q := &ir.Quantized{
		Width:   img.Width,
		Height:  img.Height,
		Indices: make([]uint8, img.Width*img.Height),
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			c := img.At(x, y)
			if c.A == 0 {
				c = ir.Color{}
			}
			key := colorKey(c)
			idx, ok := index[key]
			if !ok {
				if len(q.Palette) == limit {
					return nil
				}
				idx = uint8(len(q.Palette))
				index[key] = idx
				q.Palette = append(q.Palette, c)
			}
			q.Indices[y*img.Width+x] = idx
		}
	}
	return q
}
