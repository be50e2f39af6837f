package png

import "fmt"

// Scanline filter types.
const (
	filterNone    = 0
	filterSub     = 1
	filterUp      = 2
	filterAverage = 3
	filterPaeth   = 4
)

// Strategy selects how Optimize picks a filter for each scanline.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategySub
	StrategyUp
	StrategyAverage
	StrategyPaeth
	StrategyMinSum // per-row filter with the smallest sum of absolute signed residuals
)

func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategySub:
		return "sub"
	case StrategyUp:
		return "up"
	case StrategyAverage:
		return "average"
	case StrategyPaeth:
		return "paeth"
	case StrategyMinSum:
		return "minsum"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

func paeth(a, b, c uint8) uint8 {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// unfilter reverses the scanline filters of a non-interlaced image in
// place and returns the raw rows (without filter bytes), concatenated.
func unfilter(data []byte, height, rowBytes, bpp int) ([]byte, error) {
	stride := rowBytes + 1
	if len(data) < height*stride {
		return nil, fmt.Errorf("image data is %d bytes, want %d", len(data), height*stride)
	}
	out := make([]byte, height*rowBytes)
	prev := make([]byte, rowBytes)
	for y := 0; y < height; y++ {
		ft := data[y*stride]
		src := data[y*stride+1 : (y+1)*stride]
		cur := out[y*rowBytes : (y+1)*rowBytes]
		copy(cur, src)
		switch ft {
		case filterNone:
		case filterSub:
			for i := bpp; i < rowBytes; i++ {
				cur[i] += cur[i-bpp]
			}
		case filterUp:
			for i := 0; i < rowBytes; i++ {
				cur[i] += prev[i]
			}
		case filterAverage:
			for i := 0; i < rowBytes; i++ {
				var left int
				if i >= bpp {
					left = int(cur[i-bpp])
				}
				cur[i] += uint8((left + int(prev[i])) / 2)
			}
		case filterPaeth:
			for i := 0; i < rowBytes; i++ {
				var left, upLeft uint8
				if i >= bpp {
					left, upLeft = cur[i-bpp], prev[i-bpp]
				}
				cur[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("invalid filter type %d on row %d", ft, y)
		}
		prev = cur
	}
	return out, nil
}

// filterRow writes row filtered with type ft into dst (len(row)+1 bytes,
// the first being the filter type).
func filterRow(dst, row, prev []byte, ft byte, bpp int) {
	dst[0] = ft
	out := dst[1:]
	switch ft {
	case filterNone:
		copy(out, row)
	case filterSub:
		for i := range row {
			var left uint8
			if i >= bpp {
				left = row[i-bpp]
			}
			out[i] = row[i] - left
		}
	case filterUp:
		for i := range row {
			out[i] = row[i] - prev[i]
		}
	case filterAverage:
		for i := range row {
			var left int
			if i >= bpp {
				left = int(row[i-bpp])
			}
			out[i] = row[i] - uint8((left+int(prev[i]))/2)
		}
	case filterPaeth:
		for i := range row {
			var left, upLeft uint8
			if i >= bpp {
				left, upLeft = row[i-bpp], prev[i-bpp]
			}
			out[i] = row[i] - paeth(left, prev[i], upLeft)
		}
	}
}

func residualSum(filtered []byte) int {
	sum := 0
	for _, b := range filtered {
		sum += abs(int(int8(b)))
	}
	return sum
}

// applyFilter filters raw rows with strategy s and returns the scanline
// stream ready for deflate.
func applyFilter(raw []byte, height, rowBytes, bpp int, s Strategy) []byte {
	stride := rowBytes + 1
	out := make([]byte, height*stride)
	prev := make([]byte, rowBytes)
	var scratch []byte
	if s == StrategyMinSum {
		scratch = make([]byte, stride)
	}

	for y := 0; y < height; y++ {
		row := raw[y*rowBytes : (y+1)*rowBytes]
		dst := out[y*stride : (y+1)*stride]
		if s != StrategyMinSum {
			filterRow(dst, row, prev, byte(s), bpp)
		} else {
			best := -1
			for ft := byte(filterNone); ft <= filterPaeth; ft++ {
				filterRow(scratch, row, prev, ft, bpp)
				if sum := residualSum(scratch[1:]); best < 0 || sum < best {
					best = sum
					copy(dst, scratch)
				}
			}
		}
		prev = row
	}
	return out
}
