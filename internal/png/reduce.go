package png

import "fmt"

// trimTRNS drops trailing fully opaque alpha entries; decoders treat
// missing entries as 255. A tRNS that ends up empty is removed.
func trimTRNS(trns []byte) []byte {
	n := len(trns)
	for n > 0 && trns[n-1] == 0xff {
		n--
	}
	if n == 0 {
		return nil
	}
	return trns[:n]
}

// unpackIndices expands packed scanlines of the given bit depth to one
// byte per pixel.
func unpackIndices(raw []byte, width, height, depth int) []uint8 {
	out := make([]uint8, width*height)
	rowBytes := (width*depth + 7) / 8
	if depth == 8 {
		for y := 0; y < height; y++ {
			copy(out[y*width:(y+1)*width], raw[y*rowBytes:y*rowBytes+width])
		}
		return out
	}
	perByte := 8 / depth
	mask := byte(1<<depth - 1)
	for y := 0; y < height; y++ {
		row := raw[y*rowBytes : (y+1)*rowBytes]
		for x := 0; x < width; x++ {
			shift := uint(8 - depth - (x%perByte)*depth)
			out[y*width+x] = (row[x/perByte] >> shift) & mask
		}
	}
	return out
}

// packIndices is the inverse of unpackIndices. Padding bits are zero.
func packIndices(idx []uint8, width, height, depth int) []byte {
	rowBytes := (width*depth + 7) / 8
	out := make([]byte, height*rowBytes)
	if depth == 8 {
		for y := 0; y < height; y++ {
			copy(out[y*rowBytes:], idx[y*width:(y+1)*width])
		}
		return out
	}
	perByte := 8 / depth
	for y := 0; y < height; y++ {
		row := out[y*rowBytes : (y+1)*rowBytes]
		for x := 0; x < width; x++ {
			shift := uint(8 - depth - (x%perByte)*depth)
			row[x/perByte] |= idx[y*width+x] << shift
		}
	}
	return out
}

// depthFor returns the smallest indexed bit depth that can address n entries.
func depthFor(n int) int {
	switch {
	case n <= 2:
		return 1
	case n <= 4:
		return 2
	case n <= 16:
		return 4
	default:
		return 8
	}
}

// reducePalette removes unused and duplicate palette entries, remaps the
// pixel indices, trims tRNS and repacks at the smallest bit depth. Entry
// order among the survivors is preserved.
func reducePalette(raw []byte, hdr Header, plte, trns []byte) ([]byte, []byte, []byte, int, error) {
	n := len(plte) / 3
	idx := unpackIndices(raw, hdr.Width, hdr.Height, hdr.BitDepth)

	var used [256]bool
	for i, v := range idx {
		if int(v) >= n {
			return nil, nil, nil, 0, fmt.Errorf("pixel %d uses index %d of a %d-entry palette", i, v, n)
		}
		used[v] = true
	}

	alpha := func(i int) byte {
		if i < len(trns) {
			return trns[i]
		}
		return 0xff
	}

	var remap [256]uint8
	first := make(map[[4]byte]uint8)
	newPLTE := make([]byte, 0, len(plte))
	newAlpha := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		if !used[i] {
			continue
		}
		key := [4]byte{plte[i*3], plte[i*3+1], plte[i*3+2], alpha(i)}
		if j, ok := first[key]; ok {
			remap[i] = j
			continue
		}
		j := uint8(len(newAlpha))
		first[key] = j
		remap[i] = j
		newPLTE = append(newPLTE, key[0], key[1], key[2])
		newAlpha = append(newAlpha, key[3])
	}

	for i, v := range idx {
		idx[i] = remap[v]
	}
	depth := depthFor(len(newAlpha))
	return packIndices(idx, hdr.Width, hdr.Height, depth), newPLTE, trimTRNS(newAlpha), depth, nil
}
