package png

import (
	"errors"
	"fmt"
)

// ErrMalformed is returned by Inspect for bytes that are not a valid PNG.
var ErrMalformed = errors.New("malformed png")

// Info summarizes the chunk structure of a PNG stream.
type Info struct {
	Header
	PaletteSize  int      // PLTE entries, 0 when absent
	Transparency bool     // tRNS present
	TRNSLength   int      // tRNS payload length
	IDATBytes    int      // total compressed image data
	Chunks       []string // chunk types in stream order
}

// Inspect parses the chunk layout of data without decoding pixels.
func Inspect(data []byte) (*Info, error) {
	chunks, err := readChunks(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if chunks[0].typ != typeIHDR {
		return nil, fmt.Errorf("%w: first chunk is %s, want IHDR", ErrMalformed, chunks[0].typ)
	}
	hdr, err := parseHeader(chunks[0].data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	info := &Info{Header: *hdr}
	for _, c := range chunks {
		info.Chunks = append(info.Chunks, c.typ)
		switch c.typ {
		case typePLTE:
			info.PaletteSize = len(c.data) / 3
		case typeTRNS:
			info.Transparency = true
			info.TRNSLength = len(c.data)
		case typeIDAT:
			info.IDATBytes += len(c.data)
		}
	}
	if hdr.ColorType == ColorIndexed && info.PaletteSize == 0 {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, errNoPalette)
	}
	return info, nil
}

// IsPNG reports whether data starts with the PNG signature.
func IsPNG(data []byte) bool {
	return len(data) >= len(signature) && string(data[:len(signature)]) == signature
}
