package png

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

const (
	signature    = "\x89PNG\r\n\x1a\n"
	maxChunkSize = 1<<31 - 1
)

// Chunk type names.
const (
	typeIHDR = "IHDR"
	typePLTE = "PLTE"
	typeIDAT = "IDAT"
	typeIEND = "IEND"
	typeTRNS = "tRNS"
)

// chunk is one PNG chunk with its type and payload. The length and CRC are
// derived when written.
type chunk struct {
	typ  string
	data []byte
}

// critical reports whether the chunk type is critical (uppercase first letter).
func (c chunk) critical() bool {
	return c.typ[0]&0x20 == 0
}

// writeChunk appends a length-prefixed, CRC-terminated chunk to w.
func writeChunk(w io.Writer, typ string, data []byte) error {
	if len(data) > maxChunkSize {
		return fmt.Errorf("%s chunk too large (%d bytes)", typ, len(data))
	}
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(data)))
	copy(hdr[4:8], typ)

	crc := crc32.NewIEEE()
	crc.Write(hdr[4:8])
	crc.Write(data)
	var tail [4]byte
	binary.BigEndian.PutUint32(tail[:], crc.Sum32())

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write(tail[:])
	return err
}

// readChunks splits a PNG stream into its chunks, verifying the signature,
// every CRC, and that the stream ends with IEND.
func readChunks(data []byte) ([]chunk, error) {
	if len(data) < len(signature) || string(data[:len(signature)]) != signature {
		return nil, fmt.Errorf("missing PNG signature")
	}

	var chunks []chunk
	pos := len(signature)
	for {
		if len(data)-pos < 12 {
			return nil, fmt.Errorf("truncated chunk header at offset %d", pos)
		}
		n := binary.BigEndian.Uint32(data[pos : pos+4])
		if n > maxChunkSize || uint64(len(data)-pos-12) < uint64(n) {
			return nil, fmt.Errorf("chunk at offset %d claims %d bytes, %d available", pos, n, len(data)-pos-12)
		}
		typ := data[pos+4 : pos+8]
		for _, b := range typ {
			if !(b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z') {
				return nil, fmt.Errorf("invalid chunk type %q at offset %d", typ, pos)
			}
		}
		body := data[pos+8 : pos+8+int(n)]
		want := binary.BigEndian.Uint32(data[pos+8+int(n) : pos+12+int(n)])
		if got := crc32.ChecksumIEEE(data[pos+4 : pos+8+int(n)]); got != want {
			return nil, fmt.Errorf("CRC mismatch in %s chunk: 0x%08x != 0x%08x", typ, got, want)
		}
		chunks = append(chunks, chunk{typ: string(typ), data: body})
		pos += 12 + int(n)

		if string(typ) == typeIEND {
			return chunks, nil
		}
	}
}

// joinIDAT concatenates the IDAT payloads, which must be consecutive.
func joinIDAT(chunks []chunk) ([]byte, error) {
	var buf bytes.Buffer
	first, last := -1, -1
	for i, c := range chunks {
		if c.typ != typeIDAT {
			continue
		}
		if first < 0 {
			first = i
		} else if last != i-1 {
			return nil, fmt.Errorf("IDAT chunks are not consecutive")
		}
		last = i
		buf.Write(c.data)
	}
	if first < 0 {
		return nil, fmt.Errorf("no IDAT chunk")
	}
	return buf.Bytes(), nil
}
