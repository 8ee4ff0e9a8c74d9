package snapshot

import "encoding/binary"

// Chunk is one window of a chunked transfer.
type Chunk struct {
	Offset uint32
	Length uint32
}

func (c Chunk) End() uint32 {
	return c.Offset + c.Length
}

// Args encodes the chunk as the little-endian offset and length pair the
// device expects.
func (c Chunk) Args() []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out[0:4], c.Offset)
	binary.LittleEndian.PutUint32(out[4:8], c.Length)

	return out
}

// PlanChunks splits size bytes into consecutive windows; the last one is
// clamped to the bytes remaining.
func PlanChunks(size, window int) []Chunk {
	if size <= 0 || window <= 0 {
		return nil
	}

	out := make([]Chunk, 0, (size+window-1)/window)
	for off := 0; off < size; off += window {
		n := min(window, size-off)
		// #nosec G115 -- size is bounded by the 32-bit payload header.
		out = append(out, Chunk{Offset: uint32(off), Length: uint32(n)})
	}

	return out
}
