// Package mbs implements the MBS container format spec.md §6.1 uses to ship
// compiled shader binaries: four-char-tag chunks with a little-endian u32
// length prefix, nestable verbatim. Grounded on
// original_source/src/lima/mbs/{mbs.h,mbs.c}.
package mbs

import "encoding/binary"

// headerSize is the encoded size of a chunk's tag+length header.
const headerSize = 8

// Chunk is one MBS container node: a four-byte tag plus a payload that is
// either raw bytes or other chunks appended verbatim (mbs_chunk_t).
type Chunk struct {
	Tag  [4]byte
	data []byte
}

// NewChunk creates an empty chunk tagged with ident, which must be exactly
// four bytes (mbs_chunk_create).
func NewChunk(ident string) *Chunk {
	c := &Chunk{}
	copy(c.Tag[:], ident)
	return c
}

// StringChunk creates a STRI chunk: a NUL-terminated string padded to a
// 4-byte boundary (mbs_chunk_string).
func StringChunk(s string) *Chunk {
	c := NewChunk("STRI")
	raw := append([]byte(s), 0)
	aligned := (len(raw) + 3) &^ 3
	buf := make([]byte, aligned)
	copy(buf, raw)
	c.data = buf
	return c
}

// Append inlines child's full encoded form (header plus payload) into c's
// payload, in place of deleting child the way the C API does (Go's GC frees
// it once it's unreferenced). Returns false if child is nil
// (mbs_chunk_append).
func (c *Chunk) Append(child *Chunk) bool {
	if child == nil {
		return false
	}
	c.data = append(c.data, child.export()...)
	return true
}

// AppendData appends raw bytes directly to c's payload (mbs_chunk_append_data).
func (c *Chunk) AppendData(data []byte) bool {
	c.data = append(c.data, data...)
	return true
}

// AppendUint32 appends v as a little-endian u32, the encoding every fixed
// MBS struct field in this package uses.
func (c *Chunk) AppendUint32(v uint32) bool {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return c.AppendData(buf[:])
}

// Size returns the number of bytes c occupies once exported, header
// included (mbs_chunk_size).
func (c *Chunk) Size() int {
	return headerSize + len(c.data)
}

// export encodes c's header and payload into a single byte slice
// (mbs_chunk_export).
func (c *Chunk) export() []byte {
	buf := make([]byte, c.Size())
	copy(buf[:4], c.Tag[:])
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(c.data)))
	copy(buf[8:], c.data)
	return buf
}

// Export returns c's fully encoded byte representation, ready to be
// written to a file or further nested in a parent chunk.
func (c *Chunk) Export() []byte {
	return c.export()
}

// Data returns c's raw payload bytes (everything past the tag+size header).
func (c *Chunk) Data() []byte {
	return c.data
}

// Parse reads one chunk's header and payload from the front of data,
// returning the chunk and the number of bytes consumed. It does not
// recurse into the payload: a chunk's internal layout (a flat struct, a
// count-prefixed run of sub-chunks, or a mix of both) is schema-specific,
// so only the caller that knows a chunk's tag knows how to decode further.
// Parse is the read side of Export, giving spec.md §8's MBS round-trip
// property (`Parse(Export(c))` reproduces `c`'s tag and payload bytes) a
// concrete implementation.
func Parse(data []byte) (*Chunk, int, bool) {
	if len(data) < headerSize {
		return nil, 0, false
	}
	size := binary.LittleEndian.Uint32(data[4:8])
	total := headerSize + int(size)
	if total > len(data) {
		return nil, 0, false
	}
	c := &Chunk{}
	copy(c.Tag[:], data[:4])
	c.data = append([]byte(nil), data[headerSize:total]...)
	return c, total, true
}
