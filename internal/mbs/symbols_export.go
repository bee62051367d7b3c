package mbs

import (
	"encoding/binary"
	"math"

	"github.com/limashader/malisc/internal/symbols"
)

// mbsType is the wire-level type code an MBS uniform/varying/attribute chunk
// stores; several symbols.Type values collapse onto the same code (all
// float vectors share mbsFloat, all matrices share mbsMatrix, and so on).
type mbsType uint8

const (
	mbsFloat       mbsType = 1
	mbsInt         mbsType = 2
	mbsBool        mbsType = 3
	mbsMatrix      mbsType = 4
	mbsSampler2D   mbsType = 5
	mbsSamplerCube mbsType = 6
	mbsStruct      mbsType = 8
)

var wireTypes = map[symbols.Type]mbsType{
	symbols.TypeFloat: mbsFloat, symbols.TypeVec2: mbsFloat, symbols.TypeVec3: mbsFloat, symbols.TypeVec4: mbsFloat,
	symbols.TypeInt: mbsInt, symbols.TypeIVec2: mbsInt, symbols.TypeIVec3: mbsInt, symbols.TypeIVec4: mbsInt,
	symbols.TypeBool: mbsBool, symbols.TypeBVec2: mbsBool, symbols.TypeBVec3: mbsBool, symbols.TypeBVec4: mbsBool,
	symbols.TypeMat2: mbsMatrix, symbols.TypeMat3: mbsMatrix, symbols.TypeMat4: mbsMatrix,
	symbols.TypeSampler2D:   mbsSampler2D,
	symbols.TypeSamplerCube: mbsSamplerCube,
	symbols.TypeStruct:      mbsStruct,
}

var wirePrecisions = map[symbols.Precision]uint8{
	symbols.PrecisionLow:    1,
	symbols.PrecisionMedium: 2,
	symbols.PrecisionHigh:   3,
}

// componentCounts is the GLSL component count (not float count) per type:
// vectors count their width, matrices count their column count, samplers
// carry a nonstandard count matching what the original driver blob uses.
var componentCounts = map[symbols.Type]uint16{
	symbols.TypeFloat: 1, symbols.TypeBool: 1, symbols.TypeInt: 1,
	symbols.TypeVec2: 2, symbols.TypeIVec2: 2, symbols.TypeBVec2: 2, symbols.TypeMat2: 2,
	symbols.TypeVec3: 3, symbols.TypeIVec3: 3, symbols.TypeBVec3: 3, symbols.TypeMat3: 3,
	symbols.TypeVec4: 4, symbols.TypeIVec4: 4, symbols.TypeBVec4: 4, symbols.TypeMat4: 4,
	symbols.TypeSampler2D:   2,
	symbols.TypeSamplerCube: 3,
}

// numRowsMBS is the row count (matrices: column height; everything else: 1)
// used to derive a uniform's per-element float count from its stride.
var numRowsMBS = map[symbols.Type]uint16{
	symbols.TypeFloat: 1, symbols.TypeBool: 1, symbols.TypeInt: 1,
	symbols.TypeVec2: 1, symbols.TypeIVec2: 1, symbols.TypeBVec2: 1,
	symbols.TypeVec3: 1, symbols.TypeIVec3: 1, symbols.TypeBVec3: 1,
	symbols.TypeVec4: 1, symbols.TypeIVec4: 1, symbols.TypeBVec4: 1,
	symbols.TypeMat2: 2, symbols.TypeMat3: 3, symbols.TypeMat4: 4,
	symbols.TypeStruct: 1, symbols.TypeSampler2D: 1, symbols.TypeSamplerCube: 1,
}

// varyingStrides/varyingSizes are the varying table's own float-count
// tables, distinct from the uniform table's: a varying's on-wire stride is
// always rounded up to vec4 width for 3/4-component types and for matrices.
var varyingStrides = map[symbols.Type]uint16{
	symbols.TypeFloat: 1, symbols.TypeVec2: 2, symbols.TypeVec3: 4, symbols.TypeVec4: 4,
	symbols.TypeMat2: 4, symbols.TypeMat3: 12, symbols.TypeMat4: 16,
}

var varyingSizes = map[symbols.Type]uint16{
	symbols.TypeFloat: 1, symbols.TypeVec2: 2, symbols.TypeVec3: 4, symbols.TypeVec4: 4,
	symbols.TypeMat2: 2, symbols.TypeMat3: 4, symbols.TypeMat4: 4,
}

// vidxBlob is the fixed nine-u32 VIDX payload every uniform entry carries.
// Its meaning (driver/uniform/grid indices into a fixed-function table) is
// undocumented upstream; it is reproduced verbatim since every compiled
// shader seen in the wild carries this exact value.
var vidxBlob = [9]uint32{
	0x52445449, 0x00000004, 0xFFFFFFFF,
	0x56555949, 0x00000004, 0xFFFFFFFF,
	0x44524749, 0x00000004, 0x00000001,
}

func putU16(c *Chunk, v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	c.AppendData(buf[:])
}

// exportUniform encodes one VUNI entry (plus its VIDX, and VINI if the
// symbol carries an initializer), appending it to table and recursing into
// a struct's children with parentIndex threaded through cur (the original's
// mbs_uniform_export/cur_index, a shared counter across the whole table so
// every struct member gets a stable index to reference as its parent).
func exportUniform(table *Chunk, sym *symbols.Symbol, parentIndex int, cur *uint32) bool {
	chunk := NewChunk("VUNI")
	chunk.Append(StringChunk(sym.Name))

	chunk.AppendData([]byte{0})               // unknown_0
	chunk.AppendData([]byte{byte(wireTypes[sym.Type])})

	if sym.Type == symbols.TypeStruct {
		putU16(chunk, uint16(len(sym.Children)))
	} else {
		putU16(chunk, componentCounts[sym.Type])
	}
	putU16(chunk, sym.Stride/numRowsMBS[sym.Type])
	putU16(chunk, uint16(sym.ArrayElems))
	putU16(chunk, uint16(sym.Stride))
	chunk.AppendData([]byte{0x10})             // unknown_1
	chunk.AppendData([]byte{wirePrecisions[sym.Precision]})
	chunk.AppendUint32(0) // invariant
	putU16(chunk, uint16(sym.Offset))
	if parentIndex == -1 {
		putU16(chunk, 0xFFFF)
	} else {
		putU16(chunk, uint16(parentIndex))
	}

	vidx := NewChunk("VIDX")
	for _, v := range vidxBlob {
		vidx.AppendUint32(v)
	}
	chunk.Append(vidx)

	if sym.ArrayConst != nil {
		vini := NewChunk("VINI")
		count := uint32(componentCounts[sym.Type]) * uint32(numRowsMBS[sym.Type])
		vini.AppendUint32(count)
		for i := uint32(0); i < count; i++ {
			var f float32
			if int(i) < len(sym.ArrayConst) {
				f = float32(sym.ArrayConst[i])
			}
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
			vini.AppendData(buf[:])
		}
		chunk.Append(vini)
	}

	table.Append(chunk)

	if sym.Type == symbols.TypeStruct {
		newParent := *cur
		for _, child := range sym.Children {
			if !exportUniform(table, child, int(newParent), cur) {
				return false
			}
		}
	}
	*cur++
	return true
}

func numSymbols(sym *symbols.Symbol) uint32 {
	if sym.Type != symbols.TypeStruct {
		return 1
	}
	var n uint32 = 1
	for _, child := range sym.Children {
		n += numSymbols(child)
	}
	return n
}

// ExportUniformTable builds the SUNI chunk for t (spec.md §6.1): a symbol
// count, the table's total size rounded up to a multiple of four, then one
// VUNI subtree per top-level symbol (lima_export_uniform_table).
func ExportUniformTable(t *symbols.Table) *Chunk {
	table := NewChunk("SUNI")

	var total uint32
	for _, sym := range t.Symbols {
		total += numSymbols(sym)
	}
	table.AppendUint32(total)
	table.AppendUint32((t.TotalSize + 3) &^ 3)

	var cur uint32
	for _, sym := range t.Symbols {
		exportUniform(table, sym, -1, &cur)
	}
	return table
}

// exportVarying encodes one VVAR entry (lima_export_varying_table's inner
// loop / mbs_varying_export). Varyings are never part of a struct, so
// parent_index is always 0xFFFF, and an unused varying's offset is written
// as 0xFFFF to signal the consuming stage it carries no storage.
func exportVarying(sym *symbols.Symbol) *Chunk {
	chunk := NewChunk("VVAR")
	chunk.Append(StringChunk(sym.Name))

	chunk.AppendData([]byte{0})
	chunk.AppendData([]byte{byte(wireTypes[sym.Type])})
	putU16(chunk, componentCounts[sym.Type])
	putU16(chunk, varyingSizes[sym.Type])
	putU16(chunk, uint16(sym.ArrayElems))
	putU16(chunk, varyingStrides[sym.Type])
	chunk.AppendData([]byte{0x10})
	chunk.AppendData([]byte{wirePrecisions[sym.Precision]})
	chunk.AppendUint32(0)
	if sym.Used {
		putU16(chunk, uint16(sym.Offset))
	} else {
		putU16(chunk, 0xFFFF)
	}
	putU16(chunk, 0xFFFF)
	return chunk
}

// ExportVaryingTable builds the SVAR chunk for t.
func ExportVaryingTable(t *symbols.Table) *Chunk {
	table := NewChunk("SVAR")
	table.AppendUint32(uint32(len(t.Symbols)))
	for _, sym := range t.Symbols {
		table.Append(exportVarying(sym))
	}
	return table
}

// exportAttribute encodes one VATT entry (mbs_attribute_export); attributes
// are never arrays, so array_entries is always written as zero regardless
// of the symbol's own ArrayElems (attributes reject arrays at parse time).
func exportAttribute(sym *symbols.Symbol) *Chunk {
	chunk := NewChunk("VATT")
	chunk.Append(StringChunk(sym.Name))

	chunk.AppendData([]byte{0})
	chunk.AppendData([]byte{byte(wireTypes[sym.Type])})
	putU16(chunk, componentCounts[sym.Type])
	putU16(chunk, 4)
	putU16(chunk, 0)
	putU16(chunk, uint16(sym.Stride))
	chunk.AppendData([]byte{0x10})
	chunk.AppendData([]byte{wirePrecisions[sym.Precision]})
	putU16(chunk, 0)
	putU16(chunk, uint16(sym.Offset))
	return chunk
}

// ExportAttributeTable builds the SATT chunk for t.
func ExportAttributeTable(t *symbols.Table) *Chunk {
	table := NewChunk("SATT")
	table.AppendUint32(uint32(len(t.Symbols)))
	for _, sym := range t.Symbols {
		table.Append(exportAttribute(sym))
	}
	return table
}
