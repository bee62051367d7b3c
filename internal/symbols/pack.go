package symbols

import (
	"sort"

	"github.com/samber/lo"
)

// packOrder ranks Type for the GLSL ES 1.0 Appendix A standard packing
// order (lower sorts first): samplers, then structs, then largest to
// smallest, matching original_source's type_pack_order table. Symbols not
// covered here (and any that don't appear in this table) are never sorted
// by it directly — only sortForPacking consults it.
var packOrder = map[Type]int{
	TypeSampler2D:   0,
	TypeSamplerCube: 1,
	TypeStruct:      2,
	TypeMat4:        3,
	TypeMat2:        4,
	TypeVec4:        5,
	TypeIVec4:       6,
	TypeBVec4:       7,
	TypeMat3:        8,
	TypeVec3:        9,
	TypeIVec3:       10,
	TypeBVec3:       11,
	TypeVec2:        12,
	TypeIVec2:       13,
	TypeBVec2:       14,
	TypeFloat:       15,
	TypeInt:         16,
	TypeBool:        17,
}

// sortForPacking orders a table's used symbols by type rank, then by
// descending array size, then by name: the GLSL ES 1.0 standard packing
// order, used as the symbol visitation order for all three packers, not
// only the standard one (original_source's pack_compare/pack_table).
func sortForPacking(symbols []*Symbol) []*Symbol {
	used := lo.Filter(symbols, func(s *Symbol, _ int) bool { return s.Used })
	out := append([]*Symbol(nil), used...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Type != b.Type {
			return packOrder[a.Type] < packOrder[b.Type]
		}
		if a.ArrayElems != b.ArrayElems {
			return a.ArrayElems > b.ArrayElems
		}
		return a.Name < b.Name
	})
	return out
}

// Pack assigns offset/stride to every symbol in s's three tables per
// spec.md §4.14: attributes always use the whole-vec4 discipline, varyings
// always use alignment-based packing, and the uniform table's discipline
// depends on stage (GLSL ES standard packing for the GP/vertex side,
// alignment-based for the PP/fragment side). Returns false on any
// table overflowing its capacity (lima_shader_symbols_pack).
func Pack(s *ShaderSymbols, stage Stage) bool {
	if !packAttributes(&s.AttributeTable, 16) {
		return false
	}
	if !packAligned(&s.VaryingTable, 64) {
		return false
	}
	if stage == StageVertex {
		if !packStandard(&s.UniformTable, 304) {
			return false
		}
	} else {
		if !packAligned(&s.UniformTable, 65536) {
			return false
		}
	}
	return true
}

// numRows is the number of vec4 rows (for std packing) / scalar rows a
// type occupies per array element; matrices take one row per column.
var numRows = map[Type]uint32{
	TypeFloat: 1, TypeBool: 1, TypeInt: 1,
	TypeVec2: 1, TypeIVec2: 1, TypeBVec2: 1,
	TypeVec3: 1, TypeIVec3: 1, TypeBVec3: 1,
	TypeVec4: 1, TypeIVec4: 1, TypeBVec4: 1,
	TypeMat2: 2, TypeMat3: 3, TypeMat4: 4,
	TypeSampler2D: 1, TypeSamplerCube: 1,
}

// packAttributes assigns each attribute its own whole vec4 range
// (pack_table_attr); arrays and structs are illegal for attributes and
// are never checked here since the front-end must reject them earlier.
func packAttributes(t *Table, numVec4s uint32) bool {
	var cursor uint32
	for _, sym := range sortForPacking(t.Symbols) {
		rows := numRows[sym.Type]
		sym.Offset = 4 * cursor
		sym.Stride = 4 * rows
		cursor += rows
	}
	t.TotalSize = 4 * cursor
	return cursor <= numVec4s
}

// alignments gives each type's required float alignment for the
// alignment-based packer (varyings, PP uniforms).
var alignments = map[Type]uint32{
	TypeFloat: 1, TypeInt: 1, TypeBool: 1,
	TypeVec2: 2, TypeIVec2: 2, TypeBVec2: 2,
	TypeVec3: 4, TypeIVec3: 4, TypeBVec3: 4,
	TypeVec4: 4, TypeIVec4: 4, TypeBVec4: 4,
	TypeMat2: 2, TypeMat3: 4, TypeMat4: 4,
	TypeSampler2D: 1, TypeSamplerCube: 1,
}

// sizes gives each type's footprint in floats for the alignment-based
// packer; matrices are stored column-major, mat3 and mat4 as 4-float
// columns and mat2 as two 2-float columns.
var sizes = map[Type]uint32{
	TypeFloat: 1, TypeInt: 1, TypeBool: 1,
	TypeVec2: 2, TypeIVec2: 2, TypeBVec2: 2,
	TypeVec3: 4, TypeIVec3: 4, TypeBVec3: 4,
	TypeVec4: 4, TypeIVec4: 4, TypeBVec4: 4,
	TypeMat2: 4, TypeMat3: 12, TypeMat4: 16,
	TypeSampler2D: 1, TypeSamplerCube: 1,
}

func alignUp(n, align uint32) uint32 {
	return ((n + align - 1) / align) * align
}

func typeAlignment(sym *Symbol) uint32 {
	if sym.Type != TypeStruct {
		return alignments[sym.Type]
	}
	var a uint32 = 1
	for _, child := range sym.Children {
		if ca := typeAlignment(child); ca > a {
			a = ca
		}
	}
	return a
}

// packAligned implements the recursive alignment-based discipline for
// varyings and PP uniforms (pack_align/pack_table_align): align the
// cursor to the symbol's alignment, record its offset, then (for structs)
// recurse over children at a fresh zero-based cursor before striding the
// whole struct by its packed size times the array length.
func packAligned(t *Table, capacity uint32) bool {
	var cursor uint32
	for _, sym := range sortForPacking(t.Symbols) {
		cursor = alignUp(cursor, typeAlignment(sym))
		packAlignedOne(sym, &cursor)
	}
	t.TotalSize = cursor
	return cursor <= capacity
}

func packAlignedOne(sym *Symbol, cursor *uint32) {
	align := typeAlignment(sym)
	*cursor = alignUp(*cursor, align)
	sym.Offset = *cursor

	if sym.Type == TypeStruct {
		saved := *cursor
		*cursor = 0
		for _, child := range sym.Children {
			packAlignedOne(child, cursor)
		}
		*cursor = alignUp(*cursor, align)
		sym.Stride = *cursor
		*cursor = saved
	} else {
		sym.Stride = sizes[sym.Type]
	}

	elems := sym.ArrayElems
	if elems == 0 {
		elems = 1
	}
	*cursor += sym.Stride * elems
}

// numComponents is the vector width (1-4) a type occupies in the std
// packer's 4-column grid, used to pick a candidate column set.
var numComponents = map[Type]uint32{
	TypeFloat: 1, TypeBool: 1, TypeInt: 1,
	TypeVec2: 2, TypeIVec2: 2, TypeBVec2: 2, TypeMat2: 2,
	TypeVec3: 3, TypeIVec3: 3, TypeBVec3: 3, TypeMat3: 3,
	TypeVec4: 4, TypeIVec4: 4, TypeBVec4: 4, TypeMat4: 4,
	TypeSampler2D: 1, TypeSamplerCube: 1,
}

// stdPackState is the std packer's per-column free-space cursors: each
// column independently tracks how much of its low end and high end are
// still unclaimed (original_source's std_pack_state_t).
type stdPackState struct {
	freeLow, freeHigh [4]uint32
}

// packStandard implements the GLSL ES 1.0 standard packing rules for GP
// uniforms (pack_std/pack_table_std): vec4/vec3/vec2/matrices pack into the
// lowest free row of the first column set with room; a 2-component type
// that doesn't fit there may instead pack into the highest free row of
// some adjacent column pair; scalars go into whichever column has the
// least remaining room that still fits them; structs align every column
// to a common base, pack their children in declaration order, then
// re-align and stride for the array.
func packStandard(t *Table, numVec4s uint32) bool {
	state := &stdPackState{}
	for i := range state.freeHigh {
		state.freeHigh[i] = numVec4s
	}

	for _, sym := range sortForPacking(t.Symbols) {
		if !packStd(sym, state) {
			return false
		}
	}

	full := true
	for i := range state.freeHigh {
		if state.freeHigh[i] != numVec4s {
			full = false
		}
	}
	if !full {
		t.TotalSize = numVec4s
		return true
	}

	t.TotalSize = 0
	for _, low := range state.freeLow {
		if low > t.TotalSize {
			t.TotalSize = low
		}
	}
	return true
}

func packStd(sym *Symbol, state *stdPackState) bool {
	if sym.Type == TypeStruct {
		return packStdStruct(sym, state)
	}

	sym.Stride = 4 * numRows[sym.Type]
	components := numComponents[sym.Type]
	rows := numRows[sym.Type] * arrayCount(sym)

	if components == 1 {
		return packStdScalar(sym, state, rows)
	}
	return packStdVector(sym, state, components, rows)
}

func arrayCount(sym *Symbol) uint32 {
	if sym.ArrayElems == 0 {
		return 1
	}
	return sym.ArrayElems
}

func packStdStruct(sym *Symbol, state *stdPackState) bool {
	var base uint32
	for _, low := range state.freeLow {
		if low > base {
			base = low
		}
	}
	for i := range state.freeHigh {
		if state.freeHigh[i] < base {
			return false
		}
		state.freeLow[i] = base
	}

	for _, child := range sym.Children {
		if !packStd(child, state) {
			return false
		}
	}

	var end uint32
	for _, low := range state.freeLow {
		if low > end {
			end = low
		}
	}
	size := end - base
	extra := size * (arrayCount(sym) - 1)

	for i := range state.freeHigh {
		if state.freeHigh[i] < end+extra {
			return false
		}
		state.freeLow[i] = end + extra
	}

	sym.Offset = base * 4
	sym.Stride = size * 4
	return true
}

func packStdVector(sym *Symbol, state *stdPackState, components, rows uint32) bool {
	var low uint32
	high := ^uint32(0)
	for i := uint32(0); i < components; i++ {
		if state.freeLow[i] > low {
			low = state.freeLow[i]
		}
		if state.freeHigh[i] < high {
			high = state.freeHigh[i]
		}
	}

	if low+rows <= high {
		sym.Offset = 4 * low
		for i := uint32(0); i < components; i++ {
			state.freeLow[i] = low + rows
		}
		return true
	}

	if components != 2 {
		return false
	}

	// 2-component fallback: highest free row, lowest free column pair.
	for col := 0; col < 3; col++ {
		lo := state.freeLow[col]
		if state.freeLow[col+1] > lo {
			lo = state.freeLow[col+1]
		}
		hi := state.freeHigh[col]
		if state.freeHigh[col+1] < hi {
			hi = state.freeHigh[col+1]
		}
		if hi >= rows && hi-rows >= lo {
			sym.Offset = 4*(hi-rows) + uint32(col)
			state.freeHigh[col] = hi - rows
			state.freeHigh[col+1] = hi - rows
			return true
		}
	}
	return false
}

func packStdScalar(sym *Symbol, state *stdPackState, rows uint32) bool {
	column := -1
	var spaceLeft uint32 = ^uint32(0)
	for i := 0; i < 4; i++ {
		free := state.freeHigh[i] - state.freeLow[i]
		if free < rows {
			continue
		}
		if free < spaceLeft {
			spaceLeft = free
			column = i
		}
	}
	if column == -1 {
		return false
	}
	sym.Offset = 4*state.freeLow[column] + uint32(column)
	state.freeLow[column] += rows
	return true
}
