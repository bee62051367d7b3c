// Package symbols models the shader's attribute/varying/uniform symbol
// tables and the three packing disciplines spec.md §4.14 assigns to them.
// Grounded on original_source/src/lima/symbols/{symbols.h,symbols.c,pack.c}.
package symbols

import "fmt"

// Type enumerates a symbol's GLSL ES type. Order matches
// original_source's lima_symbol_type_e exactly, since Table's standard
// packer sorts by a rank table indexed by this enum.
type Type int

const (
	TypeFloat Type = iota
	TypeVec2
	TypeVec3
	TypeVec4
	TypeMat2
	TypeMat3
	TypeMat4
	// LastVaryAttr is the last type legal for varyings and attributes.
	LastVaryAttr = TypeMat4

	TypeInt
	TypeIVec2
	TypeIVec3
	TypeIVec4
	TypeBool
	TypeBVec2
	TypeBVec3
	TypeBVec4
	TypeSampler2D
	TypeSamplerCube
	TypeStruct
)

// Precision is a symbol's GLSL ES precision qualifier.
type Precision int

const (
	PrecisionLow Precision = iota
	PrecisionMedium
	PrecisionHigh
)

// Symbol is one attribute, varying, or uniform declaration, plus the
// offset/stride the packer assigns it. Grounded on lima_symbol_t.
type Symbol struct {
	Type       Type
	Precision  Precision
	Name       string
	ArrayElems uint32 // 0 = not an array.

	// Offset/Stride are in units of one float, populated by Pack.
	Offset uint32
	Stride uint32

	// Used is false for varyings the consuming stage never reads; unused
	// varyings are skipped by the packer to save space.
	Used bool

	// ArrayConst holds a driver-supplied initializer for a uniform, or
	// (reused for the GP backend's inline constant pool) the constant
	// value(s) a const symbol stands for. nil for ordinary symbols.
	ArrayConst []float64

	// Children holds a struct symbol's members in declaration order;
	// nil for non-struct symbols.
	Children []*Symbol
}

// NewSymbol creates a leaf (non-struct) symbol.
func NewSymbol(typ Type, precision Precision, name string, arrayElems uint32) *Symbol {
	return &Symbol{Type: typ, Precision: precision, Name: name, ArrayElems: arrayElems, Used: true}
}

// NewStruct creates a struct symbol from its members.
func NewStruct(name string, children []*Symbol, arrayElems uint32) *Symbol {
	return &Symbol{
		Type:       TypeStruct,
		Precision:  PrecisionHigh, // not meaningful for structs.
		Name:       name,
		ArrayElems: arrayElems,
		Used:       true,
		Children:   children,
	}
}

// constSize returns the number of floats one element of typ occupies in an
// inline constant pool entry; typ must be legal for varyings/attributes
// (lima_const_create's const_size, used only by the GP backend's constant
// folding into the uniform-like constant table).
func constSize(typ Type) int {
	switch typ {
	case TypeFloat:
		return 1
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4, TypeMat2:
		return 4
	case TypeMat3:
		return 9
	case TypeMat4:
		return 16
	default:
		return 0
	}
}

// NewConst creates the internal symbol the GP backend inserts to name an
// inline constant pool entry (lima_const_create); index becomes part of its
// generated name so distinct constants never collide.
func NewConst(index uint32, typ Type, arrayElems uint32, values []float64) *Symbol {
	n := arrayElems
	if n == 0 {
		n = 1
	}
	size := int(n) * constSize(typ)
	values = append([]float64(nil), values[:min(size, len(values))]...)
	return &Symbol{
		Type:       typ,
		Precision:  PrecisionHigh,
		Name:       fmt.Sprintf("?__maligp2_constant_%03d", index),
		ArrayElems: arrayElems,
		Used:       true,
		ArrayConst: values,
	}
}
