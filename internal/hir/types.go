// Package hir holds the common high-level IR shared by the GP and PP
// back-ends before they diverge into gpir's node-DAG and pphir's linear
// command list: typed values, the shared high-level opcode vocabulary, phi
// nodes and branch-condition metadata, plus the structured statement tree
// that the (out-of-scope) GLSL front-end hands to the dead-branch analyzer.
//
// Mirrors the role of wazero's ssa package as the common currency read by
// every backend-specific Machine: the types here are intentionally thin and
// carry no scheduling or register-allocation state, which is added by
// gpir/pphir/pplir once a program has been lowered into one of the two
// target-specific IRs.
package hir

// Type is the scalar/vector type of a value. Width 1 is a scalar; 2-4 are
// vec2..vec4. Matrices and samplers are represented at the symbol level
// (internal/symbols) and never appear as IR value types.
type Type struct {
	Kind  Kind
	Width int
}

// Kind is the base numeric kind of a Type.
type Kind uint8

const (
	KindFloat Kind = iota
	KindInt
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// F32 and friends are convenience constructors for common scalar/vector
// types.
func F32() Type  { return Type{KindFloat, 1} }
func Vec(n int) Type {
	if n < 1 || n > 4 {
		panic("bug: vector width must be 1..4")
	}
	return Type{KindFloat, n}
}
func I32() Type  { return Type{KindInt, 1} }
func Bool1() Type { return Type{KindBool, 1} }

// Op is the shared high-level opcode vocabulary used by the expression DAG
// (gpir.Node) and the linear command stream (pphir.Command). Not every
// target supports every op directly; internal/xform's algebraic-lowering
// pass rewrites unsupported ops into the primitive subset each target
// accepts (spec.md §4.7).
type Op uint16

const (
	OpInvalid Op = iota

	OpMov
	OpNeg
	OpAdd
	OpMul
	OpSub // sugar for add(a, neg(b)); lowered away before scheduling.
	OpDiv
	OpMod
	OpAbs
	OpNot
	OpLrp
	OpFloor
	OpCeil
	OpFract
	OpSign
	OpMin
	OpMax
	OpGe
	OpLt
	OpEq
	OpNe
	OpRcp
	OpRsqrt
	OpSqrt
	OpExp2
	OpLog2
	OpExp
	OpLog
	OpSin
	OpCos
	OpTan
	OpPow
	OpF2B
	OpF2I
	OpSelect // select(cond, then, else); introduced by if-conversion.

	// Complex two-output helper ops used by algebraic lowering of
	// rcp/rsqrt/exp2/log2 (spec.md §4.7): complex1 produces the primary
	// result, complex2 the companion value consumed by a paired slot.
	OpComplex1
	OpComplex2
	OpPreExp2
	OpPostLog2

	OpConst
	OpClampConst // const clamped to [0,1] at read; see gpir ClampConst node.
	OpLoadReg
	OpLoadRegOffset // indexed temp load, address = base + offset register.
	OpStoreReg
	OpStoreRegOffset
	OpPhi
	OpBranch
	OpJump
)

func (op Op) IsConst() bool { return op == OpConst || op == OpClampConst }

// IsCommutative reports whether operand order does not affect the result;
// used by dependency-info and peephole passes when deciding if two
// instructions may be reordered or fused.
func (op Op) IsCommutative() bool {
	switch op {
	case OpAdd, OpMul, OpMin, OpMax, OpEq, OpNe:
		return true
	default:
		return false
	}
}

// BranchCond is the branch-condition kind carried by PP HIR/LIR blocks and
// by the generic hir.Block below (spec.md §3, "Block (PP HIR)").
type BranchCond uint8

const (
	CondAlways BranchCond = iota
	CondLT
	CondLE
	CondEQ
	CondNE
	CondGE
	CondGT
)

func (c BranchCond) String() string {
	switch c {
	case CondAlways:
		return "always"
	case CondLT:
		return "lt"
	case CondLE:
		return "le"
	case CondEQ:
		return "eq"
	case CondNE:
		return "ne"
	case CondGE:
		return "ge"
	case CondGT:
		return "gt"
	default:
		return "invalid"
	}
}
