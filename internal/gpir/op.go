// Package gpir implements the GP (geometry processor) IR: a node DAG of
// ALU/load/store/branch/phi nodes rooted at statements ("root nodes") within
// basic blocks, plus the register and program types that own them.
//
// Grounded on original_source/src/lima/gp_ir/gp_ir.h and node.c. Where the
// original uses a C vtable of five function pointers per node "subclass"
// (child_iter_create/next, delete, print, export/import), this port uses a
// single flattened Node struct tagged by Kind plus Kind-dispatched methods —
// the arena-pooled-struct idiom wazero's ssa/backend packages use for
// Instruction/VReg, rather than an interface per node kind, since every pass
// needs direct mutable access to a node's child slots regardless of kind.
package gpir

// Op is the GP-specific opcode set (spec.md §3, "an op from the enumerated
// opcode set"). Ops are grouped by which scheduler slot category they target
// (mul/add/mul-add/passthrough/complex/load/store/branch), mirroring
// gp_ir.h's grouping comments, because internal/sched's bundle packer
// dispatches on exactly these groups.
type Op uint8

const (
	OpInvalid Op = iota

	OpMov

	// mul-slot ops.
	OpMul
	OpSelect
	OpComplex1
	OpComplex2

	// add-slot ops.
	OpAdd
	OpFloor
	OpSign
	OpGe
	OpLt
	OpMin
	OpMax

	// mul/add ops (schedulable in either slot).
	OpNeg

	// passthrough ops.
	OpClampConst
	OpPreexp2
	OpPostlog2

	// complex-slot ops.
	OpExp2Impl
	OpLog2Impl
	OpRcpImpl
	OpRsqrtImpl

	// load/store ops.
	OpLoadUniform
	OpLoadTemp
	OpLoadAttribute
	OpLoadReg
	OpStoreTemp
	OpStoreReg
	OpStoreVarying
	OpStoreTempLoadOff0
	OpStoreTempLoadOff1
	OpStoreTempLoadOff2

	// branch.
	OpBranchCond
	OpBranchUncond

	// constant.
	OpConst

	// emulated ops, rewritten away by internal/xform's algebraic lowering
	// before scheduling (spec.md §4.7).
	OpExp2
	OpLog2
	OpRcp
	OpRsqrt
	OpCeil
	OpFract
	OpExp
	OpLog
	OpPow
	OpSqrt
	OpSin
	OpCos
	OpTan
	OpAbs
	OpNot
	OpDiv
	OpMod
	OpLrp
	OpEq
	OpNe
	OpF2B
	OpF2I

	// phi (SSA-only; eliminated by internal/xform before scheduling).
	OpPhi
)

// OpInfo mirrors gp_ir.h's lima_gp_ir_op_t: static metadata about an opcode
// consulted by the ALU-node constructor, the negate-folding step of
// constant folding, and the scheduler's slot-compatibility checks.
type OpInfo struct {
	Name               string
	NumSchedPositions  int
	CanNegateDest      bool
	CanNegateSources   [3]bool
	IsRootNode         bool
}

var opTable = map[Op]OpInfo{
	OpMov:               {Name: "mov", NumSchedPositions: 2, CanNegateDest: true, CanNegateSources: [3]bool{true}},
	OpMul:                {Name: "mul", NumSchedPositions: 2, CanNegateDest: true, CanNegateSources: [3]bool{true, true}},
	OpSelect:             {Name: "select", NumSchedPositions: 1, CanNegateSources: [3]bool{false, true, true}},
	OpComplex1:           {Name: "complex1", NumSchedPositions: 1},
	OpComplex2:           {Name: "complex2", NumSchedPositions: 1},
	OpAdd:                {Name: "add", NumSchedPositions: 2, CanNegateDest: true, CanNegateSources: [3]bool{true, true}},
	OpFloor:              {Name: "floor", NumSchedPositions: 2, CanNegateDest: true, CanNegateSources: [3]bool{true}},
	OpSign:               {Name: "sign", NumSchedPositions: 2, CanNegateSources: [3]bool{true}},
	OpGe:                 {Name: "ge", NumSchedPositions: 2, CanNegateSources: [3]bool{true, true}},
	OpLt:                 {Name: "lt", NumSchedPositions: 2, CanNegateSources: [3]bool{true, true}},
	OpMin:                {Name: "min", NumSchedPositions: 2, CanNegateDest: true, CanNegateSources: [3]bool{true, true}},
	OpMax:                {Name: "max", NumSchedPositions: 2, CanNegateDest: true, CanNegateSources: [3]bool{true, true}},
	OpNeg:                {Name: "neg", NumSchedPositions: 4, CanNegateSources: [3]bool{true}},
	OpClampConst:         {Name: "clamp_const", NumSchedPositions: 1},
	OpPreexp2:            {Name: "preexp2", NumSchedPositions: 1},
	OpPostlog2:           {Name: "postlog2", NumSchedPositions: 1},
	OpExp2Impl:           {Name: "exp2_impl", NumSchedPositions: 1},
	OpLog2Impl:           {Name: "log2_impl", NumSchedPositions: 1},
	OpRcpImpl:            {Name: "rcp_impl", NumSchedPositions: 1},
	OpRsqrtImpl:          {Name: "rsqrt_impl", NumSchedPositions: 1},
	OpLoadUniform:        {Name: "load_uniform", NumSchedPositions: 1},
	OpLoadTemp:           {Name: "load_temp", NumSchedPositions: 1},
	OpLoadAttribute:      {Name: "load_attribute", NumSchedPositions: 1},
	OpLoadReg:            {Name: "load_reg", NumSchedPositions: 1},
	OpStoreTemp:          {Name: "store_temp", NumSchedPositions: 1, IsRootNode: true},
	OpStoreReg:           {Name: "store_reg", NumSchedPositions: 1, IsRootNode: true},
	OpStoreVarying:       {Name: "store_varying", NumSchedPositions: 1, IsRootNode: true},
	OpStoreTempLoadOff0:  {Name: "store_temp_load_off0", NumSchedPositions: 1, IsRootNode: true},
	OpStoreTempLoadOff1:  {Name: "store_temp_load_off1", NumSchedPositions: 1, IsRootNode: true},
	OpStoreTempLoadOff2:  {Name: "store_temp_load_off2", NumSchedPositions: 1, IsRootNode: true},
	OpBranchCond:         {Name: "branch_cond", NumSchedPositions: 1, IsRootNode: true},
	OpBranchUncond:       {Name: "branch_uncond", NumSchedPositions: 1, IsRootNode: true},
	OpConst:              {Name: "const", NumSchedPositions: 0},
	OpExp2:               {Name: "exp2", NumSchedPositions: 0},
	OpLog2:               {Name: "log2", NumSchedPositions: 0},
	OpRcp:                {Name: "rcp", NumSchedPositions: 0},
	OpRsqrt:              {Name: "rsqrt", NumSchedPositions: 0},
	OpCeil:               {Name: "ceil", NumSchedPositions: 0},
	OpFract:              {Name: "fract", NumSchedPositions: 0},
	OpExp:                {Name: "exp", NumSchedPositions: 0},
	OpLog:                {Name: "log", NumSchedPositions: 0},
	OpPow:                {Name: "pow", NumSchedPositions: 0},
	OpSqrt:               {Name: "sqrt", NumSchedPositions: 0},
	OpSin:                {Name: "sin", NumSchedPositions: 0},
	OpCos:                {Name: "cos", NumSchedPositions: 0},
	OpTan:                {Name: "tan", NumSchedPositions: 0},
	OpAbs:                {Name: "abs", NumSchedPositions: 0},
	OpNot:                {Name: "not", NumSchedPositions: 0},
	OpDiv:                {Name: "div", NumSchedPositions: 0},
	OpMod:                {Name: "mod", NumSchedPositions: 0},
	OpLrp:                {Name: "lrp", NumSchedPositions: 0},
	OpEq:                 {Name: "eq", NumSchedPositions: 0},
	OpNe:                 {Name: "ne", NumSchedPositions: 0},
	OpF2B:                {Name: "f2b", NumSchedPositions: 0},
	OpF2I:                {Name: "f2i", NumSchedPositions: 0},
	OpPhi:                {Name: "phi", NumSchedPositions: 0},
}

// Info returns the static metadata for op; panics (a bug, not user error) on
// an unregistered op.
func Info(op Op) OpInfo {
	info, ok := opTable[op]
	if !ok {
		panic("bug: unregistered gpir op")
	}
	return info
}

func (op Op) String() string { return Info(op).Name }

// IsRootNode reports whether op produces a statement-level root node
// (store/store-reg/branch) as opposed to a pure expression node.
func (op Op) IsRootNode() bool { return Info(op).IsRootNode }

// emulatedOps is the set of high-level ops that algebraic lowering (spec.md
// §4.7) must rewrite into primitives before scheduling; a program containing
// one of these past the lowering pass is a compiler bug.
var emulatedOps = map[Op]bool{
	OpExp2: true, OpLog2: true, OpRcp: true, OpRsqrt: true, OpCeil: true,
	OpFract: true, OpExp: true, OpLog: true, OpPow: true, OpSqrt: true,
	OpSin: true, OpCos: true, OpTan: true,
	OpAbs: true, OpNot: true, OpDiv: true, OpMod: true, OpLrp: true,
	OpEq: true, OpNe: true, OpF2B: true, OpF2I: true,
}

// IsEmulated reports whether op must be lowered before scheduling.
func (op Op) IsEmulated() bool { return emulatedOps[op] }
