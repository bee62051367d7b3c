// Package pphir is the pixel-processor high-level IR: a linear, per-block
// list of Commands rather than gpir's node-DAG, since the PP back-end has no
// analogue of GP's node-sharing/successor-window scheduling problem (spec.md
// §3, "Command (PP HIR)" / "Block (PP HIR)"). Grounded on
// original_source/src/lima/pp_hir/{from_glsl.cpp,lower.c} and the sibling
// pp_lir.h header, since no pp_hir.h survived distillation; the command/op
// vocabulary below is reconstructed from every lima_pp_hir_op_* site those
// two files reference.
package pphir

// Op is the pixel-processor opcode vocabulary, the PP analogue of gpir.Op.
// Unlike GP, most PP ops operate directly on vectors (dot2/3/4, any2/3/4,
// the texld_* family, combine) rather than being scalarized by the IR.
type Op uint8

const (
	OpInvalid Op = iota

	OpMov
	OpNeg
	OpAdd
	OpMul
	OpDiv
	OpMod
	OpFloor
	OpCeil
	OpFract
	OpSign
	OpMin
	OpMax
	OpGe
	OpGt
	OpEq
	OpNe
	OpNot
	OpLrp
	OpSelect
	OpRcp
	OpRsqrt
	OpSqrt
	OpExp2
	OpLog2
	OpSin
	OpCos
	OpPow
	OpDdx
	OpDdy
	OpDot2
	OpDot3
	OpDot4
	OpAny2
	OpAny3
	OpAny4
	OpCombine

	// Implicit-input reads: lowered from varyings the GLSL front-end never
	// declares explicitly (spec.md's supplemented "core-variant intrinsic
	// deltas").
	OpFragCoordImpl
	OpPointCoordImpl
	OpFrontFacing

	// Varying/uniform/temp loads, one op per component count and an "_off"
	// variant for dynamically-indexed loads (array/matrix access).
	OpLoadVOne
	OpLoadVOneOff
	OpLoadVTwo
	OpLoadVTwoOff
	OpLoadVThree
	OpLoadVThreeOff
	OpLoadVFour
	OpLoadVFourOff
	OpLoadUOne
	OpLoadUOneOff
	OpLoadUTwo
	OpLoadUTwoOff
	OpLoadUFour
	OpLoadUFourOff
	OpLoadTOne
	OpLoadTOneOff
	OpLoadTTwo
	OpLoadTTwoOff
	OpLoadTFour
	OpLoadTFourOff

	OpStoreTOne
	OpStoreTOneOff
	OpStoreTTwo
	OpStoreTTwoOff
	OpStoreTFour
	OpStoreTFourOff

	OpTexld2D
	OpTexld2DLod
	OpTexld2DOff
	OpTexld2DOffLod
	OpTexld2DProjZ
	OpTexld2DProjZLod
	OpTexld2DProjZOff
	OpTexld2DProjZOffLod
	OpTexldCube
	OpTexldCubeLod
	OpTexldCubeOff
	OpTexldCubeOffLod

	OpPhi

	// Branches never appear as a Command; Block.BranchCond and
	// Block.CondSrcs carry the same information (spec.md §3, "Block (PP
	// HIR)"). These constants exist only so PP LIR branch instructions
	// (classified by internal/sched's isBranch) can name a
	// lima_pp_hir_branch_cond_e-style value with the same Op vocabulary.
	OpBranch
	OpBranchEq
	OpBranchNe
	OpBranchLt
	OpBranchLe
	OpBranchGt
	OpBranchGe
)

// OutMod is the destination output modifier (lima_pp_outmod_e): the PP ALU
// pipeline can clamp or round its result for free on the way to the
// register file.
type OutMod uint8

const (
	OutModNone OutMod = iota
	OutModClampFraction
	OutModClampPositive
	OutModRound
)

// OpInfo describes one PP opcode's static shape: how many source operands it
// takes, the fixed vector width of each (0 means "as wide as the
// destination"), whether it writes a destination register, and whether it
// is a varying/uniform/temp load-or-store (these carry a load_store_index
// instead of, or in addition to, register operands).
type OpInfo struct {
	Args       int
	ArgSizes   [3]int
	HasDest    bool
	IsLoad     bool
	IsStore    bool
	DestBeginning bool // dest must start at register component 0 (loads).
}

var opTable = map[Op]OpInfo{
	OpMov:   {Args: 1, HasDest: true},
	OpNeg:   {Args: 1, HasDest: true},
	OpAdd:   {Args: 2, HasDest: true},
	OpMul:   {Args: 2, HasDest: true},
	OpDiv:   {Args: 2, HasDest: true},
	OpMod:   {Args: 2, HasDest: true},
	OpFloor: {Args: 1, HasDest: true},
	OpCeil:  {Args: 1, HasDest: true},
	OpFract: {Args: 1, HasDest: true},
	OpSign:  {Args: 1, HasDest: true},
	OpMin:   {Args: 2, HasDest: true},
	OpMax:   {Args: 2, HasDest: true},
	OpGe:    {Args: 2, HasDest: true},
	OpGt:    {Args: 2, HasDest: true},
	OpEq:    {Args: 2, HasDest: true},
	OpNe:    {Args: 2, HasDest: true},
	OpNot:   {Args: 1, HasDest: true},
	OpLrp:   {Args: 3, HasDest: true},
	OpSelect: {Args: 3, HasDest: true},
	OpRcp:    {Args: 1, ArgSizes: [3]int{1}, HasDest: true},
	OpRsqrt:  {Args: 1, ArgSizes: [3]int{1}, HasDest: true},
	OpSqrt:   {Args: 1, ArgSizes: [3]int{1}, HasDest: true},
	OpExp2:   {Args: 1, ArgSizes: [3]int{1}, HasDest: true},
	OpLog2:   {Args: 1, ArgSizes: [3]int{1}, HasDest: true},
	OpSin:    {Args: 1, ArgSizes: [3]int{1}, HasDest: true},
	OpCos:    {Args: 1, ArgSizes: [3]int{1}, HasDest: true},
	OpPow:    {Args: 2, HasDest: true},
	OpDdx:    {Args: 1, HasDest: true},
	OpDdy:    {Args: 1, HasDest: true},
	OpDot2:   {Args: 2, ArgSizes: [3]int{2, 2}, HasDest: true},
	OpDot3:   {Args: 2, ArgSizes: [3]int{3, 3}, HasDest: true},
	OpDot4:   {Args: 2, ArgSizes: [3]int{4, 4}, HasDest: true},
	OpAny2:   {Args: 1, ArgSizes: [3]int{2}, HasDest: true},
	OpAny3:   {Args: 1, ArgSizes: [3]int{3}, HasDest: true},
	OpAny4:   {Args: 1, ArgSizes: [3]int{4}, HasDest: true},
	OpCombine: {Args: 3, HasDest: true},

	OpFragCoordImpl:  {HasDest: true, DestBeginning: true},
	OpPointCoordImpl: {HasDest: true, DestBeginning: true},
	OpFrontFacing:    {HasDest: true, DestBeginning: true},

	OpLoadVOne:       {HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadVOneOff:    {Args: 1, ArgSizes: [3]int{1}, HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadVTwo:       {HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadVTwoOff:    {Args: 1, ArgSizes: [3]int{1}, HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadVThree:     {HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadVThreeOff:  {Args: 1, ArgSizes: [3]int{1}, HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadVFour:      {HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadVFourOff:   {Args: 1, ArgSizes: [3]int{1}, HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadUOne:       {HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadUOneOff:    {Args: 1, ArgSizes: [3]int{1}, HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadUTwo:       {HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadUTwoOff:    {Args: 1, ArgSizes: [3]int{1}, HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadUFour:      {HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadUFourOff:   {Args: 1, ArgSizes: [3]int{1}, HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadTOne:       {HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadTOneOff:    {Args: 1, ArgSizes: [3]int{1}, HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadTTwo:       {HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadTTwoOff:    {Args: 1, ArgSizes: [3]int{1}, HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadTFour:      {HasDest: true, IsLoad: true, DestBeginning: true},
	OpLoadTFourOff:   {Args: 1, ArgSizes: [3]int{1}, HasDest: true, IsLoad: true, DestBeginning: true},

	OpStoreTOne:      {Args: 1, IsStore: true},
	OpStoreTOneOff:   {Args: 2, ArgSizes: [3]int{0, 1}, IsStore: true},
	OpStoreTTwo:      {Args: 1, IsStore: true},
	OpStoreTTwoOff:   {Args: 2, ArgSizes: [3]int{0, 1}, IsStore: true},
	OpStoreTFour:     {Args: 1, IsStore: true},
	OpStoreTFourOff:  {Args: 2, ArgSizes: [3]int{0, 1}, IsStore: true},

	OpTexld2D:            {Args: 1, ArgSizes: [3]int{2}, HasDest: true},
	OpTexld2DLod:         {Args: 2, ArgSizes: [3]int{2, 1}, HasDest: true},
	OpTexld2DOff:         {Args: 1, ArgSizes: [3]int{2}, HasDest: true},
	OpTexld2DOffLod:      {Args: 2, ArgSizes: [3]int{2, 1}, HasDest: true},
	OpTexld2DProjZ:       {Args: 1, ArgSizes: [3]int{3}, HasDest: true},
	OpTexld2DProjZLod:    {Args: 2, ArgSizes: [3]int{3, 1}, HasDest: true},
	OpTexld2DProjZOff:    {Args: 1, ArgSizes: [3]int{3}, HasDest: true},
	OpTexld2DProjZOffLod: {Args: 2, ArgSizes: [3]int{3, 1}, HasDest: true},
	OpTexldCube:          {Args: 1, ArgSizes: [3]int{3}, HasDest: true},
	OpTexldCubeLod:       {Args: 2, ArgSizes: [3]int{3, 1}, HasDest: true},
	OpTexldCubeOff:       {Args: 1, ArgSizes: [3]int{3}, HasDest: true},
	OpTexldCubeOffLod:    {Args: 2, ArgSizes: [3]int{3, 1}, HasDest: true},

	OpPhi: {HasDest: true},
}

// Info returns the static shape of op, panicking if op has no table entry
// (an internal bug, never a malformed-input condition).
func Info(op Op) OpInfo {
	info, ok := opTable[op]
	if !ok {
		panic("bug: unregistered pphir op")
	}
	return info
}

// IsLoadStore reports whether op reads or writes the varying/uniform/temp
// address space directly (lima_pp_hir_op_is_load_store).
func (op Op) IsLoadStore() bool {
	i := Info(op)
	return i.IsLoad || i.IsStore
}

// IsStore reports whether op is one of the storet_* family
// (lima_pp_hir_op_is_store).
func (op Op) IsStore() bool { return Info(op).IsStore }

func (op Op) String() string {
	switch op {
	case OpMov:
		return "mov"
	case OpNeg:
		return "neg"
	case OpAdd:
		return "add"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpMod:
		return "mod"
	case OpFloor:
		return "floor"
	case OpCeil:
		return "ceil"
	case OpFract:
		return "fract"
	case OpSign:
		return "sign"
	case OpMin:
		return "min"
	case OpMax:
		return "max"
	case OpGe:
		return "ge"
	case OpGt:
		return "gt"
	case OpEq:
		return "eq"
	case OpNe:
		return "ne"
	case OpNot:
		return "not"
	case OpLrp:
		return "lrp"
	case OpSelect:
		return "select"
	case OpRcp:
		return "rcp"
	case OpRsqrt:
		return "rsqrt"
	case OpSqrt:
		return "sqrt"
	case OpExp2:
		return "exp2"
	case OpLog2:
		return "log2"
	case OpSin:
		return "sin"
	case OpCos:
		return "cos"
	case OpPow:
		return "pow"
	case OpDdx:
		return "ddx"
	case OpDdy:
		return "ddy"
	case OpDot2:
		return "dot2"
	case OpDot3:
		return "dot3"
	case OpDot4:
		return "dot4"
	case OpAny2:
		return "any2"
	case OpAny3:
		return "any3"
	case OpAny4:
		return "any4"
	case OpCombine:
		return "combine"
	case OpFragCoordImpl:
		return "frag_coord_impl"
	case OpPointCoordImpl:
		return "point_coord_impl"
	case OpFrontFacing:
		return "front_facing"
	case OpPhi:
		return "phi"
	case OpBranch:
		return "branch"
	default:
		return "pp_op"
	}
}
