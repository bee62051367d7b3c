// Package pplir is the pixel-processor low-level IR: the scheduled,
// register-allocated form pphir.Program is lowered into before symbol
// packing and MBS export. Unlike pphir, registers here are not SSA — each
// one carries an explicit def/use list since internal/regalloc's
// Runeson-Nyström allocator needs them for interference and coalescing
// (spec.md §3, "Register (PP LIR)"). Grounded on
// original_source/src/lima/pp_lir/pp_lir.h.
package pplir

import "github.com/limashader/malisc/internal/bitset"

// RegState is the Runeson-Nyström allocator's per-register worklist state
// (lima_pp_lir_reg_state_e).
type RegState uint8

const (
	RegInitial RegState = iota
	RegToSimplify
	RegSimplified
	RegToSpill
	RegSpilled
	RegToFreeze
	RegColored
	RegCoalesced
)

// Register is a PP LIR virtual or precolored register. Precolored registers
// (Precolored == true) represent the six fixed pipeline inputs
// (varying/uniform/sampler/discard registers materialized at the start of
// the program) and never participate in coloring.
type Register struct {
	Index      uint32
	Precolored bool
	Size       int // 1..4 components.

	Defs, Uses *bitset.PtrSet[*Instr]

	// Beginning mirrors lima_pp_lir_reg_t.beginning: true for registers
	// that must start at component 0 of their allocated slot because
	// nothing downstream can swizzle them (varying/uniform/temp load
	// destinations, temp-store sources).
	Beginning bool

	// Spilled marks a register synthesized by the allocator's spill pass
	// rather than by the original lowering.
	Spilled bool

	State RegState

	// Adjacent is the interference graph edge set built by
	// internal/regalloc before simplify/select.
	Adjacent *bitset.PtrSet[*Register]

	AllocatedIndex  uint32
	AllocatedOffset uint32

	// Moves is the set of move instructions (plain OpMov with no other
	// side effect) that define or use this register, consulted by
	// coalescing.
	Moves *bitset.PtrSet[*Instr]

	QTotal int

	// Alias is set once this register has been coalesced into another; in
	// RegCoalesced state every reference should be resolved through Alias.
	Alias        *Register
	AliasSwizzle [4]int

	prog *Program
}

// NewRegister allocates a detached register with empty def/use/adjacency
// sets; callers add it to a Program with Program.AppendReg.
func NewRegister(size int) *Register {
	return &Register{
		Size:     size,
		Defs:     bitset.NewPtrSet[*Instr](),
		Uses:     bitset.NewPtrSet[*Instr](),
		Adjacent: bitset.NewPtrSet[*Register](),
		Moves:    bitset.NewPtrSet[*Instr](),
	}
}

// IsUnreferenced reports whether r has no remaining defs or uses, the
// condition internal/sched's PP peephole pass and Program.CompactRegs use
// to prune it.
func (r *Register) IsUnreferenced() bool {
	return r.Defs.Len() == 0 && r.Uses.Len() == 0
}

// PipelineReg names one of the seven fixed-function pipeline register slots a
// Source may read directly instead of a general Register (lima_pp_lir_pipeline_reg_e).
type PipelineReg uint8

const (
	PipelineConst0 PipelineReg = iota
	PipelineConst1
	PipelineSampler
	PipelineUniform
	PipelineVMul
	PipelineFMul
	PipelineDiscard // varying load.
)
