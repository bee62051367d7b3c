package pplir

import (
	"github.com/limashader/malisc/internal/bitset"
	"github.com/limashader/malisc/internal/pphir"
)

// Source is one operand of an Instr: a general register, a fixed pipeline
// register, or an inline constant whose value stays in Const (it is not
// rewritten into an index into a bundle's const0/const1 slot).
type Source struct {
	Constant bool
	Const    [4]float64

	Pipeline    bool
	PipelineReg PipelineReg

	Reg *Register // meaningful iff !Constant && !Pipeline.

	Swizzle  [4]int
	Absolute bool
	Negate   bool
}

// Dest is an Instr's destination: either a general register or a fixed
// pipeline register, with a per-component write mask and the PP output
// modifier.
type Dest struct {
	Pipeline    bool
	PipelineReg PipelineReg
	Reg         *Register

	Mask     [4]bool
	Modifier pphir.OutMod
}

// Instr is one unscheduled PP LIR instruction: the direct lowering of a
// pphir.Command onto registers instead of command references. Grounded on
// lima_pp_lir_instr_t.
type Instr struct {
	Op      pphir.Op
	Sources [3]Source
	Dest    Dest

	// Shift is only meaningful for Op == pphir.OpMul (a built-in left
	// shift the vector/scalar multiplier applies to its result for free).
	Shift int8

	LoadStoreIndex uint32
	BranchDest     uint32 // block index; valid only for branch instructions.

	// Bundle is the scheduled bundle this instruction has been placed
	// into, or nil before scheduling.
	Bundle *Bundle

	LiveIn, LiveOut *bitset.Set
}

// NewInstr allocates a detached instruction.
func NewInstr(op pphir.Op) *Instr {
	return &Instr{Op: op}
}

// LinkRegisters records instr in its destination and source registers'
// Defs/Uses sets, the way a GP ctor keeps gpir.Register.Defs/Uses in
// lock-step when it wires a node's operands (internal/gpir/ctor.go). Unlike
// GP, PP LIR's Source/Dest are plain structs with no constructor of their
// own, so any code assembling an Instr by hand (a lowering pass, a
// hand-built test fixture) must call this once the instruction's operands
// are set.
func (instr *Instr) LinkRegisters() {
	if !instr.Dest.Pipeline && instr.Dest.Reg != nil {
		instr.Dest.Reg.Defs.Add(instr)
	}
	for i := range instr.Sources {
		src := &instr.Sources[i]
		if !src.Constant && !src.Pipeline && src.Reg != nil {
			src.Reg.Uses.Add(instr)
		}
	}
}

// ArgSize returns the number of channels argument i of instr actually
// carries: a fixed width from the opcode table, or the destination's width
// when the opcode has no fixed arg size (lima_pp_lir_arg_size).
func (instr *Instr) ArgSize(arg int) int {
	info := pphir.Info(instr.Op)
	if info.ArgSizes[arg] != 0 {
		return info.ArgSizes[arg]
	}
	if !instr.Dest.Pipeline {
		return instr.Dest.Reg.Size
	}
	return 4
}

// ChannelUsed reports whether channel of argument arg is actually read,
// i.e. whether it corresponds to a set bit of the destination mask for
// opcodes whose argument width tracks the destination
// (lima_pp_lir_channel_used).
func (instr *Instr) ChannelUsed(arg, channel int) bool {
	info := pphir.Info(instr.Op)
	if info.ArgSizes[arg] != 0 {
		return true
	}
	return instr.Dest.Mask[channel]
}
