package pplir

import "github.com/limashader/malisc/internal/bitset"

// ALUSlot names the five ALU slots a bundle can fill in a single cycle
// (lima_pp_lir_alu_e): two multiply units, two add units, and a combine
// unit that can only move/swizzle its inputs into the destination.
type ALUSlot uint8

const (
	SlotVectorMul ALUSlot = iota
	SlotScalarMul
	SlotVectorAdd
	SlotScalarAdd
	SlotCombine
)

const numALUSlots = 5

// Bundle is one scheduled VLIW instruction word: up to one each of
// varying/texture/uniform load, one instruction per ALU slot, one temp
// store, and one branch, plus the two shared constant-file slots every ALU
// instruction in the bundle may reference. Grounded on
// lima_pp_lir_scheduled_instr_t.
type Bundle struct {
	Index int
	Block *Block

	Varying *Instr
	Texld   *Instr
	Uniform *Instr

	ALUInstrs [numALUSlots]*Instr

	// PossibleALUInstrPos[i][j] records whether the instruction currently
	// occupying logical slot i could instead be placed in slot j without
	// violating the PP ALU pipeline's fixed wiring (spec.md §4.11's
	// slot-compatibility matrix). No pass in this module fills or reads it:
	// internal/sched's bundle combiner keeps every ALU instruction in the
	// slot it already occupies.
	PossibleALUInstrPos [numALUSlots][numALUSlots]bool

	TempStore *Instr
	Branch    *Instr

	Const0, Const1         [4]float64
	Const0Size, Const1Size int

	LiveIn, LiveOut *bitset.Set

	// ReadRegs/WriteRegs are the per-component register-component bitsets
	// this bundle touches. NewBundle allocates them empty; no pass in this
	// module fills or reads them, since no PP bundle dependency graph is
	// built.
	ReadRegs, WriteRegs *bitset.Set

	Preds, Succs         *bitset.PtrSet[*Bundle]
	MinPreds, MinSuccs   *bitset.PtrSet[*Bundle] // transitive-reduction edges.
	TruePreds, TrueSuccs *bitset.PtrSet[*Bundle] // RAW-only edges.

	MaxDist     int
	RegPressure int
	Visited     bool

	prev, next *Bundle
}

// NewBundle allocates a detached, empty bundle.
func NewBundle() *Bundle {
	return &Bundle{
		ReadRegs:  &bitset.Set{},
		WriteRegs: &bitset.Set{},
		Preds:     bitset.NewPtrSet[*Bundle](),
		Succs:     bitset.NewPtrSet[*Bundle](),
		MinPreds:  bitset.NewPtrSet[*Bundle](),
		MinSuccs:  bitset.NewPtrSet[*Bundle](),
		TruePreds: bitset.NewPtrSet[*Bundle](),
		TrueSuccs: bitset.NewPtrSet[*Bundle](),
	}
}

// IsEmpty reports whether the bundle carries no instructions at all
// (lima_pp_lir_sched_instr_is_empty).
func (b *Bundle) IsEmpty() bool {
	if b.Varying != nil || b.Texld != nil || b.Uniform != nil || b.TempStore != nil || b.Branch != nil {
		return false
	}
	for _, instr := range b.ALUInstrs {
		if instr != nil {
			return false
		}
	}
	return true
}

// SetALU places instr in the given ALU slot, overwriting whatever
// previously occupied it.
func (b *Bundle) SetALU(slot ALUSlot, instr *Instr) {
	b.ALUInstrs[slot] = instr
	if instr != nil {
		instr.Bundle = b
	}
}

// Next/Prev return the adjacent bundle within Block's bundle list, or nil
// at either end; exported for internal/sched's bundle combiner, which walks
// this list from outside the package.
func (b *Bundle) Next() *Bundle { return b.next }
func (b *Bundle) Prev() *Bundle { return b.prev }
