package regalloc

import (
	"testing"

	"github.com/limashader/malisc/internal/pphir"
	"github.com/limashader/malisc/internal/pplir"
)

// TestAllocatePPInterferingRegsDontOverlap builds a block where two
// size-1 registers are both defined and then both read by a later
// instruction, making them interfere, and checks the allocator gives
// them non-overlapping (bank, offset) slots.
func TestAllocatePPInterferingRegsDontOverlap(t *testing.T) {
	prog := pplir.NewProgram()
	blk := prog.NewBlock()

	a := prog.NewReg(1)
	defA := pplir.NewInstr(pphir.OpMov)
	defA.Dest = pplir.Dest{Reg: a, Mask: [4]bool{true}}
	defA.Sources[0] = pplir.Source{Constant: true, Const: [4]float64{1}}
	blk.AppendInstr(defA)

	b := prog.NewReg(1)
	defB := pplir.NewInstr(pphir.OpMov)
	defB.Dest = pplir.Dest{Reg: b, Mask: [4]bool{true}}
	defB.Sources[0] = pplir.Source{Constant: true, Const: [4]float64{2}}
	blk.AppendInstr(defB)

	use := pplir.NewInstr(pphir.OpAdd)
	use.Dest = pplir.Dest{Reg: prog.NewReg(1), Mask: [4]bool{true}}
	use.Sources[0] = pplir.Source{Reg: a, Swizzle: [4]int{0, 1, 2, 3}}
	use.Sources[1] = pplir.Source{Reg: b, Swizzle: [4]int{0, 1, 2, 3}}
	blk.AppendInstr(use)

	AllocatePP(prog)

	if a.State != pplir.RegColored || b.State != pplir.RegColored {
		t.Fatal("both registers should end up colored (neither forced to spill)")
	}
	if a.AllocatedIndex == b.AllocatedIndex && a.AllocatedOffset == b.AllocatedOffset {
		t.Fatal("interfering registers must not share a (bank, offset) slot")
	}
}

// TestAllocatePPSpillsBeyondBankCount forces more simultaneously-live
// size-1 registers than the 64 available scalar slots so at least one
// must be selected beyond ppNumBanks and rewritten by spillPP into a
// load_t/store_t pair, consuming a temp slot.
func TestAllocatePPSpillsBeyondBankCount(t *testing.T) {
	prog := pplir.NewProgram()
	blk := prog.NewBlock()

	const n = ppNumBanks*4 + 1
	regs := make([]*pplir.Register, n)
	for i := 0; i < n; i++ {
		r := prog.NewReg(1)
		def := pplir.NewInstr(pphir.OpMov)
		def.Dest = pplir.Dest{Reg: r, Mask: [4]bool{true}}
		def.Sources[0] = pplir.Source{Constant: true, Const: [4]float64{float64(i)}}
		blk.AppendInstr(def)
		regs[i] = r
	}

	for i := 0; i < n; i++ {
		use := pplir.NewInstr(pphir.OpMov)
		use.Dest = pplir.Dest{Reg: prog.NewReg(1), Mask: [4]bool{true}}
		use.Sources[0] = pplir.Source{Reg: regs[i], Swizzle: [4]int{0, 1, 2, 3}}
		blk.AppendInstr(use)
	}

	AllocatePP(prog)

	if prog.TempAlloc == 0 {
		t.Fatal("expected at least one spill slot to be consumed")
	}
}
