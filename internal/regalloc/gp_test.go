package regalloc

import (
	"testing"

	"github.com/limashader/malisc/internal/gpir"
)

// TestAllocateGPInterferingRegsDontOverlap builds a block where two
// size-1 registers are simultaneously live (both stored, then both read
// by a single add) and checks the allocator gives them non-overlapping
// (bank, offset) slots.
func TestAllocateGPInterferingRegsDontOverlap(t *testing.T) {
	prog := gpir.NewProgram()
	blk := prog.NewBlock()
	prog.InsertEnd(blk)

	a := prog.NewReg(1)
	defA := gpir.NewStoreReg(a)
	gpir.SetStoreRegChild(defA, 0, gpir.NewConst(1))
	blk.InsertEnd(defA)

	b := prog.NewReg(1)
	defB := gpir.NewStoreReg(b)
	gpir.SetStoreRegChild(defB, 0, gpir.NewConst(2))
	blk.InsertEnd(defB)

	use := gpir.NewStore(gpir.OpStoreTemp, 0)
	sum := gpir.NewALU(gpir.OpAdd)
	gpir.SetALUChild(sum, 0, gpir.NewLoadReg(a, 0), false)
	gpir.SetALUChild(sum, 1, gpir.NewLoadReg(b, 0), false)
	gpir.SetStoreChild(use, 0, sum)
	blk.InsertEnd(use)

	AllocateGP(prog)

	if !a.PhysRegAssigned || !b.PhysRegAssigned {
		t.Fatal("both registers should end up assigned")
	}
	if a.PhysReg == b.PhysReg && a.PhysRegOffset == b.PhysRegOffset {
		t.Fatal("interfering registers must not share a (bank, offset) slot")
	}
}

// TestAllocateGPSpillsBeyondBankCount forces more simultaneously-live
// size-1 registers than the 64 available scalar slots (16 banks * 4
// components) so at least one must be selected at a bank >= numBanks
// and rewritten by spillGP into a load_temp/store_temp pair.
func TestAllocateGPSpillsBeyondBankCount(t *testing.T) {
	prog := gpir.NewProgram()
	blk := prog.NewBlock()
	prog.InsertEnd(blk)

	const n = numBanks*4 + 1
	regs := make([]*gpir.Register, n)
	for i := 0; i < n; i++ {
		r := prog.NewReg(1)
		def := gpir.NewStoreReg(r)
		gpir.SetStoreRegChild(def, 0, gpir.NewConst(float64(i)))
		blk.InsertEnd(def)
		regs[i] = r
	}

	sum := gpir.NewLoadReg(regs[0], 0)
	for i := 1; i < n; i++ {
		next := gpir.NewALU(gpir.OpAdd)
		gpir.SetALUChild(next, 0, sum, false)
		gpir.SetALUChild(next, 1, gpir.NewLoadReg(regs[i], 0), false)
		sum = next
	}
	use := gpir.NewStore(gpir.OpStoreTemp, 0)
	gpir.SetStoreChild(use, 0, sum)
	blk.InsertEnd(use)

	AllocateGP(prog)

	if prog.TempAlloc == 0 {
		t.Fatal("expected at least one spill slot to be consumed")
	}
}
