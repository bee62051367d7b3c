package liveness

import (
	"testing"

	"github.com/limashader/malisc/internal/pphir"
	"github.com/limashader/malisc/internal/pplir"
)

// TestComputePPSingleBlock builds "r = mov(1.0); store r" worth of PP LIR
// (a def instruction and a use instruction in one block, wired through a
// register rather than pphir's constant-folded form so the dataflow has
// something concrete to track) and checks r is live between the two
// instructions but dead before the def and after the use.
func TestComputePPSingleBlock(t *testing.T) {
	prog := pplir.NewProgram()
	blk := prog.NewBlock()

	r := prog.NewReg(1)
	src := prog.NewReg(1)

	def := pplir.NewInstr(pphir.OpMov)
	def.Dest = pplir.Dest{Reg: r, Mask: [4]bool{true}}
	def.Sources[0] = pplir.Source{Reg: src, Swizzle: [4]int{0, 1, 2, 3}}
	blk.AppendInstr(def)

	use := pplir.NewInstr(pphir.OpMov)
	use.Dest = pplir.Dest{Reg: prog.NewReg(1), Mask: [4]bool{true}}
	use.Sources[0] = pplir.Source{Reg: r, Swizzle: [4]int{0, 1, 2, 3}}
	blk.AppendInstr(use)

	ComputePP(prog)

	ri := indexOf(prog, r)
	if def.LiveOut.Has(ri) {
		t.Fatal("r should not be live immediately after its own def")
	}
	if !use.LiveIn.Has(ri) {
		t.Fatal("r should be live into the instruction that reads it")
	}
	if use.LiveOut.Has(ri) {
		t.Fatal("r should not survive past its only use")
	}
}

// TestComputePPAcrossBlocks checks that a register defined in one block and
// used in its sole successor is live out of the first block.
func TestComputePPAcrossBlocks(t *testing.T) {
	prog := pplir.NewProgram()
	b0 := prog.NewBlock()
	b1 := prog.NewBlock()
	b0.Succs[0] = b1.Index
	b0.NumSuccs = 1

	r := prog.NewReg(1)
	def := pplir.NewInstr(pphir.OpMov)
	def.Dest = pplir.Dest{Reg: r, Mask: [4]bool{true}}
	def.Sources[0] = pplir.Source{Constant: true, Const: [4]float64{1}}
	b0.AppendInstr(def)

	use := pplir.NewInstr(pphir.OpMov)
	use.Dest = pplir.Dest{Reg: prog.NewReg(1), Mask: [4]bool{true}}
	use.Sources[0] = pplir.Source{Reg: r, Swizzle: [4]int{0, 1, 2, 3}}
	b1.AppendInstr(use)

	ComputePP(prog)

	ri := indexOf(prog, r)
	if !b0.LiveOut.Has(ri) {
		t.Fatal("r should be live out of b0, its sole successor uses it")
	}
	if b0.LiveIn.Has(ri) {
		t.Fatal("r should not be live into b0, it's defined there")
	}
}

func indexOf(prog *pplir.Program, r *pplir.Register) int {
	for i, x := range prog.Regs {
		if x == r {
			return i * 4
		}
	}
	return -1
}
