package pplir

import (
	"testing"

	"github.com/limashader/malisc/internal/pphir"
)

func TestBundleListOrdering(t *testing.T) {
	blk := NewBlock()
	b1, b2, b3 := NewBundle(), NewBundle(), NewBundle()

	blk.InsertBundleEnd(b1)
	blk.InsertBundleEnd(b2)
	blk.InsertBundleBefore(b3, b2)

	got := blk.Bundles()
	if len(got) != 3 || got[0] != b1 || got[1] != b3 || got[2] != b2 {
		t.Fatalf("unexpected bundle order: %v", got)
	}

	blk.RemoveBundle(b3)
	got = blk.Bundles()
	if len(got) != 2 || got[0] != b1 || got[1] != b2 {
		t.Fatalf("unexpected bundle order after remove: %v", got)
	}
}

func TestBundleIsEmpty(t *testing.T) {
	b := NewBundle()
	if !b.IsEmpty() {
		t.Fatal("freshly created bundle should be empty")
	}
	b.SetALU(SlotVectorMul, NewInstr(pphir.OpMul))
	if b.IsEmpty() {
		t.Fatal("bundle with an ALU instruction should not be empty")
	}
}

func TestInstrArgSizeFallsBackToDest(t *testing.T) {
	reg := NewRegister(3)
	instr := NewInstr(pphir.OpAdd) // add has no fixed arg size.
	instr.Dest.Reg = reg

	if got := instr.ArgSize(0); got != 3 {
		t.Fatalf("expected arg size to fall back to dest size 3, got %d", got)
	}
}

func TestInstrArgSizeFixedByOp(t *testing.T) {
	instr := NewInstr(pphir.OpDot3)
	instr.Dest.Reg = NewRegister(1)
	if got := instr.ArgSize(0); got != 3 {
		t.Fatalf("dot3's first argument should always report 3 components, got %d", got)
	}
}

func TestRegisterIsUnreferenced(t *testing.T) {
	r := NewRegister(2)
	if !r.IsUnreferenced() {
		t.Fatal("fresh register should be unreferenced")
	}
	r.Defs.Add(NewInstr(pphir.OpMov))
	if r.IsUnreferenced() {
		t.Fatal("register with a def should not be unreferenced")
	}
}

func TestProgramCompactRegsKeepsPrecoloredAndRenumbers(t *testing.T) {
	prog := NewProgram()
	precolored := NewRegister(4)
	precolored.Precolored = true
	precolored.Index = 0
	prog.AppendReg(precolored)

	dead := prog.NewReg(1)
	live := prog.NewReg(2)
	live.Defs.Add(NewInstr(pphir.OpMov))
	_ = dead

	prog.CompactRegs()

	if len(prog.Regs) != 2 {
		t.Fatalf("expected precolored + 1 live register, got %d", len(prog.Regs))
	}
	if prog.Regs[0] != precolored {
		t.Fatal("precolored register should survive compaction")
	}
	if prog.Regs[1].Index != 1 {
		t.Fatalf("live register should be renumbered to 1, got %d", prog.Regs[1].Index)
	}
}
