package xform

import (
	"testing"

	"github.com/limashader/malisc/internal/mbs"
	"github.com/limashader/malisc/internal/pphir"
	"github.com/limashader/malisc/internal/pplir"
)

func TestLowerCoreIntrinsicsNoopOnMali400(t *testing.T) {
	prog := pplir.NewProgram()
	b := prog.NewBlock()
	instr := pplir.NewInstr(pphir.OpFragCoordImpl)
	instr.Dest.Reg = prog.NewReg(4)
	b.AppendInstr(instr)

	LowerCoreIntrinsics(prog, mbs.CoreMali400)

	if len(b.Instrs) != 1 {
		t.Fatalf("expected mali-400 to leave the block untouched, got %d instrs", len(b.Instrs))
	}
}

func TestLowerCoreIntrinsicsInsertsFragCoordMultiply(t *testing.T) {
	prog := pplir.NewProgram()
	b := prog.NewBlock()
	instr := pplir.NewInstr(pphir.OpFragCoordImpl)
	orig := prog.NewReg(4)
	instr.Dest.Reg = orig
	b.AppendInstr(instr)

	consumer := pplir.NewInstr(pphir.OpMov)
	consumer.Sources[0] = pplir.Source{Reg: orig, Swizzle: [4]int{0, 1, 2, 3}}
	consumer.Dest.Reg = prog.NewReg(4)
	b.AppendInstr(consumer)

	LowerCoreIntrinsics(prog, mbs.CoreMali200)

	if len(b.Instrs) != 3 {
		t.Fatalf("expected a multiply to be inserted, got %d instrs", len(b.Instrs))
	}
	if b.Instrs[0] != instr {
		t.Fatal("expected the FragCoord instruction to stay first")
	}
	mul := b.Instrs[1]
	if mul.Op != pphir.OpMul || mul.Dest.Reg != orig {
		t.Fatalf("expected a multiply writing back the original destination, got %+v", mul)
	}
	if mul.Sources[0].Reg == orig {
		t.Fatal("expected the FragCoord instruction to have been retargeted to a fresh register")
	}
	if instr.Dest.Reg == orig {
		t.Fatal("expected the producing instruction's destination to be retargeted")
	}
	if b.Instrs[2] != consumer {
		t.Fatal("expected the original consumer to remain reading the original register")
	}
	if orig.Defs.Len() != 1 || !orig.Defs.Has(mul) {
		t.Fatalf("expected orig's sole def to be the inserted multiply, got %d defs", orig.Defs.Len())
	}
}

func TestLowerCoreIntrinsicsInsertsPointCoordScaleAndBias(t *testing.T) {
	prog := pplir.NewProgram()
	b := prog.NewBlock()
	instr := pplir.NewInstr(pphir.OpPointCoordImpl)
	orig := prog.NewReg(4)
	instr.Dest.Reg = orig
	b.AppendInstr(instr)

	LowerCoreIntrinsics(prog, mbs.CoreMali200)

	if len(b.Instrs) != 3 {
		t.Fatalf("expected a mul and an add to be inserted, got %d instrs", len(b.Instrs))
	}
	mul, add := b.Instrs[1], b.Instrs[2]
	if mul.Op != pphir.OpMul || add.Op != pphir.OpAdd {
		t.Fatalf("expected mul then add, got %v then %v", mul.Op, add.Op)
	}
	if add.Dest.Reg != orig {
		t.Fatal("expected the add to write back the original destination")
	}
	if mul.Dest.Reg != add.Sources[0].Reg {
		t.Fatal("expected the add to read the multiply's output")
	}
}
