package gpir

import "testing"

// buildSampleProgram constructs a two-block program exercising a load,
// an ALU op, a register store/load, a conditional branch across blocks and
// a phi, so ExportProgram/ImportProgram must round-trip each of those Kinds.
func buildSampleProgram() *Program {
	prog := NewProgram()

	b0 := prog.NewBlock()
	prog.InsertEnd(b0)
	b1 := prog.NewBlock()
	prog.InsertEnd(b1)
	b1.Preds = []*Block{b0}

	reg := prog.NewReg(1)

	ld := NewLoad(OpLoadUniform, 3, 0)
	c := NewConst(2.5)
	add := NewALU(OpAdd)
	SetALUChild(add, 0, ld, false)
	SetALUChild(add, 1, c, true)

	sreg := NewStoreReg(reg)
	SetStoreRegChild(sreg, 0, add)
	b0.InsertEnd(sreg)

	cond := NewLoadReg(reg, 0)
	br := NewBranch(OpBranchCond, b1)
	SetBranchCondition(br, cond)
	b0.InsertEnd(br)

	phi := NewPhi(reg, 1)
	phi.PhiSources[0] = PhiSrc{Reg: reg, Pred: b0}
	b1.InsertPhi(phi)

	store := NewStore(OpStoreVarying, 0)
	phiLoad := NewLoadReg(reg, 0)
	SetStoreChild(store, 0, phiLoad)
	b1.InsertEnd(store)

	prog.TempAlloc = 4
	return prog
}

func TestExportImportProgramRoundTrips(t *testing.T) {
	prog := buildSampleProgram()
	data := ExportProgram(prog)
	got := ImportProgram(data)

	if got.TempAlloc != prog.TempAlloc {
		t.Fatalf("TempAlloc: got %d, want %d", got.TempAlloc, prog.TempAlloc)
	}
	if len(got.Regs) != len(prog.Regs) {
		t.Fatalf("Regs: got %d, want %d", len(got.Regs), len(prog.Regs))
	}
	if len(got.Blocks) != len(prog.Blocks) {
		t.Fatalf("Blocks: got %d, want %d", len(got.Blocks), len(prog.Blocks))
	}

	gb0, gb1 := got.Blocks[0], got.Blocks[1]
	if len(gb1.Preds) != 1 || gb1.Preds[0] != gb0 {
		t.Fatalf("expected b1's sole pred to be the imported b0")
	}

	if gb0.NumRoots() != 2 {
		t.Fatalf("b0: got %d roots, want 2", gb0.NumRoots())
	}
	roots0 := gb0.Roots()
	sreg2 := roots0[0]
	if sreg2.Kind != KindStoreReg {
		t.Fatalf("b0 root 0: got Kind %v, want KindStoreReg", sreg2.Kind)
	}
	if sreg2.StoreReg == nil || sreg2.StoreReg.Index != 0 {
		t.Fatalf("expected store_reg to target register 0")
	}
	addNode := sreg2.StoreChildren[0]
	if addNode == nil || addNode.Kind != KindALU || addNode.Op != OpAdd {
		t.Fatalf("expected store_reg's child to be an add ALU node")
	}
	if addNode.ALUChildren[0] == nil || addNode.ALUChildren[0].Kind != KindLoad {
		t.Fatalf("expected add's first child to be a load")
	}
	if addNode.ALUChildren[0].LoadIndex != 3 {
		t.Fatalf("expected load index 3, got %d", addNode.ALUChildren[0].LoadIndex)
	}
	if !addNode.ChildrenNegate[1] {
		t.Fatalf("expected add's second child to be negated")
	}
	if addNode.ALUChildren[1] == nil || addNode.ALUChildren[1].Kind != KindConst || addNode.ALUChildren[1].Constant != 2.5 {
		t.Fatalf("expected add's second child to be const 2.5")
	}

	br := roots0[1]
	if br.Kind != KindBranch || br.Op != OpBranchCond {
		t.Fatalf("b0 root 1: got Kind %v, want KindBranch", br.Kind)
	}
	if br.Dest != gb1 {
		t.Fatalf("expected branch dest to be the imported b1")
	}
	if br.Condition == nil || br.Condition.Kind != KindLoadReg || br.Condition.Reg.Index != 0 {
		t.Fatalf("expected branch condition to be a load_reg of register 0")
	}

	if len(gb1.Phis()) != 1 {
		t.Fatalf("b1: got %d phis, want 1", len(gb1.Phis()))
	}
	gphi := gb1.Phis()[0]
	if gphi.PhiDest == nil || gphi.PhiDest.Index != 0 {
		t.Fatalf("expected phi dest to be register 0")
	}
	if len(gphi.PhiSources) != 1 || gphi.PhiSources[0].Pred != gb0 || gphi.PhiSources[0].Reg.Index != 0 {
		t.Fatalf("expected phi's sole source to come from the imported b0, register 0")
	}

	roots1 := gb1.Roots()
	if len(roots1) != 1 || roots1[0].Kind != KindStore || roots1[0].Op != OpStoreVarying {
		t.Fatalf("b1: expected a single store_varying root")
	}
	if roots1[0].StoreChildren[0] == nil || roots1[0].StoreChildren[0].Kind != KindLoadReg {
		t.Fatalf("expected store_varying's child to be a load_reg")
	}

	// Successor caches must have been recomputed: every non-root node's
	// successor should point at the root that consumes it.
	if addNode.Successor() != sreg2 {
		t.Fatalf("expected add's successor to be the store_reg root")
	}
	if addNode.ALUChildren[0].Successor() != sreg2 {
		t.Fatalf("expected load's successor to be the store_reg root")
	}

	// Register bookkeeping (Uses/Defs) must be reconstructed, not carried
	// as an explicit wire table.
	if got.Regs[0].NumDefs() == 0 {
		t.Fatalf("expected register 0 to have at least one def after import")
	}
	if got.Regs[0].NumUses() == 0 {
		t.Fatalf("expected register 0 to have at least one use after import")
	}
}

func TestExportProgramEmptyProgramRoundTrips(t *testing.T) {
	prog := NewProgram()
	data := ExportProgram(prog)
	got := ImportProgram(data)
	if len(got.Blocks) != 0 || len(got.Regs) != 0 || got.TempAlloc != 0 {
		t.Fatalf("expected an empty program to round-trip to another empty program, got %+v", got)
	}
}
