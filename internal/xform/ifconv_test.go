package xform

import (
	"testing"

	"github.com/limashader/malisc/internal/gpir"
)

// buildSelectDiamond builds "if (cond) { r = x } else { r = y }" directly in
// post-SSA shape (entry/then/else/end with a phi already placed in end),
// mirroring scenario S4.
func buildSelectDiamond(prog *gpir.Program) (entry, thenBlk, elseBlk, end *gpir.Block, r *gpir.Register) {
	entry = prog.NewBlock()
	thenBlk = prog.NewBlock()
	elseBlk = prog.NewBlock()
	end = prog.NewBlock()
	prog.InsertEnd(entry)
	prog.InsertEnd(thenBlk)
	prog.InsertEnd(elseBlk)
	prog.InsertEnd(end)

	cond := gpir.NewConst(1)
	br := gpir.NewBranch(gpir.OpBranchCond, thenBlk)
	gpir.SetBranchCondition(br, cond)
	entry.InsertEnd(br)

	r = prog.NewReg(1)
	thenReg := prog.NewReg(1)
	elseReg := prog.NewReg(1)

	thenStore := gpir.NewStoreReg(thenReg)
	gpir.SetStoreRegChild(thenStore, 0, gpir.NewConst(10))
	thenBlk.InsertEnd(thenStore)
	thenBlk.InsertEnd(gpir.NewBranch(gpir.OpBranchUncond, end))

	elseStore := gpir.NewStoreReg(elseReg)
	gpir.SetStoreRegChild(elseStore, 0, gpir.NewConst(20))
	elseBlk.InsertEnd(elseStore)
	elseBlk.InsertEnd(gpir.NewBranch(gpir.OpBranchUncond, end))

	computePreds(prog)

	phi := gpir.NewPhi(r, 2)
	phi.PhiSources[0] = gpir.PhiSrc{Reg: thenReg, Pred: thenBlk}
	phi.PhiSources[1] = gpir.PhiSrc{Reg: elseReg, Pred: elseBlk}
	end.InsertPhi(phi)

	use := gpir.NewStore(gpir.OpStoreTemp, 0)
	gpir.SetStoreChild(use, 0, gpir.NewLoadReg(r, 0))
	end.InsertEnd(use)

	return
}

func TestIfConvertMergesDiamondIntoOneBlock(t *testing.T) {
	prog := gpir.NewProgram()
	_, _, _, end, r := buildSelectDiamond(prog)

	if len(prog.Blocks) != 4 {
		t.Fatalf("precondition: expected 4 blocks, got %d", len(prog.Blocks))
	}

	IfConvert(prog)

	if len(prog.Blocks) != 1 {
		t.Fatalf("expected if-conversion to merge the diamond into 1 block, got %d", len(prog.Blocks))
	}
	if len(end.Phis()) != 0 {
		t.Fatal("end's phi should have been rewritten away")
	}

	merged := prog.Blocks[0]
	foundSelect := false
	for _, root := range merged.Roots() {
		if root.Kind != gpir.KindStoreReg || root.StoreReg != r {
			continue
		}
		if c := root.StoreChildren[0]; c != nil && c.Kind == gpir.KindALU && c.Op == gpir.OpSelect {
			foundSelect = true
		}
	}
	if !foundSelect {
		t.Fatal("expected a store_reg(r) <- select(...) in the merged block")
	}
}
