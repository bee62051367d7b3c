package xform

import (
	"testing"

	"github.com/limashader/malisc/internal/gpir"
)

func TestConstructSSAInsertsPhiAtJoin(t *testing.T) {
	prog := gpir.NewProgram()
	entry, a, b, join := buildDiamond(prog)
	reg := prog.NewReg(1)

	defInBlock := func(blk *gpir.Block, v float64) {
		c := gpir.NewConst(v)
		store := gpir.NewStoreReg(reg)
		gpir.SetStoreRegChild(store, 0, c)
		// Insert before the block's terminating branch, if any.
		if last := blk.LastRoot(); last != nil && last.Kind == gpir.KindBranch {
			blk.InsertBefore(store, last)
		} else {
			blk.InsertEnd(store)
		}
	}
	defInBlock(a, 1)
	defInBlock(b, 2)

	use := gpir.NewStore(gpir.OpStoreTemp, 0)
	gpir.SetStoreChild(use, 0, gpir.NewLoadReg(reg, 0))
	join.InsertEnd(use)
	_ = entry

	ConstructSSA(prog)

	phis := join.Phis()
	if len(phis) != 1 {
		t.Fatalf("expected exactly one phi in join, got %d", len(phis))
	}
	phi := phis[0]
	if len(phi.PhiSources) != 2 {
		t.Fatalf("expected 2 phi sources (one per predecessor), got %d", len(phi.PhiSources))
	}

	// The load in join's use node must now read the phi's (renamed) dest.
	loadNode := use.StoreChildren[0]
	if loadNode == nil || loadNode.Kind != gpir.KindLoadReg {
		t.Fatal("use's child should still be a load_reg after renaming")
	}
	if loadNode.Reg != phi.PhiDest {
		t.Fatal("load in join should read the phi's renamed destination register")
	}
}
