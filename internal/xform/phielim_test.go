package xform

import (
	"testing"

	"github.com/limashader/malisc/internal/gpir"
)

func TestEliminatePhisRemovesPhisAndInsertsCopies(t *testing.T) {
	prog := gpir.NewProgram()
	_, a, b, join := buildDiamond(prog)
	reg := prog.NewReg(1)

	defInBlockPE := func(blk *gpir.Block, v float64) {
		c := gpir.NewConst(v)
		store := gpir.NewStoreReg(reg)
		gpir.SetStoreRegChild(store, 0, c)
		if last := blk.LastRoot(); last != nil && last.Kind == gpir.KindBranch {
			blk.InsertBefore(store, last)
		} else {
			blk.InsertEnd(store)
		}
	}
	defInBlockPE(a, 1)
	defInBlockPE(b, 2)

	use := gpir.NewStore(gpir.OpStoreTemp, 0)
	gpir.SetStoreChild(use, 0, gpir.NewLoadReg(reg, 0))
	join.InsertEnd(use)

	ConstructSSA(prog)
	if len(join.Phis()) != 1 {
		t.Fatalf("precondition: expected a phi in join before elimination, got %d", len(join.Phis()))
	}

	EliminatePhis(prog)

	if len(join.Phis()) != 0 {
		t.Fatal("EliminatePhis should leave no phis behind")
	}

	// join should now begin with a copy (store_reg) feeding what the
	// original use reads.
	first := join.FirstRoot()
	if first == nil || first.Kind != gpir.KindStoreReg {
		t.Fatalf("expected join to open with a store_reg copy, got %+v", first)
	}

	// a and b should each have gained a tail copy before their branch.
	for _, blk := range []*gpir.Block{a, b} {
		last := blk.LastRoot()
		if last == nil || last.Kind != gpir.KindBranch {
			t.Fatal("predecessor block should still end in its branch")
		}
		prev := findPrevRoot(blk, last)
		if prev == nil || prev.Kind != gpir.KindStoreReg {
			t.Fatalf("expected a store_reg copy immediately before %v's branch", blk)
		}
	}
}

func findPrevRoot(b *gpir.Block, n *gpir.Node) *gpir.Node {
	var prev *gpir.Node
	for cur := b.FirstRoot(); cur != nil; cur = nextRoot(b, cur) {
		if cur == n {
			return prev
		}
		prev = cur
	}
	return nil
}

// nextRoot walks b's root list via repeated Roots() since Node.next/prev are
// unexported outside gpir.
func nextRoot(b *gpir.Block, n *gpir.Node) *gpir.Node {
	roots := b.Roots()
	for i, r := range roots {
		if r == n && i+1 < len(roots) {
			return roots[i+1]
		}
	}
	return nil
}
