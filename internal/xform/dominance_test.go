package xform

import (
	"testing"

	"github.com/limashader/malisc/internal/gpir"
)

// buildDiamond builds entry -branch_cond-> {A (fallthrough), B (target)},
// A and B each -branch_uncond-> join. Block insertion order is
// entry, A, B, join so fallthroughBlock's "next in program order" rule
// picks A as entry's non-taken successor.
func buildDiamond(prog *gpir.Program) (entry, a, b, join *gpir.Block) {
	entry = prog.NewBlock()
	a = prog.NewBlock()
	b = prog.NewBlock()
	join = prog.NewBlock()
	prog.InsertEnd(entry)
	prog.InsertEnd(a)
	prog.InsertEnd(b)
	prog.InsertEnd(join)

	cond := gpir.NewConst(1)
	br := gpir.NewBranch(gpir.OpBranchCond, b)
	gpir.SetBranchCondition(br, cond)
	entry.InsertEnd(br)

	a.InsertEnd(gpir.NewBranch(gpir.OpBranchUncond, join))
	b.InsertEnd(gpir.NewBranch(gpir.OpBranchUncond, join))

	return
}

func TestComputeDominanceDiamond(t *testing.T) {
	prog := gpir.NewProgram()
	entry, a, b, join := buildDiamond(prog)

	ComputeDominance(prog)

	if entry.ImmDominator != entry {
		t.Fatal("entry block should dominate itself")
	}
	if a.ImmDominator != entry {
		t.Fatalf("A's idom should be entry, got %v", a.ImmDominator)
	}
	if b.ImmDominator != entry {
		t.Fatalf("B's idom should be entry, got %v", b.ImmDominator)
	}
	if join.ImmDominator != entry {
		t.Fatalf("join's idom should be entry (neither A nor B alone dominates it), got %v", join.ImmDominator)
	}

	if !containsBlock(a.DominanceFrontier, join) {
		t.Fatal("A's dominance frontier should contain join")
	}
	if !containsBlock(b.DominanceFrontier, join) {
		t.Fatal("B's dominance frontier should contain join")
	}
}

func containsBlock(list []*gpir.Block, b *gpir.Block) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}
