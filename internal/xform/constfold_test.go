package xform

import (
	"testing"

	"github.com/limashader/malisc/internal/gpir"
)

func TestFoldConstantsAdd(t *testing.T) {
	prog := gpir.NewProgram()
	blk := prog.NewBlock()
	prog.InsertEnd(blk)

	add := gpir.NewALU(gpir.OpAdd)
	gpir.SetALUChild(add, 0, gpir.NewConst(2), false)
	gpir.SetALUChild(add, 1, gpir.NewConst(3), false)

	store := gpir.NewStore(gpir.OpStoreTemp, 0)
	gpir.SetStoreChild(store, 0, add)
	blk.InsertEnd(store)

	if !FoldConstants(prog) {
		t.Fatal("expected FoldConstants to report a change")
	}

	folded := store.StoreChildren[0]
	if folded == nil || folded.Kind != gpir.KindConst {
		t.Fatalf("expected store's child to be folded to a const node, got %+v", folded)
	}
	if folded.Constant != 5 {
		t.Fatalf("expected 2+3=5, got %v", folded.Constant)
	}
}

func TestFoldConstantsNestedExpression(t *testing.T) {
	prog := gpir.NewProgram()
	blk := prog.NewBlock()
	prog.InsertEnd(blk)

	inner := gpir.NewALU(gpir.OpMul)
	gpir.SetALUChild(inner, 0, gpir.NewConst(2), false)
	gpir.SetALUChild(inner, 1, gpir.NewConst(4), false)

	outer := gpir.NewALU(gpir.OpAdd)
	gpir.SetALUChild(outer, 0, inner, false)
	gpir.SetALUChild(outer, 1, gpir.NewConst(1), false)

	store := gpir.NewStore(gpir.OpStoreTemp, 0)
	gpir.SetStoreChild(store, 0, outer)
	blk.InsertEnd(store)

	FoldConstants(prog)

	folded := store.StoreChildren[0]
	if folded == nil || folded.Kind != gpir.KindConst || folded.Constant != 9 {
		t.Fatalf("expected (2*4)+1=9 fully folded, got %+v", folded)
	}
}

func TestFoldConstantsF2BMatchesLowering(t *testing.T) {
	prog := gpir.NewProgram()
	blk := prog.NewBlock()
	prog.InsertEnd(blk)

	f2b := gpir.NewALU(gpir.OpF2B)
	gpir.SetALUChild(f2b, 0, gpir.NewConst(0), false)

	store := gpir.NewStore(gpir.OpStoreTemp, 0)
	gpir.SetStoreChild(store, 0, f2b)
	blk.InsertEnd(store)

	FoldConstants(prog)

	folded := store.StoreChildren[0]
	if folded == nil || folded.Kind != gpir.KindConst {
		t.Fatal("expected f2b(0) to fold to a const")
	}
	if folded.Constant != 0 {
		t.Fatalf("f2b(0) must fold to 0, matching its ne(x, 0) lowering, got %v", folded.Constant)
	}
}
