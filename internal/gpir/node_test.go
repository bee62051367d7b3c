package gpir

import "testing"

func buildAdd(a, b *Node) *Node {
	add := NewALU(OpAdd)
	SetALUChild(add, 0, a, false)
	SetALUChild(add, 1, b, false)
	return add
}

func TestLinkMirroredInParentSet(t *testing.T) {
	c1 := NewConst(1)
	c2 := NewConst(2)
	add := buildAdd(c1, c2)

	if !c1.Parents.has(add) {
		t.Fatal("spec invariant: every child->parent link must be mirrored in the child's parent set")
	}
	if !c2.Parents.has(add) {
		t.Fatal("c2 should list add as a parent")
	}
}

func TestUnlinkDeletesOrphan(t *testing.T) {
	c1 := NewConst(1)
	c2 := NewConst(2)
	add := buildAdd(c1, c2)

	clearChildSlot(add, c1)
	Unlink(add, c1)

	if c1.Parents.len() != 0 {
		t.Fatal("c1 should have no parents left")
	}
	// c2 is untouched.
	if !c2.Parents.has(add) {
		t.Fatal("c2's link to add should survive c1 being unlinked")
	}
}

func TestReplaceRedirectsAllParents(t *testing.T) {
	c1 := NewConst(1)
	c2 := NewConst(2)
	add := buildAdd(c1, c2)
	mul := NewALU(OpMul)
	SetALUChild(mul, 0, add, false)
	SetALUChild(mul, 1, add, false) // add referenced twice: mul(add, add).

	replacement := NewConst(42)
	Replace(add, replacement)

	if mul.ALUChildren[0] != replacement || mul.ALUChildren[1] != replacement {
		t.Fatalf("both slots referencing add must be redirected, got %v %v", mul.ALUChildren[0], mul.ALUChildren[1])
	}
	if replacement.Parents.len() != 1 {
		t.Fatalf("mul should appear exactly once in replacement.Parents (ptrset de-dupes), got %d", replacement.Parents.len())
	}
	if add.Parents.len() != 0 {
		t.Fatal("add should have been fully detached")
	}
}

func TestSuccessorIsEarliestRoot(t *testing.T) {
	prog := NewProgram()
	blk := prog.NewBlock()
	prog.InsertEnd(blk)

	c := NewConst(7)
	store1 := NewStore(OpStoreTemp, 0)
	SetStoreChild(store1, 0, c)
	blk.InsertEnd(store1)

	if c.Successor() != store1 {
		t.Fatalf("const's successor should be the only consuming root node")
	}

	store2 := NewStore(OpStoreTemp, 1)
	SetStoreChild(store2, 0, c)
	blk.InsertEnd(store2)

	if c.Successor() != store1 {
		t.Fatalf("successor must remain the earliest consuming root even after a second, later consumer is linked")
	}
}

func TestDeleteRemovesFromBlockRootList(t *testing.T) {
	prog := NewProgram()
	blk := prog.NewBlock()
	prog.InsertEnd(blk)

	c := NewConst(1)
	store := NewStore(OpStoreTemp, 0)
	SetStoreChild(store, 0, c)
	blk.InsertEnd(store)

	if blk.NumRoots() != 1 {
		t.Fatalf("expected 1 root, got %d", blk.NumRoots())
	}
	Delete(store)
	if blk.NumRoots() != 0 {
		t.Fatalf("expected 0 roots after delete, got %d", blk.NumRoots())
	}
	if c.Parents.len() != 0 {
		t.Fatal("deleting the store should unlink its child")
	}
}
