package gpir

// Block is a GP IR basic block: an ordered list of root nodes (store,
// store-reg, branch statements), a set of phi nodes, and the dominance state
// internal/xform populates in place (liveness and register allocation keep
// their results in side tables instead; see node.go). Grounded on gp_ir.h's
// lima_gp_ir_block_t.
type Block struct {
	Index int

	rootHead, rootTail *Node
	numRoots           int
	phis               []*Node // Kind == KindPhi

	Preds []*Block
	prog  *Program

	// predIndices holds Preds' not-yet-resolved block indices between
	// ImportProgram allocating every block and wiring Preds pointers once
	// all blocks exist; see serialize.go.
	predIndices []uint32

	// Dominance info, populated by internal/xform's SSA-construction pass
	// (mirroring this package's Program rather than living in internal/xform
	// since many later passes need it too).
	ImmDominator    *Block
	DominanceFrontier []*Block
	DomTreeChildren   []*Block

	// Scheduling info (spec.md §3).
	StartNodes []*Node // no preds in the dep graph.
	EndNodes   []*Node // no succs in the dep graph.
}

// Roots returns the block's root nodes in program order.
func (b *Block) Roots() []*Node {
	out := make([]*Node, 0, b.numRoots)
	for n := b.rootHead; n != nil; n = n.next {
		out = append(out, n)
	}
	return out
}

// NumRoots returns the number of root nodes currently in the block.
func (b *Block) NumRoots() int { return b.numRoots }

// Phis returns the block's phi nodes.
func (b *Block) Phis() []*Node { return b.phis }

// IsEmpty reports whether the block has no root nodes.
func (b *Block) IsEmpty() bool { return b.rootHead == nil }

// FirstRoot / LastRoot return the head/tail root node, or nil if empty.
func (b *Block) FirstRoot() *Node { return b.rootHead }
func (b *Block) LastRoot() *Node  { return b.rootTail }

// InsertStart inserts n at the head of the block's root-node list.
func (b *Block) InsertStart(n *Node) {
	n.block = b
	n.prev = nil
	n.next = b.rootHead
	if b.rootHead != nil {
		b.rootHead.prev = n
	} else {
		b.rootTail = n
	}
	b.rootHead = n
	b.numRoots++
	recomputeSuccessor(n)
}

// InsertEnd inserts n at the tail of the block's root-node list.
func (b *Block) InsertEnd(n *Node) {
	n.block = b
	n.next = nil
	n.prev = b.rootTail
	if b.rootTail != nil {
		b.rootTail.next = n
	} else {
		b.rootHead = n
	}
	b.rootTail = n
	b.numRoots++
	recomputeSuccessor(n)
}

// InsertAfter inserts n immediately after after.
func (b *Block) InsertAfter(n, after *Node) {
	n.block = b
	n.prev = after
	n.next = after.next
	if after.next != nil {
		after.next.prev = n
	} else {
		b.rootTail = n
	}
	after.next = n
	b.numRoots++
	recomputeSuccessor(n)
}

// InsertBefore inserts n immediately before before.
func (b *Block) InsertBefore(n, before *Node) {
	n.block = b
	n.next = before
	n.prev = before.prev
	if before.prev != nil {
		before.prev.next = n
	} else {
		b.rootHead = n
	}
	before.prev = n
	b.numRoots++
	recomputeSuccessor(n)
}

// removeRoot splices n out of the block's root list without touching its
// children; Delete calls this after unlinking children.
func (b *Block) removeRoot(n *Node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		b.rootHead = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		b.rootTail = n.prev
	}
	n.prev, n.next, n.block = nil, nil, nil
	b.numRoots--
}

// Replace swaps old for new in the root list in place.
func (b *Block) Replace(old, new *Node) {
	new.block = b
	new.prev, new.next = old.prev, old.next
	if old.prev != nil {
		old.prev.next = new
	} else {
		b.rootHead = new
	}
	if old.next != nil {
		old.next.prev = new
	} else {
		b.rootTail = new
	}
	old.prev, old.next, old.block = nil, nil, nil
}

// InsertPhi adds a phi node to the block's phi set.
func (b *Block) InsertPhi(p *Node) {
	p.PhiBlock = b
	b.phis = append(b.phis, p)
}

func (b *Block) removePhi(p *Node) {
	for i, q := range b.phis {
		if q == p {
			b.phis = append(b.phis[:i], b.phis[i+1:]...)
			return
		}
	}
}

// RemovePhi removes p from the block's phi list; used by internal/xform's
// phi-elimination pass once p has been replaced by explicit copies.
func (b *Block) RemovePhi(p *Node) { b.removePhi(p) }

// RemoveRoot detaches n from the block's root list without touching its
// children's links, leaving n free to be reinserted elsewhere (e.g. by
// internal/xform's if-conversion pass when it concatenates blocks). Callers
// that instead want n fully deleted should use Delete.
func (b *Block) RemoveRoot(n *Node) { b.removeRoot(n) }

// PredIndex returns the index of from within b.Preds, or -1 if from is not
// a predecessor of b; used to locate the matching phi-source slot when
// patching uses during SSA renaming (spec.md §4.3).
func (b *Block) PredIndex(from *Block) int {
	for i, p := range b.Preds {
		if p == from {
			return i
		}
	}
	return -1
}
