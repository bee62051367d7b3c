package gpir

// This file implements the five polymorphic node operations of spec.md
// §4.2 (child-iter, delete, link, unlink, replace) plus successor
// recomputation. Grounded on gp_ir_node_link/unlink/replace_child/replace in
// node.c; since Go has no vtable-free generic "slot" abstraction as cheap as
// the original's function-pointer table, each operation switches on Kind
// directly rather than going through Children()'s read-only slice.

// Link registers parent as a consumer of child and recomputes child's
// successor if the new parent tightens the earliest-use root (spec.md
// §4.2). Callers must have already placed child into one of parent's child
// slots (via the NewXxx constructors or SetXxxChild helpers below) before
// calling Link, matching the original's contract that parent is already
// part of a program.
func Link(parent, child *Node) {
	child.Parents.add(parent)
	recomputeSuccessor(child)
}

// Unlink removes parent from child's parent set. The caller must have
// already cleared the slot in parent that referenced child. If child has no
// remaining parents it is deleted (recursively unlinking its own children);
// otherwise its successor is re-derived from the remaining parents.
func Unlink(parent, child *Node) {
	child.Parents.remove(parent)
	if child.Parents.len() == 0 {
		Delete(child)
	} else {
		recomputeSuccessor(child)
	}
}

// recomputeSuccessor re-derives n.successor as the earliest root node
// reachable via any parent chain (spec.md §3 invariant). A node with no
// parents and that is not itself a root has no successor. A change is
// carried down to n's children, so nodes built bottom-up before their root
// was placed pick up that root once it is.
func recomputeSuccessor(n *Node) {
	if n.IsRoot() {
		n.successor = n
		for _, c := range n.Children() {
			recomputeSuccessor(c)
		}
		return
	}
	var earliest *Node
	n.Parents.forEach(func(p *Node) {
		var s *Node
		if p.IsRoot() {
			s = p
		} else {
			s = p.successor
		}
		if s == nil {
			return
		}
		if earliest == nil || rootOrder(s) < rootOrder(earliest) {
			earliest = s
		}
	})
	if n.successor == earliest {
		return
	}
	n.successor = earliest
	for _, c := range n.Children() {
		recomputeSuccessor(c)
	}
}

// rootOrder returns a root node's position within its block's statement
// list, used only to compare "earliest" among candidate successors that
// live in the same block during construction. Root nodes produced by
// distinct blocks are never compared against each other in well-formed
// programs (a node's parents all live in the same block as the node). A root
// not yet inserted into any block ranks after every inserted root.
func rootOrder(r *Node) int {
	if r.block == nil {
		return int(^uint(0) >> 1)
	}
	i := 0
	for cur := r.block.rootHead; cur != nil; cur = cur.next {
		if cur == r {
			return i
		}
		i++
	}
	return -1
}

// Delete detaches n from all of its children (unlinking each, which may
// recursively delete now-orphaned grandchildren) and removes n from its
// block's root-node list if it is a root node. Delete tolerates being
// called while a caller is mid-walk over a block's root-node list, since it
// only ever touches n's own prev/next pointers and the neighbors it is
// spliced between.
func Delete(n *Node) {
	for _, c := range n.Children() {
		clearChildSlot(n, c)
		Unlink(n, c)
	}
	switch n.Kind {
	case KindLoadReg:
		if n.Reg != nil {
			n.Reg.RemoveUse(n)
		}
	case KindStoreReg:
		if n.StoreReg != nil {
			n.StoreReg.RemoveDef(n)
		}
	}
	if n.IsRoot() && n.block != nil {
		n.block.removeRoot(n)
	}
	if n.Kind == KindPhi && n.PhiBlock != nil {
		n.PhiBlock.removePhi(n)
		if n.PhiDest != nil {
			n.PhiDest.RemoveDef(n)
		}
	}
}

// clearChildSlot nils out whichever slot(s) of parent hold child, without
// touching child.Parents (the caller, Delete, immediately calls Unlink which
// does that).
func clearChildSlot(parent, child *Node) {
	switch parent.Kind {
	case KindALU:
		for i := range parent.ALUChildren {
			if parent.ALUChildren[i] == child {
				parent.ALUChildren[i] = nil
			}
		}
	case KindClampConst:
		if parent.ClampChild == child {
			parent.ClampChild = nil
		}
	case KindLoad:
		if parent.OffsetNode == child {
			parent.OffsetNode = nil
		}
	case KindLoadReg:
		if parent.LoadRegOffset == child {
			parent.LoadRegOffset = nil
		}
	case KindStore:
		for i := range parent.StoreChildren {
			if parent.StoreChildren[i] == child {
				parent.StoreChildren[i] = nil
			}
		}
		if parent.Addr == child {
			parent.Addr = nil
		}
	case KindStoreReg:
		for i := range parent.StoreChildren {
			if parent.StoreChildren[i] == child {
				parent.StoreChildren[i] = nil
			}
		}
	case KindBranch:
		if parent.Condition == child {
			parent.Condition = nil
		}
	}
}

// Replace redirects every parent of old to point to new instead (spec.md
// §4.2). old's remaining parent set becomes empty as a result and old is
// then deleted, unlinking it from each of its own children exactly as
// Unlink does when the last parent departs.
func Replace(old, new *Node) {
	parents := old.Parents.slice()
	for _, p := range parents {
		replaceChildInParent(p, old, new)
		old.Parents.remove(p)
		new.Parents.add(p)
	}
	recomputeSuccessor(new)
	if old.Parents.len() == 0 {
		Delete(old)
	}
}

func replaceChildInParent(parent, old, new *Node) {
	switch parent.Kind {
	case KindALU:
		for i := range parent.ALUChildren {
			if parent.ALUChildren[i] == old {
				parent.ALUChildren[i] = new
			}
		}
	case KindClampConst:
		if parent.ClampChild == old {
			parent.ClampChild = new
		}
	case KindLoad:
		if parent.OffsetNode == old {
			parent.OffsetNode = new
		}
	case KindLoadReg:
		if parent.LoadRegOffset == old {
			parent.LoadRegOffset = new
		}
	case KindStore:
		for i := range parent.StoreChildren {
			if parent.StoreChildren[i] == old {
				parent.StoreChildren[i] = new
			}
		}
		if parent.Addr == old {
			parent.Addr = new
		}
	case KindStoreReg:
		for i := range parent.StoreChildren {
			if parent.StoreChildren[i] == old {
				parent.StoreChildren[i] = new
			}
		}
	case KindBranch:
		if parent.Condition == old {
			parent.Condition = new
		}
	default:
		panic("bug: replace target has no child slots")
	}
}
