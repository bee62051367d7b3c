package xform

import "github.com/limashader/malisc/internal/gpir"

// ConstructSSA runs GP IR SSA construction end to end (spec.md §4.3):
// dominance, iterated-dominance-frontier phi placement, and dominator-tree
// renaming. Grounded on original_source's ssa.c insert_phi_nodes/rename
// pair, rewritten here as three explicit top-level passes since Go favors
// named stages over a single recursive C function juggling multiple
// concerns.
func ConstructSSA(prog *gpir.Program) {
	ComputeDominance(prog)
	placePhis(prog)
	renameRegisters(prog)
	pruneUnreferencedRegs(prog)
}

// defBlocks returns, for every register, the set of blocks containing a
// root node or phi that defines it.
func defBlocks(prog *gpir.Program) map[*gpir.Register]map[*gpir.Block]bool {
	out := make(map[*gpir.Register]map[*gpir.Block]bool)
	add := func(r *gpir.Register, b *gpir.Block) {
		m, ok := out[r]
		if !ok {
			m = make(map[*gpir.Block]bool)
			out[r] = m
		}
		m[b] = true
	}
	for _, b := range prog.Blocks {
		for _, root := range b.Roots() {
			if root.Kind == gpir.KindStoreReg {
				add(root.StoreReg, b)
			}
		}
		for _, phi := range b.Phis() {
			add(phi.PhiDest, b)
		}
	}
	return out
}

// placePhis computes the iterated dominance frontier of each register's
// definition set and inserts a phi node at the head of every frontier
// block that does not already have one, with one source slot per
// predecessor pointing at the register itself (spec.md §4.3).
func placePhis(prog *gpir.Program) {
	defs := defBlocks(prog)
	for reg, defSet := range defs {
		hasPhiIn := make(map[*gpir.Block]bool)
		worklist := make([]*gpir.Block, 0, len(defSet))
		for b := range defSet {
			worklist = append(worklist, b)
		}
		for len(worklist) > 0 {
			b := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for _, f := range b.DominanceFrontier {
				if hasPhiIn[f] {
					continue
				}
				hasPhiIn[f] = true
				phi := gpir.NewPhi(reg, len(f.Preds))
				for i, p := range f.Preds {
					phi.PhiSources[i] = gpir.PhiSrc{Reg: reg, Pred: p}
				}
				f.InsertPhi(phi)
				if !defSet[f] {
					worklist = append(worklist, f)
				}
			}
		}
	}
}

// renameRegisters performs the dominator-tree depth-first renaming pass:
// every phi and register-store pushes a fresh register version on block
// entry, uses are rewritten to the stack top, and versions are popped on
// block exit (spec.md §4.3).
func renameRegisters(prog *gpir.Program) {
	stacks := make(map[*gpir.Register][]*gpir.Register)
	push := func(r *gpir.Register) *gpir.Register {
		fresh := prog.NewReg(r.Size)
		stacks[r] = append(stacks[r], fresh)
		return fresh
	}
	pop := func(r *gpir.Register) {
		s := stacks[r]
		stacks[r] = s[:len(s)-1]
	}
	top := func(r *gpir.Register) *gpir.Register {
		s := stacks[r]
		if len(s) == 0 {
			return r
		}
		return s[len(s)-1]
	}

	var walk func(b *gpir.Block)
	walk = func(b *gpir.Block) {
		pushed := make([]*gpir.Register, 0, 8)

		for _, phi := range b.Phis() {
			orig := phi.PhiDest
			fresh := push(orig)
			orig.RemoveDef(phi)
			fresh.AddDef(phi)
			phi.PhiDest = fresh
			pushed = append(pushed, orig)
		}

		for _, root := range b.Roots() {
			renameUses(root, top)
			if root.Kind == gpir.KindStoreReg {
				orig := root.StoreReg
				fresh := push(orig)
				orig.RemoveDef(root)
				fresh.AddDef(root)
				root.StoreReg = fresh
				pushed = append(pushed, orig)
			}
		}

		for _, s := range successorsOf(prog, b) {
			idx := s.PredIndex(b)
			if idx < 0 {
				continue
			}
			for _, phi := range s.Phis() {
				phi.PhiSources[idx].Reg = top(phi.PhiSources[idx].Reg)
			}
		}

		for _, child := range b.DomTreeChildren {
			walk(child)
		}

		for _, orig := range pushed {
			pop(orig)
		}
	}

	if len(prog.Blocks) > 0 {
		walk(prog.Blocks[0])
	}
}

// successorsOf exposes the package-private successors() helper under a
// name distinguishable from Block's own (absent) Successors method.
func successorsOf(prog *gpir.Program, b *gpir.Block) []*gpir.Block {
	return successors(prog, b)
}

// renameUses rewrites every KindLoadReg node reachable from root (via
// children, recursively) to read the current stack-top version of its
// register.
func renameUses(n *gpir.Node, top func(*gpir.Register) *gpir.Register) {
	visited := make(map[*gpir.Node]bool)
	var visit func(n *gpir.Node)
	visit = func(n *gpir.Node) {
		if n == nil || visited[n] {
			return
		}
		visited[n] = true
		if n.Kind == gpir.KindLoadReg {
			newReg := top(n.Reg)
			if newReg != n.Reg {
				n.Reg.RemoveUse(n)
				newReg.AddUse(n)
				n.Reg = newReg
			}
		}
		for _, c := range n.Children() {
			visit(c)
		}
	}
	visit(n)
}

// pruneUnreferencedRegs removes registers with no remaining defs or uses
// and compacts indices (spec.md §4.3, "after renaming... pruned and
// indices are compacted").
func pruneUnreferencedRegs(prog *gpir.Program) {
	prog.CompactRegs()
}
