package xform

import "github.com/limashader/malisc/internal/gpir"

// EliminatePhis lowers every phi in prog out of SSA form (spec.md §4.4);
// it handles GP IR only, and PP HIR has no counterpart pass. Two steps:
// first each phi is replaced by explicit copies (a destination copy at the
// head of its block, one source copy at the end of each predecessor);
// second, every register touched by a phi web is fused to one common
// register via union-find, after which the now-trivial self-copies are
// deleted.
func EliminatePhis(prog *gpir.Program) {
	uf := newRegUnion()

	for _, b := range prog.Blocks {
		for _, phi := range b.Phis() {
			eliminateOnePhi(prog, b, phi, uf)
		}
		// Phis is read fully before mutation below removes them; clear here.
		for _, phi := range append([]*gpir.Node(nil), b.Phis()...) {
			b.RemovePhi(phi)
		}
	}

	fuseRegisters(prog, uf)
	removeSelfCopies(prog)
	prog.CompactRegs()
}

func eliminateOnePhi(prog *gpir.Program, b *gpir.Block, phi *gpir.Node, uf *regUnion) {
	dest := phi.PhiDest
	t := prog.NewReg(dest.Size)
	uf.union(dest, t)

	headCopy := gpir.NewStoreReg(dest)
	gpir.SetStoreRegChild(headCopy, 0, gpir.NewLoadReg(t, 0))
	for i := 1; i < dest.Size; i++ {
		gpir.SetStoreRegChild(headCopy, i, gpir.NewLoadReg(t, uint8(i)))
	}
	b.InsertStart(headCopy)

	for _, src := range phi.PhiSources {
		pred := src.Pred
		tailCopy := gpir.NewStoreReg(t)
		for c := 0; c < dest.Size; c++ {
			gpir.SetStoreRegChild(tailCopy, c, gpir.NewLoadReg(src.Reg, uint8(c)))
		}
		insertBeforeTerminator(pred, tailCopy)
	}
}

// insertBeforeTerminator inserts n at the end of b, but before a trailing
// branch root node if one is present.
func insertBeforeTerminator(b *gpir.Block, n *gpir.Node) {
	last := b.LastRoot()
	if last != nil && last.Kind == gpir.KindBranch {
		b.InsertBefore(n, last)
		return
	}
	b.InsertEnd(n)
}

// regUnion is a union-find over *gpir.Register used to fuse phi webs.
type regUnion struct {
	parent map[*gpir.Register]*gpir.Register
}

func newRegUnion() *regUnion {
	return &regUnion{parent: make(map[*gpir.Register]*gpir.Register)}
}

func (u *regUnion) find(r *gpir.Register) *gpir.Register {
	p, ok := u.parent[r]
	if !ok {
		u.parent[r] = r
		return r
	}
	if p == r {
		return r
	}
	root := u.find(p)
	u.parent[r] = root
	return root
}

func (u *regUnion) union(a, b *gpir.Register) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// fuseRegisters rewrites every LoadReg/StoreReg in prog to reference the
// union-find representative of its register, merging their def/use sets.
func fuseRegisters(prog *gpir.Program, uf *regUnion) {
	if len(uf.parent) == 0 {
		return
	}
	for _, b := range prog.Blocks {
		for _, root := range b.Roots() {
			walkFuse(root, uf)
		}
	}
}

func walkFuse(n *gpir.Node, uf *regUnion) {
	visited := make(map[*gpir.Node]bool)
	var visit func(n *gpir.Node)
	visit = func(n *gpir.Node) {
		if n == nil || visited[n] {
			return
		}
		visited[n] = true
		switch n.Kind {
		case gpir.KindLoadReg:
			rep := uf.find(n.Reg)
			if rep != n.Reg {
				n.Reg.RemoveUse(n)
				rep.AddUse(n)
				n.Reg = rep
			}
		case gpir.KindStoreReg:
			rep := uf.find(n.StoreReg)
			if rep != n.StoreReg {
				n.StoreReg.RemoveDef(n)
				rep.AddDef(n)
				n.StoreReg = rep
			}
		}
		for _, c := range n.Children() {
			visit(c)
		}
	}
	visit(n)
}

// removeSelfCopies deletes any store_reg root node all of whose live
// children are load_reg reads of the same register it defines — the
// trivial copies phi fusion leaves behind (spec.md §4.4).
func removeSelfCopies(prog *gpir.Program) {
	for _, b := range prog.Blocks {
		for _, root := range append([]*gpir.Node(nil), b.Roots()...) {
			if root.Kind != gpir.KindStoreReg {
				continue
			}
			if isSelfCopy(root) {
				gpir.Delete(root)
			}
		}
	}
}

func isSelfCopy(store *gpir.Node) bool {
	for i := 0; i < store.StoreReg.Size; i++ {
		if !store.Mask[i] {
			continue
		}
		c := store.StoreChildren[i]
		if c == nil || c.Kind != gpir.KindLoadReg || c.Reg != store.StoreReg {
			return false
		}
	}
	return true
}
