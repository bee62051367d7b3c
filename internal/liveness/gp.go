package liveness

import (
	"github.com/limashader/malisc/internal/gpir"
	"github.com/limashader/malisc/internal/xform"
)

// RegMask is a snapshot of per-component liveness across every register
// live at some program point.
type RegMask map[*gpir.Register]Mask

// GPResult holds the fixed-point per-component liveness sets for a GP
// program, keyed by register pointer rather than index since the result
// is typically consumed right after a pass that hasn't compacted registers
// yet (spec.md §4.3's "registers are pruned and compacted" step runs after,
// not before, regalloc).
type GPResult struct {
	BlockIn, BlockOut map[*gpir.Block]RegMask

	// Before/After are the live sets immediately before/after a single root
	// statement (store, store-reg or branch), the granularity
	// internal/regalloc's interference-graph builder needs at each
	// register-store point (spec.md §4.9).
	Before, After map[*gpir.Node]RegMask
}

// LiveBefore/LiveAfter report whether reg's component c is live immediately
// before/after root, per the Before/After side tables.
func (r *GPResult) LiveBefore(root *gpir.Node, reg *gpir.Register, c int) bool {
	return r.Before[root][reg]&(1<<uint(c)) != 0
}
func (r *GPResult) LiveAfter(root *gpir.Node, reg *gpir.Register, c int) bool {
	return r.After[root][reg]&(1<<uint(c)) != 0
}

// ComputeGP runs the backward dataflow of spec.md §4.8 over prog: within a
// block, live_before(n) = (live_after(n) - def(n)) | use(n) walking root
// nodes tail to head; across blocks, a block's live-out is the union of its
// successors' live-in, plus — for every phi at the head of a successor —
// the predecessor-specific source register picks up whatever liveness the
// phi's destination carried into that successor (spec.md §4.8's "block-in
// ... joined with each phi's contribution in successors", read here as: a
// phi's contribution flows backward into whichever predecessor it names).
func ComputeGP(prog *gpir.Program) *GPResult {
	xform.ComputePreds(prog)
	rpo := xform.ComputeRPO(prog)

	res := &GPResult{
		BlockIn:  make(map[*gpir.Block]RegMask),
		BlockOut: make(map[*gpir.Block]RegMask),
		Before:   make(map[*gpir.Node]RegMask),
		After:    make(map[*gpir.Node]RegMask),
	}
	// phiAtTop[b] is the dest-liveness mask computed right after walking b's
	// root statements backward but before b's own phis consume their dest
	// (i.e. what each predecessor must supply through its matching phi
	// source).
	phiAtTop := make(map[*gpir.Block]RegMask)
	for _, b := range prog.Blocks {
		res.BlockIn[b] = RegMask{}
		res.BlockOut[b] = RegMask{}
		phiAtTop[b] = RegMask{}
	}

	changed := true
	for changed {
		changed = false
		for bi := len(rpo) - 1; bi >= 0; bi-- {
			b := rpo[bi]

			out := cloneMask(res.BlockOut[b])
			for _, s := range xform.Successors(prog, b) {
				mergeMask(out, res.BlockIn[s])
				for _, phi := range s.Phis() {
					reg := phiSourceReg(phi, b)
					if reg == nil {
						continue
					}
					out[reg] |= phiAtTop[s][phi.PhiDest]
				}
			}
			if !maskEqual(out, res.BlockOut[b]) {
				res.BlockOut[b] = out
				changed = true
			}

			cur := cloneMask(out)
			roots := b.Roots()
			for ri := len(roots) - 1; ri >= 0; ri-- {
				root := roots[ri]
				res.After[root] = cloneMask(cur)
				applyBackward(cur, root)
				res.Before[root] = cloneMask(cur)
			}

			top := cloneMask(cur)
			if !maskEqual(top, phiAtTop[b]) {
				phiAtTop[b] = top
				changed = true
			}
			for _, phi := range b.Phis() {
				delete(cur, phi.PhiDest)
			}
			if !maskEqual(cur, res.BlockIn[b]) {
				res.BlockIn[b] = cur
				changed = true
			}
		}
	}
	return res
}

// applyBackward mutates cur in place from live_after(root) to
// live_before(root): clear root's own def (store_reg components), then add
// every register component root's expression tree reads.
func applyBackward(cur RegMask, root *gpir.Node) {
	if root.Kind == gpir.KindStoreReg {
		clearComponents(cur, root.StoreReg, root.Mask)
	}
	addUses(cur, root)
}

func clearComponents(cur RegMask, reg *gpir.Register, mask [4]bool) {
	if reg == nil {
		return
	}
	var m Mask
	for c := 0; c < 4; c++ {
		if mask[c] {
			m |= 1 << uint(c)
		}
	}
	cur[reg] &^= m
	if cur[reg] == 0 {
		delete(cur, reg)
	}
}

// addUses walks root's expression DAG (including a branch's condition) and
// marks every load_reg leaf's (register, component) pair live.
func addUses(cur RegMask, root *gpir.Node) {
	visited := make(map[*gpir.Node]bool)
	var visit func(n *gpir.Node)
	visit = func(n *gpir.Node) {
		if n == nil || visited[n] {
			return
		}
		visited[n] = true
		if n.Kind == gpir.KindLoadReg {
			cur[n.Reg] |= 1 << n.Component
		}
		for _, c := range n.Children() {
			visit(c)
		}
	}
	visit(root)
}

func phiSourceReg(phi *gpir.Node, pred *gpir.Block) *gpir.Register {
	for _, src := range phi.PhiSources {
		if src.Pred == pred {
			return src.Reg
		}
	}
	return nil
}

func cloneMask(m RegMask) RegMask {
	out := make(RegMask, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeMask(dst, src RegMask) {
	for k, v := range src {
		dst[k] |= v
	}
}

func maskEqual(a, b RegMask) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
