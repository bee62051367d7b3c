// Package xform holds the IR-to-IR transforms: SSA construction, phi
// elimination, if-conversion, constant folding and algebraic lowering over
// GP IR (spec.md §4.3-4.7), plus the PP LIR core-variant intrinsic fixups
// in intrinsics_pp.go. Each GP transform is a free function over
// *gpir.Program (the only IR with the expression-DAG/phi shape SSA
// construction needs); pphir/pplir have no counterparts of them and never
// go through SSA in the first place (spec.md §3 notes PP HIR is built
// directly from the structured front-end walk, not via dominance-based
// renaming).
//
// Grounded on original_source/src/lima/gp_ir/{ssa.c,regs.c} and wazero's
// ssa/pass_cfg.go for the reverse-postorder/idom-by-intersection shape
// (Cooper-Harvey-Kennedy), which both the teacher and the original use.
package xform

import "github.com/limashader/malisc/internal/gpir"

// ComputeRPO returns prog's blocks reachable from the entry in reverse
// postorder and sets prog.RPOValid. It records no positions itself;
// rpoIndex builds the block-to-position map from the returned slice, since
// gpir.Block has no free integer field for this.
func ComputeRPO(prog *gpir.Program) []*gpir.Block {
	visited := make(map[*gpir.Block]bool)
	var post []*gpir.Block
	var visit func(b *gpir.Block)
	visit = func(b *gpir.Block) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range successors(prog, b) {
			visit(s)
		}
		post = append(post, b)
	}
	if len(prog.Blocks) > 0 {
		visit(prog.Blocks[0])
	}
	// Reverse postorder = reverse of postorder.
	rpo := make([]*gpir.Block, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	prog.RPOValid = true
	return rpo
}

// successors returns b's branch targets by inspecting its terminating root
// node, if any (gpir has no dedicated Block.Next field; branch targets live
// on the terminal KindBranch node per spec.md §3).
func successors(prog *gpir.Program, b *gpir.Block) []*gpir.Block {
	last := b.LastRoot()
	if last == nil || last.Kind != gpir.KindBranch {
		return nil
	}
	out := []*gpir.Block{last.Dest}
	if last.Op == gpir.OpBranchCond {
		if fall := fallthroughBlock(prog, b); fall != nil {
			out = append(out, fall)
		}
	}
	return out
}

// fallthroughBlock returns the block immediately following b in program
// order, the implicit second successor of a conditional branch.
func fallthroughBlock(prog *gpir.Program, b *gpir.Block) *gpir.Block {
	for i, blk := range prog.Blocks {
		if blk == b && i+1 < len(prog.Blocks) {
			return prog.Blocks[i+1]
		}
	}
	return nil
}

// rpoIndex builds a map from block to its reverse-postorder position, used
// by the dominance intersection algorithm below.
func rpoIndex(rpo []*gpir.Block) map[*gpir.Block]int {
	idx := make(map[*gpir.Block]int, len(rpo))
	for i, b := range rpo {
		idx[b] = i
	}
	return idx
}

// ComputeDominance runs the Cooper-Harvey-Kennedy fixed-point algorithm
// (spec.md §4.3) and populates each block's ImmDominator, then derives
// DominanceFrontier and DomTreeChildren.
func ComputeDominance(prog *gpir.Program) {
	computePreds(prog)
	rpo := ComputeRPO(prog)
	if len(rpo) == 0 {
		return
	}
	order := rpoIndex(rpo)
	entry := rpo[0]
	entry.ImmDominator = entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			var newIdom *gpir.Block
			for _, p := range b.Preds {
				if p.ImmDominator == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, order)
			}
			if newIdom != b.ImmDominator {
				b.ImmDominator = newIdom
				changed = true
			}
		}
	}

	for _, b := range rpo {
		b.DominanceFrontier = nil
		b.DomTreeChildren = nil
	}
	for _, b := range rpo {
		if b.ImmDominator != nil && b.ImmDominator != b {
			b.ImmDominator.DomTreeChildren = append(b.ImmDominator.DomTreeChildren, b)
		}
	}

	// Dominance frontier: for each join block b with >=2 preds, walk each
	// predecessor's idom chain up to (but not including) b's idom, adding
	// b to every block visited along the way (spec.md §4.3).
	for _, b := range rpo {
		if len(b.Preds) < 2 {
			continue
		}
		for _, p := range b.Preds {
			runner := p
			for runner != b.ImmDominator && runner != nil {
				runner.DominanceFrontier = appendUnique(runner.DominanceFrontier, b)
				if runner.ImmDominator == runner {
					break
				}
				runner = runner.ImmDominator
			}
		}
	}
}

// Successors returns b's branch targets, exported so internal/liveness and
// internal/sched can walk the CFG without recomputing dominance.
func Successors(prog *gpir.Program, b *gpir.Block) []*gpir.Block {
	return successors(prog, b)
}

// ComputePreds rebuilds every block's Preds list from branch terminators,
// exported for the same reason as Successors.
func ComputePreds(prog *gpir.Program) {
	computePreds(prog)
}

// computePreds rebuilds every block's predecessor list from the CFG edges
// implied by branch terminators, since gpir's node-DAG link operations
// (spec.md §4.2) only maintain forward child/parent edges, not block-level
// control flow.
func computePreds(prog *gpir.Program) {
	for _, b := range prog.Blocks {
		b.Preds = nil
	}
	for _, b := range prog.Blocks {
		for _, s := range successors(prog, b) {
			s.Preds = append(s.Preds, b)
		}
	}
}

func intersect(a, b *gpir.Block, order map[*gpir.Block]int) *gpir.Block {
	for a != b {
		for order[a] > order[b] {
			a = a.ImmDominator
		}
		for order[b] > order[a] {
			b = b.ImmDominator
		}
	}
	return a
}

func appendUnique(list []*gpir.Block, b *gpir.Block) []*gpir.Block {
	for _, x := range list {
		if x == b {
			return list
		}
	}
	return append(list, b)
}
