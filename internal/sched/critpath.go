package sched

import "github.com/limashader/malisc/internal/gpir"

const maxDistInf = 1 << 28 // mirrors INT_MAX >> 2: "don't want to overflow".

// isSchedComplex reports whether n's own latency already absorbs an extra
// cycle of issue delay (original_source's is_sched_complex): the four
// multi-instruction transcendental impl ops, the three offset-indexed
// temp-store variants, and a mov scheduled into slot 4 (the complex
// passthrough slot).
func isSchedComplex(n *gpir.Node) bool {
	switch n.Op {
	case gpir.OpExp2Impl, gpir.OpLog2Impl, gpir.OpRcpImpl, gpir.OpRsqrtImpl,
		gpir.OpStoreTempLoadOff0, gpir.OpStoreTempLoadOff1, gpir.OpStoreTempLoadOff2:
		return true
	}
	return n.Op == gpir.OpMov && n.SchedPos == 4
}

func minDistALU(pred *gpir.Node) int {
	switch pred.Op {
	case gpir.OpLoadUniform, gpir.OpLoadTemp, gpir.OpLoadAttribute, gpir.OpLoadReg:
		return 0
	case gpir.OpComplex1:
		return 2
	}
	return 1
}

func maxDistALU(pred, succ *gpir.Node) int {
	switch pred.Op {
	case gpir.OpLoadUniform, gpir.OpLoadTemp:
		return 0
	case gpir.OpLoadAttribute:
		return 1
	case gpir.OpLoadReg:
		if pred.SchedPos == 0 {
			return 0
		}
		return 1
	}
	if succ.Op == gpir.OpComplex1 {
		return 1
	}
	if isSchedComplex(pred) {
		return 1
	}
	return 2
}

// MinDist/MaxDist return a dependency edge's cycle-latency bounds (spec.md
// §4.10): how many cycles must elapse, at minimum/maximum, before succ may
// issue once pred has (original_source's
// lima_gp_ir_dep_info_get_{min,max}_dist). Child-expression edges encode
// real data latency by the successor's op; register/temp ordering edges
// encode the store-to-load pipeline delay, or 1 cycle for any other false
// dependency.
func (g *DepGraph) MinDist(pred, succ *gpir.Node) int {
	tag := g.tags[[2]*gpir.Node{pred, succ}]
	if tag.isChildDep {
		return minDistSwitch(succ, minDistALU(pred), tag.isOffset)
	}
	switch {
	case pred.Kind == gpir.KindStore && pred.Op == gpir.OpStoreTemp && succ.Kind == gpir.KindLoad && succ.Op == gpir.OpLoadTemp:
		return 4
	case pred.Kind == gpir.KindStoreReg && succ.Kind == gpir.KindLoadReg:
		return 3
	case isOffStore(pred) && succ.Op == gpir.OpLoadUniform:
		return 4
	default:
		return 1
	}
}

func isOffStore(n *gpir.Node) bool {
	return n.Op == gpir.OpStoreTempLoadOff0 || n.Op == gpir.OpStoreTempLoadOff1 || n.Op == gpir.OpStoreTempLoadOff2
}

// minDistSwitch dispatches on succ's op the way
// lima_gp_ir_dep_info_get_min_dist's switch does: store_temp's address
// child uses the ALU table, its value children are immediate (0); every
// other store/branch child is immediate; every ALU op uses the table.
func minDistSwitch(succ *gpir.Node, aluDist int, isOffset bool) int {
	switch succ.Kind {
	case gpir.KindStore:
		if succ.Op == gpir.OpStoreTemp && isOffset {
			return aluDist
		}
		return 0
	case gpir.KindStoreReg:
		return 0
	case gpir.KindBranch:
		return aluDist
	default:
		return aluDist
	}
}

func (g *DepGraph) MaxDist(pred, succ *gpir.Node) int {
	tag := g.tags[[2]*gpir.Node{pred, succ}]
	if !tag.isChildDep {
		return maxDistInf
	}
	switch succ.Kind {
	case gpir.KindStore:
		if succ.Op == gpir.OpStoreTemp && tag.isOffset {
			return maxDistALU(pred, succ)
		}
		return 0
	case gpir.KindStoreReg:
		return 0
	default:
		return maxDistALU(pred, succ)
	}
}

// CalcCritPath computes every node's MaxDist field (spec.md §4.10: "forward
// topo-sort; max_dist(n) = max over preds p of max_dist(p) + min_dist(p,n)"),
// processing each block's nodes in a worklist order that only pops a node
// once every dependency-graph predecessor has already been processed.
func (g *DepGraph) CalcCritPath(prog *gpir.Program) {
	for _, b := range prog.Blocks {
		g.calcBlockCritPath(b)
	}
}

func (g *DepGraph) calcBlockCritPath(b *gpir.Block) {
	processing := append([]*gpir.Node(nil), b.StartNodes...)
	processed := map[*gpir.Node]bool{}

	for len(processing) > 0 {
		n := processing[0]
		processing = processing[1:]
		if processed[n] {
			continue
		}

		dist := 0
		for _, p := range n.PredNodes() {
			d := p.MaxDist + g.MinDist(p, n)
			if d > dist {
				dist = d
			}
		}
		n.MaxDist = dist
		processed[n] = true

		for _, s := range n.SuccNodes() {
			if processed[s] {
				continue
			}
			ready := true
			for _, p := range s.PredNodes() {
				if !processed[p] {
					ready = false
					break
				}
			}
			if ready {
				processing = append(processing, s)
			}
		}
	}
}
