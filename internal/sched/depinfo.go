// Package sched implements the GP/PP scheduling back end: the
// dependency-info builder and critical-path walk (spec.md §4.10), the GP
// linear-to-scheduled bundle packer (§4.11), and PP bundle combining and
// peepholes (§4.12, §4.13). Grounded on
// original_source/src/lima/gp_ir/{dep_info,scheduler_helper}.c for the GP
// side and original_source/src/lima/pp_lir/{linear_to_scheduled,peephole}.c
// for the PP side.
package sched

import "github.com/limashader/malisc/internal/gpir"

// edgeTag carries the two booleans a dependency edge needs beyond its
// (pred, succ) pair to compute min/max cycle distance: whether it's a
// child-expression dependency (as opposed to a register/temp
// read-write/write-write ordering edge) and, for those, whether it targets
// a store_temp's address child specifically. Kept in a side map rather than
// on gpir.Node's Preds/Succs sets directly, since those are plain node sets
// (shared with Node.Parents) with no room for per-edge metadata.
type edgeTag struct {
	isChildDep bool
	isOffset   bool
}

// DepGraph is the per-program dependency-edge tag table BuildGP produces;
// every edge it describes is also recorded in the edge's two endpoint
// nodes' Preds/Succs sets for iteration.
type DepGraph struct {
	tags map[[2]*gpir.Node]edgeTag
}

func newDepGraph() *DepGraph { return &DepGraph{tags: map[[2]*gpir.Node]edgeTag{}} }

func (g *DepGraph) addEdge(pred, succ *gpir.Node, isChildDep, isOffset bool) {
	key := [2]*gpir.Node{pred, succ}
	if _, ok := g.tags[key]; ok {
		return
	}
	g.tags[key] = edgeTag{isChildDep: isChildDep, isOffset: isOffset}
	pred.AddSucc(succ)
	succ.AddPred(pred)
}

func (g *DepGraph) hasEdge(pred, succ *gpir.Node) bool {
	_, ok := g.tags[[2]*gpir.Node{pred, succ}]
	return ok
}

// indirectDep reports whether a dependency chain pred -> x -> succ exists,
// used to tell whether a read already separates two writes to the same
// register/temp before adding a write-after-write edge between them
// (original_source's indirect_dep).
func (g *DepGraph) indirectDep(pred, succ *gpir.Node) bool {
	for _, x := range pred.SuccNodes() {
		if g.hasEdge(x, succ) {
			return true
		}
	}
	return false
}

// BuildGP computes the dependency graph, start/end node sets and policy
// ordering edges for every block of prog (spec.md §4.10).
func BuildGP(prog *gpir.Program) *DepGraph {
	g := newDepGraph()
	for _, b := range prog.Blocks {
		for _, root := range b.Roots() {
			insertRootNodeDeps(g, root)
		}
		calcStartEndNodes(b)
		makeBranchLast(g, b)
		makeVaryingZeroLast(g, b)
	}
	return g
}

// insertRootNodeDeps walks root's expression DAG adding child-dep edges,
// then the register/temp read-write anti-dependencies that hang off
// load_reg/load_temp leaves, then (if root is itself a store) the
// write-after-write edge to the nearest prior conflicting store.
func insertRootNodeDeps(g *DepGraph, root *gpir.Node) {
	visited := map[*gpir.Node]bool{}
	var walk func(n *gpir.Node)
	walk = func(n *gpir.Node) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, child := range n.Children() {
			isOffset := n.Kind == gpir.KindStore && n.Op == gpir.OpStoreTemp && child == n.Addr
			g.addEdge(child, n, true, isOffset)
			walk(child)
		}
		if n.Kind == gpir.KindLoadReg {
			insertRegDeps(g, n)
		}
		if n.Kind == gpir.KindLoad && n.Op == gpir.OpLoadTemp {
			insertTempReadDeps(g, n)
		}
	}
	walk(root)

	switch {
	case root.Kind == gpir.KindStore && root.Op == gpir.OpStoreTemp:
		insertTempWriteDeps(g, root)
	case root.Kind == gpir.KindStoreReg:
		insertRegWriteDeps(g, root)
	}
}

func isSameReg(a, b *gpir.Register) bool {
	if a.PhysRegAssigned && b.PhysRegAssigned {
		return a.PhysReg == b.PhysReg
	}
	if !a.PhysRegAssigned && !b.PhysRegAssigned {
		return a.Index == b.Index
	}
	return false
}

// insertRegDeps adds the nearest-following write-after-read edge (into the
// next store_reg writing load's component) and nearest-preceding
// read-after-write edge (from the last store_reg to the same register) for
// a load_reg node (original_source's insert_reg_dependencies).
func insertRegDeps(g *DepGraph, load *gpir.Node) {
	succ := load.Successor()
	if succ == nil || succ.Block() == nil {
		return
	}
	roots := succ.Block().Roots()
	start := indexOf(roots, succ)
	for i := start; i < len(roots); i++ {
		n := roots[i]
		if n.Kind == gpir.KindStoreReg && isSameReg(n.StoreReg, load.Reg) && n.Mask[load.Component] {
			g.addEdge(load, n, false, false)
			break
		}
	}
	for i := start - 1; i >= 0; i-- {
		n := roots[i]
		if n.Kind == gpir.KindStoreReg && n.StoreReg == load.Reg {
			g.addEdge(n, load, false, false)
			break
		}
	}
}

// insertTempReadDeps is insertRegDeps' analogue for load_temp against
// store_temp (original_source's insert_temp_read_deps; the comment there
// notes it over-approximates by ignoring the temp index, same here).
func insertTempReadDeps(g *DepGraph, load *gpir.Node) {
	succ := load.Successor()
	if succ == nil || succ.Block() == nil {
		return
	}
	roots := succ.Block().Roots()
	start := indexOf(roots, succ)
	for i := start; i < len(roots); i++ {
		n := roots[i]
		if n.Kind == gpir.KindStore && n.Op == gpir.OpStoreTemp {
			g.addEdge(load, n, false, false)
			break
		}
	}
	for i := start - 1; i >= 0; i-- {
		n := roots[i]
		if n.Kind == gpir.KindStore && n.Op == gpir.OpStoreTemp {
			g.addEdge(n, load, false, false)
			break
		}
	}
}

func insertRegWriteDeps(g *DepGraph, store *gpir.Node) {
	roots := store.Block().Roots()
	start := indexOf(roots, store)
	for i := start - 1; i >= 0; i-- {
		n := roots[i]
		if n.Kind != gpir.KindStoreReg || !isSameReg(n.StoreReg, store.StoreReg) {
			continue
		}
		overlaps := false
		for c := 0; c < 4; c++ {
			if n.Mask[c] && store.Mask[c] {
				overlaps = true
				break
			}
		}
		if !overlaps || g.indirectDep(n, store) {
			continue
		}
		g.addEdge(n, store, false, false)
		break
	}
}

func insertTempWriteDeps(g *DepGraph, store *gpir.Node) {
	roots := store.Block().Roots()
	start := indexOf(roots, store)
	for i := start - 1; i >= 0; i-- {
		n := roots[i]
		if n.Kind != gpir.KindStore || n.Op != gpir.OpStoreTemp {
			continue
		}
		if g.indirectDep(n, store) {
			continue
		}
		g.addEdge(n, store, false, false)
		break
	}
}

func indexOf(roots []*gpir.Node, n *gpir.Node) int {
	for i, r := range roots {
		if r == n {
			return i
		}
	}
	return -1
}

// calcStartEndNodes records, per block, the set of nodes with no
// dependency-graph preds (spec.md §4.10's start-node set, which ranges over
// every node reachable from a root, not just the roots themselves — a leaf
// load or an interior ALU node with no preds is just as much a schedulable
// starting point as a bare root) and the set of root nodes with no succs
// (the end-node set, root-only since only roots are ever DAG sinks;
// original_source's calc_start_nodes/calc_end_nodes).
func calcStartEndNodes(b *gpir.Block) {
	visited := map[*gpir.Node]bool{}
	var start []*gpir.Node
	var walk func(n *gpir.Node)
	walk = func(n *gpir.Node) {
		if visited[n] {
			return
		}
		visited[n] = true
		if n.NumPreds() == 0 {
			start = append(start, n)
		}
		for _, child := range n.Children() {
			walk(child)
		}
	}
	var end []*gpir.Node
	for _, n := range b.Roots() {
		walk(n)
		if len(n.SuccNodes()) == 0 {
			end = append(end, n)
		}
	}
	b.StartNodes = start
	b.EndNodes = end
}

// makeBranchLast forces every other end-node to precede a block-final
// unconditional/conditional branch by adding a dependency edge from it.
func makeBranchLast(g *DepGraph, b *gpir.Block) {
	last := b.LastRoot()
	if last == nil || (last.Kind != gpir.KindBranch) {
		return
	}
	forceLast(g, b, last)
}

// makeVaryingZeroLast forces every other end-node to precede a
// store_varying targeting varying index 0, mirroring the binary compiler's
// own expectation (original_source's make_varying_zero_last).
func makeVaryingZeroLast(g *DepGraph, b *gpir.Block) {
	var varyingZero *gpir.Node
	for _, n := range b.EndNodes {
		if n.Kind == gpir.KindStore && n.Op == gpir.OpStoreVarying && n.StoreIndex == 0 {
			varyingZero = n
			break
		}
	}
	if varyingZero == nil {
		return
	}
	forceLast(g, b, varyingZero)
}

func forceLast(g *DepGraph, b *gpir.Block, target *gpir.Node) {
	for _, n := range b.EndNodes {
		if n != target {
			g.addEdge(n, target, false, false)
		}
	}
	b.EndNodes = []*gpir.Node{target}
}
