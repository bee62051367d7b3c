package gpir

// Register is a virtual register (spec.md §3, "Register (virtual)"):
// a numbered, size-1-to-4 value with the set of defs/uses that reference it
// and an optional physical-register assignment. Grounded on gp_ir.h's
// lima_gp_ir_reg_t.
type Register struct {
	Index uint32
	Size  int // 1..4 components.

	// Beginning demands component-0 alignment within its allocated
	// physical slot (spec.md §3); set for registers used as the base of a
	// vector swizzle that cannot be sub-offset.
	Beginning bool

	PhysRegAssigned bool
	PhysReg         int // 0..15 (GP has 16 vec4 banks); see internal/regalloc.
	PhysRegOffset   int // sub-component offset within PhysReg's vec4.

	Uses *nodeSet
	Defs *nodeSet

	prog *Program
}

// AddUse records that n reads reg; kept in lock-step with reg appearing in
// n's operand slots (spec.md §3 invariant: "every use of a register is in
// reg.uses").
func (r *Register) AddUse(n *Node) { r.Uses.add(n) }

// RemoveUse undoes AddUse.
func (r *Register) RemoveUse(n *Node) { r.Uses.remove(n) }

// AddDef records that n defines reg.
func (r *Register) AddDef(n *Node) { r.Defs.add(n) }

// RemoveDef undoes AddDef.
func (r *Register) RemoveDef(n *Node) { r.Defs.remove(n) }

// NumUses/NumDefs report the size of reg's use/def sets; exported for
// internal/regalloc's spill-cost calculation, which lives outside this
// package and so cannot call nodeSet's own unexported len().
func (r *Register) NumUses() int { return r.Uses.len() }
func (r *Register) NumDefs() int { return r.Defs.len() }

// UsesSlice/DefsSlice return snapshots of reg's use/def nodes; exported for
// internal/regalloc's spill rewrite, which must iterate a stable copy while
// replacing each node in turn.
func (r *Register) UsesSlice() []*Node { return r.Uses.slice() }
func (r *Register) DefsSlice() []*Node { return r.Defs.slice() }

// IsUnreferenced reports whether reg has no remaining defs or uses, meaning
// it is a candidate for compaction on the next cleanup pass (spec.md §5).
func (r *Register) IsUnreferenced() bool {
	return r.Defs.len() == 0 && r.Uses.len() == 0
}

// nodeSet is a tiny insertion-order-preserving set of *Node, used for
// Register.Uses/Defs and Node.Parents/Preds/Succs. A map alone would lose
// the deterministic iteration order the scheduler and exporter rely on;
// original_source's ptrset_t has the same property (backed by a growable
// array plus a hash index).
type nodeSet struct {
	order []*Node
	index map[*Node]int
}

func newNodeSet() *nodeSet {
	return &nodeSet{index: make(map[*Node]int)}
}

func (s *nodeSet) add(n *Node) bool {
	if _, ok := s.index[n]; ok {
		return false
	}
	s.index[n] = len(s.order)
	s.order = append(s.order, n)
	return true
}

func (s *nodeSet) remove(n *Node) bool {
	i, ok := s.index[n]
	if !ok {
		return false
	}
	last := len(s.order) - 1
	s.order[i] = s.order[last]
	s.index[s.order[i]] = i
	s.order = s.order[:last]
	delete(s.index, n)
	return true
}

func (s *nodeSet) has(n *Node) bool {
	_, ok := s.index[n]
	return ok
}

func (s *nodeSet) len() int { return len(s.order) }

func (s *nodeSet) forEach(f func(*Node)) {
	for _, n := range s.order {
		f(n)
	}
}

func (s *nodeSet) slice() []*Node {
	out := make([]*Node, len(s.order))
	copy(out, s.order)
	return out
}
