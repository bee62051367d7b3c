package gpir

// Kind discriminates which payload fields of Node are meaningful. This is
// the Go rendering of gp_ir.h's per-subclass structs
// (lima_gp_ir_alu_node_t, lima_gp_ir_load_node_t, ...), flattened into one
// struct per the package doc's rationale.
type Kind uint8

const (
	KindALU Kind = iota
	KindClampConst
	KindConst
	KindLoad
	KindLoadReg
	KindStore
	KindStoreReg
	KindBranch
	KindPhi
)

// PhiSrc is one source of a phi node: the register live out of Pred.
type PhiSrc struct {
	Reg  *Register
	Pred *Block
}

// Node is a single GP IR expression-DAG node, or (when Op.IsRootNode() or
// Kind == KindPhi) a statement. Grounded on gp_ir.h's lima_gp_ir_node_t plus
// the per-kind subclass structs it documents just below.
//
// Non-root nodes may have multiple parents (spec.md §3, "Node (GP)"); the
// DAG is realized here via ordinary Go pointers rather than an arena-index
// scheme, since Go's GC removes the original's need to free storage
// manually — the design notes' arena alternative exists chiefly to avoid
// manual memory management, which is moot here.
type Node struct {
	Kind Kind
	Op   Op

	Parents *nodeSet

	// successor is the earliest following root node that consumes this
	// node (spec.md §3); nil only for an unreferenced node mid-construction.
	successor *Node

	// Scheduling state, populated by internal/sched.
	Preds, Succs       *nodeSet
	MaxDist            int
	SchedPos           int
	SchedInstr         int // encoded end-to-start; see spec.md §3.

	// --- KindALU ---
	DestNegate     bool
	ALUChildren    [3]*Node
	ChildrenNegate [3]bool

	// --- KindClampConst ---
	IsInlineConst bool
	UniformIndex  uint32
	Low, High     float64
	ClampChild    *Node

	// --- KindConst ---
	Constant float64

	// --- KindLoad (load_uniform/load_temp/load_attribute) ---
	LoadIndex  uint32
	Component  uint8
	HasOffset  bool
	OffsetNode *Node

	// --- KindLoadReg ---
	Reg           *Register
	LoadRegOffset *Node // nil when the load is not indexed.

	// --- KindStore / KindStoreReg (also root nodes) ---
	StoreIndex    uint32
	Mask          [4]bool
	StoreChildren [4]*Node
	Addr          *Node     // temp address, store (non-reg) only.
	StoreReg      *Register // store_reg only.

	// --- KindBranch (root node) ---
	Dest      *Block
	Condition *Node

	// --- KindPhi ---
	PhiBlock   *Block
	PhiSources []PhiSrc
	PhiDest    *Register

	// --- root-node bookkeeping (Store/StoreReg/Branch) ---
	block      *Block
	prev, next *Node // position within block.rootList; nil for non-root nodes.
	IsDead     bool  // dead-code-elimination marker (root nodes and phis).

}

// Liveness and register-allocation interference are not stored on Node
// itself: internal/liveness and internal/regalloc each keep their own
// map[*Node]X (or map[*Block]X) side tables (only the scheduling fields
// above, Preds/Succs/MaxDist/SchedPos/SchedInstr, live on Node and are
// filled in by internal/sched), the way wazero's backend.compiler keeps
// ssaValuesToVRegs/ssaValueDefinitions external to ssa.Value rather than
// growing the SSA IR itself. This keeps gpir free of a dependency on any
// later pass's result type.

// IsRoot reports whether n is a statement (store/store-reg/branch), as
// opposed to a pure expression-DAG node.
func (n *Node) IsRoot() bool {
	return n.Kind == KindStore || n.Kind == KindStoreReg || n.Kind == KindBranch
}

// Successor returns the earliest following root node that consumes n.
func (n *Node) Successor() *Node { return n.successor }

// AddPred/AddSucc record a scheduling dependency edge between two root
// nodes in n's Preds/Succs sets; exported for internal/sched, which builds
// the per-block dependency graph from outside this package.
func (n *Node) AddPred(p *Node) { n.Preds.add(p) }
func (n *Node) AddSucc(s *Node) { n.Succs.add(s) }

// PredNodes/SuccNodes return snapshots of n's dependency-graph neighbors.
func (n *Node) PredNodes() []*Node { return n.Preds.slice() }
func (n *Node) SuccNodes() []*Node { return n.Succs.slice() }

// NumPreds reports how many dependency-graph predecessors n has; used by
// internal/sched's critical-path walk to detect when a node's preds have
// all been processed.
func (n *Node) NumPreds() int { return n.Preds.len() }

// Block returns the block a root node belongs to, or nil for a non-root
// node (or a root node not yet inserted into any block).
func (n *Node) Block() *Block { return n.block }

// newNode allocates a bare node of the given kind/op with empty edge sets.
func newNode(kind Kind, op Op) *Node {
	return &Node{
		Kind:    kind,
		Op:      op,
		Parents: newNodeSet(),
		Preds:   newNodeSet(),
		Succs:   newNodeSet(),
	}
}

// Children iterates n's immediate children in source order — the
// lazy-generator "child-iter" operation of spec.md §4.2, rendered as an
// eagerly-built slice since Go lacks cheap coroutine-style generators and
// every caller in this module consumes the full sequence anyway.
//
// The returned slice is a copy of the child pointers, not a view of n's
// slots; callers that need to mutate a child slot use the SetXxxChild
// constructors in ctor.go or Replace instead.
func (n *Node) Children() []*Node {
	switch n.Kind {
	case KindALU:
		nc := aluNumChildren(n.Op)
		out := make([]*Node, 0, nc)
		for i := 0; i < nc; i++ {
			if n.ALUChildren[i] != nil {
				out = append(out, n.ALUChildren[i])
			}
		}
		return out
	case KindClampConst:
		if n.ClampChild != nil {
			return []*Node{n.ClampChild}
		}
		return nil
	case KindConst:
		return nil
	case KindLoad:
		if n.HasOffset && n.OffsetNode != nil {
			return []*Node{n.OffsetNode}
		}
		return nil
	case KindLoadReg:
		if n.LoadRegOffset != nil {
			return []*Node{n.LoadRegOffset}
		}
		return nil
	case KindStore:
		out := make([]*Node, 0, 5)
		for i := 0; i < 4; i++ {
			if n.Mask[i] && n.StoreChildren[i] != nil {
				out = append(out, n.StoreChildren[i])
			}
		}
		if n.Addr != nil {
			out = append(out, n.Addr)
		}
		return out
	case KindStoreReg:
		out := make([]*Node, 0, 4)
		for i := 0; i < 4; i++ {
			if n.Mask[i] && n.StoreChildren[i] != nil {
				out = append(out, n.StoreChildren[i])
			}
		}
		return out
	case KindBranch:
		if n.Condition != nil {
			return []*Node{n.Condition}
		}
		return nil
	case KindPhi:
		return nil
	default:
		panic("bug: unhandled node kind in Children")
	}
}

// aluNumChildren mirrors lima_gp_ir_alu_node_num_children: most ALU ops are
// binary, a handful are unary or ternary.
func aluNumChildren(op Op) int {
	switch op {
	case OpMov, OpFloor, OpSign, OpNeg, OpComplex2,
		OpPreexp2, OpPostlog2, OpExp2Impl, OpLog2Impl, OpRcpImpl, OpRsqrtImpl,
		OpAbs, OpNot, OpCeil, OpFract, OpSqrt, OpSin, OpCos, OpTan,
		OpExp2, OpLog2, OpRcp, OpRsqrt, OpExp, OpLog, OpF2B, OpF2I:
		return 1
	case OpSelect, OpLrp, OpComplex1:
		// complex1 combines an impl result, its companion complex2 result
		// and the original operand (spec.md §4.7) — three sources, like
		// select's (cond, then, else).
		return 3
	default:
		return 2
	}
}
