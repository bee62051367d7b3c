package hir

// RegID names a virtual register in the common IR. Before SSA construction
// (internal/xform) a RegID may be the destination of more than one Stmt in
// different blocks; after SSA construction each RegID has exactly one
// defining Stmt or Phi (spec.md §3 invariants).
type RegID uint32

// Phi is a phi node: one source register per predecessor block, in the same
// order as Block.Preds. Present at the head of a block's phi list both in
// this common IR and, after target-specific lowering, in gpir.Program and
// pphir.Program (spec.md §3, "Command (PP HIR)" / "Block (PP HIR)").
type Phi struct {
	Dst     RegID
	Srcs    []RegID
	Type    Type
}

// Stmt is a single assignment or side-effecting operation within a block.
// Expression trees (the DAG-shaped operand structure of spec.md §3's
// "Node (GP)") are modeled at this layer as a flat op with register
// operands; gpir reconstructs sharing via its own Node arena once a
// program is lowered into GP IR specifically.
type Stmt struct {
	Op    Op
	Dst   RegID // zero value RegID(0) is never a valid destination; see Program.NewReg.
	Args  []RegID
	Const float64 // valid iff Op == OpConst.
	Type  Type

	// Side-effect classification, consulted by if-conversion (spec.md §4.5)
	// to refuse to merge blocks containing writes that are not safe to
	// speculate under a synthesized select().
	SideEffect SideEffectKind
}

// SideEffectKind classifies statements that if-conversion must not
// speculate past a branch.
type SideEffectKind uint8

const (
	SideEffectNone SideEffectKind = iota
	SideEffectStoreVarying
	SideEffectStoreTemp
	SideEffectStoreTempOffset
	SideEffectDiscard
)

// HasSideEffect reports whether s must not be spuriously executed on both
// arms of a diamond.
func (s *Stmt) HasSideEffect() bool { return s.SideEffect != SideEffectNone }

// BlockID identifies a Block within a Program.
type BlockID uint32

// Block is a basic block in the common IR: an ordered statement list, phi
// nodes at the head, and up to two successors selected by a branch
// condition over two source registers (spec.md §3, "Block (PP HIR)" — this
// shape is shared verbatim by the common IR since both GP and PP builders
// consume it identically).
type Block struct {
	ID    BlockID
	Phis  []*Phi
	Stmts []*Stmt

	Cond     BranchCond
	CondSrcs [2]RegID // meaningless when Cond == CondAlways.

	Next  [2]*Block // Next[1] is nil when Cond == CondAlways.
	Preds []*Block

	IsEnd     bool // function/shader exit block.
	IsDiscard bool // block ends in a fragment discard.
}

// Successors returns the block's actual successor list (length 0, 1 or 2).
func (b *Block) Successors() []*Block {
	if b.Next[0] == nil {
		return nil
	}
	if b.Cond == CondAlways || b.Next[1] == nil {
		return b.Next[:1]
	}
	return b.Next[:2]
}

// PredIndex returns the index of from within b.Preds, used to select which
// phi source corresponds to a given predecessor when patching phi uses
// (spec.md §4.3, "Phi uses in successor blocks are patched by looking up
// this block's index among the successor's predecessors").
func (b *Block) PredIndex(from *Block) int {
	for i, p := range b.Preds {
		if p == from {
			return i
		}
	}
	return -1
}

// Program is an ordered collection of blocks plus the monotonic register
// allocation counter shared by every pass (spec.md §9, "Global mutable
// counters... make these fields of the program object; never a process-wide
// singleton").
type Program struct {
	Blocks   []*Block
	nextReg  RegID
	nextBlk  BlockID
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{nextReg: 1, nextBlk: 0}
}

// NewReg allocates a fresh, never-before-used register id.
func (p *Program) NewReg() RegID {
	id := p.nextReg
	p.nextReg++
	return id
}

// NewBlock appends a new block to the program and returns it.
func (p *Program) NewBlock() *Block {
	b := &Block{ID: p.nextBlk}
	p.nextBlk++
	p.Blocks = append(p.Blocks, b)
	return b
}

// Link sets b's unconditional successor to to, updating to's predecessor
// list.
func (b *Block) Link(to *Block) {
	b.Cond = CondAlways
	b.Next[0] = to
	to.Preds = append(to.Preds, b)
}

// LinkCond sets a two-way conditional branch from b.
func (b *Block) LinkCond(cond BranchCond, src0, src1 RegID, thenB, elseB *Block) {
	b.Cond = cond
	b.CondSrcs = [2]RegID{src0, src1}
	b.Next[0] = thenB
	b.Next[1] = elseB
	thenB.Preds = append(thenB.Preds, b)
	elseB.Preds = append(elseB.Preds, b)
}
