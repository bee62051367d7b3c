package pphir

// Phi is a phi node living at a block's head, one source register per
// predecessor block in the same order as Block.Preds. Grounded on
// lower.c's replace_phi_nodes, which walks exactly this shape
// (cmd->op == lima_pp_hir_op_phi, one depend per predecessor) when lowering
// phis away during PP LIR conversion.
type Phi struct {
	Dst  RegID
	Srcs []PhiSrc
}

// Block is a PP HIR basic block: phi nodes at the head, then a linear,
// ordered command list, then branch-condition metadata selecting up to two
// successors (spec.md §3, "Block (PP HIR)"). Grounded on
// lima_pp_hir_block_t as reconstructed from lower.c's
// pp_hir_block_for_each_cmd iteration and its block->branch_cond /
// block->is_end / block->discard fields.
type Block struct {
	Index int

	Phis  []*Phi
	Cmds  []*Command

	// BranchCond is the two-register comparison gating the second
	// successor; CondAlways means an unconditional fall-through/jump to
	// Next[0] and no comparison is emitted.
	BranchCond BranchCond
	CondSrcs   [2]RegID

	Next  [2]*Block
	Preds []*Block

	IsEnd     bool // shader exit block: no successors, output already written.
	IsDiscard bool // block unconditionally executes a fragment discard.

	// Output is the command whose result this block writes to the final
	// output register when IsEnd; nil for non-exit blocks.
	Output *Command

	prog *Program
}

// BranchCond mirrors hir.BranchCond's six-way comparison vocabulary; kept as
// a distinct type (rather than importing hir) so pphir has no dependency on
// the common IR package once a program has been lowered into PP HIR
// (spec.md §9, target IRs own their metadata after lowering).
type BranchCond uint8

const (
	CondAlways BranchCond = iota
	CondLT
	CondLE
	CondEQ
	CondNE
	CondGE
	CondGT
)

// Successors returns the block's actual successor list (length 0, 1 or 2).
func (b *Block) Successors() []*Block {
	if b.Next[0] == nil {
		return nil
	}
	if b.BranchCond == CondAlways || b.Next[1] == nil {
		return b.Next[:1]
	}
	return b.Next[:2]
}

// PredIndex returns the index of from within b.Preds, used to pick the
// matching phi source when patching a successor's phi uses.
func (b *Block) PredIndex(from *Block) int {
	for i, p := range b.Preds {
		if p == from {
			return i
		}
	}
	return -1
}

// Append adds cmd to the end of the block's command list.
func (b *Block) Append(cmd *Command) {
	cmd.block = b
	b.Cmds = append(b.Cmds, cmd)
}

// Prepend adds cmd to the start of the block's command list.
func (b *Block) Prepend(cmd *Command) {
	cmd.block = b
	b.Cmds = append([]*Command{cmd}, b.Cmds...)
}

// InsertAfter inserts cmd immediately after after in the command list;
// after must already belong to b.
func (b *Block) InsertAfter(cmd, after *Command) {
	cmd.block = b
	for i, c := range b.Cmds {
		if c == after {
			b.Cmds = append(b.Cmds, nil)
			copy(b.Cmds[i+2:], b.Cmds[i+1:])
			b.Cmds[i+1] = cmd
			return
		}
	}
	panic("bug: InsertAfter target not found in block")
}

// Remove splices cmd out of the block's command list.
func (b *Block) Remove(cmd *Command) {
	for i, c := range b.Cmds {
		if c == cmd {
			b.Cmds = append(b.Cmds[:i], b.Cmds[i+1:]...)
			cmd.block = nil
			return
		}
	}
}

// AddPhi appends a phi node to the block's head.
func (b *Block) AddPhi(p *Phi) {
	b.Phis = append(b.Phis, p)
}

// Link sets b's unconditional successor to to.
func (b *Block) Link(to *Block) {
	b.BranchCond = CondAlways
	b.Next[0] = to
	to.Preds = append(to.Preds, b)
}

// LinkCond sets a two-way conditional branch from b gated on cond comparing
// src0 and src1.
func (b *Block) LinkCond(cond BranchCond, src0, src1 RegID, thenB, elseB *Block) {
	b.BranchCond = cond
	b.CondSrcs = [2]RegID{src0, src1}
	b.Next[0] = thenB
	b.Next[1] = elseB
	thenB.Preds = append(thenB.Preds, b)
	elseB.Preds = append(elseB.Preds, b)
}
