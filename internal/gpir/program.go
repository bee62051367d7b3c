package gpir

// Program is an ordered list of GP IR blocks plus the monotonic register and
// temp-slot counters every pass shares (spec.md §9: these must be fields of
// the program object, never process-wide singletons). Grounded on gp_ir.h's
// lima_gp_ir_prog_t.
type Program struct {
	Blocks []*Block
	Regs   []*Register

	RegAlloc  uint32 // next virtual register index.
	TempAlloc uint32 // next spill/temp slot index.

	// RPOValid tracks whether Blocks is currently in reverse-postorder;
	// spec.md §9 ("Back edges and dominator tree") requires callers that
	// insert a new block to invalidate this and re-run ComputeRPO before
	// running SSA construction.
	RPOValid bool
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{}
}

// NewBlock creates a block owned by prog but does not insert it; callers
// use InsertStart/InsertEnd/Insert to place it, mirroring
// lima_gp_ir_block_create followed by an explicit prog_insert_* call.
func (p *Program) NewBlock() *Block {
	return &Block{prog: p}
}

// InsertStart prepends blk to the program.
func (p *Program) InsertStart(blk *Block) {
	p.Blocks = append([]*Block{blk}, p.Blocks...)
	p.reindex()
	p.RPOValid = false
}

// InsertEnd appends blk to the program.
func (p *Program) InsertEnd(blk *Block) {
	p.Blocks = append(p.Blocks, blk)
	p.reindex()
	p.RPOValid = false
}

// InsertBefore inserts blk immediately before before.
func (p *Program) InsertBefore(blk, before *Block) {
	p.insertAt(blk, p.indexOf(before))
}

// InsertAfter inserts blk immediately after after.
func (p *Program) InsertAfter(blk, after *Block) {
	p.insertAt(blk, p.indexOf(after)+1)
}

func (p *Program) insertAt(blk *Block, at int) {
	p.Blocks = append(p.Blocks, nil)
	copy(p.Blocks[at+1:], p.Blocks[at:])
	p.Blocks[at] = blk
	p.reindex()
	p.RPOValid = false
}

// Remove splices blk out of the program.
func (p *Program) Remove(blk *Block) {
	i := p.indexOf(blk)
	if i < 0 {
		return
	}
	p.Blocks = append(p.Blocks[:i], p.Blocks[i+1:]...)
	p.reindex()
	p.RPOValid = false
}

func (p *Program) indexOf(blk *Block) int {
	for i, b := range p.Blocks {
		if b == blk {
			return i
		}
	}
	return -1
}

func (p *Program) reindex() {
	for i, b := range p.Blocks {
		b.Index = i
	}
}

// NewReg allocates a fresh virtual register of the given size (1..4
// components).
func (p *Program) NewReg(size int) *Register {
	r := &Register{Index: p.RegAlloc, Size: size, Uses: newNodeSet(), Defs: newNodeSet(), prog: p}
	p.RegAlloc++
	p.Regs = append(p.Regs, r)
	return r
}

// NewTemp allocates a fresh temporary-memory slot index, used by
// internal/regalloc when spilling and by explicit store_temp/load_temp
// lowering.
func (p *Program) NewTemp() uint32 {
	t := p.TempAlloc
	p.TempAlloc++
	return t
}

// RegByIndex looks up a register by its allocation index.
func (p *Program) RegByIndex(index uint32) *Register {
	for _, r := range p.Regs {
		if r.Index == index {
			return r
		}
	}
	return nil
}

// CompactRegs removes unreferenced registers and renumbers the remainder
// densely from zero, matching the "registers with no defs and no uses are
// pruned and indices are compacted" step of spec.md §4.3.
func (p *Program) CompactRegs() {
	live := p.Regs[:0]
	for _, r := range p.Regs {
		if !r.IsUnreferenced() {
			live = append(live, r)
		}
	}
	p.Regs = live
	for i, r := range p.Regs {
		r.Index = uint32(i)
	}
	p.RegAlloc = uint32(len(p.Regs))
}
