package pplir

// Program is the scheduled PP LIR program: a dense array of blocks (indexed
// by position, matching succs[2]/preds encoding as block indices) plus the
// full register list and allocation counters. Grounded on
// lima_pp_lir_prog_t.
type Program struct {
	Blocks []*Block

	RegAlloc  uint32
	TempAlloc uint32
	Regs      []*Register
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{}
}

// NewBlock creates and appends a block owned by prog.
func (p *Program) NewBlock() *Block {
	b := &Block{Index: len(p.Blocks), Prog: p}
	p.Blocks = append(p.Blocks, b)
	return b
}

// NewReg allocates and appends a fresh register.
func (p *Program) NewReg(size int) *Register {
	r := NewRegister(size)
	r.Index = p.RegAlloc
	r.prog = p
	p.RegAlloc++
	p.Regs = append(p.Regs, r)
	return r
}

// NewTemp allocates a fresh spill/temp slot index.
func (p *Program) NewTemp() uint32 {
	t := p.TempAlloc
	p.TempAlloc++
	return t
}

// AppendReg adds an already-constructed register (e.g. one of the six
// precolored pipeline registers add_regs creates) to the program
// (lima_pp_lir_prog_append_reg).
func (p *Program) AppendReg(r *Register) bool {
	r.prog = p
	p.Regs = append(p.Regs, r)
	return true
}

// FindReg looks up a non-precolored register by index
// (lima_pp_lir_prog_find_reg with precolored=false, the only mode lower.c
// actually uses).
func (p *Program) FindReg(index uint32) *Register {
	for _, r := range p.Regs {
		if r.Index == index && !r.Precolored {
			return r
		}
	}
	return nil
}

// DeleteReg removes the register at the given slice index
// (lima_pp_lir_prog_delete_reg).
func (p *Program) DeleteReg(index int) bool {
	if index < 0 || index >= len(p.Regs) {
		return false
	}
	p.Regs = append(p.Regs[:index], p.Regs[index+1:]...)
	return true
}

// CompactRegs removes unreferenced registers and renumbers the remainder
// densely, matching gpir.Program.CompactRegs' role for the PP side.
func (p *Program) CompactRegs() {
	live := p.Regs[:0]
	for _, r := range p.Regs {
		if r.Precolored || !r.IsUnreferenced() {
			live = append(live, r)
		}
	}
	p.Regs = live
	for i, r := range p.Regs {
		if !r.Precolored {
			r.Index = uint32(i)
		}
	}
	p.RegAlloc = uint32(len(p.Regs))
}
