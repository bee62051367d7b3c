package pplir

import (
	"encoding/binary"
	"math"

	"github.com/limashader/malisc/internal/pphir"
)

// This file implements spec.md §6.2's IR serialization contract for PP LIR,
// the same contract internal/gpir/serialize.go implements for GP IR: every
// block gets a `{u32 size, payload...}` chunk, and Program export/import
// wrap those in a register table and allocation counters. There is no
// original_source equivalent to ground this on — the original only ever
// serializes a compiled program to the MBS code blob (internal/mbs), never
// its in-memory IR — so the wire shape follows spec.md §6.2 directly, and
// the encoding primitives reuse internal/gpir/serialize.go's encoder/decoder
// shape and its encoding/binary/math stdlib usage.
//
// Only pre-scheduling state round-trips: each block's Instrs list, not its
// Bundles. Bundle scheduling (spec.md §4.11), liveness (LiveIn/LiveOut on
// both Instr and Bundle), and register-allocation working sets (Defs, Uses,
// Adjacent, Moves — the interference-graph and worklist state
// internal/regalloc mutates while running, as opposed to the allocation's
// final outcome) are pass-computed and not round-tripped, the same way
// internal/gpir's scheduling/dominance caches aren't: a caller that imports
// a program re-runs whichever pass populated them. A register's final
// allocation outcome (State, AllocatedIndex, AllocatedOffset, Alias,
// AliasSwizzle) is base structure, not a working set, and is round-tripped.

type encoder struct{ buf []byte }

func (e *encoder) u8(v uint8) { e.buf = append(e.buf, v) }

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) i8(v int8) { e.u8(uint8(v)) }

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) i32(v int) { e.u32(uint32(int32(v))) }

func (e *encoder) f64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	e.buf = append(e.buf, b[:]...)
}

// regRef encodes r's position in a Program's Regs slice, or noRegRef if r is
// nil (e.g. an unset Alias).
func (e *encoder) regRef(r *Register, ids map[*Register]uint32) {
	if r == nil {
		e.u32(noRegRef)
		return
	}
	e.u32(ids[r])
}

const noRegRef = ^uint32(0)

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) u8() uint8 {
	v := d.buf[d.pos]
	d.pos++
	return v
}
func (d *decoder) boolean() bool { return d.u8() != 0 }
func (d *decoder) i8() int8      { return int8(d.u8()) }
func (d *decoder) u32() uint32 {
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v
}
func (d *decoder) i32() int { return int(int32(d.u32())) }
func (d *decoder) f64() float64 {
	v := math.Float64frombits(binary.LittleEndian.Uint64(d.buf[d.pos:]))
	d.pos += 8
	return v
}
func (d *decoder) regRef(regs []*Register) *Register {
	v := d.u32()
	if v == noRegRef {
		return nil
	}
	return regs[v]
}

func exportSource(e *encoder, s *Source, ids map[*Register]uint32) {
	e.bool(s.Constant)
	for i := 0; i < 4; i++ {
		e.f64(s.Const[i])
	}
	e.bool(s.Pipeline)
	e.u8(uint8(s.PipelineReg))
	e.regRef(s.Reg, ids)
	for i := 0; i < 4; i++ {
		e.i32(s.Swizzle[i])
	}
	e.bool(s.Absolute)
	e.bool(s.Negate)
}

func importSource(s *Source, d *decoder, regs []*Register) {
	s.Constant = d.boolean()
	for i := 0; i < 4; i++ {
		s.Const[i] = d.f64()
	}
	s.Pipeline = d.boolean()
	s.PipelineReg = PipelineReg(d.u8())
	s.Reg = d.regRef(regs)
	for i := 0; i < 4; i++ {
		s.Swizzle[i] = d.i32()
	}
	s.Absolute = d.boolean()
	s.Negate = d.boolean()
}

func exportDest(e *encoder, dst *Dest, ids map[*Register]uint32) {
	e.bool(dst.Pipeline)
	e.u8(uint8(dst.PipelineReg))
	e.regRef(dst.Reg, ids)
	for i := 0; i < 4; i++ {
		e.bool(dst.Mask[i])
	}
	e.u8(uint8(dst.Modifier))
}

func importDest(dst *Dest, d *decoder, regs []*Register) {
	dst.Pipeline = d.boolean()
	dst.PipelineReg = PipelineReg(d.u8())
	dst.Reg = d.regRef(regs)
	for i := 0; i < 4; i++ {
		dst.Mask[i] = d.boolean()
	}
	dst.Modifier = pphir.OutMod(d.u8())
}

func exportInstr(instr *Instr, ids map[*Register]uint32) []byte {
	e := &encoder{}
	e.u8(uint8(instr.Op))
	for i := range instr.Sources {
		exportSource(e, &instr.Sources[i], ids)
	}
	exportDest(e, &instr.Dest, ids)
	e.i8(instr.Shift)
	e.u32(instr.LoadStoreIndex)
	e.u32(instr.BranchDest)
	return e.buf
}

func importInstr(data []byte, regs []*Register) *Instr {
	d := &decoder{buf: data}
	instr := &Instr{}
	instr.Op = pphir.Op(d.u8())
	for i := range instr.Sources {
		importSource(&instr.Sources[i], d, regs)
	}
	importDest(&instr.Dest, d, regs)
	instr.Shift = d.i8()
	instr.LoadStoreIndex = d.u32()
	instr.BranchDest = d.u32()
	return instr
}

func exportBlock(b *Block, ids map[*Register]uint32) []byte {
	e := &encoder{}
	e.u32(uint32(len(b.Instrs)))
	for _, instr := range b.Instrs {
		payload := exportInstr(instr, ids)
		e.u32(uint32(len(payload)))
		e.buf = append(e.buf, payload...)
	}

	e.u32(uint32(len(b.Preds)))
	for _, p := range b.Preds {
		e.i32(p)
	}
	e.i32(b.Succs[0])
	e.i32(b.Succs[1])
	e.i32(b.NumSuccs)
	e.bool(b.IsEnd)
	e.bool(b.Discard)
	return e.buf
}

func importBlock(data []byte, regs []*Register) *Block {
	d := &decoder{buf: data}
	b := NewBlock()

	numInstrs := d.u32()
	for i := uint32(0); i < numInstrs; i++ {
		size := d.u32()
		instrData := d.buf[d.pos : d.pos+int(size)]
		d.pos += int(size)
		instr := importInstr(instrData, regs)
		b.AppendInstr(instr)
		instr.LinkRegisters()
	}

	numPreds := d.u32()
	b.Preds = make([]int, numPreds)
	for i := range b.Preds {
		b.Preds[i] = d.i32()
	}
	b.Succs[0] = d.i32()
	b.Succs[1] = d.i32()
	b.NumSuccs = d.i32()
	b.IsEnd = d.boolean()
	b.Discard = d.boolean()
	return b
}

func exportRegister(r *Register, ids map[*Register]uint32) []byte {
	e := &encoder{}
	e.u32(r.Index)
	e.bool(r.Precolored)
	e.u32(uint32(r.Size))
	e.bool(r.Beginning)
	e.bool(r.Spilled)
	e.u8(uint8(r.State))
	e.u32(r.AllocatedIndex)
	e.u32(r.AllocatedOffset)
	e.i32(r.QTotal)
	e.regRef(r.Alias, ids)
	for i := 0; i < 4; i++ {
		e.i32(r.AliasSwizzle[i])
	}
	return e.buf
}

// importRegister decodes r's fixed fields and returns the raw alias slice
// index (or noRegRef); ImportProgram resolves it to a *Register once every
// register in the program has been allocated.
func importRegister(data []byte) (r *Register, aliasIdx uint32) {
	d := &decoder{buf: data}
	r = NewRegister(0)
	r.Index = d.u32()
	r.Precolored = d.boolean()
	r.Size = int(d.u32())
	r.Beginning = d.boolean()
	r.Spilled = d.boolean()
	r.State = RegState(d.u8())
	r.AllocatedIndex = d.u32()
	r.AllocatedOffset = d.u32()
	r.QTotal = d.i32()
	aliasIdx = d.u32()
	for i := 0; i < 4; i++ {
		r.AliasSwizzle[i] = d.i32()
	}
	return r, aliasIdx
}

// ExportProgram serializes prog per spec.md §6.2.
func ExportProgram(prog *Program) []byte {
	ids := make(map[*Register]uint32, len(prog.Regs))
	for i, r := range prog.Regs {
		ids[r] = uint32(i)
	}

	e := &encoder{}
	e.u32(prog.RegAlloc)
	e.u32(prog.TempAlloc)

	e.u32(uint32(len(prog.Regs)))
	for _, r := range prog.Regs {
		payload := exportRegister(r, ids)
		e.u32(uint32(len(payload)))
		e.buf = append(e.buf, payload...)
	}

	e.u32(uint32(len(prog.Blocks)))
	for _, b := range prog.Blocks {
		payload := exportBlock(b, ids)
		e.u32(uint32(len(payload)))
		e.buf = append(e.buf, payload...)
	}
	return e.buf
}

// ImportProgram deserializes a program previously produced by ExportProgram.
// Round-trip is required by spec.md §8 invariant 9.
func ImportProgram(data []byte) *Program {
	d := &decoder{buf: data}
	prog := NewProgram()
	prog.RegAlloc = d.u32()
	prog.TempAlloc = d.u32()

	numRegs := d.u32()
	regs := make([]*Register, numRegs)
	aliasIdx := make([]uint32, numRegs)
	for i := uint32(0); i < numRegs; i++ {
		size := d.u32()
		regData := d.buf[d.pos : d.pos+int(size)]
		d.pos += int(size)
		regs[i], aliasIdx[i] = importRegister(regData)
		regs[i].prog = prog
	}
	for i, r := range regs {
		if aliasIdx[i] != noRegRef {
			r.Alias = regs[aliasIdx[i]]
		}
	}
	prog.Regs = regs

	numBlocks := d.u32()
	blocks := make([]*Block, numBlocks)
	for i := uint32(0); i < numBlocks; i++ {
		size := d.u32()
		blockData := d.buf[d.pos : d.pos+int(size)]
		d.pos += int(size)
		blocks[i] = importBlock(blockData, regs)
		blocks[i].Index = int(i)
		blocks[i].Prog = prog
	}
	prog.Blocks = blocks
	return prog
}
