package liveness

import (
	"github.com/limashader/malisc/internal/bitset"
	"github.com/limashader/malisc/internal/pplir"
)

// ComputePP runs the same backward dataflow as ComputeGP but over PP LIR's
// pre-scheduling instruction lists, populating each Instr's and Block's
// LiveIn/LiveOut fields in place (spec.md §4.8). PP LIR has no phi
// instruction (internal/xform's phi elimination handles GP IR only), so
// the cross-block join is the plain union-of-successors' live-in spec.md
// describes for "block-in" without a phi term.
//
// Each register component is addressed by a single dense bit index
// (position in prog.Regs, times 4, plus component) rather than reg.Index
// itself: Index is reused independently by precolored and general
// registers (see pplir.Register), so only enumeration order over prog.Regs
// is guaranteed collision-free.
func ComputePP(prog *pplir.Program) {
	bit := make(map[*pplir.Register]int, len(prog.Regs))
	for i, r := range prog.Regs {
		bit[r] = i * 4
	}
	nbits := len(prog.Regs) * 4

	for _, b := range prog.Blocks {
		b.LiveIn = bitset.NewSet(nbits)
		b.LiveOut = bitset.NewSet(nbits)
		for _, instr := range b.Instrs {
			instr.LiveIn = bitset.NewSet(nbits)
			instr.LiveOut = bitset.NewSet(nbits)
		}
	}

	changed := true
	for changed {
		changed = false
		for bi := len(prog.Blocks) - 1; bi >= 0; bi-- {
			b := prog.Blocks[bi]

			out := b.LiveOut.Clone()
			for si := 0; si < b.NumSuccs; si++ {
				succ := prog.Blocks[b.Succs[si]]
				out.Or(succ.LiveIn)
			}
			if !out.Equal(b.LiveOut) {
				b.LiveOut = out
				changed = true
			}

			cur := out.Clone()
			for ii := len(b.Instrs) - 1; ii >= 0; ii-- {
				instr := b.Instrs[ii]
				if !cur.Equal(instr.LiveOut) {
					instr.LiveOut = cur.Clone()
				}
				applyBackwardPP(cur, instr, bit)
				if !cur.Equal(instr.LiveIn) {
					instr.LiveIn = cur.Clone()
					changed = true
				}
			}

			if !cur.Equal(b.LiveIn) {
				b.LiveIn = cur
				changed = true
			}
		}
	}
}

func applyBackwardPP(cur *bitset.Set, instr *pplir.Instr, bit map[*pplir.Register]int) {
	if !instr.Dest.Pipeline && instr.Dest.Reg != nil {
		base := bit[instr.Dest.Reg]
		for c := 0; c < 4; c++ {
			if instr.Dest.Mask[c] {
				cur.Clear(base + c)
			}
		}
	}
	for i := range instr.Sources {
		src := &instr.Sources[i]
		if src.Constant || src.Pipeline || src.Reg == nil {
			continue
		}
		base := bit[src.Reg]
		size := instr.ArgSize(i)
		for c := 0; c < size; c++ {
			if !instr.ChannelUsed(i, c) {
				continue
			}
			cur.Set(base + src.Swizzle[c])
		}
	}
}
