package regalloc

import (
	"math"

	"github.com/limashader/malisc/internal/liveness"
	"github.com/limashader/malisc/internal/pphir"
	"github.com/limashader/malisc/internal/pplir"
)

// ppNumBanks mirrors numBanks: spec.md §4.9 describes one allocator shared
// by both back-ends, and no pp_lir regalloc source survived distillation
// into original_source to suggest a different bank count, so PP reuses
// GP's 16.
const ppNumBanks = 16

// AllocatePP runs the Runeson-Nystrom allocator over a PP LIR program,
// using the interference/worklist-state fields pplir.Register already
// carries (Adjacent, State, AllocatedIndex/Offset) instead of an external
// side table — PP LIR's register shape was built with the allocator's own
// bookkeeping fields present from the start (internal/pplir/register.go).
func AllocatePP(prog *pplir.Program) {
	liveness.ComputePP(prog)
	buildPPInterference(prog)
	stack := simplifyPP(prog)
	selectPP(stack)
	spillPP(prog)
}

func buildPPInterference(prog *pplir.Program) {
	regAt := make([]*pplir.Register, len(prog.Regs))
	copy(regAt, prog.Regs)
	for _, r := range prog.Regs {
		r.Adjacent.ForEach(func(other *pplir.Register) { r.Adjacent.Remove(other) })
	}
	addEdge := func(a, b *pplir.Register) {
		if a == b {
			return
		}
		a.Adjacent.Add(b)
		b.Adjacent.Add(a)
	}
	for _, b := range prog.Blocks {
		for _, instr := range b.Instrs {
			if instr.Dest.Pipeline || instr.Dest.Reg == nil {
				continue
			}
			def := instr.Dest.Reg
			instr.LiveOut.ForEach(func(bitIdx int) {
				other := regAt[bitIdx/4]
				addEdge(def, other)
			})
		}
	}
}

func colorablePP(reg *pplir.Register, allocated map[*pplir.Register]bool) bool {
	total := 0
	reg.Adjacent.ForEach(func(other *pplir.Register) {
		if allocated[other] {
			return
		}
		total += classQ[reg.Size-1][other.Size-1]
	})
	return total < classP[reg.Size-1]
}

func spillCostPP(reg *pplir.Register, allocated map[*pplir.Register]bool) float64 {
	if reg.Precolored {
		return math.Inf(1)
	}
	benefit := 0.0
	reg.Adjacent.ForEach(func(other *pplir.Register) {
		if allocated[other] || other.Precolored {
			return
		}
		benefit += float64(classQ[other.Size-1][reg.Size-1]) / float64(classP[other.Size-1])
	})
	if benefit == 0 {
		return math.Inf(1)
	}
	return float64(reg.Defs.Len()+reg.Uses.Len()) / benefit
}

func simplifyPP(prog *pplir.Program) []*pplir.Register {
	regs := make([]*pplir.Register, 0, len(prog.Regs))
	for _, r := range prog.Regs {
		if !r.Precolored {
			regs = append(regs, r)
		}
	}
	allocated := make(map[*pplir.Register]bool, len(regs))
	stack := make([]*pplir.Register, 0, len(regs))

	for len(allocated) < len(regs) {
		progressed := true
		for progressed {
			progressed = false
			for _, reg := range regs {
				if allocated[reg] {
					continue
				}
				if !colorablePP(reg, allocated) {
					continue
				}
				reg.State = pplir.RegToSimplify
				stack = append(stack, reg)
				allocated[reg] = true
				progressed = true
			}
		}
		if len(allocated) == len(regs) {
			break
		}

		var min *pplir.Register
		minCost := math.Inf(1)
		for _, reg := range regs {
			if allocated[reg] {
				continue
			}
			cost := spillCostPP(reg, allocated)
			if cost < minCost {
				min, minCost = reg, cost
			}
		}
		min.State = pplir.RegToSpill
		stack = append(stack, min)
		allocated[min] = true
	}
	return stack
}

func selectPP(stack []*pplir.Register) {
	for i := len(stack) - 1; i >= 0; i-- {
		reg := stack[i]
		for bank := 0; ; bank++ {
			placed := false
			for offset := 0; offset <= 4-reg.Size; offset++ {
				if !conflictsPP(reg, bank, offset) {
					reg.State = pplir.RegColored
					reg.AllocatedIndex = uint32(bank)
					reg.AllocatedOffset = uint32(offset)
					placed = true
					break
				}
			}
			if placed {
				break
			}
		}
	}
}

func conflictsPP(reg *pplir.Register, bank, offset int) bool {
	startK, endK := offset, offset+reg.Size-1
	conflict := false
	reg.Adjacent.ForEach(func(other *pplir.Register) {
		if conflict || other.State != pplir.RegColored || int(other.AllocatedIndex) != bank {
			return
		}
		startL, endL := int(other.AllocatedOffset), int(other.AllocatedOffset)+other.Size-1
		if startK <= endL && startL <= endK {
			conflict = true
		}
	})
	return conflict
}

// spillPP rewrites every register selected at bank >= ppNumBanks into an
// equivalent temp load/store sequence: a load_t{one,two,four} immediately
// before each instruction that reads it and a store_t{one,two,four}
// immediately after the instruction that defines it, addressed by a slot
// from prog's monotonic temp counter. Simpler than gpir's spill rewrite
// (which renames references directly into indexed load_temp/store_temp
// nodes) since PP LIR's temp ops already take an explicit load/store index
// rather than an address expression operand.
func spillPP(prog *pplir.Program) {
	for _, reg := range append([]*pplir.Register(nil), prog.Regs...) {
		if reg.Precolored || reg.AllocatedIndex < uint32(ppNumBanks) {
			continue
		}
		spillOnePP(prog, reg, prog.NewTemp())
	}
	prog.CompactRegs()
}

func spillOnePP(prog *pplir.Program, reg *pplir.Register, tempIndex uint32) {
	for _, b := range prog.Blocks {
		rewritten := make([]*pplir.Instr, 0, len(b.Instrs))
		for _, instr := range b.Instrs {
			for i := range instr.Sources {
				src := &instr.Sources[i]
				if src.Pipeline || src.Constant || src.Reg != reg {
					continue
				}
				load := pplir.NewInstr(tempLoadOp(reg.Size))
				load.LoadStoreIndex = tempIndex
				load.Dest = pplir.Dest{Reg: reg, Mask: fullMask(reg.Size)}
				rewritten = append(rewritten, load)
			}
			rewritten = append(rewritten, instr)
			if !instr.Dest.Pipeline && instr.Dest.Reg == reg {
				store := pplir.NewInstr(tempStoreOp(reg.Size))
				store.LoadStoreIndex = tempIndex
				store.Sources[0] = pplir.Source{Reg: reg, Swizzle: [4]int{0, 1, 2, 3}}
				rewritten = append(rewritten, store)
			}
		}
		b.Instrs = rewritten
	}
	reg.Spilled = true
}

func tempLoadOp(size int) pphir.Op {
	switch {
	case size <= 1:
		return pphir.OpLoadTOne
	case size == 2:
		return pphir.OpLoadTTwo
	default:
		return pphir.OpLoadTFour
	}
}

func tempStoreOp(size int) pphir.Op {
	switch {
	case size <= 1:
		return pphir.OpStoreTOne
	case size == 2:
		return pphir.OpStoreTTwo
	default:
		return pphir.OpStoreTFour
	}
}

func fullMask(size int) [4]bool {
	var m [4]bool
	for i := 0; i < size; i++ {
		m[i] = true
	}
	return m
}
