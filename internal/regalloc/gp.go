// Package regalloc implements the Runeson-Nystrom graph-coloring register
// allocator shared by both back-ends (spec.md §4.9): build an interference
// graph from a fresh internal/liveness run, simplify by repeatedly pushing
// colorable registers onto a stack (falling back to the cheapest spill
// candidate when none remain), then select physical register/offset pairs
// by popping the stack and probing banks low to high. Grounded directly on
// original_source/src/lima/gp_ir/regalloc.c, which names the same paper and
// the same p/q class vectors spec.md §4.9 reproduces.
package regalloc

import (
	"math"

	"github.com/limashader/malisc/internal/gpir"
	"github.com/limashader/malisc/internal/liveness"
)

// classP/classQ are spec.md §4.9's Runeson-Nystrom class vectors, indexed
// by register size - 1 (registers are 1..4 components wide).
var classP = [4]int{64, 48, 32, 16}
var classQ = [4][4]int{
	{1, 2, 3, 4},
	{2, 3, 3, 3},
	{2, 2, 2, 2},
	{1, 1, 1, 1},
}

// numBanks is the GP register file's vec4 bank count (spec.md §3: "PhysReg
// 0..15"). A register selected at bank >= numBanks is a spill candidate.
const numBanks = 16

type gpGraph map[*gpir.Register]map[*gpir.Register]bool

// AllocateGP runs the allocator over prog in place: every register ends up
// either with PhysRegAssigned set to a bank < numBanks, or rewritten by
// spillGP into an equivalent store_temp/load_temp sequence.
func AllocateGP(prog *gpir.Program) {
	live := liveness.ComputeGP(prog)
	g := buildGPInterference(prog, live)

	stack := simplifyGP(prog.Regs, g)
	selectGP(stack, g)
	spillGP(prog)
}

// buildGPInterference adds an edge between a register defined at a
// store_reg root and every register simultaneously live immediately after
// it (spec.md §4.9: "two registers interfere iff they are simultaneously
// live at some register-store point").
func buildGPInterference(prog *gpir.Program, live *liveness.GPResult) gpGraph {
	g := make(gpGraph, len(prog.Regs))
	for _, r := range prog.Regs {
		g[r] = map[*gpir.Register]bool{}
	}
	addEdge := func(a, b *gpir.Register) {
		if a == b {
			return
		}
		g[a][b] = true
		g[b][a] = true
	}
	for _, b := range prog.Blocks {
		for _, root := range b.Roots() {
			if root.Kind != gpir.KindStoreReg {
				continue
			}
			for other := range live.After[root] {
				addEdge(root.StoreReg, other)
			}
		}
	}
	return g
}

func colorableGP(reg *gpir.Register, allocated map[*gpir.Register]bool, g gpGraph) bool {
	total := 0
	for other := range g[reg] {
		if allocated[other] {
			continue
		}
		total += classQ[reg.Size-1][other.Size-1]
	}
	return total < classP[reg.Size-1]
}

func spillCostGP(reg *gpir.Register, allocated map[*gpir.Register]bool, g gpGraph) float64 {
	if reg.PhysRegAssigned {
		return math.Inf(1) // precolored registers never spill.
	}
	benefit := 0.0
	for other := range g[reg] {
		if allocated[other] || other.PhysRegAssigned {
			continue
		}
		benefit += float64(classQ[other.Size-1][reg.Size-1]) / float64(classP[other.Size-1])
	}
	if benefit == 0 {
		return math.Inf(1)
	}
	return float64(reg.NumUses()+reg.NumDefs()) / benefit
}

// simplifyGP repeatedly pushes a colorable register (or, failing that, the
// cheapest-to-spill remaining one) onto the returned stack, popped in
// reverse by selectGP.
func simplifyGP(regs []*gpir.Register, g gpGraph) []*gpir.Register {
	allocated := make(map[*gpir.Register]bool, len(regs))
	stack := make([]*gpir.Register, 0, len(regs))

	for len(allocated) < len(regs) {
		progressed := true
		for progressed {
			progressed = false
			for _, reg := range regs {
				if allocated[reg] {
					continue
				}
				if !colorableGP(reg, allocated, g) {
					continue
				}
				stack = append(stack, reg)
				allocated[reg] = true
				progressed = true
			}
		}
		if len(allocated) == len(regs) {
			break
		}

		var min *gpir.Register
		minCost := math.Inf(1)
		for _, reg := range regs {
			if allocated[reg] {
				continue
			}
			cost := spillCostGP(reg, allocated, g)
			if cost < minCost {
				min, minCost = reg, cost
			}
		}
		stack = append(stack, min)
		allocated[min] = true
	}
	return stack
}

// selectGP pops the stack and assigns each register the lowest (bank,
// offset) pair that doesn't overlap an already-selected interferer's
// occupied range within the same bank. Banks beyond numBanks are valid
// (spec.md §4.9: "registers that end up with a physical index >= 16 are
// spilled") so every register is guaranteed a slot.
func selectGP(stack []*gpir.Register, g gpGraph) {
	for i := len(stack) - 1; i >= 0; i-- {
		reg := stack[i]
		if reg.PhysRegAssigned {
			continue
		}
		for bank := 0; ; bank++ {
			placed := false
			for offset := 0; offset <= 4-reg.Size; offset++ {
				if !conflictsGP(reg, bank, offset, g) {
					reg.PhysRegAssigned = true
					reg.PhysReg = bank
					reg.PhysRegOffset = offset
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

func conflictsGP(reg *gpir.Register, bank, offset int, g gpGraph) bool {
	startK, endK := offset, offset+reg.Size-1
	for other := range g[reg] {
		if !other.PhysRegAssigned || other.PhysReg != bank {
			continue
		}
		startL, endL := other.PhysRegOffset, other.PhysRegOffset+other.Size-1
		if startK <= endL && startL <= endK {
			return true
		}
	}
	return false
}

// spillGP rewrites every register whose assigned bank is >= numBanks into
// an equivalent store_temp/load_temp sequence, consuming fresh temp-slot
// indices from prog's monotonic counter.
func spillGP(prog *gpir.Program) {
	oldTempAlloc := prog.TempAlloc
	for _, reg := range append([]*gpir.Register(nil), prog.Regs...) {
		if reg.PhysReg < numBanks {
			continue
		}
		tempIndex := oldTempAlloc + uint32(reg.PhysReg-numBanks)
		if tempIndex >= prog.TempAlloc {
			prog.TempAlloc = tempIndex + 1
		}
		spillOneGP(reg, tempIndex, uint32(reg.PhysRegOffset))
	}
	prog.CompactRegs()
}

func spillOneGP(reg *gpir.Register, tempIndex, offset uint32) {
	for _, use := range reg.UsesSlice() {
		load := gpir.NewLoad(gpir.OpLoadTemp, tempIndex, use.Component+uint8(offset))
		gpir.Replace(use, load)
	}
	for _, def := range reg.DefsSlice() {
		blk := def.Block()
		store := gpir.NewStore(gpir.OpStoreTemp, 0)
		addr := gpir.NewConst(float64(tempIndex))
		gpir.SetStoreAddr(store, addr)
		for c := 0; c < 4; c++ {
			if !def.Mask[c] {
				continue
			}
			gpir.SetStoreChild(store, c+int(offset), def.StoreChildren[c])
			gpir.Unlink(def, def.StoreChildren[c])
			def.StoreChildren[c] = nil
			def.Mask[c] = false
		}
		blk.InsertBefore(store, def)
		blk.RemoveRoot(def)
		gpir.Delete(def)
	}
}
