package sched

import "github.com/limashader/malisc/internal/pplir"

// CombinePP repeatedly merges adjacent mergeable bundle pairs within every
// block to fixed point (spec.md §4.12), in program order.
//
// spec.md §4.12 frames the original scheduler's combiner as picking merge
// candidates from three relations between two bundles' positions in the
// program — immediately adjacent ("before"), reachable through a chain of
// intervening bundles ("after"), or unordered with respect to each other
// in the dependency graph ("indep"). Only the first is implemented here:
// this package builds no PP bundle dependency graph (no analogue of GP's
// sched.DepGraph exists for PP LIR — Bundle.Preds/Succs/MinPreds/MinSuccs/
// TruePreds/TrueSuccs are declared on pplir.Bundle but nothing in this
// tree ever populates them), so there is no reachability information to
// search the "after"/"indep" cases with. Only program-adjacent bundle
// pairs are ever tried; this is a real scoping gap against spec.md §4.12,
// not an optional extension left for later polish, and is recorded as
// such in DESIGN.md rather than implied to be complete by a three-mode
// API that was never actually wired to anything.
func CombinePP(prog *pplir.Program) {
	for _, b := range prog.Blocks {
		combineBlock(b)
	}
}

func combineBlock(b *pplir.Block) {
	for {
		merged := false
		for cur := b.FirstBundle(); cur != nil; cur = cur.Next() {
			next := cur.Next()
			if next == nil {
				continue
			}
			if tryCombine(cur, next) {
				b.RemoveBundle(next)
				merged = true
			}
		}
		if !merged {
			return
		}
	}
}

// tryCombine attempts to fold other (the bundle immediately following dst
// in program order) into dst, returning whether it succeeded. On success
// dst carries every instruction other held; other is left empty and the
// caller removes it from the block.
func tryCombine(dst, other *pplir.Bundle) bool {
	if !unitsCompatible(dst, other) {
		return false
	}
	constMap, ok := buildConstMap(dst, other)
	if !ok {
		return false
	}
	applyConstMap(other, constMap)

	if other.Varying != nil {
		dst.Varying = other.Varying
	}
	if other.Texld != nil {
		dst.Texld = other.Texld
	}
	if other.Uniform != nil {
		dst.Uniform = other.Uniform
	}
	if other.TempStore != nil {
		dst.TempStore = other.TempStore
	}
	if other.Branch != nil {
		dst.Branch = other.Branch
	}
	for i, instr := range other.ALUInstrs {
		if instr != nil {
			dst.SetALU(pplir.ALUSlot(i), instr)
		}
	}
	return true
}

// unitsCompatible checks spec.md §4.12(a.iii): each fixed-function unit
// (varying/texld/uniform/temp-store/branch) and each ALU slot may be
// occupied by at most one instruction once merged.
func unitsCompatible(dst, other *pplir.Bundle) bool {
	if dst.Varying != nil && other.Varying != nil {
		return false
	}
	if dst.Texld != nil && other.Texld != nil {
		return false
	}
	if dst.Uniform != nil && other.Uniform != nil {
		return false
	}
	if dst.TempStore != nil && other.TempStore != nil {
		return false
	}
	if dst.Branch != nil && other.Branch != nil {
		return false
	}
	for i := range dst.ALUInstrs {
		if dst.ALUInstrs[i] != nil && other.ALUInstrs[i] != nil {
			return false
		}
	}
	return true
}

// buildConstMap maps other's const0/const1 entries into dst's two constant
// files, trying const0 first then const1 (spec.md §4.12(a)): a constant
// already present in the target file collapses to its existing index, a
// new one is appended if room remains, and the whole map fails if either
// group doesn't fit.
func buildConstMap(dst, other *pplir.Bundle) (map[int][2]int, bool) {
	m := map[int][2]int{}
	if !mapConstGroup(dst, other.Const0, other.Const0Size, 0, m) {
		return nil, false
	}
	if !mapConstGroup(dst, other.Const1, other.Const1Size, 1, m) {
		return nil, false
	}
	return m, true
}

// mapConstGroup records, for each of n constants in group (identified by
// srcFile 0/1 plus index), which destination (file, index) pair it should
// land at, mutating dst's constant files in place as new slots are
// consumed.
func mapConstGroup(dst *pplir.Bundle, group [4]float64, n, srcFile int, m map[int][2]int) bool {
	for i := 0; i < n; i++ {
		v := group[i]
		if idx, ok := findConst(dst.Const0, dst.Const0Size, v); ok {
			m[srcFile*4+i] = [2]int{0, idx}
			continue
		}
		if idx, ok := findConst(dst.Const1, dst.Const1Size, v); ok {
			m[srcFile*4+i] = [2]int{1, idx}
			continue
		}
		if dst.Const0Size < 4 {
			dst.Const0[dst.Const0Size] = v
			m[srcFile*4+i] = [2]int{0, dst.Const0Size}
			dst.Const0Size++
			continue
		}
		if dst.Const1Size < 4 {
			dst.Const1[dst.Const1Size] = v
			m[srcFile*4+i] = [2]int{1, dst.Const1Size}
			dst.Const1Size++
			continue
		}
		return false
	}
	return true
}

func findConst(file [4]float64, size int, v float64) (int, bool) {
	for i := 0; i < size; i++ {
		if file[i] == v {
			return i, true
		}
	}
	return 0, false
}

// applyConstMap exists for spec.md §4.12's "swizzles referencing moved
// constants are rewritten via the constant map" step. In this IR a Source's
// constant value is stored inline (Source.Const), not as an index into the
// bundle's Const0/Const1 arrays, so buildConstMap's relocation of those
// arrays is already the entire rewrite — there is no per-instruction
// reference left to patch. m is accepted for symmetry with the spec step
// and so callers don't need to know this IR detail.
func applyConstMap(other *pplir.Bundle, m map[int][2]int) {
	_ = other
	_ = m
}
