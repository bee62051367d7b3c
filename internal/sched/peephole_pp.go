package sched

import (
	"github.com/limashader/malisc/internal/pphir"
	"github.com/limashader/malisc/internal/pplir"
)

// PeepholePP iterates all four spec.md §4.13 passes to a fixed point over
// every block: discard-move elimination, mul/add fusion, uniform inlining,
// and varying inlining. Passes 3-4 (inlineUniforms/inlineVaryings) only
// handle the single-consumer case — see their doc comments and DESIGN.md
// for the min-successor/multi-consumer fan-out this tree does not build a
// PP bundle dependency graph to support.
func PeepholePP(prog *pplir.Program) {
	for _, b := range prog.Blocks {
		for {
			changed := eliminateDiscardMoves(b)
			changed = fuseMulAdd(b) || changed
			changed = inlineUniforms(b) || changed
			changed = inlineVaryings(b) || changed
			if !changed {
				break
			}
		}
	}
}

// eliminateDiscardMoves implements spec.md §4.13 pass 1: a bundle ending
// with a plain move into the discard pipeline register, sourced from a
// register defined by exactly one ALU instruction in an earlier bundle, has
// that defining instruction migrated into the move's slot (dropping the
// move), and, if that was the register's last use, the migrated
// instruction's destination is rewritten to the discard pipeline register
// directly and the now-dead register is deleted.
func eliminateDiscardMoves(b *pplir.Block) bool {
	changed := false
	for bn := b.FirstBundle(); bn != nil; bn = bn.Next() {
		slot, mov := findDiscardMove(bn)
		if mov == nil {
			continue
		}
		src := mov.Sources[0]
		if src.Constant || src.Pipeline || src.Reg == nil {
			continue
		}
		reg := src.Reg
		if reg.Defs.Len() != 1 {
			continue
		}
		defInstr := soleDef(reg)
		defBundle := defInstr.Bundle
		if defBundle == nil || defBundle == bn {
			continue
		}
		clearALUSlot(defBundle, defInstr)
		bn.SetALU(slot, defInstr)
		reg.Uses.Remove(mov)
		if reg.Uses.Len() == 0 {
			defInstr.Dest = pplir.Dest{Pipeline: true, PipelineReg: pplir.PipelineDiscard, Mask: mov.Dest.Mask}
			deleteReg(b.Prog, reg)
		}
		changed = true
	}
	return changed
}

func deleteReg(prog *pplir.Program, reg *pplir.Register) {
	for i, r := range prog.Regs {
		if r == reg {
			prog.DeleteReg(i)
			return
		}
	}
}

func findDiscardMove(bn *pplir.Bundle) (pplir.ALUSlot, *pplir.Instr) {
	for i, instr := range bn.ALUInstrs {
		if instr == nil {
			continue
		}
		if instr.Dest.Pipeline && instr.Dest.PipelineReg == pplir.PipelineDiscard {
			return pplir.ALUSlot(i), instr
		}
	}
	return 0, nil
}

func soleDef(reg *pplir.Register) *pplir.Instr {
	var def *pplir.Instr
	reg.Defs.ForEach(func(i *pplir.Instr) { def = i })
	return def
}

func clearALUSlot(bn *pplir.Bundle, instr *pplir.Instr) {
	for i, x := range bn.ALUInstrs {
		if x == instr {
			bn.ALUInstrs[i] = nil
			return
		}
	}
}

// fuseMulAdd implements spec.md §4.13 pass 2: when a multiply's result
// feeds a single add in its immediate successor bundle, and the add's slot
// category still has room for the multiply alongside it, pin the multiply
// into the matching mul slot and rewrite the add's matching source to read
// the ^vmul/^fmul pipeline register instead of the register the multiply
// used to define.
func fuseMulAdd(b *pplir.Block) bool {
	changed := false
	for bn := b.FirstBundle(); bn != nil; bn = bn.Next() {
		mul := bn.ALUInstrs[pplir.SlotVectorMul]
		if mul == nil || mul.Dest.Pipeline || mul.Dest.Reg == nil {
			continue
		}
		reg := mul.Dest.Reg
		if reg.Uses.Len() != 1 {
			continue
		}
		next := bn.Next()
		if next == nil {
			continue
		}
		add := next.ALUInstrs[pplir.SlotVectorAdd]
		if add == nil || !usesReg(add, reg) || next.ALUInstrs[pplir.SlotVectorMul] != nil {
			continue
		}
		bn.ALUInstrs[pplir.SlotVectorMul] = nil
		next.SetALU(pplir.SlotVectorMul, mul)
		mul.Dest = pplir.Dest{Pipeline: true, PipelineReg: pplir.PipelineVMul, Mask: mul.Dest.Mask, Modifier: mul.Dest.Modifier}
		reg.Defs.Remove(mul)
		rewriteSourceToPipeline(add, reg, pplir.PipelineVMul)
		reg.Uses.Remove(add)
		if reg.IsUnreferenced() {
			deleteReg(b.Prog, reg)
		}
		changed = true
	}
	return changed
}

func usesReg(instr *pplir.Instr, reg *pplir.Register) bool {
	for _, src := range instr.Sources {
		if !src.Constant && !src.Pipeline && src.Reg == reg {
			return true
		}
	}
	return false
}

func rewriteSourceToPipeline(instr *pplir.Instr, reg *pplir.Register, p pplir.PipelineReg) {
	for i := range instr.Sources {
		src := &instr.Sources[i]
		if !src.Constant && !src.Pipeline && src.Reg == reg {
			src.Pipeline = true
			src.PipelineReg = p
			src.Reg = nil
		}
	}
}

// inlineUniforms implements the single-consumer case of spec.md §4.13 pass
// 3: a bundle whose uniform unit holds a load that is the sole definition
// of a register with exactly one use, where that use lives in the
// immediate successor bundle and that bundle's own uniform slot is free,
// has the load cloned into the successor and the use rewritten to read
// ^uniform directly, the way original_source's peephole_uniform rewrites a
// use_instr via reg_to_pipeline_reg once the load has moved into the same
// bundle as its consumer. Unlike mul/add fusion the two bundles are not
// combined: only the load moves, since the consumer may already occupy
// every ALU slot the current bundle has room for.
//
// General multi-consumer fan-out across every min-successor bundle (what
// spec.md §4.13 pass 3 actually asks for) is not implemented: this tree
// builds no PP bundle dependency graph (see CombinePP's doc comment), so
// there is no min-successor set to walk beyond the program-adjacent
// bundle this pass already has from pass 1-2's linear-scan approximation.
func inlineUniforms(b *pplir.Block) bool {
	changed := false
	for bn := b.FirstBundle(); bn != nil; bn = bn.Next() {
		load := bn.Uniform
		if load == nil || load.Dest.Pipeline || load.Dest.Reg == nil {
			continue
		}
		reg := load.Dest.Reg
		if reg.Uses.Len() != 1 {
			continue
		}
		next := bn.Next()
		if next == nil || next.Uniform != nil {
			continue
		}
		use := soleUse(reg)
		if !bundleHasInstr(next, use) {
			continue
		}
		next.Uniform = clonePipelineLoad(load, pplir.PipelineUniform)
		rewriteSourceToPipeline(use, reg, pplir.PipelineUniform)
		reg.Uses.Remove(use)
		bn.Uniform = nil
		if reg.Uses.Len() == 0 {
			deleteReg(b.Prog, reg)
		}
		changed = true
	}
	return changed
}

// inlineVaryings implements the single-consumer case of spec.md §4.13 pass
// 4 for the general (non-texture-coordinate) path: a bundle whose varying
// unit holds a load that is the sole definition of a register with
// exactly one use in the immediate successor bundle, whose varying slot
// is free, has the load cloned — under a fresh register, the way
// original_source's peephole_varying allocates new_reg for a
// has_non_texload_use consumer — into the successor, with the use
// rewritten to read the fresh register instead.
//
// The texture-sample direct-coordinate sub-case (original_source's
// has_texload_use/is_proj_or_cube, where the texld instruction can read
// the varying result with no intervening register at all) and true
// multi-consumer min-successor fan-out are not implemented; see
// inlineUniforms' doc comment for why (no PP bundle dependency graph) and
// DESIGN.md for the resulting scope.
func inlineVaryings(b *pplir.Block) bool {
	changed := false
	for bn := b.FirstBundle(); bn != nil; bn = bn.Next() {
		load := bn.Varying
		if load == nil || load.Dest.Pipeline || load.Dest.Reg == nil {
			continue
		}
		if load.Op == pphir.OpMov {
			// original_source's peephole_varying also excludes normalize3,
			// an op this port's pphir vocabulary does not carry.
			continue
		}
		reg := load.Dest.Reg
		if reg.Uses.Len() != 1 {
			continue
		}
		next := bn.Next()
		if next == nil || next.Varying != nil {
			continue
		}
		use := soleUse(reg)
		if !bundleHasInstr(next, use) {
			continue
		}
		newReg := b.Prog.NewReg(reg.Size)
		newReg.Beginning = true
		next.Varying = cloneLoadToReg(load, newReg)
		rewriteSourceReg(use, reg, newReg)
		reg.Uses.Remove(use)
		bn.Varying = nil
		if reg.Uses.Len() == 0 {
			deleteReg(b.Prog, reg)
		}
		changed = true
	}
	return changed
}

func soleUse(reg *pplir.Register) *pplir.Instr {
	var use *pplir.Instr
	reg.Uses.ForEach(func(i *pplir.Instr) { use = i })
	return use
}

// bundleHasInstr reports whether instr occupies one of bn's slots.
func bundleHasInstr(bn *pplir.Bundle, instr *pplir.Instr) bool {
	if bn.Varying == instr || bn.Texld == instr || bn.Uniform == instr ||
		bn.TempStore == instr || bn.Branch == instr {
		return true
	}
	for _, a := range bn.ALUInstrs {
		if a == instr {
			return true
		}
	}
	return false
}

// clonePipelineLoad duplicates a load about to move into a bundle where
// its result is consumed directly through a pipeline register in the same
// cycle, so no general register is materialized for a value that never
// outlives its own bundle (original_source's copy_uniform_instr, adapted
// to this port's loads writing directly to a destination instead of via a
// separate ^uniform-reading mov).
func clonePipelineLoad(orig *pplir.Instr, p pplir.PipelineReg) *pplir.Instr {
	clone := pplir.NewInstr(orig.Op)
	clone.LoadStoreIndex = orig.LoadStoreIndex
	clone.Dest = pplir.Dest{Pipeline: true, PipelineReg: p, Mask: orig.Dest.Mask}
	copyOffsetSource(orig, clone)
	return clone
}

// cloneLoadToReg duplicates orig the way original_source's
// copy_varying_instr does for a use that still needs a general register
// (the has_non_texload_use path), writing into dst instead of orig's
// destination.
func cloneLoadToReg(orig *pplir.Instr, dst *pplir.Register) *pplir.Instr {
	clone := pplir.NewInstr(orig.Op)
	clone.LoadStoreIndex = orig.LoadStoreIndex
	clone.Dest = pplir.Dest{Reg: dst, Mask: orig.Dest.Mask}
	dst.Defs.Add(clone)
	copyOffsetSource(orig, clone)
	return clone
}

// copyOffsetSource carries over a dynamically-indexed load's single
// offset-register source (the "_off" opcode variants), keeping that
// register's use count in sync.
func copyOffsetSource(orig, clone *pplir.Instr) {
	if pphir.Info(orig.Op).Args != 1 {
		return
	}
	clone.Sources[0] = orig.Sources[0]
	if src := &clone.Sources[0]; !src.Constant && !src.Pipeline && src.Reg != nil {
		src.Reg.Uses.Add(clone)
	}
}

func rewriteSourceReg(instr *pplir.Instr, old, replacement *pplir.Register) {
	for i := range instr.Sources {
		src := &instr.Sources[i]
		if !src.Constant && !src.Pipeline && src.Reg == old {
			src.Reg = replacement
		}
	}
}
