package xform

import "github.com/limashader/malisc/internal/gpir"

// IfConvert runs GP if-conversion to a fixed point (spec.md §4.5). It
// pattern-matches two shapes on the still-SSA (phi-bearing) CFG:
//
//	entry → body → end            (diamond without else)
//	entry → then → end, entry → else → end   (diamond with else)
//
// and, where the inner block(s) have exactly the required predecessor
// count, contain no loop-forming jump, and carry no side-effecting op
// (temp/varying/temp-offset stores), rewrites each phi in end as a
// select(cond, then_src, else_src), concatenates the blocks into entry, and
// drops the now-redundant terminators.
//
// Runs before generic phi elimination (internal/xform.EliminatePhis): any
// phi it cannot match is left for that later, general-purpose pass.
// Grounded on original_source's "lima_pp_hir" sibling optimization and
// spec.md §4.5's diamond shapes; the teacher has no direct analogue since
// wazero's SSA lowers straight to a control-flow graph without a
// control-flow-simplification pass of this kind.
func IfConvert(prog *gpir.Program) {
	for {
		computePreds(prog)
		changed := false
		for _, entry := range append([]*gpir.Block(nil), prog.Blocks...) {
			if convertWithElse(prog, entry) || convertWithoutElse(prog, entry) {
				changed = true
				break // block list mutated; restart the scan.
			}
		}
		if !changed {
			break
		}
	}
}

func condBranchSuccessors(prog *gpir.Program, entry *gpir.Block) (cond *gpir.Node, taken, fall *gpir.Block, ok bool) {
	last := entry.LastRoot()
	if last == nil || last.Kind != gpir.KindBranch || last.Op != gpir.OpBranchCond {
		return nil, nil, nil, false
	}
	taken = last.Dest
	fall = fallthroughBlock(prog, entry)
	if fall == nil {
		return nil, nil, nil, false
	}
	return last.Condition, taken, fall, true
}

func hasSideEffect(b *gpir.Block) bool {
	for _, root := range b.Roots() {
		if root.Kind == gpir.KindStore {
			return true
		}
	}
	return false
}

// singleUncondSuccessor reports whether b's only terminator is an
// unconditional branch to want, with no other control-flow node present.
func singleUncondSuccessor(b *gpir.Block, want *gpir.Block) bool {
	last := b.LastRoot()
	if last == nil || last.Kind != gpir.KindBranch || last.Op != gpir.OpBranchUncond {
		return false
	}
	return last.Dest == want
}

func convertWithElse(prog *gpir.Program, entry *gpir.Block) bool {
	cond, thenBlk, elseBlk, ok := condBranchSuccessors(prog, entry)
	if !ok || thenBlk == elseBlk {
		return false
	}
	if len(thenBlk.Preds) != 1 || thenBlk.Preds[0] != entry {
		return false
	}
	if len(elseBlk.Preds) != 1 || elseBlk.Preds[0] != entry {
		return false
	}
	if hasSideEffect(thenBlk) || hasSideEffect(elseBlk) {
		return false
	}
	thenLast := thenBlk.LastRoot()
	elseLast := elseBlk.LastRoot()
	if thenLast == nil || elseLast == nil || thenLast.Kind != gpir.KindBranch || elseLast.Kind != gpir.KindBranch {
		return false
	}
	if thenLast.Op != gpir.OpBranchUncond || elseLast.Op != gpir.OpBranchUncond {
		return false
	}
	end := thenLast.Dest
	if elseLast.Dest != end || end == entry || end == thenBlk || end == elseBlk {
		return false
	}
	if len(end.Preds) != 2 {
		return false
	}

	applyIfConversion(prog, entry, cond, thenBlk, elseBlk, end)
	return true
}

func convertWithoutElse(prog *gpir.Program, entry *gpir.Block) bool {
	cond, taken, fall, ok := condBranchSuccessors(prog, entry)
	if !ok {
		return false
	}

	// Either the taken target IS the end block and the fallthrough is the
	// body (executes when cond is false), or vice versa.
	if body, end := fall, taken; end != body && bodyMatchesWithoutElse(body, end, entry) {
		applyIfConversionNoElse(prog, entry, negateCond(cond), body, end)
		return true
	}
	if body, end := taken, fall; end != body && bodyMatchesWithoutElse(body, end, entry) {
		applyIfConversionNoElse(prog, entry, cond, body, end)
		return true
	}
	return false
}

func bodyMatchesWithoutElse(body, end, entry *gpir.Block) bool {
	if len(body.Preds) != 1 || body.Preds[0] != entry {
		return false
	}
	if hasSideEffect(body) {
		return false
	}
	if !singleUncondSuccessor(body, end) {
		return false
	}
	return len(end.Preds) == 2
}

// negateCond wraps cond as not(cond) (spec.md §4.7's not identity, applied
// directly as an ALU node here since algebraic lowering runs after
// if-conversion) — used when the body block is reached via the
// fallthrough edge, i.e. when cond is false.
func negateCond(cond *gpir.Node) *gpir.Node {
	n := gpir.NewALU(gpir.OpNot)
	gpir.SetALUChild(n, 0, cond, false)
	return n
}

// applyIfConversionNoElse handles the without-else shape by treating the
// "else" value as whatever the relevant register held on entry into the
// diamond (i.e. end's phi source attributed to entry directly).
func applyIfConversionNoElse(prog *gpir.Program, entry *gpir.Block, cond *gpir.Node, body, end *gpir.Block) {
	applyIfConversion(prog, entry, cond, body, nil, end)
}

// applyIfConversion performs the rewrite shared by both shapes. elseBlk may
// be nil for the without-else case, in which case the "else" phi source is
// whichever one is attributed to entry itself.
func applyIfConversion(prog *gpir.Program, entry *gpir.Block, cond *gpir.Node, thenBlk, elseBlk, end *gpir.Block) {
	condReg := prog.NewReg(1)
	condStore := gpir.NewStoreReg(condReg)
	gpir.SetStoreRegChild(condStore, 0, cond)
	oldBranch := entry.LastRoot() // the branch_cond; cond is now also owned by condStore.
	entry.RemoveRoot(oldBranch)
	gpir.Delete(oldBranch)
	entry.InsertEnd(condStore)

	// Bodies must land in entry before the selects that read their
	// registers: load_reg/store_reg pairs are ordered statements (a
	// register behaves like a mutable cell across a block's root-node
	// sequence), not pure DAG values.
	moveBody(thenBlk, entry)
	if elseBlk != nil {
		moveBody(elseBlk, entry)
	}

	for _, phi := range append([]*gpir.Node(nil), end.Phis()...) {
		thenReg := phiSourceReg(phi, thenBlk)
		var elseReg *gpir.Register
		if elseBlk != nil {
			elseReg = phiSourceReg(phi, elseBlk)
		} else {
			elseReg = phiSourceReg(phi, entry)
		}
		dest := phi.PhiDest
		store := gpir.NewStoreReg(dest)
		for c := 0; c < dest.Size; c++ {
			condLoad := gpir.NewLoadReg(condReg, 0)
			thenLoad := gpir.NewLoadReg(thenReg, uint8(c))
			elseLoad := gpir.NewLoadReg(elseReg, uint8(c))
			sel := gpir.NewALU(gpir.OpSelect)
			gpir.SetALUChild(sel, 0, condLoad, false)
			gpir.SetALUChild(sel, 1, thenLoad, false)
			gpir.SetALUChild(sel, 2, elseLoad, false)
			gpir.SetStoreRegChild(store, c, sel)
		}
		entry.InsertEnd(store)
		end.RemovePhi(phi)
		dest.RemoveDef(phi)
	}

	moveBody(end, entry)

	prog.Remove(end)
	prog.Remove(thenBlk)
	if elseBlk != nil {
		prog.Remove(elseBlk)
	}
	retarget(prog, end, entry)
	retarget(prog, thenBlk, entry)
	if elseBlk != nil {
		retarget(prog, elseBlk, entry)
	}
	prog.RPOValid = false
}

func phiSourceReg(phi *gpir.Node, pred *gpir.Block) *gpir.Register {
	for _, src := range phi.PhiSources {
		if src.Pred == pred {
			return src.Reg
		}
	}
	return phi.PhiDest
}

// moveBody relocates every non-terminator root of src into dst, in order,
// dropping src's own branch terminator entirely.
func moveBody(src, dst *gpir.Block) {
	for _, n := range src.Roots() {
		if n.Kind == gpir.KindBranch {
			gpir.Delete(n)
			continue
		}
		src.RemoveRoot(n)
		dst.InsertEnd(n)
	}
}

// retarget rewrites every remaining branch Dest and Preds entry that
// referenced old to reference replacement instead, after old has been
// removed from the program (spec.md §4.5, "dropping redundant
// terminators" implies any outside reference to the merged-away blocks
// must be fixed up too).
func retarget(prog *gpir.Program, old, replacement *gpir.Block) {
	for _, b := range prog.Blocks {
		for i, p := range b.Preds {
			if p == old {
				b.Preds[i] = replacement
			}
		}
		for _, root := range b.Roots() {
			if root.Kind == gpir.KindBranch && root.Dest == old {
				root.Dest = replacement
			}
		}
	}
}
