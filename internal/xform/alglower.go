package xform

import (
	"math"

	"github.com/limashader/malisc/internal/gpir"
)

// AlgebraicLower runs GP algebraic lowering to a fixed point (spec.md §4.7):
// every ALU node whose op is Op.IsEmulated() is rewritten into a sub-graph
// of primitive ops. Afterward it normalizes two remaining shapes the
// scheduler cannot handle directly: unconditional branches are re-expressed
// as conditional branches on a constant 1.0, and any store whose child is
// not itself an ALU or clamp-const result gets an explicit mov inserted so
// the store always reads from the ALU pipeline stage.
//
// Grounded on original_source's peephole.c lowering helpers (exp2/log2/rcp/
// rsqrt/sin/cos's complex-unit combination in particular comes from there,
// since no single header spells out the identity directly).
func AlgebraicLower(prog *gpir.Program) {
	for {
		changed := false
		for _, b := range prog.Blocks {
			for _, root := range append([]*gpir.Node(nil), b.Roots()...) {
				if lowerReachable(root) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	normalizeUncondBranches(prog)
	insertStoreMovs(prog)
}

func lowerReachable(n *gpir.Node) bool {
	changed := false
	visited := make(map[*gpir.Node]bool)
	var visit func(n *gpir.Node)
	visit = func(n *gpir.Node) {
		if n == nil || visited[n] {
			return
		}
		visited[n] = true
		for _, c := range n.Children() {
			visit(c)
		}
		if tryLower(n) {
			changed = true
		}
	}
	visit(n)
	return changed
}

func tryLower(n *gpir.Node) bool {
	if n.Kind != gpir.KindALU || !n.Op.IsEmulated() {
		return false
	}
	replacement := lowerOp(n)
	if n.DestNegate {
		replacement = negated(replacement)
	}
	gpir.Replace(n, replacement)
	return true
}

// operand returns the concrete (sign-applied) operand feeding child slot i
// of n, materializing a neg node when the slot's per-source negate flag is
// set so the lowered sub-graph never has to thread negate flags of its own.
func operand(n *gpir.Node, i int) *gpir.Node {
	c := n.ALUChildren[i]
	if n.ChildrenNegate[i] {
		return alu1(gpir.OpNeg, c)
	}
	return c
}

func constNode(v float64) *gpir.Node { return gpir.NewConst(v) }

func alu1(op gpir.Op, a *gpir.Node) *gpir.Node {
	n := gpir.NewALU(op)
	gpir.SetALUChild(n, 0, a, false)
	return n
}

func alu2(op gpir.Op, a, b *gpir.Node) *gpir.Node {
	n := gpir.NewALU(op)
	gpir.SetALUChild(n, 0, a, false)
	gpir.SetALUChild(n, 1, b, false)
	return n
}

func alu2Negate(op gpir.Op, a, b *gpir.Node, negA, negB bool) *gpir.Node {
	n := gpir.NewALU(op)
	gpir.SetALUChild(n, 0, a, negA)
	gpir.SetALUChild(n, 1, b, negB)
	return n
}

func alu3(op gpir.Op, a, b, c *gpir.Node) *gpir.Node {
	n := gpir.NewALU(op)
	gpir.SetALUChild(n, 0, a, false)
	gpir.SetALUChild(n, 1, b, false)
	gpir.SetALUChild(n, 2, c, false)
	return n
}

func negated(n *gpir.Node) *gpir.Node { return alu1(gpir.OpNeg, n) }

// complexCombine builds complex1(implOp(x), complex2(x), x), the shared
// shape used by rcp, rsqrt, exp2_impl and log2_impl (spec.md §4.7).
func complexCombine(implOp gpir.Op, x *gpir.Node) *gpir.Node {
	impl := alu1(implOp, x)
	c2 := alu1(gpir.OpComplex2, x)
	return alu3(gpir.OpComplex1, impl, c2, x)
}

func lowerOp(n *gpir.Node) *gpir.Node {
	switch n.Op {
	case gpir.OpAbs:
		x := operand(n, 0)
		return alu2Negate(gpir.OpMax, x, x, false, true)

	case gpir.OpNot:
		x := operand(n, 0)
		inner := alu2Negate(gpir.OpAdd, x, constNode(1), true, false)
		return alu2(gpir.OpMax, constNode(1), inner)

	case gpir.OpDiv:
		x, y := operand(n, 0), operand(n, 1)
		return alu2(gpir.OpMul, x, alu1(gpir.OpRcp, y))

	case gpir.OpMod:
		x, y := operand(n, 0), operand(n, 1)
		return alu2(gpir.OpMul, y, alu1(gpir.OpFract, alu2(gpir.OpDiv, x, y)))

	case gpir.OpLrp:
		x, y, t := operand(n, 0), operand(n, 1), operand(n, 2)
		oneMinusT := alu2Negate(gpir.OpAdd, t, constNode(1), true, false)
		return alu2(gpir.OpAdd, alu2(gpir.OpMul, y, t), alu2(gpir.OpMul, x, oneMinusT))

	case gpir.OpExp2:
		x := operand(n, 0)
		pre := alu1(gpir.OpPreexp2, x)
		impl := alu1(gpir.OpExp2Impl, pre)
		c2 := alu1(gpir.OpComplex2, pre)
		return alu3(gpir.OpComplex1, impl, c2, pre)

	case gpir.OpLog2:
		x := operand(n, 0)
		return alu1(gpir.OpPostlog2, complexCombine(gpir.OpLog2Impl, x))

	case gpir.OpRcp:
		return complexCombine(gpir.OpRcpImpl, operand(n, 0))

	case gpir.OpRsqrt:
		return complexCombine(gpir.OpRsqrtImpl, operand(n, 0))

	case gpir.OpCeil:
		// -floor(-x): negate the source into floor and negate its result,
		// both via floor's own negate flags rather than extra neg nodes.
		x := operand(n, 0)
		f := gpir.NewALU(gpir.OpFloor)
		gpir.SetALUChild(f, 0, x, true)
		f.DestNegate = true
		return f

	case gpir.OpFract:
		x := operand(n, 0)
		return alu2Negate(gpir.OpAdd, x, alu1(gpir.OpFloor, x), false, true)

	case gpir.OpExp:
		x := operand(n, 0)
		log2e := constNode(1 / math.Ln2)
		return alu1(gpir.OpExp2, alu2(gpir.OpMul, log2e, x))

	case gpir.OpLog:
		x := operand(n, 0)
		ln2 := constNode(math.Ln2)
		return alu2(gpir.OpMul, alu1(gpir.OpLog2, x), ln2)

	case gpir.OpPow:
		x, y := operand(n, 0), operand(n, 1)
		return alu1(gpir.OpExp2, alu2(gpir.OpMul, y, alu1(gpir.OpLog2, x)))

	case gpir.OpSqrt:
		return alu1(gpir.OpRcp, alu1(gpir.OpRsqrt, operand(n, 0)))

	case gpir.OpSin:
		return lowerTrig(operand(n, 0), true)

	case gpir.OpCos:
		return lowerTrig(operand(n, 0), false)

	case gpir.OpTan:
		x := operand(n, 0)
		return alu2(gpir.OpDiv, alu1(gpir.OpSin, x), alu1(gpir.OpCos, x))

	case gpir.OpEq:
		x, y := operand(n, 0), operand(n, 1)
		return alu2(gpir.OpMin, alu2(gpir.OpGe, x, y), alu2(gpir.OpGe, y, x))

	case gpir.OpNe:
		x, y := operand(n, 0), operand(n, 1)
		return alu2(gpir.OpMax, alu2(gpir.OpLt, x, y), alu2(gpir.OpLt, y, x))

	case gpir.OpF2B:
		x := operand(n, 0)
		return alu2(gpir.OpNe, x, constNode(0))

	case gpir.OpF2I:
		x := operand(n, 0)
		return alu2(gpir.OpMul, alu1(gpir.OpSign, x), alu1(gpir.OpFloor, alu1(gpir.OpAbs, x)))

	default:
		panic("bug: lowerOp called on a non-emulated op")
	}
}

// trigCoeffs are the four Horner coefficients of the quartic sin(2*pi*f)
// approximation (spec.md §4.7): {2pi, -(2pi)^3/3!, (2pi)^5/5!, -(2pi)^7/7!}.
var trigCoeffs = [4]float64{
	2 * math.Pi,
	-(8 * math.Pi * math.Pi * math.Pi) / 6,
	(32 * math.Pi * math.Pi * math.Pi * math.Pi * math.Pi) / 120,
	-(128 * math.Pi * math.Pi * math.Pi * math.Pi * math.Pi * math.Pi * math.Pi) / 5040,
}

// lowerTrig builds the shared range-reduced Taylor approximation for sin
// (isSin) or cos: a quartic Horner polynomial in f, evaluated over
// sin(2*pi*f(x)) with f range-reduced into [-1/4, 1/4] (spec.md §4.7).
func lowerTrig(x *gpir.Node, isSin bool) *gpir.Node {
	invTwoPi := constNode(1 / (2 * math.Pi))
	xOverTwoPi := alu2(gpir.OpMul, x, invTwoPi)

	var f *gpir.Node
	if isSin {
		// f = abs(x/2pi - floor(x/2pi + 3/4) + 1/4) - 1/4
		shifted := alu2(gpir.OpAdd, xOverTwoPi, constNode(0.75))
		floored := alu1(gpir.OpFloor, shifted)
		reduced := alu2Negate(gpir.OpAdd, xOverTwoPi, floored, false, true)
		reduced = alu2(gpir.OpAdd, reduced, constNode(0.25))
		f = alu2Negate(gpir.OpAdd, alu1(gpir.OpAbs, reduced), constNode(0.25), false, true)
	} else {
		// f = abs(x/2pi + floor(-x/2pi) + 1/2) - 1/4
		negXOverTwoPi := alu2(gpir.OpMul, x, constNode(-1/(2*math.Pi)))
		floored := alu1(gpir.OpFloor, negXOverTwoPi)
		reduced := alu2(gpir.OpAdd, xOverTwoPi, floored)
		reduced = alu2(gpir.OpAdd, reduced, constNode(0.5))
		f = alu2Negate(gpir.OpAdd, alu1(gpir.OpAbs, reduced), constNode(0.25), false, true)
	}

	f2 := alu2(gpir.OpMul, f, f)
	h := alu2(gpir.OpAdd, alu2(gpir.OpMul, constNode(trigCoeffs[3]), f2), constNode(trigCoeffs[2]))
	h = alu2(gpir.OpAdd, alu2(gpir.OpMul, h, f2), constNode(trigCoeffs[1]))
	h = alu2(gpir.OpAdd, alu2(gpir.OpMul, h, f2), constNode(trigCoeffs[0]))
	return alu2(gpir.OpMul, f, h)
}

// normalizeUncondBranches rewrites every branch_uncond root into a
// branch_cond on a freshly-created constant 1.0, matching the scheduler's
// expectation that every branch carries a condition (spec.md §4.7).
func normalizeUncondBranches(prog *gpir.Program) {
	for _, b := range prog.Blocks {
		for _, root := range b.Roots() {
			if root.Kind == gpir.KindBranch && root.Op == gpir.OpBranchUncond {
				root.Op = gpir.OpBranchCond
				gpir.SetBranchCondition(root, constNode(1))
			}
		}
	}
}

// isPassthrough reports whether a store can read n directly without an
// intervening mov: an ALU result (the normal case) or a clamp-const (which
// the scheduler places in a bundle's passthrough slot).
func isPassthrough(n *gpir.Node) bool {
	return n.Kind == gpir.KindALU || n.Kind == gpir.KindClampConst
}

// insertStoreMovs inserts an explicit mov between every store (temp,
// varying or register) and any child that is not itself an ALU/clamp-const
// result — a bare const or register/uniform/attribute load, typically
// (spec.md §4.7's closing rule).
func insertStoreMovs(prog *gpir.Program) {
	for _, b := range prog.Blocks {
		for _, root := range b.Roots() {
			if root.Kind != gpir.KindStore && root.Kind != gpir.KindStoreReg {
				continue
			}
			for i := 0; i < 4; i++ {
				if !root.Mask[i] {
					continue
				}
				child := root.StoreChildren[i]
				if child == nil || isPassthrough(child) {
					continue
				}
				mov := alu1(gpir.OpMov, child)
				root.StoreChildren[i] = mov
				gpir.Unlink(root, child)
				gpir.Link(root, mov)
			}
		}
	}
}
