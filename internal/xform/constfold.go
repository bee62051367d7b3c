package xform

import "math"

import "github.com/limashader/malisc/internal/gpir"

// FoldConstants runs constant folding to a fixed point over prog (spec.md
// §4.6): every ALU or clamp-const node whose operands are all const nodes
// is replaced by a freshly evaluated const node. Grounded on
// original_source's peephole.c constant-folding pass, which walks nodes in
// the same bottom-up order so that folding a leaf unlocks folding its
// parent on a later pass.
func FoldConstants(prog *gpir.Program) bool {
	anyChanged := false
	for {
		changed := false
		for _, b := range prog.Blocks {
			for _, root := range append([]*gpir.Node(nil), b.Roots()...) {
				if foldReachable(root) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
		anyChanged = true
	}
	return anyChanged
}

func foldReachable(n *gpir.Node) bool {
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
		if tryFold(n) {
			changed = true
		}
	}
	visit(n)
	return changed
}

// tryFold replaces n in place (via gpir.Replace) with a const node carrying
// the folded value, if every operand is itself a const and n is a foldable
// kind. Returns whether a fold happened.
func tryFold(n *gpir.Node) bool {
	switch n.Kind {
	case gpir.KindALU:
		return tryFoldALU(n)
	case gpir.KindClampConst:
		return tryFoldClampConst(n)
	default:
		return false
	}
}

func constOperand(n *gpir.Node, i int) (float64, bool) {
	c := n.ALUChildren[i]
	if c == nil || c.Kind != gpir.KindConst {
		return 0, false
	}
	v := c.Constant
	if n.ChildrenNegate[i] {
		v = -v
	}
	return v, true
}

func tryFoldALU(n *gpir.Node) bool {
	args := make([]float64, 0, 3)
	for i := 0; i < len(n.ALUChildren); i++ {
		if n.ALUChildren[i] == nil {
			continue
		}
		v, ok := constOperand(n, i)
		if !ok {
			return false
		}
		args = append(args, v)
	}
	if len(args) == 0 {
		return false
	}
	result, ok := evalOp(n.Op, args)
	if !ok {
		return false
	}
	if n.DestNegate {
		result = -result
	}
	replacement := gpir.NewConst(result)
	gpir.Replace(n, replacement)
	return true
}

func tryFoldClampConst(n *gpir.Node) bool {
	if n.IsInlineConst {
		return false // no child to fold; value comes from a uniform slot.
	}
	if n.ClampChild == nil || n.ClampChild.Kind != gpir.KindConst {
		return false
	}
	v := n.ClampChild.Constant
	if v < n.Low {
		v = n.Low
	}
	if v > n.High {
		v = n.High
	}
	replacement := gpir.NewConst(v)
	gpir.Replace(n, replacement)
	return true
}

// evalOp evaluates op over already-negated operands using IEEE-754 float64
// semantics per spec.md §4.6's exact opcode table. Ops not listed there
// (load/store/branch/phi and the scheduler-only complex/preexp2/postlog2
// helpers) never reach here since tryFoldALU only calls this once every
// child has resolved to a constant, which can't happen for a load/store/
// branch node (no const-only operand shape).
func evalOp(op gpir.Op, a []float64) (float64, bool) {
	switch op {
	case gpir.OpMov:
		return a[0], true
	case gpir.OpNeg:
		return -a[0], true
	case gpir.OpAdd:
		return a[0] + a[1], true
	case gpir.OpMul:
		return a[0] * a[1], true
	case gpir.OpAbs:
		return math.Abs(a[0]), true
	case gpir.OpNot:
		return 1 - a[0], true
	case gpir.OpDiv:
		return a[0] / a[1], true
	case gpir.OpMod:
		return a[1] * fract(a[0]/a[1]), true
	case gpir.OpLrp:
		// lrp(x, y, t) = y*t + x*(1-t).
		x, y, t := a[0], a[1], a[2]
		return y*t + x*(1-t), true
	case gpir.OpFloor:
		return math.Floor(a[0]), true
	case gpir.OpCeil:
		return math.Ceil(a[0]), true
	case gpir.OpFract:
		return fract(a[0]), true
	case gpir.OpSign:
		switch {
		case a[0] > 0:
			return 1, true
		case a[0] < 0:
			return -1, true
		default:
			return 0, true
		}
	case gpir.OpMin:
		return math.Min(a[0], a[1]), true
	case gpir.OpMax:
		return math.Max(a[0], a[1]), true
	case gpir.OpGe:
		return boolf(a[0] >= a[1]), true
	case gpir.OpLt:
		return boolf(a[0] < a[1]), true
	case gpir.OpEq:
		return boolf(a[0] == a[1]), true
	case gpir.OpNe:
		return boolf(a[0] != a[1]), true
	case gpir.OpRcp:
		return 1 / a[0], true
	case gpir.OpRsqrt:
		return 1 / math.Sqrt(a[0]), true
	case gpir.OpSqrt:
		return math.Sqrt(a[0]), true
	case gpir.OpExp2:
		return math.Exp2(a[0]), true
	case gpir.OpLog2:
		return math.Log2(a[0]), true
	case gpir.OpExp:
		return math.Exp(a[0]), true
	case gpir.OpLog:
		return math.Log(a[0]), true
	case gpir.OpSin:
		return math.Sin(a[0]), true
	case gpir.OpCos:
		return math.Cos(a[0]), true
	case gpir.OpTan:
		return math.Tan(a[0]), true
	case gpir.OpPow:
		return math.Pow(a[0], a[1]), true
	case gpir.OpF2B:
		// f2b(x) is ne(x, 0), the same value AlgebraicLower's lowering
		// computes.
		return boolf(a[0] != 0), true
	case gpir.OpF2I:
		return math.Copysign(math.Floor(math.Abs(a[0])), sign1(a[0])), true
	default:
		return 0, false
	}
}

func fract(x float64) float64 {
	return x - math.Floor(x)
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// sign1 returns +1 for non-negative x (matching f2i's sign(x) factor,
// where sign(0) is treated as positive so f2i(0) == 0).
func sign1(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
