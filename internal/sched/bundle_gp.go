package sched

import "github.com/limashader/malisc/internal/gpir"

// Bundle is one GP VLIW instruction slot assignment (spec.md §4.11),
// grounded on gp_ir.h's lima_gp_ir_instruction_t (renamed "bundle" to match
// spec.md's vocabulary, and internal/pplir's PP-side Bundle type).
type Bundle struct {
	MulSlots [2]*gpir.Node
	AddSlots [2]*gpir.Node
	Complex  *gpir.Node
	Passthrough *gpir.Node
	Branch   *gpir.Node
	Uniform  *gpir.Node // 4-wide load_uniform.
	Attribute *gpir.Node
	Register  *gpir.Node // second register source (load_reg).
	Store    [4]*gpir.Node
}

// gpSchedule is the block-level output of PackGP: an ordered list of
// bundles, earliest first.
type gpSchedule struct {
	Bundles []*Bundle
}

// PackGP greedily list-schedules every block of prog into bundles (spec.md
// §4.11's "linear-to-scheduled" packing), ready nodes chosen by largest
// critical-path distance first (the node most likely to gate the schedule
// if delayed), and inserted via tryInsertNode. Grounded on
// original_source/src/lima/gp_ir/scheduler.h's instruction field layout;
// the slot-compatibility table is spec.md §4.11's own description rather
// than a port of the considerably larger C scheduler (whose backtracking
// search this pass approximates with a single greedy forward pass,
// documented as a scoping simplification in DESIGN.md).
func PackGP(prog *gpir.Program, g *DepGraph) map[*gpir.Block]*gpSchedule {
	out := make(map[*gpir.Block]*gpSchedule, len(prog.Blocks))
	for _, b := range prog.Blocks {
		out[b] = packBlock(b, g)
	}
	return out
}

func packBlock(b *gpir.Block, g *DepGraph) *gpSchedule {
	roots := b.Roots()
	scheduled := map[*gpir.Node]bool{}
	ready := append([]*gpir.Node(nil), b.StartNodes...)

	sched := &gpSchedule{}
	pendingStoreChildren := 0
	for _, n := range roots {
		if n.Kind == gpir.KindStore || n.Kind == gpir.KindStoreReg {
			pendingStoreChildren += len(n.Children())
		}
	}

	for len(ready) > 0 {
		// Pick the highest-max_dist ready node (closest to the critical path).
		bi := 0
		for i, n := range ready {
			if n.MaxDist > ready[bi].MaxDist {
				bi = i
			}
		}
		n := ready[bi]
		ready = append(ready[:bi], ready[bi+1:]...)

		// Nodes with no scheduling position (consts, folded directly into
		// the encoding of whatever ALU instruction reads them) never occupy
		// a bundle slot; they're done the instant their own deps are met.
		if gpir.Info(n.Op).NumSchedPositions > 0 {
			bundle := currentBundle(sched)
			if bundle == nil || !tryInsertNode(bundle, n, pendingStoreChildren) {
				bundle = &Bundle{}
				sched.Bundles = append(sched.Bundles, bundle)
				tryInsertNode(bundle, n, pendingStoreChildren)
			}
		}
		scheduled[n] = true
		if n.Kind == gpir.KindStore || n.Kind == gpir.KindStoreReg {
			pendingStoreChildren -= len(n.Children())
		}

		for _, s := range n.SuccNodes() {
			if scheduled[s] {
				continue
			}
			allPredsDone := true
			for _, p := range s.PredNodes() {
				if !scheduled[p] {
					allPredsDone = false
					break
				}
			}
			if allPredsDone {
				ready = append(ready, s)
			}
		}
	}
	return sched
}

func currentBundle(sched *gpSchedule) *Bundle {
	if len(sched.Bundles) == 0 {
		return nil
	}
	return sched.Bundles[len(sched.Bundles)-1]
}

// tryInsertNode attempts to place n into bundle, honoring spec.md §4.11's
// per-category slot rules: add/mov/neg may share an add-slot pair;
// complex2 permits mov/mul/neg in its companion mul slot; select/complex1
// take both mul slots; loads take their dedicated uniform/attribute/
// register slot; stores claim a store component and must not be starved of
// the ALU slots their own unscheduled children still need.
func tryInsertNode(bundle *Bundle, n *gpir.Node, pendingStoreChildren int) bool {
	switch n.Op {
	case gpir.OpMul, gpir.OpComplex2:
		if wouldStarveStore(bundle, pendingStoreChildren) {
			return false
		}
		return placeMul(bundle, n)
	case gpir.OpSelect, gpir.OpComplex1:
		if bundle.MulSlots[0] == nil && bundle.MulSlots[1] == nil {
			bundle.MulSlots[0], bundle.MulSlots[1] = n, n
			return true
		}
		return false
	case gpir.OpNeg, gpir.OpMov:
		if wouldStarveStore(bundle, pendingStoreChildren) {
			return false
		}
		return placeMul(bundle, n) || placeAdd(bundle, n)
	case gpir.OpAdd, gpir.OpFloor, gpir.OpSign, gpir.OpGe, gpir.OpLt, gpir.OpMin, gpir.OpMax:
		if wouldStarveStore(bundle, pendingStoreChildren) {
			return false
		}
		return placeAdd(bundle, n)
	case gpir.OpClampConst, gpir.OpPreexp2, gpir.OpPostlog2:
		if bundle.Passthrough == nil {
			bundle.Passthrough = n
			return true
		}
		return false
	case gpir.OpExp2Impl, gpir.OpLog2Impl, gpir.OpRcpImpl, gpir.OpRsqrtImpl:
		if bundle.Complex == nil {
			bundle.Complex = n
			return true
		}
		return false
	case gpir.OpLoadUniform:
		if bundle.Uniform == nil {
			bundle.Uniform = n
			return true
		}
		return false
	case gpir.OpLoadAttribute:
		if bundle.Attribute == nil {
			bundle.Attribute = n
			return true
		}
		return false
	case gpir.OpLoadReg:
		if bundle.Register == nil {
			bundle.Register = n
			return true
		}
		return false
	case gpir.OpLoadTemp:
		return false // load_temp issues through the store-to-load pipeline, not a bundle slot.
	case gpir.OpBranchCond, gpir.OpBranchUncond:
		if bundle.Branch == nil {
			bundle.Branch = n
			return true
		}
		return false
	case gpir.OpStoreTemp, gpir.OpStoreReg, gpir.OpStoreVarying,
		gpir.OpStoreTempLoadOff0, gpir.OpStoreTempLoadOff1, gpir.OpStoreTempLoadOff2:
		return placeStore(bundle, n)
	default:
		return false
	}
}

// wouldStarveStore reports whether bundle has no ALU slot room to spare once
// num_unscheduled_store_children more children still need a home (spec.md
// §4.11): this node may take the bundle's last free mul/add slot only if
// doing so would still leave at least one free ALU slot per pending store
// child, otherwise the insertion is refused and the node waits for the next
// bundle (after the current one's stores have had a chance to claim their
// feeders).
func wouldStarveStore(bundle *Bundle, pendingStoreChildren int) bool {
	if pendingStoreChildren == 0 {
		return false
	}
	free := 0
	for _, s := range bundle.MulSlots {
		if s == nil {
			free++
		}
	}
	for _, s := range bundle.AddSlots {
		if s == nil {
			free++
		}
	}
	return free <= pendingStoreChildren
}

func placeMul(bundle *Bundle, n *gpir.Node) bool {
	for i := range bundle.MulSlots {
		if bundle.MulSlots[i] == nil {
			bundle.MulSlots[i] = n
			return true
		}
	}
	return false
}

func placeAdd(bundle *Bundle, n *gpir.Node) bool {
	for i := range bundle.AddSlots {
		if bundle.AddSlots[i] == nil {
			bundle.AddSlots[i] = n
			return true
		}
	}
	return false
}

func placeStore(bundle *Bundle, n *gpir.Node) bool {
	for i := range bundle.Store {
		if bundle.Store[i] == nil {
			bundle.Store[i] = n
			return true
		}
	}
	return false
}
