package sched

import (
	"github.com/limashader/malisc/internal/pphir"
	"github.com/limashader/malisc/internal/pplir"
)

// LinearToScheduledPP converts prog's flat, unscheduled Instr lists into one
// bundle per instruction (original_source/src/lima/pp_lir/
// linear_to_scheduled.c's starting point, before its combining pass runs).
// CombinePP then merges adjacent bundles where spec.md §4.12's conditions
// allow it.
func LinearToScheduledPP(prog *pplir.Program) {
	for _, b := range prog.Blocks {
		for _, instr := range b.Instrs {
			bundle := pplir.NewBundle()
			placeInstr(bundle, instr)
			b.InsertBundleEnd(bundle)
		}
	}
}

// placeInstr assigns instr to the bundle slot its op category uses
// (varying/uniform/temp load-or-store get their own fixed-function unit;
// texture samples get the texld unit; branches get the branch slot; every
// other op goes through one of the five ALU slots, vector-mul/add preferred
// for binary ops, combine for data movement).
func placeInstr(bundle *pplir.Bundle, instr *pplir.Instr) {
	op := instr.Op
	switch {
	case isVaryingLoad(op):
		bundle.Varying = instr
	case isUniformLoad(op):
		bundle.Uniform = instr
	case isTempLoadStore(op):
		bundle.TempStore = instr
	case isTexld(op):
		bundle.Texld = instr
	case isBranch(op):
		bundle.Branch = instr
	default:
		bundle.SetALU(aluSlotFor(op), instr)
	}
}

func isVaryingLoad(op pphir.Op) bool {
	switch op {
	case pphir.OpLoadVOne, pphir.OpLoadVOneOff, pphir.OpLoadVTwo, pphir.OpLoadVTwoOff,
		pphir.OpLoadVThree, pphir.OpLoadVThreeOff, pphir.OpLoadVFour, pphir.OpLoadVFourOff:
		return true
	}
	return false
}

func isUniformLoad(op pphir.Op) bool {
	switch op {
	case pphir.OpLoadUOne, pphir.OpLoadUOneOff, pphir.OpLoadUTwo, pphir.OpLoadUTwoOff,
		pphir.OpLoadUFour, pphir.OpLoadUFourOff:
		return true
	}
	return false
}

func isTempLoadStore(op pphir.Op) bool {
	switch op {
	case pphir.OpLoadTOne, pphir.OpLoadTOneOff, pphir.OpLoadTTwo, pphir.OpLoadTTwoOff,
		pphir.OpLoadTFour, pphir.OpLoadTFourOff,
		pphir.OpStoreTOne, pphir.OpStoreTOneOff, pphir.OpStoreTTwo, pphir.OpStoreTTwoOff,
		pphir.OpStoreTFour, pphir.OpStoreTFourOff:
		return true
	}
	return false
}

func isTexld(op pphir.Op) bool {
	switch op {
	case pphir.OpTexld2D, pphir.OpTexld2DLod, pphir.OpTexld2DOff, pphir.OpTexld2DOffLod,
		pphir.OpTexld2DProjZ, pphir.OpTexld2DProjZLod, pphir.OpTexld2DProjZOff, pphir.OpTexld2DProjZOffLod,
		pphir.OpTexldCube, pphir.OpTexldCubeLod, pphir.OpTexldCubeOff, pphir.OpTexldCubeOffLod:
		return true
	}
	return false
}

func isBranch(op pphir.Op) bool {
	switch op {
	case pphir.OpBranch, pphir.OpBranchEq, pphir.OpBranchNe, pphir.OpBranchLt, pphir.OpBranchLe, pphir.OpBranchGt, pphir.OpBranchGe:
		return true
	}
	return false
}

// aluSlotFor picks a default ALU slot category for op: multiplies prefer the
// vector-mul unit, adds and comparisons the vector-add unit, and plain data
// movement (mov/combine/select) the combine unit, matching
// lima_pp_lir_alu_e's unit-naming intent (spec.md §4.11's ALU slot set,
// shared with the PP side per spec.md §4.12's opening paragraph).
func aluSlotFor(op pphir.Op) pplir.ALUSlot {
	switch op {
	case pphir.OpMul, pphir.OpDiv, pphir.OpDot2, pphir.OpDot3, pphir.OpDot4:
		return pplir.SlotVectorMul
	case pphir.OpAdd, pphir.OpMin, pphir.OpMax, pphir.OpGe, pphir.OpGt, pphir.OpEq, pphir.OpNe:
		return pplir.SlotVectorAdd
	case pphir.OpMov, pphir.OpCombine, pphir.OpSelect, pphir.OpNeg:
		return pplir.SlotCombine
	default:
		return pplir.SlotScalarAdd
	}
}
