package sched

import (
	"testing"

	"github.com/limashader/malisc/internal/pphir"
	"github.com/limashader/malisc/internal/pplir"
)

// TestLinearToScheduledPPPlacesEachOpInItsUnit checks a mov and an add land
// in the combine and vector-add ALU slots respectively, one bundle each.
func TestLinearToScheduledPPPlacesEachOpInItsUnit(t *testing.T) {
	prog := pplir.NewProgram()
	blk := prog.NewBlock()

	mov := pplir.NewInstr(pphir.OpMov)
	mov.Dest = pplir.Dest{Reg: prog.NewReg(1), Mask: [4]bool{true}}
	mov.Sources[0] = pplir.Source{Constant: true, Const: [4]float64{1}}
	blk.AppendInstr(mov)

	add := pplir.NewInstr(pphir.OpAdd)
	add.Dest = pplir.Dest{Reg: prog.NewReg(1), Mask: [4]bool{true}}
	add.Sources[0] = pplir.Source{Constant: true, Const: [4]float64{1}}
	add.Sources[1] = pplir.Source{Constant: true, Const: [4]float64{2}}
	blk.AppendInstr(add)

	LinearToScheduledPP(prog)

	if blk.NumBundles() != 2 {
		t.Fatalf("expected 2 bundles before combining, got %d", blk.NumBundles())
	}
	first := blk.FirstBundle()
	if first.ALUInstrs[pplir.SlotCombine] != mov {
		t.Fatal("mov should land in the combine slot")
	}
	second := first.Next()
	if second.ALUInstrs[pplir.SlotVectorAdd] != add {
		t.Fatal("add should land in the vector-add slot")
	}
}

// TestCombinePPMergesDisjointUnitBundles checks two adjacent bundles using
// disjoint ALU slots merge into one.
func TestCombinePPMergesDisjointUnitBundles(t *testing.T) {
	prog := pplir.NewProgram()
	blk := prog.NewBlock()

	mov := pplir.NewInstr(pphir.OpMov)
	mov.Dest = pplir.Dest{Reg: prog.NewReg(1), Mask: [4]bool{true}}
	mov.Sources[0] = pplir.Source{Constant: true, Const: [4]float64{1}}
	blk.AppendInstr(mov)

	add := pplir.NewInstr(pphir.OpAdd)
	add.Dest = pplir.Dest{Reg: prog.NewReg(1), Mask: [4]bool{true}}
	add.Sources[0] = pplir.Source{Constant: true, Const: [4]float64{1}}
	add.Sources[1] = pplir.Source{Constant: true, Const: [4]float64{2}}
	blk.AppendInstr(add)

	LinearToScheduledPP(prog)
	CombinePP(prog)

	if blk.NumBundles() != 1 {
		t.Fatalf("expected the two disjoint-unit bundles to merge into 1, got %d", blk.NumBundles())
	}
	merged := blk.FirstBundle()
	if merged.ALUInstrs[pplir.SlotCombine] != mov || merged.ALUInstrs[pplir.SlotVectorAdd] != add {
		t.Fatal("merged bundle should retain both instructions in their original slots")
	}
}

// TestEliminateDiscardMovesMigratesSoleDef checks a bundle-final move into
// the discard pipeline register, sourced from a register with exactly one
// def, has that def migrated into its own bundle and the move dropped.
func TestEliminateDiscardMovesMigratesSoleDef(t *testing.T) {
	prog := pplir.NewProgram()
	blk := prog.NewBlock()

	reg := prog.NewReg(4)
	add := pplir.NewInstr(pphir.OpAdd)
	add.Dest = pplir.Dest{Reg: reg, Mask: [4]bool{true, true, true, true}}
	add.Sources[0] = pplir.Source{Constant: true, Const: [4]float64{1}}
	add.Sources[1] = pplir.Source{Constant: true, Const: [4]float64{2}}
	blk.AppendInstr(add)

	mov := pplir.NewInstr(pphir.OpMov)
	mov.Dest = pplir.Dest{Pipeline: true, PipelineReg: pplir.PipelineDiscard, Mask: [4]bool{true, true, true, true}}
	mov.Sources[0] = pplir.Source{Reg: reg, Swizzle: [4]int{0, 1, 2, 3}}
	blk.AppendInstr(mov)

	reg.Defs.Add(add)
	reg.Uses.Add(mov)

	LinearToScheduledPP(prog)
	addBundle := blk.FirstBundle()
	movBundle := addBundle.Next()

	PeepholePP(prog)

	if movBundle.ALUInstrs[pplir.SlotCombine] != add {
		t.Fatalf("add should have migrated into the move's bundle/slot")
	}
}

// TestInlineUniformsClonesLoadIntoSoleConsumer checks a uniform load with a
// sole use in the immediately following bundle has that load cloned into
// the consumer's (free) uniform slot, with the consumer's source rewritten
// to read ^uniform directly.
func TestInlineUniformsClonesLoadIntoSoleConsumer(t *testing.T) {
	prog := pplir.NewProgram()
	blk := prog.NewBlock()

	reg := prog.NewReg(4)
	load := pplir.NewInstr(pphir.OpLoadUFour)
	load.Dest = pplir.Dest{Reg: reg, Mask: [4]bool{true, true, true, true}}
	blk.AppendInstr(load)

	mov := pplir.NewInstr(pphir.OpMov)
	mov.Dest = pplir.Dest{Pipeline: true, PipelineReg: pplir.PipelineDiscard, Mask: [4]bool{true, true, true, true}}
	mov.Sources[0] = pplir.Source{Reg: reg, Swizzle: [4]int{0, 1, 2, 3}}
	blk.AppendInstr(mov)

	reg.Defs.Add(load)
	reg.Uses.Add(mov)

	LinearToScheduledPP(prog)
	loadBundle := blk.FirstBundle()
	movBundle := loadBundle.Next()

	PeepholePP(prog)

	if loadBundle.Uniform != nil {
		t.Fatal("original bundle's uniform slot should be cleared once the load moves")
	}
	if movBundle.Uniform == nil {
		t.Fatal("expected the load to be cloned into the consumer's bundle")
	}
	src := movBundle.ALUInstrs[pplir.SlotCombine].Sources[0]
	if !src.Pipeline || src.PipelineReg != pplir.PipelineUniform {
		t.Fatal("expected the consumer's source to be rewritten to read ^uniform")
	}
}

// TestInlineVaryingsClonesLoadIntoSoleConsumer checks a varying load with a
// sole use in the immediately following bundle has that load cloned — under
// a fresh register — into the consumer's (free) varying slot, with the
// consumer's source rewritten to the new register.
func TestInlineVaryingsClonesLoadIntoSoleConsumer(t *testing.T) {
	prog := pplir.NewProgram()
	blk := prog.NewBlock()

	reg := prog.NewReg(4)
	load := pplir.NewInstr(pphir.OpLoadVFour)
	load.Dest = pplir.Dest{Reg: reg, Mask: [4]bool{true, true, true, true}}
	blk.AppendInstr(load)

	add := pplir.NewInstr(pphir.OpAdd)
	add.Dest = pplir.Dest{Reg: prog.NewReg(4), Mask: [4]bool{true, true, true, true}}
	add.Sources[0] = pplir.Source{Reg: reg, Swizzle: [4]int{0, 1, 2, 3}}
	add.Sources[1] = pplir.Source{Constant: true, Const: [4]float64{1, 1, 1, 1}}
	blk.AppendInstr(add)

	reg.Defs.Add(load)
	reg.Uses.Add(add)

	LinearToScheduledPP(prog)
	loadBundle := blk.FirstBundle()
	addBundle := loadBundle.Next()

	PeepholePP(prog)

	if loadBundle.Varying != nil {
		t.Fatal("original bundle's varying slot should be cleared once the load moves")
	}
	if addBundle.Varying == nil {
		t.Fatal("expected the load to be cloned into the consumer's bundle")
	}
	src := addBundle.ALUInstrs[pplir.SlotVectorAdd].Sources[0]
	if src.Reg == nil || src.Reg == reg {
		t.Fatal("expected the add's source to be rewritten to a fresh register")
	}
	if src.Reg != addBundle.Varying.Dest.Reg {
		t.Fatal("rewritten source should point at the cloned load's destination register")
	}
}
