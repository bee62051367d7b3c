package pplir

import (
	"testing"

	"github.com/limashader/malisc/internal/pphir"
)

// buildSampleProgram builds a two-block program with a general register, a
// pipeline-register source, an immediate-constant source, and a branch
// crossing block indices, so ExportProgram/ImportProgram exercises each
// operand kind, masks, modifiers and block edges; the allocation-outcome
// register fields are covered by TestExportImportProgramPreservesRegisterAlias.
func buildSampleProgram() *Program {
	prog := NewProgram()
	reg := prog.NewReg(2)
	reg.Beginning = true

	b0 := prog.NewBlock()
	b1 := prog.NewBlock()
	b0.Succs[0] = 1
	b0.NumSuccs = 1
	b1.Preds = []int{0}
	b1.IsEnd = true

	mov := NewInstr(pphir.OpMov)
	mov.Sources[0].Pipeline = true
	mov.Sources[0].PipelineReg = PipelineUniform
	mov.Sources[0].Swizzle = [4]int{0, 1, 2, 3}
	mov.Dest.Reg = reg
	mov.Dest.Mask = [4]bool{true, true, false, false}
	mov.Dest.Modifier = pphir.OutMod(1)
	b0.AppendInstr(mov)

	br := NewInstr(pphir.OpBranch)
	br.BranchDest = 1
	b0.AppendInstr(br)

	add := NewInstr(pphir.OpAdd)
	add.Sources[0].Reg = reg
	add.Sources[0].Negate = true
	add.Sources[1].Constant = true
	add.Sources[1].Const = [4]float64{1, 2, 3, 4}
	add.Dest.Pipeline = true
	add.Dest.PipelineReg = PipelineDiscard
	add.Dest.Mask = [4]bool{true, true, true, true}
	add.Shift = -1
	add.LoadStoreIndex = 7
	b1.AppendInstr(add)

	return prog
}

func TestExportImportProgramRoundTrips(t *testing.T) {
	prog := buildSampleProgram()
	data := ExportProgram(prog)
	got := ImportProgram(data)

	if got.RegAlloc != prog.RegAlloc || got.TempAlloc != prog.TempAlloc {
		t.Fatalf("alloc counters: got {%d,%d}, want {%d,%d}", got.RegAlloc, got.TempAlloc, prog.RegAlloc, prog.TempAlloc)
	}
	if len(got.Regs) != 1 {
		t.Fatalf("expected 1 register, got %d", len(got.Regs))
	}
	reg := got.Regs[0]
	if reg.Size != 2 || !reg.Beginning {
		t.Fatalf("register fields not preserved: %+v", reg)
	}

	if len(got.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(got.Blocks))
	}
	gb0, gb1 := got.Blocks[0], got.Blocks[1]

	if gb0.Succs[0] != 1 || gb0.NumSuccs != 1 {
		t.Fatalf("b0 succs not preserved: %+v", gb0.Succs)
	}
	if len(gb1.Preds) != 1 || gb1.Preds[0] != 0 {
		t.Fatalf("b1 preds not preserved: %v", gb1.Preds)
	}
	if !gb1.IsEnd {
		t.Fatal("b1.IsEnd not preserved")
	}

	if len(gb0.Instrs) != 2 {
		t.Fatalf("b0: got %d instrs, want 2", len(gb0.Instrs))
	}
	gmov := gb0.Instrs[0]
	if gmov.Op != pphir.OpMov {
		t.Fatalf("expected b0's first instr to be a mov, got %v", gmov.Op)
	}
	if !gmov.Sources[0].Pipeline || gmov.Sources[0].PipelineReg != PipelineUniform {
		t.Fatalf("mov source pipeline fields not preserved: %+v", gmov.Sources[0])
	}
	if gmov.Sources[0].Swizzle != [4]int{0, 1, 2, 3} {
		t.Fatalf("mov source swizzle not preserved: %v", gmov.Sources[0].Swizzle)
	}
	if gmov.Dest.Reg != reg {
		t.Fatal("mov dest should reference the imported register")
	}
	if gmov.Dest.Mask != [4]bool{true, true, false, false} {
		t.Fatalf("mov dest mask not preserved: %v", gmov.Dest.Mask)
	}
	if gmov.Dest.Modifier != pphir.OutMod(1) {
		t.Fatalf("mov dest modifier not preserved: %v", gmov.Dest.Modifier)
	}

	gbr := gb0.Instrs[1]
	if gbr.Op != pphir.OpBranch || gbr.BranchDest != 1 {
		t.Fatalf("branch instr not preserved: %+v", gbr)
	}

	if len(gb1.Instrs) != 1 {
		t.Fatalf("b1: got %d instrs, want 1", len(gb1.Instrs))
	}
	gadd := gb1.Instrs[0]
	if gadd.Op != pphir.OpAdd || gadd.Shift != -1 || gadd.LoadStoreIndex != 7 {
		t.Fatalf("add instr scalar fields not preserved: %+v", gadd)
	}
	if gadd.Sources[0].Reg != reg || !gadd.Sources[0].Negate {
		t.Fatalf("add source 0 not preserved: %+v", gadd.Sources[0])
	}
	if !gadd.Sources[1].Constant || gadd.Sources[1].Const != [4]float64{1, 2, 3, 4} {
		t.Fatalf("add source 1 constant not preserved: %+v", gadd.Sources[1])
	}
	if !gadd.Dest.Pipeline || gadd.Dest.PipelineReg != PipelineDiscard {
		t.Fatalf("add dest pipeline fields not preserved: %+v", gadd.Dest)
	}

	// Defs/Uses are reconstructed from operands, not carried as an
	// independent wire table.
	if reg.Defs.Len() != 1 {
		t.Fatalf("expected register to have 1 def after import, got %d", reg.Defs.Len())
	}
	if reg.Uses.Len() != 1 {
		t.Fatalf("expected register to have 1 use after import, got %d", reg.Uses.Len())
	}
	if !reg.Defs.Has(gmov) {
		t.Fatal("expected the mov instruction to be recorded as the register's def")
	}
	if !reg.Uses.Has(gadd) {
		t.Fatal("expected the add instruction to be recorded as the register's use")
	}
}

func TestExportImportProgramPreservesRegisterAlias(t *testing.T) {
	prog := NewProgram()
	target := prog.NewReg(1)
	aliased := prog.NewReg(1)
	aliased.State = RegCoalesced
	aliased.Alias = target
	aliased.AliasSwizzle = [4]int{1, 0, 0, 0}

	data := ExportProgram(prog)
	got := ImportProgram(data)

	if len(got.Regs) != 2 {
		t.Fatalf("expected 2 registers, got %d", len(got.Regs))
	}
	gotAliased := got.Regs[1]
	if gotAliased.State != RegCoalesced {
		t.Fatalf("expected coalesced state to be preserved, got %v", gotAliased.State)
	}
	if gotAliased.Alias != got.Regs[0] {
		t.Fatal("expected alias to resolve to the imported target register")
	}
	if gotAliased.AliasSwizzle != [4]int{1, 0, 0, 0} {
		t.Fatalf("alias swizzle not preserved: %v", gotAliased.AliasSwizzle)
	}
}

func TestExportProgramEmptyProgramRoundTrips(t *testing.T) {
	prog := NewProgram()
	data := ExportProgram(prog)
	got := ImportProgram(data)
	if len(got.Blocks) != 0 || len(got.Regs) != 0 {
		t.Fatalf("expected an empty program to round-trip to another empty program, got %+v", got)
	}
}
