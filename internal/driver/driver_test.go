package driver

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/limashader/malisc/internal/gpir"
	"github.com/limashader/malisc/internal/mbs"
	"github.com/limashader/malisc/internal/pphir"
	"github.com/limashader/malisc/internal/pplir"
	"github.com/limashader/malisc/internal/symbols"
)

// buildPassthroughVertex builds a trivial one-block GP program that stores a
// constant to varying slot 0, the vertex-side analogue of spec.md §8
// scenario S1's trivial pass-through shader.
func buildPassthroughVertex() (*gpir.Program, *symbols.ShaderSymbols) {
	prog := gpir.NewProgram()
	blk := prog.NewBlock()
	prog.InsertEnd(blk)

	store := gpir.NewStore(gpir.OpStoreVarying, 0)
	gpir.SetStoreChild(store, 0, gpir.NewConst(1))
	blk.InsertEnd(store)

	syms := &symbols.ShaderSymbols{}
	syms.AddAttribute(symbols.NewSymbol(symbols.TypeVec4, symbols.PrecisionHigh, "a_position", 0))
	syms.AddVarying(symbols.NewSymbol(symbols.TypeVec4, symbols.PrecisionHigh, "v_color", 0))
	return prog, syms
}

// buildPassthroughFragment builds a trivial one-block PP LIR program that
// writes a constant straight to the color output pipeline register.
func buildPassthroughFragment() (*pplir.Program, *symbols.ShaderSymbols) {
	prog := pplir.NewProgram()
	blk := prog.NewBlock()

	instr := pplir.NewInstr(pphir.OpMov)
	instr.Sources[0] = pplir.Source{Constant: true, Const: [4]float64{1, 1, 1, 1}}
	instr.Dest = pplir.Dest{Pipeline: true, PipelineReg: pplir.PipelineDiscard, Mask: [4]bool{true, true, true, true}}
	instr.LinkRegisters()
	blk.AppendInstr(instr)

	syms := &symbols.ShaderSymbols{}
	return prog, syms
}

func TestCompileVertexPassthrough(t *testing.T) {
	prog, syms := buildPassthroughVertex()
	s := Create(symbols.StageVertex, Config{Core: mbs.CoreMali400})
	if !s.Parse(prog, nil, syms) {
		t.Fatalf("Parse failed: %s", s.InfoLog())
	}
	if !s.Compile() {
		t.Fatalf("Compile failed: %s", s.InfoLog())
	}
	if s.Error() {
		t.Fatalf("shader reported an error with no info log: %q", s.InfoLog())
	}

	if got := s.Symbols.UniformTable.Find("gl_mali_ViewportTransform"); got == nil {
		t.Fatal("expected gl_mali_ViewportTransform to be inserted into the uniform table")
	}

	chunk := s.ExportOffline()
	if chunk == nil {
		t.Fatal("ExportOffline returned nil for a successfully compiled shader")
	}
	if len(chunk.Export()) == 0 {
		t.Fatal("exported MBS1 container is empty")
	}
}

func TestCompileVertexInsertsViewportUniformOnlyOnce(t *testing.T) {
	prog, syms := buildPassthroughVertex()
	syms.AddUniform(symbols.NewSymbol(symbols.TypeVec4, symbols.PrecisionHigh, "gl_mali_ViewportTransform", 2))
	before := len(syms.UniformTable.Symbols)

	s := Create(symbols.StageVertex, Config{Core: mbs.CoreMali200})
	if !s.Parse(prog, nil, syms) {
		t.Fatalf("Parse failed: %s", s.InfoLog())
	}
	if !s.Compile() {
		t.Fatalf("Compile failed: %s", s.InfoLog())
	}

	names := make([]string, 0, len(s.Symbols.UniformTable.Symbols))
	for _, sym := range s.Symbols.UniformTable.Symbols {
		if sym.Name == "gl_mali_ViewportTransform" {
			names = append(names, sym.Name)
		}
	}
	if diff := cmp.Diff([]string{"gl_mali_ViewportTransform"}, names); diff != "" {
		t.Fatalf("expected exactly one viewport uniform entry (mismatch +got -want):\n%s", diff)
	}
	if len(syms.UniformTable.Symbols) != before {
		t.Fatalf("expected no duplicate uniform insertion: before=%d after=%d", before, len(syms.UniformTable.Symbols))
	}
}

func TestCompileFragmentPassthrough(t *testing.T) {
	prog, syms := buildPassthroughFragment()
	s := Create(symbols.StageFragment, Config{Core: mbs.CoreMali200})
	if !s.Parse(nil, prog, syms) {
		t.Fatalf("Parse failed: %s", s.InfoLog())
	}
	if !s.Compile() {
		t.Fatalf("Compile failed: %s", s.InfoLog())
	}

	chunk := s.ExportOffline()
	if chunk == nil {
		t.Fatal("ExportOffline returned nil for a successfully compiled shader")
	}
	if len(chunk.Export()) == 0 {
		t.Fatal("exported MBS1 container is empty")
	}
}

func TestParseRejectsMismatchedStage(t *testing.T) {
	s := Create(symbols.StageVertex, Config{})
	if s.Parse(nil, pplir.NewProgram(), &symbols.ShaderSymbols{}) {
		t.Fatal("expected Parse to fail when a vertex shader is given no GP program")
	}
	if !s.Error() {
		t.Fatal("expected Error() to report true after a failed Parse")
	}
	if s.InfoLog() == "" {
		t.Fatal("expected a non-empty info log after a failed Parse")
	}
}

func TestExportOfflineNilAfterFailedCompile(t *testing.T) {
	s := Create(symbols.StageVertex, Config{})
	s.Parse(nil, pplir.NewProgram(), &symbols.ShaderSymbols{})
	if s.ExportOffline() != nil {
		t.Fatal("expected ExportOffline to return nil once the shader has failed")
	}
}
