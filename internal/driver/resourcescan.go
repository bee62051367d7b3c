package driver

import (
	"github.com/limashader/malisc/internal/mbs"
	"github.com/limashader/malisc/internal/pplir"
)

// scanFragmentResources walks a finished (scheduled, allocated) PP LIR
// program and derives the FBUU/FSTA/FDIS fields spec.md §6.1's CFRA chunk
// needs, supplementing the distilled spec with the "fragment resource
// scan" SPEC_FULL.md calls for.
//
// The PP opcode vocabulary this module implements (internal/pphir) has no
// framebuffer-blend read, depth-write, or stencil-write op, so
// ReadsColor/ReadsDepth/WritesDepth/ReadsStencil/WritesStencil are always
// false: there is nothing in a compiled program that could set them. Only
// WritesColor and HasDiscard are ever derived from real program content.
// This is narrower than original_source's export_fbuu (whose inputs
// ultimately come from GLSL front-end declarations this module's input
// boundary sits downstream of), and is recorded as a scoping simplification
// rather than silently guessed at.
func scanFragmentResources(prog *pplir.Program) mbs.FragmentInfo {
	info := mbs.FragmentInfo{}
	for _, b := range prog.Blocks {
		if b.Discard {
			info.HasDiscard = true
		}
		for _, instr := range b.Instrs {
			if instr.Dest.Pipeline && instr.Dest.PipelineReg == pplir.PipelineDiscard {
				info.WritesColor = true
			}
		}
	}
	info.StackSize = prog.TempAlloc * 4
	return info
}
