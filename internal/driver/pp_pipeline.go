package driver

import (
	"github.com/limashader/malisc/internal/mbs"
	"github.com/limashader/malisc/internal/pplir"
	"github.com/limashader/malisc/internal/regalloc"
	"github.com/limashader/malisc/internal/sched"
	"github.com/limashader/malisc/internal/xform"
)

// optimizePP runs the full PP optimization, allocation and scheduling
// pipeline over prog (spec.md §4.8-§4.13): core-variant intrinsic
// correction, register allocation, linear-to-scheduled bundle packing,
// bundle combining to a fixed point, and the peephole passes
// (discard-move elimination, mul/add fusion, uniform and varying
// inlining). Returns a placeholder machine-code encoding for DBIN.
func optimizePP(prog *pplir.Program, core mbs.CoreVariant) []byte {
	xform.LowerCoreIntrinsics(prog, core)
	regalloc.AllocatePP(prog)

	sched.LinearToScheduledPP(prog)
	sched.CombinePP(prog)
	sched.PeepholePP(prog)

	enc := ppCodeEncoder{}
	for _, b := range prog.Blocks {
		for bn := b.FirstBundle(); bn != nil; bn = bn.Next() {
			enc.bundle(bn)
		}
	}
	return enc.buf
}

// ppCodeEncoder mirrors gpCodeEncoder for PP LIR's bundle shape: one byte
// per fixed-function/ALU slot naming the pphir.Op occupying it, not the
// real machine-word encoding (see gp_pipeline.go's gpCodeEncoder doc).
type ppCodeEncoder struct{ buf []byte }

func (e *ppCodeEncoder) slot(instr *pplir.Instr) {
	if instr == nil {
		e.buf = append(e.buf, 0)
		return
	}
	e.buf = append(e.buf, byte(instr.Op)+1)
}

func (e *ppCodeEncoder) bundle(b *pplir.Bundle) {
	e.slot(b.Varying)
	e.slot(b.Texld)
	e.slot(b.Uniform)
	for _, instr := range b.ALUInstrs {
		e.slot(instr)
	}
	e.slot(b.TempStore)
	e.slot(b.Branch)
}
