package driver

import (
	"github.com/limashader/malisc/internal/gpir"
	"github.com/limashader/malisc/internal/regalloc"
	"github.com/limashader/malisc/internal/sched"
	"github.com/limashader/malisc/internal/xform"
)

// optimizeGP runs the full GP optimization, allocation and scheduling
// pipeline over prog (spec.md §4.3-§4.12): SSA construction, if-conversion
// to a fixed point, constant folding to a fixed point, algebraic lowering,
// phi elimination, register allocation, then dependency-graph scheduling
// into bundles.
//
// sched.PackGP's result type is package-private to internal/sched, so its
// schedule is walked entirely within this function rather than retained on
// Shader: the two FINS fields internal/mbs needs (num_instructions,
// attrib_prefetch) and a placeholder machine-code encoding are extracted
// here and returned as plain values.
func optimizeGP(prog *gpir.Program) (code []byte, numInstructions, attribPrefetch uint32) {
	xform.ConstructSSA(prog)
	xform.IfConvert(prog)
	for xform.FoldConstants(prog) {
	}
	xform.AlgebraicLower(prog)
	xform.EliminatePhis(prog)
	regalloc.AllocateGP(prog)

	g := sched.BuildGP(prog)
	g.CalcCritPath(prog)
	schedules := sched.PackGP(prog, g)

	enc := gpCodeEncoder{}
	for _, b := range prog.Blocks {
		sc := schedules[b]
		for _, bundle := range sc.Bundles {
			enc.bundle(bundle)
			numInstructions++
			// attrib_prefetch stands in for codegen.c's prefetch-depth
			// computation, which did not survive distillation into
			// original_source (only its signature did, in gp_ir.h): a
			// count of the vertex program's total attribute-load bundles,
			// rather than a latency-aware concurrent-in-flight count,
			// documented as a scoping simplification in DESIGN.md.
			if bundle.Attribute != nil {
				attribPrefetch++
			}
		}
	}
	return enc.buf, numInstructions, attribPrefetch
}

// gpCodeEncoder builds a placeholder per-bundle byte encoding for DBIN: one
// byte per VLIW slot naming the gpir.Op occupying it (0 for an empty slot),
// in the bundle's fixed slot order. This is not the mali-200/400 machine
// word bit-packer (out of scope, spec.md line 16) — it exists only so a
// compiled vertex shader's DBIN chunk is non-empty and reflects the final
// scheduled program (spec.md §8 scenario S1).
type gpCodeEncoder struct{ buf []byte }

func (e *gpCodeEncoder) slot(n *gpir.Node) {
	if n == nil {
		e.buf = append(e.buf, 0)
		return
	}
	e.buf = append(e.buf, byte(n.Op)+1)
}

func (e *gpCodeEncoder) bundle(b *sched.Bundle) {
	e.slot(b.MulSlots[0])
	e.slot(b.MulSlots[1])
	e.slot(b.AddSlots[0])
	e.slot(b.AddSlots[1])
	e.slot(b.Complex)
	e.slot(b.Passthrough)
	e.slot(b.Branch)
	e.slot(b.Uniform)
	e.slot(b.Attribute)
	e.slot(b.Register)
	for _, s := range b.Store {
		e.slot(s)
	}
}
