package xform

import (
	"github.com/limashader/malisc/internal/mbs"
	"github.com/limashader/malisc/internal/pphir"
	"github.com/limashader/malisc/internal/pplir"
)

// fragCoordScale is the mali-200-only correction gl_FragCoord needs: the
// rasterizer's window-space coordinate comes in pre-scaled by the
// fixed-function unit on mali-400, but mali-200 leaves that scale for the
// shader to apply (spec.md §6.3's "gl_FragCoord needs an extra multiply on
// mali-200 only").
const fragCoordScale = 0.0625

// pointCoordScale/pointCoordBias are the mali-200-only affine correction
// gl_PointCoord needs to land in the [0,1] range the GLSL ES spec promises
// (spec.md §6.3's "gl_PointCoord needs a scale+bias on mali-200 only").
const pointCoordScale = 0.5
const pointCoordBias = 0.5

// LowerCoreIntrinsics rewrites gl_FragCoord/gl_PointCoord reads for
// mali-200's hardware quirks, a no-op on mali-400. It runs over already
// command-to-register-lowered PP LIR rather than PP HIR, since both
// implicit-input ops survive unchanged from HIR into LIR (pplir.Instr.Op
// reuses pphir's Op vocabulary directly — see internal/pplir/instr.go).
//
// Each fixup keeps the original instruction's destination register live for
// every existing consumer: the producing instruction is retargeted to a
// fresh temporary, and a new instruction computing the correction from that
// temporary is inserted immediately after it, writing the original
// destination.
func LowerCoreIntrinsics(prog *pplir.Program, core mbs.CoreVariant) {
	if core != mbs.CoreMali200 {
		return
	}
	for _, b := range prog.Blocks {
		b.Instrs = lowerBlockIntrinsics(prog, b.Instrs)
	}
}

func lowerBlockIntrinsics(prog *pplir.Program, instrs []*pplir.Instr) []*pplir.Instr {
	out := make([]*pplir.Instr, 0, len(instrs))
	for _, instr := range instrs {
		out = append(out, instr)
		switch instr.Op {
		case pphir.OpFragCoordImpl:
			out = append(out, fragCoordFixup(prog, instr))
		case pphir.OpPointCoordImpl:
			out = append(out, pointCoordFixup(prog, instr)...)
		}
	}
	return out
}

// retargetDest points instr's destination at newDest and returns instr's
// previous destination register, so the caller can splice in correction
// instructions that still feed every existing consumer of that register.
func retargetDest(instr *pplir.Instr, newDest *pplir.Register) *pplir.Register {
	dest := instr.Dest.Reg
	instr.Dest.Reg = newDest
	instr.LinkRegisters()
	return dest
}

func fragCoordFixup(prog *pplir.Program, instr *pplir.Instr) *pplir.Instr {
	tmp := prog.NewReg(instr.Dest.Reg.Size)
	tmp.Beginning = instr.Dest.Reg.Beginning
	dest := retargetDest(instr, tmp)

	mul := pplir.NewInstr(pphir.OpMul)
	mul.Sources[0] = pplir.Source{Reg: tmp, Swizzle: [4]int{0, 1, 2, 3}}
	mul.Sources[1] = pplir.Source{Constant: true, Const: [4]float64{fragCoordScale, fragCoordScale, 1, 1}}
	mul.Dest = pplir.Dest{Reg: dest, Mask: [4]bool{true, true, true, true}}
	mul.LinkRegisters()
	return mul
}

// pointCoordFixup applies coord*scale+bias to the x/y channels only, using
// an lrp-shaped pair of ops (mul then add) rather than a single fused op
// since pphir's vocabulary has no three-operand scale-and-bias primitive.
func pointCoordFixup(prog *pplir.Program, instr *pplir.Instr) []*pplir.Instr {
	scaled := prog.NewReg(instr.Dest.Reg.Size)
	scaled.Beginning = instr.Dest.Reg.Beginning
	final := retargetDest(instr, scaled)

	mul := pplir.NewInstr(pphir.OpMul)
	mul.Sources[0] = pplir.Source{Reg: scaled, Swizzle: [4]int{0, 1, 2, 3}}
	mul.Sources[1] = pplir.Source{Constant: true, Const: [4]float64{pointCoordScale, pointCoordScale, 1, 1}}
	mul.Dest = pplir.Dest{Reg: scaled, Mask: [4]bool{true, true, false, false}}
	mul.LinkRegisters()

	add := pplir.NewInstr(pphir.OpAdd)
	add.Sources[0] = pplir.Source{Reg: scaled, Swizzle: [4]int{0, 1, 2, 3}}
	add.Sources[1] = pplir.Source{Constant: true, Const: [4]float64{pointCoordBias, pointCoordBias, 0, 0}}
	add.Dest = pplir.Dest{Reg: final, Mask: [4]bool{true, true, true, true}}
	add.LinkRegisters()

	return []*pplir.Instr{mul, add}
}
