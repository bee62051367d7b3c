package pphir

// Source is one operand of a Command: either a literal constant vector or a
// reference to an earlier Command's destination, each with its own
// swizzle/absolute/negate modifiers (spec.md §3, "source operands
// referencing other commands, constants, or pipeline-register references").
// Grounded on from_glsl.cpp's cmd->src[i] usage and lower.c's convert_instr,
// which copies exactly these fields across to PP LIR unchanged.
type Source struct {
	IsConst  bool
	Const    [4]float64
	Depend   *Command // meaningful iff !IsConst.
	Swizzle  [4]int   // which component of Depend's (or Const's) vector each output lane reads.
	Absolute bool
	Negate   bool
}

// ConstSource builds a constant operand.
func ConstSource(v [4]float64) Source {
	return Source{IsConst: true, Const: v, Swizzle: [4]int{0, 1, 2, 3}}
}

// DependSource builds an operand referencing another command's result.
func DependSource(dep *Command) Source {
	return Source{Depend: dep, Swizzle: [4]int{0, 1, 2, 3}}
}

// Dest is a Command's destination: a virtual register, the output modifier
// applied on write, and the component count written (Size components; the
// original's dst.reg.size is zero-based, stored here as a 1-based Size
// field for readability).
type Dest struct {
	Reg      RegID
	Size     int // 1..4 components.
	Modifier OutMod
}

// RegID names a pphir virtual register, assigned densely by Program.NewReg
// the same way gpir.Register indices are assigned (spec.md §9, "no
// process-wide counters").
type RegID uint32

// Command is one linear PP HIR instruction: an operation, up to three
// source operands, an optional destination, and PP-specific metadata (the
// mul shift amount, and the varying/uniform/temp slot index for load/store
// ops). Grounded on lima_pp_hir_cmd_t as reconstructed from lower.c's
// convert_instr/convert_combine.
type Command struct {
	Op   Op
	Src  [3]Source
	Dst  Dest
	Shift int8 // only meaningful for Op == OpMul.

	// LoadStoreIndex is the varying/uniform/temp slot this command reads or
	// writes, valid iff Op.IsLoadStore().
	LoadStoreIndex uint32

	// NumArgs is the live prefix length of Src actually used by variadic ops
	// (OpCombine may consume between 1 and 4 sources, one per packed
	// component; convert_combine in the original walks cmd->num_args).
	NumArgs int

	block *Block
}

// Block returns the block this command belongs to.
func (c *Command) Block() *Block { return c.block }

// PhiSrc is one source of a phi command: the register live out of Pred.
type PhiSrc struct {
	Reg  RegID
	Pred *Block
}

// NewCommand allocates a detached command; callers append it to a block
// with Block.Append or Block.Prepend.
func NewCommand(op Op) *Command {
	return &Command{Op: op}
}
