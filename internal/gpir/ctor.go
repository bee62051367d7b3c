package gpir

// NewALU creates an unlinked ALU node. Callers attach children with
// SetALUChild followed by Link.
func NewALU(op Op) *Node {
	return newNode(KindALU, op)
}

// SetALUChild sets child slot i (source-order operand index) of an ALU node
// to child, with optional per-source negation, and links it.
func SetALUChild(alu *Node, i int, child *Node, negate bool) {
	alu.ALUChildren[i] = child
	alu.ChildrenNegate[i] = negate
	Link(alu, child)
}

// NewConst creates a const node carrying value.
func NewConst(value float64) *Node {
	n := newNode(KindConst, OpConst)
	n.Constant = value
	return n
}

// NewClampConst creates a clamp-const node; child is linked if non-nil
// (inline constants created directly from a uniform have no child).
func NewClampConst(low, high float64, inline bool, uniformIndex uint32) *Node {
	n := newNode(KindClampConst, OpClampConst)
	n.Low, n.High = low, high
	n.IsInlineConst = inline
	n.UniformIndex = uniformIndex
	return n
}

// SetClampChild sets and links the clamp-const's operand.
func SetClampChild(cc, child *Node) {
	cc.ClampChild = child
	Link(cc, child)
}

// NewLoad creates a load_uniform/load_temp/load_attribute node.
func NewLoad(op Op, index uint32, component uint8) *Node {
	n := newNode(KindLoad, op)
	n.LoadIndex = index
	n.Component = component
	return n
}

// SetLoadOffset attaches an indexed-addressing offset expression to a load
// node (uniform/temp loads only).
func SetLoadOffset(load, offset *Node) {
	load.HasOffset = true
	load.OffsetNode = offset
	Link(load, offset)
}

// NewLoadReg creates a load from a virtual register.
func NewLoadReg(reg *Register, component uint8) *Node {
	n := newNode(KindLoadReg, OpLoadReg)
	n.Reg = reg
	n.Component = component
	reg.AddUse(n)
	return n
}

// SetLoadRegOffset attaches an indexed offset to a register load.
func SetLoadRegOffset(load, offset *Node) {
	load.LoadRegOffset = offset
	Link(load, offset)
}

// NewStore creates a store_temp/store_varying/store_temp_load_off* root
// node. index must be zero for store_temp per spec.md §3.
func NewStore(op Op, index uint32) *Node {
	n := newNode(KindStore, op)
	n.StoreIndex = index
	return n
}

// SetStoreChild sets and links store component i.
func SetStoreChild(store *Node, i int, child *Node) {
	store.Mask[i] = true
	store.StoreChildren[i] = child
	Link(store, child)
}

// SetStoreAddr attaches the temp address expression of a store_temp*.
func SetStoreAddr(store, addr *Node) {
	store.Addr = addr
	Link(store, addr)
}

// NewStoreReg creates a store-to-register root node.
func NewStoreReg(reg *Register) *Node {
	n := newNode(KindStoreReg, OpStoreReg)
	n.StoreReg = reg
	reg.AddDef(n)
	return n
}

// SetStoreRegChild sets and links store-to-register component i.
func SetStoreRegChild(store *Node, i int, child *Node) {
	store.Mask[i] = true
	store.StoreChildren[i] = child
	Link(store, child)
}

// NewBranch creates a conditional or unconditional branch root node.
func NewBranch(op Op, dest *Block) *Node {
	n := newNode(KindBranch, op)
	n.Dest = dest
	return n
}

// SetBranchCondition attaches and links the branch condition (absent for
// branch_uncond).
func SetBranchCondition(br, cond *Node) {
	br.Condition = cond
	Link(br, cond)
}

// NewPhi creates a phi node with num sources pre-allocated but unset.
func NewPhi(dest *Register, num int) *Node {
	n := newNode(KindPhi, OpPhi)
	n.PhiDest = dest
	n.PhiSources = make([]PhiSrc, num)
	dest.AddDef(n)
	return n
}
