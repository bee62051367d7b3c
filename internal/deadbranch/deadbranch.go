// Package deadbranch annotates each if statement in a structured high-level
// IR with whether control can ever reach past its then/else arms, following
// spec.md §4.1. Grounded directly on original_source's
// src/glsl/ir_dead_branches.cpp: a single recursive visitor carrying three
// pieces of state (the nearest enclosing if's record, whether we're
// currently in its then-arm, and whether a loop lies between the current
// position and that if) reproduces the exact propagation rules the original
// implements, including the return-vs-loop-jump distinction called out in
// its header comment.
package deadbranch

import "github.com/limashader/malisc/internal/hir"

// Info is the per-if annotation spec.md §4.1 asks for.
type Info struct {
	ThenDead, ElseDead             bool
	ThenDeadReturn, ElseDeadReturn bool
}

// Analyze walks stmts (normally a function body) and returns a mapping from
// every *hir.StructStmt of kind StmtIf encountered to its Info.
func Analyze(stmts []*hir.StructStmt) map[*hir.StructStmt]*Info {
	v := &visitor{result: make(map[*hir.StructStmt]*Info)}
	v.walkList(stmts)
	return v.result
}

type visitor struct {
	result  map[*hir.StructStmt]*Info
	outerDB *Info
	inLoop  bool
	inThen  bool
}

func (v *visitor) walkList(stmts []*hir.StructStmt) {
	for _, s := range stmts {
		v.walk(s)
	}
}

func (v *visitor) walk(s *hir.StructStmt) {
	switch s.Kind {
	case hir.StmtIf:
		v.visitIf(s)
	case hir.StmtLoop:
		v.visitLoop(s)
	case hir.StmtBreak, hir.StmtContinue:
		v.markDead(false)
	case hir.StmtReturn, hir.StmtDiscard:
		v.markDead(true)
	default:
		// Plain statement: no control-flow effect.
	}
}

// markDead records a loop-jump (viaReturn=false) or return/discard
// (viaReturn=true) against the nearest enclosing if's active arm. Mirrors
// ir_dead_branches_visitor::visit(ir_loop_jump) and
// ir_dead_branches_visitor::visit_return_or_discard.
func (v *visitor) markDead(viaReturn bool) {
	if v.outerDB == nil {
		return
	}
	if v.inThen {
		v.outerDB.ThenDead = true
		if viaReturn {
			v.outerDB.ThenDeadReturn = true
		}
	} else {
		v.outerDB.ElseDead = true
		if viaReturn {
			v.outerDB.ElseDeadReturn = true
		}
	}
}

func (v *visitor) visitIf(ifStmt *hir.StructStmt) {
	db := &Info{}
	v.result[ifStmt] = db

	oldOuter, oldInLoop, oldInThen := v.outerDB, v.inLoop, v.inThen
	v.outerDB = db
	v.inLoop = false

	v.inThen = true
	v.walkList(ifStmt.Then)
	v.inThen = false
	v.walkList(ifStmt.Else)

	v.outerDB, v.inLoop, v.inThen = oldOuter, oldInLoop, oldInThen

	if db.ThenDead && db.ElseDead && v.outerDB != nil {
		if v.inThen {
			if db.ThenDeadReturn && db.ElseDeadReturn {
				v.outerDB.ThenDead = true
				v.outerDB.ThenDeadReturn = true
			} else if !v.inLoop {
				v.outerDB.ThenDead = true
			}
		} else {
			if db.ThenDeadReturn && db.ElseDeadReturn {
				v.outerDB.ElseDead = true
				v.outerDB.ElseDeadReturn = true
			} else if !v.inLoop {
				v.outerDB.ElseDead = true
			}
		}
	}
}

func (v *visitor) visitLoop(loop *hir.StructStmt) {
	oldInLoop := v.inLoop
	v.inLoop = true
	v.walkList(loop.Body)
	v.inLoop = oldInLoop
}
