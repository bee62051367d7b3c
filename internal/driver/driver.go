// Package driver is the mid/back-end orchestrator: it takes already-built
// GP/PP IR plus a symbol table, runs each stage's optimization and
// scheduling pipeline, packs the symbol tables, and exports the result as
// an MBS1 container (spec.md §4, §6, §7). It corresponds to
// original_source's lima_shader_compile/lima_shader_export_offline pair.
package driver

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"

	"github.com/limashader/malisc/internal/gpir"
	"github.com/limashader/malisc/internal/mbs"
	"github.com/limashader/malisc/internal/pplir"
	"github.com/limashader/malisc/internal/symbols"
)

// Config holds driver tunables that don't belong on Shader itself: today
// just the target core, since every other pipeline choice (spec.md
// §4.3-§4.13's pass order) is fixed. Kept as its own struct, following the
// teacher's convention of a small config value threaded through a
// constructor rather than a pile of constructor parameters, so future
// tunables (a pass-disable flag, a scheduling heuristic knob) have
// somewhere to live without changing Create's signature.
type Config struct {
	Core mbs.CoreVariant
}

// Shader is one in-progress or finished compilation unit: the pre-built IR
// for its stage, its symbol table, and the log/result state Compile
// accumulates. Only one of GP/PP is populated, selected by Stage.
type Shader struct {
	Stage   symbols.Stage
	Config  Config
	Symbols *symbols.ShaderSymbols

	GP *gpir.Program
	PP *pplir.Program

	log    bytes.Buffer
	failed bool

	code         []byte
	vertexInfo   mbs.VertexInfo
	fragmentInfo mbs.FragmentInfo
}

// Create starts a new compilation unit for the given stage and core
// variant (lima_shader_create). Parse populates its IR and symbol table
// before Compile runs.
func Create(stage symbols.Stage, cfg Config) *Shader {
	return &Shader{Stage: stage, Config: cfg}
}

// Parse attaches already-built IR and a symbol table to the shader
// (lima_shader_compile's frontend-output intake). Exactly one of gp/pp
// must be non-nil, matching Stage; the GLSL front end that produces this
// IR is an external collaborator out of this module's scope (spec.md's
// Non-goals).
func (s *Shader) Parse(gp *gpir.Program, pp *pplir.Program, syms *symbols.ShaderSymbols) bool {
	switch s.Stage {
	case symbols.StageVertex:
		if gp == nil {
			return s.fail(errors.New("vertex shader requires a GP program"))
		}
		s.GP = gp
	case symbols.StageFragment:
		if pp == nil {
			return s.fail(errors.New("fragment shader requires a PP program"))
		}
		s.PP = pp
	default:
		return s.fail(errors.Errorf("unknown stage %v", s.Stage))
	}
	s.Symbols = syms
	return true
}

// Optimize runs the stage-appropriate optimization/allocation/scheduling
// pipeline (gp_pipeline.go's optimizeGP or pp_pipeline.go's optimizePP) and
// stashes its derived results on the shader for Compile to finish wiring
// into the symbol table and MBS1 export.
func (s *Shader) Optimize() bool {
	if s.failed {
		return false
	}
	switch s.Stage {
	case symbols.StageVertex:
		code, numInstructions, attribPrefetch := optimizeGP(s.GP)
		s.code = code
		s.vertexInfo = mbs.VertexInfo{NumInstructions: numInstructions, AttribPrefetch: attribPrefetch}
	case symbols.StageFragment:
		s.code = optimizePP(s.PP, s.Config.Core)
		s.fragmentInfo = scanFragmentResources(s.PP)
	}
	return !s.failed
}

// Compile runs Optimize (if not already run), inserts the driver-synthesized
// viewport uniform ahead of packing for the vertex stage, packs the symbol
// table, and records a "shader too large" failure if packing overflows
// (spec.md §7). It corresponds to lima_shader_compile.
func (s *Shader) Compile() bool {
	if s.failed {
		return false
	}
	if s.code == nil {
		if !s.Optimize() {
			return false
		}
	}
	if s.Stage == symbols.StageVertex {
		insertViewportUniform(s.Symbols)
	}
	if !symbols.Pack(s.Symbols, s.Stage) {
		return s.fail(errors.New("shader too large: symbol table packing overflowed its available space"))
	}
	return true
}

// InfoLog returns the accumulated compile log, the way
// lima_shader_get_info_log exposes glCompileShader's info log.
func (s *Shader) InfoLog() string {
	return s.log.String()
}

// Error reports whether compilation has failed.
func (s *Shader) Error() bool {
	return s.failed
}

// ExportOffline builds the shader's MBS1 container, dispatching to
// mbs.ExportVertex or mbs.ExportFragment by stage (lima_shader_export_offline).
// Returns nil if the shader never compiled successfully.
func (s *Shader) ExportOffline() *mbs.Chunk {
	if s.failed || s.code == nil {
		return nil
	}
	switch s.Stage {
	case symbols.StageVertex:
		return mbs.ExportVertex(s.Config.Core, s.vertexInfo, s.Symbols, s.code)
	case symbols.StageFragment:
		return mbs.ExportFragment(s.Config.Core, s.fragmentInfo, s.Symbols, s.code)
	default:
		return nil
	}
}

// fail records err in the info log and marks the shader failed, returning
// false so call sites can write "return s.fail(err)".
func (s *Shader) fail(err error) bool {
	s.failed = true
	fmt.Fprintln(&s.log, err.Error())
	return false
}
