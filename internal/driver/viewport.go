package driver

import "github.com/limashader/malisc/internal/symbols"

// insertViewportUniform synthesizes the gl_mali_ViewportTransform uniform
// every compiled vertex shader's final output stage reads to map clip-space
// gl_Position into window coordinates (original_source's
// gp_ir/from_glsl.cpp emit_output, which indexes it as a
// two-entry vec4 array: [0] holds the scale, [1] the offset). The GLSL
// front end never declares it — it is inserted here, before packing, the
// way the original driver inserts it ahead of uniform-table layout.
func insertViewportUniform(syms *symbols.ShaderSymbols) {
	if syms.UniformTable.Find("gl_mali_ViewportTransform") != nil {
		return
	}
	syms.AddUniform(symbols.NewSymbol(symbols.TypeVec4, symbols.PrecisionHigh, "gl_mali_ViewportTransform", 2))
}
