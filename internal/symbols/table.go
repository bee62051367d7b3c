package symbols

// Table is an ordered, named collection of symbols plus the total
// footprint Pack assigns it (lima_symbol_table_t): a count of floats for
// the attribute table and alignment-packed tables, and of vec4 rows for a
// standard-packed uniform table.
type Table struct {
	Symbols   []*Symbol
	TotalSize uint32
}

// Add appends symbol to the table (lima_symbol_table_add).
func (t *Table) Add(symbol *Symbol) {
	t.Symbols = append(t.Symbols, symbol)
}

// Find returns the symbol with the given name, or nil if none exists
// (lima_symbol_table_find).
func (t *Table) Find(name string) *Symbol {
	for _, s := range t.Symbols {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Stage names which shader stage a ShaderSymbols belongs to: it decides
// which packing discipline the uniform table uses (spec.md §4.14's GP
// uniforms vs. PP uniforms split).
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
)

// ShaderSymbols holds one compiled shader's three symbol tables plus the
// cursors used to insert driver/compiler-synthesized entries
// (lima_shader_symbols_t).
type ShaderSymbols struct {
	AttributeTable, VaryingTable, UniformTable Table

	CurUniformIndex uint32
	CurConstIndex   uint32
}

// AddVarying adds symbol to the varying table. Varyings may only be one of
// the scalar/vector/matrix types, never a struct (GLSL ES 1.0 §4.3.5).
func (s *ShaderSymbols) AddVarying(symbol *Symbol) {
	s.VaryingTable.Add(symbol)
}

// AddAttribute adds symbol to the attribute table. Attributes may not be
// arrays or structs (GLSL ES 1.0 §4.3.3).
func (s *ShaderSymbols) AddAttribute(symbol *Symbol) {
	s.AttributeTable.Add(symbol)
}

// AddUniform adds symbol to the uniform table. Uniforms may be any type,
// including arrays of structs of arrays (GLSL ES 1.0 §4.3.4).
func (s *ShaderSymbols) AddUniform(symbol *Symbol) {
	s.UniformTable.Add(symbol)
}

// AddConst inserts a GP backend inline-constant symbol into the uniform
// table and returns the index it was created with, bumping the cursor for
// the next call (lima_shader_symbols_add_const).
func (s *ShaderSymbols) AddConst(typ Type, arrayElems uint32, values []float64) uint32 {
	index := s.CurConstIndex
	s.CurConstIndex++
	s.UniformTable.Add(NewConst(index, typ, arrayElems, values))
	return index
}
