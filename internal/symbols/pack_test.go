package symbols

import "testing"

func TestPackAttributesAssignsWholeVec4Slots(t *testing.T) {
	s := &ShaderSymbols{}
	s.AddAttribute(NewSymbol(TypeVec4, PrecisionHigh, "position", 0))
	s.AddAttribute(NewSymbol(TypeFloat, PrecisionHigh, "weight", 0))

	if !Pack(s, StageVertex) {
		t.Fatal("expected packing to succeed")
	}
	for _, sym := range s.AttributeTable.Symbols {
		if sym.Offset%4 != 0 {
			t.Fatalf("attribute %q should start on a vec4 boundary, got offset %d", sym.Name, sym.Offset)
		}
	}
	if s.AttributeTable.Symbols[0].Offset == s.AttributeTable.Symbols[1].Offset {
		t.Fatal("attributes should occupy distinct vec4 rows")
	}
}

func TestPackAttributesOverflowsCapacity(t *testing.T) {
	s := &ShaderSymbols{}
	for i := 0; i < 17; i++ {
		s.AddAttribute(NewSymbol(TypeVec4, PrecisionHigh, string(rune('a'+i)), 0))
	}
	if Pack(s, StageVertex) {
		t.Fatal("expected 17 vec4 attributes to overflow the 16-slot cap")
	}
}

func TestPackAlignedVaryingsPacksScalarsDensely(t *testing.T) {
	s := &ShaderSymbols{}
	s.AddVarying(NewSymbol(TypeFloat, PrecisionHigh, "a", 0))
	s.AddVarying(NewSymbol(TypeFloat, PrecisionHigh, "b", 0))
	s.AddVarying(NewSymbol(TypeVec3, PrecisionHigh, "c", 0))

	if !Pack(s, StageVertex) {
		t.Fatal("expected packing to succeed")
	}
	if s.VaryingTable.TotalSize == 0 {
		t.Fatal("expected a nonzero varying footprint")
	}
	// vec3 (align 4) should come first by pack order, floats fill after.
	var vec3, floatA, floatB *Symbol
	for _, sym := range s.VaryingTable.Symbols {
		switch sym.Name {
		case "a":
			floatA = sym
		case "b":
			floatB = sym
		case "c":
			vec3 = sym
		}
	}
	if vec3.Offset != 0 {
		t.Fatalf("vec3 should pack first (alignment 4), got offset %d", vec3.Offset)
	}
	if floatA.Offset < vec3.Offset+vec3.Stride || floatB.Offset < vec3.Offset+vec3.Stride {
		t.Fatal("floats should pack after the vec3's reserved range")
	}
}

func TestPackAlignedSkipsUnusedSymbols(t *testing.T) {
	s := &ShaderSymbols{}
	unused := NewSymbol(TypeVec4, PrecisionHigh, "dead", 0)
	unused.Used = false
	s.AddVarying(unused)
	s.AddVarying(NewSymbol(TypeFloat, PrecisionHigh, "live", 0))

	if !Pack(s, StageVertex) {
		t.Fatal("expected packing to succeed")
	}
	if s.VaryingTable.TotalSize != 1 {
		t.Fatalf("unused varying should be skipped entirely, got total size %d", s.VaryingTable.TotalSize)
	}
}

func TestPackStandardUniformsFitColumns(t *testing.T) {
	s := &ShaderSymbols{}
	s.AddUniform(NewSymbol(TypeMat4, PrecisionHigh, "mvp", 0))
	s.AddUniform(NewSymbol(TypeFloat, PrecisionHigh, "scale", 0))
	s.AddUniform(NewSymbol(TypeVec2, PrecisionHigh, "offset", 0))

	if !Pack(s, StageVertex) {
		t.Fatal("expected standard packing of a small uniform set to succeed")
	}
}

func TestPackStandardStructPacksChildrenAtCommonBase(t *testing.T) {
	light := NewStruct("light", []*Symbol{
		NewSymbol(TypeVec3, PrecisionHigh, "color", 0),
		NewSymbol(TypeFloat, PrecisionHigh, "intensity", 0),
	}, 0)

	s := &ShaderSymbols{}
	s.AddUniform(light)

	if !Pack(s, StageVertex) {
		t.Fatal("expected struct packing to succeed")
	}
	if light.Children[0].Offset != 0 {
		t.Fatalf("struct's first child should start at the struct's base offset, got %d", light.Children[0].Offset)
	}
}

// TestPackStandardScenarioS6 pins the actual offsets packStandard produces
// for `uniform vec3 a; uniform float b[3]; uniform vec2 c;`. Under the real
// 304-vec4 uniform capacity the packing order (vec3 a, then vec2 c, then
// float[3] b, per packOrder) never forces the two-component "highest free
// row" fallback for c: there is ample room left in columns 0/1 at the next
// free row after a, so c packs via the ordinary low-row path like any other
// vector. This contradicts spec.md §8 scenario S6's prose claim that c
// lands via the highest-row-lowest-column fallback — traced against
// original_source/src/lima/symbols/pack.c's pack_std, the port here matches
// the C algorithm field-for-field, so the scenario text appears to be in
// error rather than this port. This test exists to pin the verified actual
// behavior against regression rather than leave the discrepancy unchecked.
func TestPackStandardScenarioS6(t *testing.T) {
	s := &ShaderSymbols{}
	a := NewSymbol(TypeVec3, PrecisionHigh, "a", 0)
	b := NewSymbol(TypeFloat, PrecisionHigh, "b", 3)
	c := NewSymbol(TypeVec2, PrecisionHigh, "c", 0)
	s.AddUniform(a)
	s.AddUniform(b)
	s.AddUniform(c)

	if !Pack(s, StageVertex) {
		t.Fatal("expected this small uniform set to fit the 304-vec4 standard uniform budget")
	}

	if a.Offset != 0 {
		t.Fatalf("a: expected offset 0 (row 0, column 0), got %d", a.Offset)
	}
	if c.Offset != 4 {
		t.Fatalf("c: expected offset 4 (row 1, column 0, via the ordinary low-row path), got %d", c.Offset)
	}
	if b.Offset != 8 {
		t.Fatalf("b: expected offset 8 (row 2, column 0), got %d", b.Offset)
	}
	if s.UniformTable.TotalSize != 5 {
		t.Fatalf("expected total_size 5 (the high-water mark of column 0's low cursor: a+c+b = 1+1+3 rows), got %d", s.UniformTable.TotalSize)
	}
}

func TestAddConstBumpsCursorAndNamesSequentially(t *testing.T) {
	s := &ShaderSymbols{}
	i0 := s.AddConst(TypeFloat, 0, []float64{1})
	i1 := s.AddConst(TypeFloat, 0, []float64{2})

	if i0 != 0 || i1 != 1 {
		t.Fatalf("expected sequential const indices 0,1; got %d,%d", i0, i1)
	}
	if len(s.UniformTable.Symbols) != 2 {
		t.Fatalf("expected both consts in the uniform table, got %d", len(s.UniformTable.Symbols))
	}
}
