package bitset

import "testing"

func TestSetOrAndNot(t *testing.T) {
	a := NewSet(8)
	a.Set(1)
	a.Set(70) // force growth across a word boundary
	b := NewSet(8)
	b.Set(2)

	if changed := a.Or(b); !changed {
		t.Fatal("expected Or to report a change")
	}
	for _, bit := range []int{1, 2, 70} {
		if !a.Has(bit) {
			t.Errorf("bit %d expected set", bit)
		}
	}

	if changed := a.Or(b); changed {
		t.Fatal("Or should be idempotent once converged")
	}

	a.AndNot(b)
	if a.Has(2) {
		t.Fatal("bit 2 should have been cleared")
	}
	if !a.Has(1) || !a.Has(70) {
		t.Fatal("unrelated bits should survive AndNot")
	}
}

func TestSetEqualAndClone(t *testing.T) {
	a := NewSet(4)
	a.Set(0)
	a.Set(3)
	c := a.Clone()
	if !a.Equal(c) {
		t.Fatal("clone should be equal to original")
	}
	c.Clear(0)
	if a.Equal(c) {
		t.Fatal("mutating the clone must not affect the original")
	}
	if !a.Has(0) {
		t.Fatal("original set must be unaffected by clone mutation")
	}
}

func TestSetForEachAndCount(t *testing.T) {
	a := NewSet(130)
	bits := []int{0, 5, 63, 64, 129}
	for _, b := range bits {
		a.Set(b)
	}
	var got []int
	a.ForEach(func(i int) { got = append(got, i) })
	if len(got) != len(bits) {
		t.Fatalf("got %v, want %v", got, bits)
	}
	for i, b := range bits {
		if got[i] != b {
			t.Fatalf("ForEach order mismatch: got %v, want %v", got, bits)
		}
	}
	if a.Count() != len(bits) {
		t.Fatalf("Count() = %d, want %d", a.Count(), len(bits))
	}
}

func TestPtrSet(t *testing.T) {
	s := NewPtrSet[int]()
	if !s.Add(1) {
		t.Fatal("first add should report true")
	}
	if s.Add(1) {
		t.Fatal("duplicate add should report false")
	}
	if !s.Has(1) {
		t.Fatal("expected 1 present")
	}
	s.Remove(1)
	if s.Has(1) {
		t.Fatal("expected 1 removed")
	}
}
