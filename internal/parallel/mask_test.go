package parallel

import "testing"

func TestTileMask(t *testing.T) {
	m := MaskOf(0, 2, 63, 64, -1)
	if m.Count() != 3 {
		t.Errorf("Count() = %d, want 3", m.Count())
	}
	if !m.Has(0) || m.Has(1) || !m.Has(2) || !m.Has(63) || m.Has(64) || m.Has(-1) {
		t.Errorf("Has mismatch for %v", m)
	}
	if got := m.String(); got != "{0,2,63}" {
		t.Errorf("String() = %q", got)
	}

	m = m.Without(63).With(5)
	if got := m.Indices(); len(got) != 3 || got[0] != 0 || got[1] != 2 || got[2] != 5 {
		t.Errorf("Indices() = %v, want [0 2 5]", got)
	}
	if TileMask(0).String() != "{}" || !TileMask(0).Empty() {
		t.Error("zero mask should be empty")
	}
}

func TestTileMask_Limit(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{-3, 0},
		{1, 1},
		{4, 4},
		{63, 63},
		{64, 64},
		{100, 64},
	}

	for _, tt := range tests {
		if got := AllTiles.Limit(tt.n).Count(); got != tt.want {
			t.Errorf("AllTiles.Limit(%d).Count() = %d, want %d", tt.n, got, tt.want)
		}
	}
	if MaskOf(0, 2, 5).Limit(3) != MaskOf(0, 2) {
		t.Error("Limit(3) should clear bit 5")
	}
}

func TestTileMask_ForEachAscending(t *testing.T) {
	var got []int
	MaskOf(40, 3, 17, 0).ForEach(func(i int) {
		got = append(got, i)
	})
	want := []int{0, 3, 17, 40}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("ForEach order = %v, want %v", got, want)
		}
	}
}
