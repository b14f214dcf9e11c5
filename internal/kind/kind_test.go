package kind

import "testing"

func TestParseMaterial(t *testing.T) {
	tests := []struct {
		in   string
		want Material
	}{
		{"metal", Metal},
		{"Wood", Wood},
		{" soil ", Soil},
		{"conveyor", Conveyor},
		{"bouncy-goo", BouncyGoo},
		{"BouncyGoo", BouncyGoo},
		{"sticky mud", StickyMud},
		{"mud", StickyMud},
	}

	for _, tt := range tests {
		got, err := ParseMaterial(tt.in)
		if err != nil {
			t.Errorf("ParseMaterial(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMaterial(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseMaterial("glass"); err == nil {
		t.Error("expected error for unknown material")
	}
}

func TestSounding(t *testing.T) {
	sounding := map[Material]bool{
		Metal: true, Wood: true, Soil: true,
		Conveyor: false, BouncyGoo: false, StickyMud: false,
	}
	for m, want := range sounding {
		if m.Sounding() != want {
			t.Errorf("%v.Sounding() = %v, want %v", m, m.Sounding(), want)
		}
	}
}

func TestShapeText(t *testing.T) {
	for s := Shape(0); s < NumShapes; s++ {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", s, err)
		}
		var back Shape
		if err := back.UnmarshalText(b); err != nil || back != s {
			t.Errorf("text round trip of %v gave %v (%v)", s, back, err)
		}
	}

	if _, err := Shape(9).MarshalText(); err == nil {
		t.Error("expected error for invalid shape")
	}
	if s, err := ParseShape("circle"); err != nil || s != Ball {
		t.Errorf("ParseShape(circle) = %v, %v", s, err)
	}
}
