package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestCheckPolygon(t *testing.T) {
	tests := []struct {
		name  string
		verts []mgl64.Vec2
		ok    bool
	}{
		{"square", []mgl64.Vec2{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}, true},
		{"triangle", []mgl64.Vec2{{0, 0}, {1, 0}, {0, 1}}, true},
		{"concave input", []mgl64.Vec2{{0, 0}, {2, 0}, {1, 0.5}, {2, 2}, {0, 2}}, true},
		{"coincident", []mgl64.Vec2{{0, 0}, {0, 0}, {0, 0}}, false},
		{"collinear", []mgl64.Vec2{{0, 0}, {1, 0}, {2, 0}, {3, 0}}, false},
		{"welded", []mgl64.Vec2{{0, 0}, {0.001, 0}, {0, 0.001}}, false},
		{"sliver", []mgl64.Vec2{{0, 0}, {1, 0}, {0.5, 1e-7}}, false},
		{"two points", []mgl64.Vec2{{0, 0}, {1, 0}}, false},
		{"nine points", make([]mgl64.Vec2, 9), false},
		{"nan", []mgl64.Vec2{{0, 0}, {1, 0}, {math.NaN(), 1}}, false},
	}
	for _, tt := range tests {
		err := CheckPolygon(tt.verts)
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, ErrDegeneratePolygon) {
			t.Errorf("%s: expected ErrDegeneratePolygon, got %v", tt.name, err)
		}
	}
}

func TestWorldRejectsDegeneratePolygon(t *testing.T) {
	w := NewWorld(mgl64.Vec2{0, -10})

	for _, verts := range [][]mgl64.Vec2{
		{{0, 0}, {0, 0}, {0, 0}},
		{{0, 0}, {1, 1}, {2, 2}},
	} {
		f := Polygon(verts)
		f.Density = 1
		_, err := w.CreateBody(BodyDef{Type: Dynamic, Fixtures: []Fixture{f}})
		if !errors.Is(err, ErrDegeneratePolygon) {
			t.Errorf("%v: expected ErrDegeneratePolygon, got %v", verts, err)
		}
	}
	if w.BodyCount() != 0 {
		t.Errorf("failed creates left %d bodies", w.BodyCount())
	}
}
