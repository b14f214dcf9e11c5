package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/sim"
)

func TestDraw(t *testing.T) {
	r := NewLiveRenderer(&bytes.Buffer{}, 10, 14, 19)
	r.Draw(&sim.Frame{
		Objects:    []sim.ObjectView{{Kind: kind.Square, Position: mgl64.Vec2{7, 10}}},
		Strokes:    []sim.StrokeView{{Material: kind.Conveyor, Points: []mgl64.Vec2{{0, 0}, {14, 0}}}},
		SpawnPoint: mgl64.Vec2{0, 19},
	})

	rows := strings.Split(strings.TrimSuffix(r.String(), "\n"), "\n")
	if len(rows) != height {
		t.Fatalf("expected %d rows, got %d", height, len(rows))
	}
	if got := strings.TrimSpace(rows[height-1]); got != strings.Repeat(">", width) {
		t.Errorf("bottom row = %q, want conveyor line", got)
	}
	if !strings.HasPrefix(rows[0], "  +") {
		t.Errorf("top row = %q, want spawn point in the corner", rows[0])
	}
	// 69/14 cells per unit across, 1 per unit down.
	if c := []rune(rows[height-1-10])[2+35]; c != '#' {
		t.Errorf("square cell = %q, want '#'", c)
	}
}

func TestOnTickThrottles(t *testing.T) {
	var out bytes.Buffer
	r := NewLiveRenderer(&out, 1, 10, 10)
	f := &sim.Frame{Tick: 1}
	r.OnTick(f)
	n := out.Len()
	if n == 0 {
		t.Fatal("first frame should be drawn")
	}
	r.OnTick(f)
	if out.Len() != n {
		t.Error("second frame within the period should be skipped")
	}
}
