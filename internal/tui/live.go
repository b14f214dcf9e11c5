// Package tui prints a plain character view of the sandbox for terminals
// where the full-screen monitor is not wanted.
package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/sim"
)

const (
	width       = 70
	height      = 20
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

var shapeGlyphs = [kind.NumShapes]rune{'o', '#', '^'}

var materialGlyphs = [kind.NumMaterials]rune{'=', '-', '.', '>', '~', ','}

// LiveRenderer draws frames as text. It is a sim.Observer and runs on the
// physics goroutine, so drawing is throttled to frameRate.
type LiveRenderer struct {
	out       io.Writer
	frameRate int
	lastFrame time.Time
	canvas    [][]rune
	sx, sy    float64 // cells per world unit
}

// NewLiveRenderer returns a renderer for a world of w by h units.
func NewLiveRenderer(out io.Writer, frameRate int, w, h float64) *LiveRenderer {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
	}
	if frameRate <= 0 {
		frameRate = 10
	}
	return &LiveRenderer{
		out:       out,
		frameRate: frameRate,
		canvas:    canvas,
		sx:        float64(width-1) / w,
		sy:        float64(height-1) / h,
	}
}

func (r *LiveRenderer) OnTick(f *sim.Frame) {
	if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()
	r.Draw(f)
	fmt.Fprint(r.out, r.render(f))
}

// Draw rasterizes f into the canvas.
func (r *LiveRenderer) Draw(f *sim.Frame) {
	r.clear()
	for _, s := range f.Strokes {
		g := '='
		if s.Material.Valid() {
			g = materialGlyphs[s.Material]
		}
		for i := 1; i < len(s.Points); i++ {
			x0, y0 := r.cell(s.Points[i-1])
			x1, y1 := r.cell(s.Points[i])
			r.line(x0, y0, x1, y1, g)
		}
	}
	for _, v := range f.Vortices {
		x, y := r.cell(v.Position)
		r.set(x, y, '@')
	}
	for _, o := range f.Objects {
		g := 'o'
		if o.Kind.Valid() {
			g = shapeGlyphs[o.Kind]
		}
		x, y := r.cell(o.Position)
		r.set(x, y, g)
	}
	x, y := r.cell(f.SpawnPoint)
	r.set(x, y, '+')
}

func (r *LiveRenderer) cell(p mgl64.Vec2) (int, int) {
	return int(p.X()*r.sx + 0.5), height - 1 - int(p.Y()*r.sy+0.5)
}

func (r *LiveRenderer) clear() {
	for y := range r.canvas {
		for x := range r.canvas[y] {
			r.canvas[y][x] = ' '
		}
	}
}

func (r *LiveRenderer) set(x, y int, c rune) {
	if x >= 0 && x < width && y >= 0 && y < height {
		r.canvas[y][x] = c
	}
}

func (r *LiveRenderer) line(x1, y1, x2, y2 int, c rune) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		r.set(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (r *LiveRenderer) render(f *sim.Frame) string {
	var b strings.Builder
	b.WriteString(clearScreen)
	fmt.Fprintf(&b, "  bouncebox  t=%.2fs  objects=%d  strokes=%d  hits=%d  drops=%d\n",
		f.Time, f.Count(), len(f.Strokes), f.Hits, f.Drops.Total())
	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	b.WriteString(r.String())
	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	return b.String()
}

// String returns the canvas rows, each indented and newline terminated.
func (r *LiveRenderer) String() string {
	var b strings.Builder
	for _, row := range r.canvas {
		b.WriteString("  ")
		b.WriteString(string(row))
		b.WriteString("\n")
	}
	return b.String()
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
