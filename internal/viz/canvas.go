package viz

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

const brailleBlank = 0x2800

// Braille cells are 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a Braille dot canvas sized in terminal cells. World coordinates
// (y up) map onto it through Fit.
type Canvas struct {
	cols, rows int
	cells      []rune
	scale      float64 // dots per world unit
	worldH     float64
}

func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{cols: cols, rows: rows, cells: make([]rune, cols*rows), scale: 1}
	c.Clear()
	return c
}

// Fit scales the canvas so a world of w by h units fills it.
func (c *Canvas) Fit(w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	c.scale = math.Min(float64(c.cols*2-1)/w, float64(c.rows*4-1)/h)
	c.worldH = h
}

func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = brailleBlank
	}
}

// Set lights the dot at (x, y), in dots from the top left.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.cols || row >= c.rows {
		return
	}
	c.cells[row*c.cols+col] |= dotBits[y%4][x%2]
}

func (c *Canvas) dot(p mgl64.Vec2) (int, int) {
	return int(math.Round(p.X() * c.scale)), int(math.Round((c.worldH - p.Y()) * c.scale))
}

// Point lights the dot nearest a world position.
func (c *Canvas) Point(p mgl64.Vec2) {
	c.Set(c.dot(p))
}

// Line draws a world-space segment.
func (c *Canvas) Line(a, b mgl64.Vec2) {
	x0, y0 := c.dot(a)
	x1, y1 := c.dot(b)
	c.line(x0, y0, x1, y1)
}

// Circle outlines a world-space circle.
func (c *Canvas) Circle(center mgl64.Vec2, r float64) {
	n := max(8, int(2*math.Pi*r*c.scale))
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		c.Point(center.Add(mgl64.Vec2{r * math.Cos(a), r * math.Sin(a)}))
	}
}

// Polygon outlines local vertices rotated by angle around center.
func (c *Canvas) Polygon(center mgl64.Vec2, angle float64, verts []mgl64.Vec2) {
	rot := mgl64.Rotate2D(angle)
	for i := range verts {
		a := center.Add(rot.Mul2x1(verts[i]))
		b := center.Add(rot.Mul2x1(verts[(i+1)%len(verts)]))
		c.Line(a, b)
	}
}

// line is Bresenham in dot space.
func (c *Canvas) line(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(len(c.cells)*3 + c.rows)
	for r := 0; r < c.rows; r++ {
		b.WriteString(string(c.cells[r*c.cols : (r+1)*c.cols]))
		if r < c.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
