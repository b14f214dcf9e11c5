package engine

import (
	"fmt"
	"math"
	"slices"

	"github.com/ByteArena/box2d"
	"github.com/go-gl/mathgl/mgl64"
)

// MinPolygonArea is the smallest hull area accepted for a polygon fixture.
const MinPolygonArea = 1e-6

// CheckPolygon reports whether vertices describe a polygon box2d can build:
// 3 to 8 finite points whose welded convex hull has at least three corners
// and a positive area. box2d asserts on anything less.
func CheckPolygon(vertices []mgl64.Vec2) error {
	n := len(vertices)
	if n < 3 || n > box2d.B2_maxPolygonVertices {
		return fmt.Errorf("%w: %d vertices", ErrDegeneratePolygon, n)
	}
	for _, v := range vertices {
		if math.IsNaN(v.X()) || math.IsNaN(v.Y()) || math.IsInf(v.X(), 0) || math.IsInf(v.Y(), 0) {
			return fmt.Errorf("%w: non-finite vertex %v", ErrDegeneratePolygon, v)
		}
	}
	hull := convexHull(weld(vertices))
	if len(hull) < 3 {
		return fmt.Errorf("%w: hull has %d corners", ErrDegeneratePolygon, len(hull))
	}
	if a := hullArea(hull); a < MinPolygonArea {
		return fmt.Errorf("%w: area %g", ErrDegeneratePolygon, a)
	}
	return nil
}

// weld drops points closer than half a linear slop to an earlier point,
// the same merge box2d applies before building a hull.
func weld(vertices []mgl64.Vec2) []mgl64.Vec2 {
	tol := 0.5 * box2d.B2_linearSlop
	out := make([]mgl64.Vec2, 0, len(vertices))
	for _, v := range vertices {
		unique := true
		for _, u := range out {
			if v.Sub(u).LenSqr() < tol*tol {
				unique = false
				break
			}
		}
		if unique {
			out = append(out, v)
		}
	}
	return out
}

// convexHull is Andrew's monotone chain without collinear points.
func convexHull(pts []mgl64.Vec2) []mgl64.Vec2 {
	if len(pts) < 3 {
		return pts
	}
	pts = slices.Clone(pts)
	slices.SortFunc(pts, func(a, b mgl64.Vec2) int {
		if a.X() != b.X() {
			if a.X() < b.X() {
				return -1
			}
			return 1
		}
		switch {
		case a.Y() < b.Y():
			return -1
		case a.Y() > b.Y():
			return 1
		}
		return 0
	})
	cross := func(o, a, b mgl64.Vec2) float64 {
		return (a.X()-o.X())*(b.Y()-o.Y()) - (a.Y()-o.Y())*(b.X()-o.X())
	}
	hull := make([]mgl64.Vec2, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

func hullArea(hull []mgl64.Vec2) float64 {
	sum := 0.0
	for i, a := range hull {
		b := hull[(i+1)%len(hull)]
		sum += a.X()*b.Y() - b.X()*a.Y()
	}
	return math.Abs(sum) / 2
}
