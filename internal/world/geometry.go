package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/kind"
)

// Fixed shape sizes in world units. Mass changes density, never size.
const (
	BallRadius     = 0.4
	SquareHalfSide = 0.4
	TriangleRadius = 0.5
)

// ShapeGeometry returns the default radius (ball) or local vertices
// (square, triangle) of k.
func ShapeGeometry(k kind.Shape) (radius float64, vertices []mgl64.Vec2) {
	switch k {
	case kind.Ball:
		return BallRadius, nil
	case kind.Square:
		h := SquareHalfSide
		return 0, []mgl64.Vec2{{-h, -h}, {h, -h}, {h, h}, {-h, h}}
	case kind.Triangle:
		verts := make([]mgl64.Vec2, 3)
		for i := range verts {
			a := math.Pi/2 + float64(i)*2*math.Pi/3
			verts[i] = mgl64.Vec2{TriangleRadius * math.Cos(a), TriangleRadius * math.Sin(a)}
		}
		return 0, verts
	}
	return 0, nil
}

// PolygonArea returns the absolute area of a simple polygon.
func PolygonArea(vertices []mgl64.Vec2) float64 {
	n := len(vertices)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		a, b := vertices[i], vertices[(i+1)%n]
		sum += a.X()*b.Y() - b.X()*a.Y()
	}
	return math.Abs(sum) / 2
}

// ShapeArea returns the area of a shape given its radius or vertices.
func ShapeArea(radius float64, vertices []mgl64.Vec2) float64 {
	if len(vertices) >= 3 {
		return PolygonArea(vertices)
	}
	return math.Pi * radius * radius
}

// Density returns the fixture density that gives a shape of the given area
// the requested mass.
func Density(mass, area float64) float64 {
	if area <= 0 {
		return 0
	}
	return mass / area
}
