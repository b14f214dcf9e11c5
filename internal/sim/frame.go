package sim

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/cv"
	"github.com/san-kum/bouncebox/internal/forces"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/world"
)

// ObjectView is one live object as of the end of a tick. Coordinates are
// world units, y up.
type ObjectView struct {
	ID       world.ObjectID
	Kind     kind.Shape
	Position mgl64.Vec2
	Velocity mgl64.Vec2
	Angle    float64
	Mass     float64
	Radius   float64
	Vertices []mgl64.Vec2
}

// StrokeView is one placed stroke. Points are world units like every other
// frame coordinate, unlike the pixel points stored on the stroke itself.
type StrokeView struct {
	ID       world.StrokeID
	Material kind.Material
	Points   []mgl64.Vec2
}

// Frame is the telemetry published after each tick. Frames are immutable
// once published.
type Frame struct {
	Tick    uint64
	Time    float64
	Gravity float64
	Env     forces.Env

	Objects    []ObjectView // oldest first
	Strokes    []StrokeView
	Vortices   []forces.Vortex
	Emitters   []forces.Emitter
	SpawnPoint mgl64.Vec2

	Evicted   uint64
	Hits      uint64
	Cooled    uint64
	Unmatched uint64
	Drops     Drops
	CV        [cv.NumOutputs]float32
}

// Count returns the number of live objects in the frame.
func (f *Frame) Count() int { return len(f.Objects) }

// Nearest returns the object closest to p within radius, if any.
func (f *Frame) Nearest(p mgl64.Vec2, radius float64) (ObjectView, bool) {
	best, found := radius*radius, false
	var out ObjectView
	for _, o := range f.Objects {
		if d := o.Position.Sub(p).LenSqr(); d <= best {
			best, out, found = d, o, true
		}
	}
	return out, found
}

// NearestStroke returns the stroke with a point closest to p within radius.
func (f *Frame) NearestStroke(p mgl64.Vec2, radius float64) (StrokeView, bool) {
	best, found := radius*radius, false
	var out StrokeView
	for _, s := range f.Strokes {
		for i := range s.Points {
			if d := segmentDistSqr(p, s.Points, i); d <= best {
				best, out, found = d, s, true
			}
		}
	}
	return out, found
}

// segmentDistSqr is the squared distance from p to segment i..i+1 of pts,
// or to the last point when i is the final index.
func segmentDistSqr(p mgl64.Vec2, pts []mgl64.Vec2, i int) float64 {
	a := pts[i]
	if i+1 >= len(pts) {
		return p.Sub(a).LenSqr()
	}
	ab := pts[i+1].Sub(a)
	l := ab.LenSqr()
	if l == 0 {
		return p.Sub(a).LenSqr()
	}
	t := p.Sub(a).Dot(ab) / l
	t = max(0, min(1, t))
	return p.Sub(a.Add(ab.Mul(t))).LenSqr()
}
