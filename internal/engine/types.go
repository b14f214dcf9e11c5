package engine

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/arena"
)

var (
	// ErrWorldLocked is returned for create/destroy calls made during a step.
	ErrWorldLocked = errors.New("engine: world is locked during step")

	// ErrUnknownBody is returned for stale or unknown body handles.
	ErrUnknownBody = errors.New("engine: unknown body handle")

	// ErrNoFixtures is returned for a body definition without fixtures.
	ErrNoFixtures = errors.New("engine: body has no fixtures")

	// ErrDegeneratePolygon is returned for polygons with no usable area.
	ErrDegeneratePolygon = errors.New("engine: degenerate polygon")
)

// BodyID is a stable handle to an engine body.
type BodyID arena.Handle

// NoBody is the zero handle.
const NoBody BodyID = 0

// BodyType selects static or dynamic simulation.
type BodyType int

const (
	Static BodyType = iota
	Dynamic
)

// ShapeType selects the geometry of a fixture.
type ShapeType int

const (
	ShapeCircle ShapeType = iota
	ShapePolygon
	ShapeBox
)

// Fixture describes one collision shape attached to a body, in body-local
// coordinates.
type Fixture struct {
	Type        ShapeType
	Center      mgl64.Vec2   // circle center or box center
	Radius      float64      // circle radius
	Vertices    []mgl64.Vec2 // convex polygon, at most 8 vertices
	HalfWidth   float64      // box
	HalfHeight  float64      // box
	Angle       float64      // box rotation
	Density     float64
	Friction    float64
	Restitution float64
}

// Circle returns a circle fixture.
func Circle(center mgl64.Vec2, radius float64) Fixture {
	return Fixture{Type: ShapeCircle, Center: center, Radius: radius}
}

// Polygon returns a convex polygon fixture.
func Polygon(vertices []mgl64.Vec2) Fixture {
	return Fixture{Type: ShapePolygon, Vertices: vertices}
}

// OrientedBox returns a rectangle fixture centered at center and rotated by angle.
func OrientedBox(center mgl64.Vec2, halfWidth, halfHeight, angle float64) Fixture {
	return Fixture{Type: ShapeBox, Center: center, HalfWidth: halfWidth, HalfHeight: halfHeight, Angle: angle}
}

// BodyDef describes a body to create.
type BodyDef struct {
	Type            BodyType
	Position        mgl64.Vec2
	Angle           float64
	Velocity        mgl64.Vec2
	AngularVelocity float64
	Bullet          bool
	Fixtures        []Fixture
}

// BodyState is a read-only view of a body's kinematic state.
type BodyState struct {
	Position        mgl64.Vec2
	Velocity        mgl64.Vec2
	Angle           float64
	AngularVelocity float64
	Mass            float64
}

// Contact is a touching pair of bodies seen from a collision callback. A
// Contact is only valid for the duration of the callback.
type Contact interface {
	// Bodies returns the handles of both bodies. A body without a handle
	// reports NoBody.
	Bodies() (BodyID, BodyID)

	// SetRestitution overrides the restitution of this contact for the
	// current step. Only meaningful from PreSolve.
	SetRestitution(e float64)

	// WorldPoint returns the first world contact point, if any.
	WorldPoint() (mgl64.Vec2, bool)
}

// ContactHandler receives the collision phases of every step.
type ContactHandler interface {
	BeginContact(c Contact)
	EndContact(c Contact)
	PreSolve(c Contact)
	PostSolve(c Contact, normalImpulses []float64)
}
