package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/arena"
	"github.com/san-kum/bouncebox/internal/engine"
	"github.com/san-kum/bouncebox/internal/kind"
)

// ObjectID is a stable handle to a dynamic object.
type ObjectID arena.Handle

// StrokeID is a stable handle to a stroke.
type StrokeID arena.Handle

// Object is a dynamic simulated shape.
type Object struct {
	ID       ObjectID
	Kind     kind.Shape
	Mass     float64
	Polarity kind.Polarity

	// Radius or Vertices describe the local geometry; render only.
	Radius   float64
	Vertices []mgl64.Vec2

	// Body is a non-owning handle into the engine.
	Body engine.BodyID

	// LastCollision is the tick time, in seconds, of the last collision that
	// produced a sound.
	LastCollision float64
}

// Stroke is a static drawn surface.
type Stroke struct {
	ID       StrokeID
	Material kind.Material

	// Points are the source points in UI pixel space.
	Points []mgl64.Vec2

	// Direction is the unit vector from the first to the last point in world
	// space. Used by conveyors.
	Direction mgl64.Vec2

	Thickness float64
	Body      engine.BodyID
}

// SpawnRequest describes a dynamic object to create. Positions and
// velocities are in world units.
type SpawnRequest struct {
	Kind            kind.Shape
	Mass            float64
	Position        mgl64.Vec2
	Velocity        mgl64.Vec2
	Angle           float64
	AngularVelocity float64
	Polarity        kind.Polarity

	// Radius and Vertices override the default geometry of Kind when set.
	Radius   float64
	Vertices []mgl64.Vec2
}

// StrokeRequest describes a stroke to create. Points are in UI pixel space.
type StrokeRequest struct {
	Material kind.Material
	Points   []mgl64.Vec2
}
