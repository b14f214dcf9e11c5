package engine

import (
	"fmt"

	"github.com/ByteArena/box2d"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/arena"
)

const (
	DefaultVelocityIterations = 8
	DefaultPositionIterations = 3
)

// World owns one box2d world and every body in it. It is not safe for
// concurrent use; the physics goroutine is its only caller.
type World struct {
	b2       box2d.B2World
	bodies   *arena.Arena[*box2d.B2Body]
	listener *listener
	stepping bool

	VelocityIterations int
	PositionIterations int
}

// NewWorld creates an empty world. gravity is in world units, y up.
func NewWorld(gravity mgl64.Vec2) *World {
	w := &World{
		b2:                 box2d.MakeB2World(toB2(gravity)),
		bodies:             arena.New[*box2d.B2Body](256),
		VelocityIterations: DefaultVelocityIterations,
		PositionIterations: DefaultPositionIterations,
	}
	w.listener = &listener{}
	w.b2.SetContactListener(w.listener)
	return w
}

// SetContactHandler installs the receiver of collision callbacks. A nil
// handler disables them.
func (w *World) SetContactHandler(h ContactHandler) {
	w.listener.handler = h
}

// SetGravity sets the world gravity vector.
func (w *World) SetGravity(g mgl64.Vec2) {
	w.b2.SetGravity(toB2(g))
}

// Locked reports whether a step is in progress.
func (w *World) Locked() bool {
	return w.stepping || w.b2.IsLocked()
}

// Step advances the simulation by dt seconds and runs contact callbacks.
func (w *World) Step(dt float64) {
	w.stepping = true
	defer func() { w.stepping = false }()
	w.b2.Step(dt, w.VelocityIterations, w.PositionIterations)
}

// CreateBody creates a body and returns its handle.
func (w *World) CreateBody(def BodyDef) (BodyID, error) {
	if w.Locked() {
		return NoBody, ErrWorldLocked
	}
	if len(def.Fixtures) == 0 {
		return NoBody, ErrNoFixtures
	}

	bd := box2d.MakeB2BodyDef()
	if def.Type == Dynamic {
		bd.Type = box2d.B2BodyType.B2_dynamicBody
	} else {
		bd.Type = box2d.B2BodyType.B2_staticBody
	}
	bd.Position = toB2(def.Position)
	bd.Angle = def.Angle
	bd.LinearVelocity = toB2(def.Velocity)
	bd.AngularVelocity = def.AngularVelocity
	bd.Bullet = def.Bullet

	body := w.b2.CreateBody(&bd)
	if body == nil {
		return NoBody, ErrWorldLocked
	}
	for i, f := range def.Fixtures {
		if err := attachFixture(body, f); err != nil {
			w.b2.DestroyBody(body)
			return NoBody, fmt.Errorf("fixture %d: %w", i, err)
		}
	}

	id := BodyID(w.bodies.Insert(body))
	body.SetUserData(id)
	return id, nil
}

// DestroyBody removes the body for id from the engine. The handle is stale
// afterwards.
func (w *World) DestroyBody(id BodyID) error {
	if w.Locked() {
		return ErrWorldLocked
	}
	body, ok := w.bodies.Remove(arena.Handle(id))
	if !ok {
		return ErrUnknownBody
	}
	// user data stays set: box2d reports EndContact for touching pairs while
	// the body is torn down, and handlers resolve the stale handle themselves
	w.b2.DestroyBody(body)
	return nil
}

// Contains reports whether id refers to a live body.
func (w *World) Contains(id BodyID) bool {
	return w.bodies.Contains(arena.Handle(id))
}

// BodyCount returns the number of live bodies.
func (w *World) BodyCount() int { return w.bodies.Len() }

// State returns the kinematic state of id.
func (w *World) State(id BodyID) (BodyState, bool) {
	body, ok := w.bodies.Get(arena.Handle(id))
	if !ok {
		return BodyState{}, false
	}
	return BodyState{
		Position:        fromB2(body.GetPosition()),
		Velocity:        fromB2(body.GetLinearVelocity()),
		Angle:           body.GetAngle(),
		AngularVelocity: body.GetAngularVelocity(),
		Mass:            body.GetMass(),
	}, true
}

// ApplyForce applies f at the center of mass of id.
func (w *World) ApplyForce(id BodyID, f mgl64.Vec2) bool {
	body, ok := w.bodies.Get(arena.Handle(id))
	if !ok {
		return false
	}
	body.ApplyForceToCenter(toB2(f), true)
	return true
}

// SetLinearVelocity overrides the velocity of id.
func (w *World) SetLinearVelocity(id BodyID, v mgl64.Vec2) bool {
	body, ok := w.bodies.Get(arena.Handle(id))
	if !ok {
		return false
	}
	body.SetLinearVelocity(toB2(v))
	return true
}

// SetDamping sets linear and angular damping of id.
func (w *World) SetDamping(id BodyID, linear, angular float64) bool {
	body, ok := w.bodies.Get(arena.Handle(id))
	if !ok {
		return false
	}
	body.SetLinearDamping(linear)
	body.SetAngularDamping(angular)
	return true
}

func attachFixture(body *box2d.B2Body, f Fixture) error {
	fd := box2d.MakeB2FixtureDef()
	fd.Density = f.Density
	fd.Friction = f.Friction
	fd.Restitution = f.Restitution

	switch f.Type {
	case ShapeCircle:
		if f.Radius <= 0 {
			return fmt.Errorf("circle radius %f", f.Radius)
		}
		shape := box2d.MakeB2CircleShape()
		shape.M_radius = f.Radius
		shape.M_p = toB2(f.Center)
		fd.Shape = &shape
	case ShapePolygon:
		if err := CheckPolygon(f.Vertices); err != nil {
			return err
		}
		n := len(f.Vertices)
		verts := make([]box2d.B2Vec2, n)
		for i, v := range f.Vertices {
			verts[i] = toB2(v)
		}
		shape := box2d.MakeB2PolygonShape()
		shape.Set(verts, n)
		fd.Shape = &shape
	case ShapeBox:
		if f.HalfWidth <= 0 || f.HalfHeight <= 0 {
			return fmt.Errorf("box extents %f x %f", f.HalfWidth, f.HalfHeight)
		}
		shape := box2d.MakeB2PolygonShape()
		shape.SetAsBoxFromCenterAndAngle(f.HalfWidth, f.HalfHeight, toB2(f.Center), f.Angle)
		fd.Shape = &shape
	default:
		return fmt.Errorf("unknown shape type %d", f.Type)
	}

	body.CreateFixtureFromDef(&fd)
	return nil
}

func toB2(v mgl64.Vec2) box2d.B2Vec2 { return box2d.MakeB2Vec2(v[0], v[1]) }

func fromB2(v box2d.B2Vec2) mgl64.Vec2 { return mgl64.Vec2{v.X, v.Y} }
