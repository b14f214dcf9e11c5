package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/engine"
	"github.com/san-kum/bouncebox/internal/kind"
	"gopkg.in/yaml.v3"
)

// SceneVersion is the current scene format version.
const SceneVersion = 1

// Point is a 2D point serialized as a two-element sequence.
type Point [2]float64

// Vec returns p as a vector.
func (p Point) Vec() mgl64.Vec2 { return mgl64.Vec2{p[0], p[1]} }

// PointOf converts a vector to a Point.
func PointOf(v mgl64.Vec2) Point { return Point{v[0], v[1]} }

// Scene is the persisted state of the sandbox. Stroke points are in UI
// pixels; everything else is in world units.
type Scene struct {
	Version    int            `yaml:"version"`
	SpawnPoint Point          `yaml:"spawn_point,flow"`
	Strokes    []StrokeState  `yaml:"strokes,omitempty"`
	Objects    []ObjectState  `yaml:"objects,omitempty"`
	Forces     []ForceState   `yaml:"forces,omitempty"`
	Emitters   []EmitterState `yaml:"emitters,omitempty"`
}

type StrokeState struct {
	Material  kind.Material `yaml:"material"`
	Points    []Point       `yaml:"points,flow"`
	Direction Point         `yaml:"direction,flow"`
}

type ObjectState struct {
	Kind            kind.Shape    `yaml:"kind"`
	Position        Point         `yaml:"position,flow"`
	Velocity        Point         `yaml:"velocity,flow"`
	Angle           float64       `yaml:"angle"`
	AngularVelocity float64       `yaml:"angular_velocity,omitempty"`
	Mass            float64       `yaml:"mass"`
	Polarity        kind.Polarity `yaml:"polarity,omitempty"`
	Radius          float64       `yaml:"radius,omitempty"`
	Vertices        []Point       `yaml:"vertices,flow,omitempty"`
}

type ForceState struct {
	Kind     string `yaml:"kind"`
	Position Point  `yaml:"position,flow"`
}

type EmitterState struct {
	Position Point         `yaml:"position,flow"`
	Rate     float64       `yaml:"rate"`
	Kind     kind.Shape    `yaml:"kind"`
	Velocity Point         `yaml:"velocity,flow"`
	Mass     float64       `yaml:"mass"`
	Polarity kind.Polarity `yaml:"polarity,omitempty"`
}

// ParseScene decodes and validates a YAML scene.
func ParseScene(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &LoadError{Wrapped: fmt.Errorf("%w: %v", ErrInvalidScene, err)}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Marshal encodes s as YAML.
func (s *Scene) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScene, fmt.Sprintf(format, args...))
}

// Validate checks every entry. Strokes with fewer than two points are
// accepted and skipped on restore.
func (s *Scene) Validate() error {
	if s.Version > SceneVersion {
		return &LoadError{Wrapped: invalid("version %d is newer than %d", s.Version, SceneVersion)}
	}
	if !finite(s.SpawnPoint[0], s.SpawnPoint[1]) {
		return &LoadError{Section: "spawn_point", Wrapped: invalid("non-finite position")}
	}
	for i, st := range s.Strokes {
		if !st.Material.Valid() {
			return &LoadError{Section: "strokes", Index: i, Wrapped: invalid("unknown material")}
		}
		for _, p := range st.Points {
			if !finite(p[0], p[1]) {
				return &LoadError{Section: "strokes", Index: i, Wrapped: invalid("non-finite point")}
			}
		}
	}
	for i, o := range s.Objects {
		if err := validateBody(o.Kind, o.Mass, o.Position, o.Velocity); err != nil {
			return &LoadError{Section: "objects", Index: i, Wrapped: err}
		}
		if !finite(o.Angle, o.AngularVelocity, o.Radius) || o.Radius < 0 {
			return &LoadError{Section: "objects", Index: i, Wrapped: invalid("bad geometry")}
		}
		if len(o.Vertices) > 0 {
			verts := make([]mgl64.Vec2, len(o.Vertices))
			for j, v := range o.Vertices {
				verts[j] = v.Vec()
			}
			if err := engine.CheckPolygon(verts); err != nil {
				return &LoadError{Section: "objects", Index: i, Wrapped: invalid("%v", err)}
			}
		}
	}
	for i, f := range s.Forces {
		if f.Kind != "vortex" {
			return &LoadError{Section: "forces", Index: i, Wrapped: invalid("unknown force %q", f.Kind)}
		}
		if !finite(f.Position[0], f.Position[1]) {
			return &LoadError{Section: "forces", Index: i, Wrapped: invalid("non-finite position")}
		}
	}
	for i, e := range s.Emitters {
		if err := validateBody(e.Kind, e.Mass, e.Position, e.Velocity); err != nil {
			return &LoadError{Section: "emitters", Index: i, Wrapped: err}
		}
		if !(e.Rate > 0) || !finite(e.Rate) {
			return &LoadError{Section: "emitters", Index: i, Wrapped: invalid("rate %v", e.Rate)}
		}
	}
	return nil
}

func validateBody(k kind.Shape, mass float64, pos, vel Point) error {
	if !k.Valid() {
		return invalid("unknown shape %d", k)
	}
	if !(mass > 0) || !finite(mass) {
		return invalid("mass %v", mass)
	}
	if !finite(pos[0], pos[1], vel[0], vel[1]) {
		return invalid("non-finite state")
	}
	return nil
}

// Snapshot captures strokes and objects. Forces, emitters and the spawn
// point are filled in by their owners.
func (m *Manager) Snapshot() *Scene {
	s := &Scene{Version: SceneVersion}
	m.EachStroke(func(st *Stroke) {
		pts := make([]Point, len(st.Points))
		for i, p := range st.Points {
			pts[i] = PointOf(p)
		}
		s.Strokes = append(s.Strokes, StrokeState{
			Material:  st.Material,
			Points:    pts,
			Direction: PointOf(st.Direction),
		})
	})
	m.EachObject(func(o *Object, bs engine.BodyState) {
		os := ObjectState{
			Kind:            o.Kind,
			Position:        PointOf(bs.Position),
			Velocity:        PointOf(bs.Velocity),
			Angle:           bs.Angle,
			AngularVelocity: bs.AngularVelocity,
			Mass:            o.Mass,
			Polarity:        o.Polarity,
			Radius:          o.Radius,
		}
		for _, v := range o.Vertices {
			os.Vertices = append(os.Vertices, PointOf(v))
		}
		s.Objects = append(s.Objects, os)
	})
	return s
}

// Restore clears the world and repopulates strokes and objects from s.
// The cleared bodies leave the engine before the new ones are created, so
// call it between steps. Invalid scenes are rejected before anything is
// touched.
func (m *Manager) Restore(s *Scene) error {
	if s == nil {
		return &LoadError{Wrapped: invalid("nil scene")}
	}
	if err := s.Validate(); err != nil {
		return err
	}
	m.Clear()
	m.CommitDestructions()

	var errs []error
	for i, st := range s.Strokes {
		if len(st.Points) < 2 {
			m.log.Printf("scene stroke %d skipped: %d points", i, len(st.Points))
			continue
		}
		pts := make([]mgl64.Vec2, len(st.Points))
		for j, p := range st.Points {
			pts[j] = p.Vec()
		}
		if _, err := m.AddStroke(StrokeRequest{Material: st.Material, Points: pts}); err != nil {
			if errors.Is(err, ErrDegenerateStroke) {
				m.log.Printf("scene stroke %d skipped: %v", i, err)
				continue
			}
			errs = append(errs, &LoadError{Section: "strokes", Index: i, Wrapped: err})
		}
	}
	for i, o := range s.Objects {
		req := SpawnRequest{
			Kind:            o.Kind,
			Mass:            o.Mass,
			Position:        o.Position.Vec(),
			Velocity:        o.Velocity.Vec(),
			Angle:           o.Angle,
			AngularVelocity: o.AngularVelocity,
			Polarity:        o.Polarity,
			Radius:          o.Radius,
		}
		for _, v := range o.Vertices {
			req.Vertices = append(req.Vertices, v.Vec())
		}
		if _, err := m.Spawn(req); err != nil {
			errs = append(errs, &LoadError{Section: "objects", Index: i, Wrapped: err})
		}
	}
	return errors.Join(errs...)
}
