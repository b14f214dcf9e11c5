package world

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"slices"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/arena"
	"github.com/san-kum/bouncebox/internal/engine"
	"github.com/san-kum/bouncebox/internal/params"
)

// Engine is the subset of the physics adapter the manager drives.
type Engine interface {
	CreateBody(def engine.BodyDef) (engine.BodyID, error)
	DestroyBody(id engine.BodyID) error
	State(id engine.BodyID) (engine.BodyState, bool)
}

// Config holds the canvas mapping and object surface properties.
type Config struct {
	PixelsPerMeter    float64
	CanvasHeight      float64 // pixels
	ObjectFriction    float64
	ObjectRestitution float64
}

// DefaultConfig returns an 800x600 canvas at 50 pixels per meter.
func DefaultConfig() Config {
	return Config{
		PixelsPerMeter:    50,
		CanvasHeight:      600,
		ObjectFriction:    0.4,
		ObjectRestitution: 0.3,
	}
}

type doomed struct {
	body   engine.BodyID
	object *Object
	stroke *Stroke
}

// Manager owns all dynamic objects and strokes.
type Manager struct {
	eng    Engine
	params *params.Store
	cfg    Config
	log    *log.Logger

	objects *arena.Arena[*Object]
	active  []ObjectID // oldest first
	strokes *arena.Arena[*Stroke]

	objectBodies map[engine.BodyID]ObjectID
	strokeBodies map[engine.BodyID]StrokeID

	pending []doomed

	count       atomic.Int64
	strokeCount atomic.Int64
	evicted     atomic.Uint64
}

// NewManager returns an empty manager. A nil logger discards output.
func NewManager(eng Engine, store *params.Store, cfg Config, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.PixelsPerMeter <= 0 {
		cfg.PixelsPerMeter = DefaultConfig().PixelsPerMeter
	}
	return &Manager{
		eng:          eng,
		params:       store,
		cfg:          cfg,
		log:          logger,
		objects:      arena.New[*Object](128),
		strokes:      arena.New[*Stroke](32),
		objectBodies: make(map[engine.BodyID]ObjectID),
		strokeBodies: make(map[engine.BodyID]StrokeID),
	}
}

// PixelToWorld maps a UI pixel position (y down) to world units (y up).
func (c Config) PixelToWorld(p mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{p.X() / c.PixelsPerMeter, (c.CanvasHeight - p.Y()) / c.PixelsPerMeter}
}

// WorldToPixel is the inverse of PixelToWorld.
func (c Config) WorldToPixel(p mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{p.X() * c.PixelsPerMeter, c.CanvasHeight - p.Y()*c.PixelsPerMeter}
}

// PixelToWorld maps a UI pixel position with the manager's canvas.
func (m *Manager) PixelToWorld(p mgl64.Vec2) mgl64.Vec2 { return m.cfg.PixelToWorld(p) }

// WorldToPixel maps a world position with the manager's canvas.
func (m *Manager) WorldToPixel(p mgl64.Vec2) mgl64.Vec2 { return m.cfg.WorldToPixel(p) }

// Spawn creates a dynamic object, evicting the oldest objects first if the
// population cap would be exceeded.
func (m *Manager) Spawn(req SpawnRequest) (ObjectID, error) {
	if !req.Kind.Valid() || !(req.Mass > 0) || math.IsInf(req.Mass, 0) {
		return 0, fmt.Errorf("%w: kind %v mass %f", ErrInvalidSpawn, req.Kind, req.Mass)
	}

	radius, verts := ShapeGeometry(req.Kind)
	if req.Radius > 0 {
		radius, verts = req.Radius, nil
	}
	if len(req.Vertices) > 0 {
		if err := engine.CheckPolygon(req.Vertices); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidSpawn, err)
		}
		radius, verts = 0, slices.Clone(req.Vertices)
	}

	limit := m.params.Cap()
	if limit < 1 {
		limit = 1
	}
	for len(m.active) >= limit {
		m.MarkForErase(m.active[0])
		m.evicted.Add(1)
	}

	var fixture engine.Fixture
	if len(verts) >= 3 {
		fixture = engine.Polygon(verts)
	} else {
		fixture = engine.Circle(mgl64.Vec2{}, radius)
	}
	fixture.Density = Density(req.Mass, ShapeArea(radius, verts))
	fixture.Friction = m.cfg.ObjectFriction
	fixture.Restitution = m.cfg.ObjectRestitution

	body, err := m.eng.CreateBody(engine.BodyDef{
		Type:            engine.Dynamic,
		Position:        req.Position,
		Angle:           req.Angle,
		Velocity:        req.Velocity,
		AngularVelocity: req.AngularVelocity,
		Fixtures:        []engine.Fixture{fixture},
	})
	if err != nil {
		return 0, fmt.Errorf("spawn %v: %w", req.Kind, err)
	}

	obj := &Object{
		Kind:          req.Kind,
		Mass:          req.Mass,
		Polarity:      req.Polarity,
		Radius:        radius,
		Vertices:      verts,
		Body:          body,
		LastCollision: math.Inf(-1),
	}
	id := ObjectID(m.objects.Insert(obj))
	obj.ID = id
	m.active = append(m.active, id)
	m.objectBodies[body] = id
	m.count.Store(int64(len(m.active)))
	return id, nil
}

// MarkForErase moves an object to the pending-destruction list. Its engine
// body stays in the world until CommitDestructions, but the object no longer
// resolves from its body handle.
func (m *Manager) MarkForErase(id ObjectID) bool {
	obj, ok := m.objects.Remove(arena.Handle(id))
	if !ok {
		return false
	}
	if i := slices.Index(m.active, id); i >= 0 {
		m.active = slices.Delete(m.active, i, i+1)
	}
	delete(m.objectBodies, obj.Body)
	m.pending = append(m.pending, doomed{body: obj.Body, object: obj})
	m.count.Store(int64(len(m.active)))
	return true
}

// AddStroke builds a static body from connected capsule segments. Segments
// shorter than a millimeter are skipped.
func (m *Manager) AddStroke(req StrokeRequest) (StrokeID, error) {
	if !req.Material.Valid() {
		return 0, fmt.Errorf("stroke: unknown material %d", req.Material)
	}
	if len(req.Points) < 2 {
		return 0, fmt.Errorf("%w: %d points", ErrDegenerateStroke, len(req.Points))
	}

	thickness := m.params.Get(params.StrokeThickness)
	half := thickness / 2 / m.cfg.PixelsPerMeter
	friction := m.params.Get(params.Friction(req.Material))
	restitution := m.params.Get(params.Restitution(req.Material))

	pts := make([]mgl64.Vec2, len(req.Points))
	for i, p := range req.Points {
		pts[i] = m.PixelToWorld(p)
	}

	fixtures := make([]engine.Fixture, 0, 2*len(pts))
	used := make([]bool, len(pts))
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		d := b.Sub(a)
		length := d.Len()
		if length < 1e-3 {
			continue
		}
		seg := engine.OrientedBox(a.Add(b).Mul(0.5), length/2, half, math.Atan2(d.Y(), d.X()))
		fixtures = append(fixtures, seg)
		used[i], used[i+1] = true, true
	}
	if len(fixtures) == 0 {
		return 0, fmt.Errorf("%w: no segment longer than 1mm", ErrDegenerateStroke)
	}
	for i, p := range pts {
		if used[i] {
			fixtures = append(fixtures, engine.Circle(p, half))
		}
	}
	for i := range fixtures {
		fixtures[i].Friction = friction
		fixtures[i].Restitution = restitution
	}

	body, err := m.eng.CreateBody(engine.BodyDef{Type: engine.Static, Fixtures: fixtures})
	if err != nil {
		return 0, fmt.Errorf("stroke: %w", err)
	}

	stroke := &Stroke{
		Material:  req.Material,
		Points:    slices.Clone(req.Points),
		Direction: strokeDirection(pts),
		Thickness: thickness,
		Body:      body,
	}
	id := StrokeID(m.strokes.Insert(stroke))
	stroke.ID = id
	m.strokeBodies[body] = id
	m.strokeCount.Store(int64(m.strokes.Len()))
	return id, nil
}

func strokeDirection(pts []mgl64.Vec2) mgl64.Vec2 {
	d := pts[len(pts)-1].Sub(pts[0])
	if d.Len() < 1e-9 {
		// closed loop: fall back to the first real segment
		for i := 0; i+1 < len(pts); i++ {
			if d = pts[i+1].Sub(pts[i]); d.Len() >= 1e-9 {
				break
			}
		}
	}
	if d.Len() < 1e-9 {
		return mgl64.Vec2{1, 0}
	}
	return d.Normalize()
}

// EraseStroke moves a stroke to the pending-destruction list.
func (m *Manager) EraseStroke(id StrokeID) bool {
	stroke, ok := m.strokes.Remove(arena.Handle(id))
	if !ok {
		return false
	}
	delete(m.strokeBodies, stroke.Body)
	m.pending = append(m.pending, doomed{body: stroke.Body, stroke: stroke})
	m.strokeCount.Store(int64(m.strokes.Len()))
	return true
}

// CommitDestructions destroys the engine bodies of everything pending and
// returns how many were destroyed. It must run after Step has returned.
func (m *Manager) CommitDestructions() int {
	n := 0
	for i, d := range m.pending {
		err := m.eng.DestroyBody(d.body)
		if errors.Is(err, engine.ErrWorldLocked) {
			// keep the rest for the next tick boundary
			m.log.Printf("commit called during step, deferring %d bodies", len(m.pending)-i)
			m.pending = slices.Delete(m.pending, 0, i)
			return n
		}
		if err != nil {
			m.log.Printf("destroy body %d: %v", d.body, err)
		}
		n++
	}
	clear(m.pending)
	m.pending = m.pending[:0]
	return n
}

// Pending returns the number of bodies awaiting destruction.
func (m *Manager) Pending() int { return len(m.pending) }

// Clear moves every object and stroke to the pending list.
func (m *Manager) Clear() {
	for len(m.active) > 0 {
		m.MarkForErase(m.active[0])
	}
	ids := make([]StrokeID, 0, m.strokes.Len())
	m.strokes.Each(func(h arena.Handle, _ *Stroke) { ids = append(ids, StrokeID(h)) })
	for _, id := range ids {
		m.EraseStroke(id)
	}
}

// Object returns the live object for id.
func (m *Manager) Object(id ObjectID) (*Object, bool) {
	return m.objects.Get(arena.Handle(id))
}

// Stroke returns the live stroke for id.
func (m *Manager) Stroke(id StrokeID) (*Stroke, bool) {
	return m.strokes.Get(arena.Handle(id))
}

// ObjectByBody resolves an engine body to a live object. Bodies of erased
// objects do not resolve.
func (m *Manager) ObjectByBody(body engine.BodyID) (*Object, bool) {
	id, ok := m.objectBodies[body]
	if !ok {
		return nil, false
	}
	return m.Object(id)
}

// StrokeByBody resolves an engine body to a live stroke.
func (m *Manager) StrokeByBody(body engine.BodyID) (*Stroke, bool) {
	id, ok := m.strokeBodies[body]
	if !ok {
		return nil, false
	}
	return m.Stroke(id)
}

// EachObject calls fn for every active object, oldest first, with its
// current engine state.
func (m *Manager) EachObject(fn func(*Object, engine.BodyState)) {
	for _, id := range m.active {
		obj, ok := m.Object(id)
		if !ok {
			continue
		}
		st, _ := m.eng.State(obj.Body)
		fn(obj, st)
	}
}

// EachStroke calls fn for every live stroke.
func (m *Manager) EachStroke(fn func(*Stroke)) {
	m.strokes.Each(func(_ arena.Handle, s *Stroke) { fn(s) })
}

// Active returns the active object handles, oldest first.
func (m *Manager) Active() []ObjectID {
	return slices.Clone(m.active)
}

// Count returns the number of active objects. Safe from any goroutine.
func (m *Manager) Count() int { return int(m.count.Load()) }

// StrokeCount returns the number of live strokes. Safe from any goroutine.
func (m *Manager) StrokeCount() int { return int(m.strokeCount.Load()) }

// Evicted returns how many objects were evicted by the population cap.
// Safe from any goroutine.
func (m *Manager) Evicted() uint64 { return m.evicted.Load() }
