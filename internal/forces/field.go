package forces

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/engine"
	"github.com/san-kum/bouncebox/internal/world"
)

var (
	ErrUnknownForce   = errors.New("forces: unknown force")
	ErrUnknownEmitter = errors.New("forces: unknown emitter")
	ErrInvalidEmitter = errors.New("forces: invalid emitter")
)

// VortexID identifies a placed vortex.
type VortexID uint32

// Vortex is a point force placement.
type Vortex struct {
	ID       VortexID
	Position mgl64.Vec2
}

// Body is the per-tick view of a dynamic body the field pushes on.
type Body struct {
	ID       engine.BodyID
	Position mgl64.Vec2
	Mass     float64
}

// Pusher receives forces for the current step.
type Pusher interface {
	ApplyForce(id engine.BodyID, f mgl64.Vec2) bool
}

// Env holds the resolved magnitudes for one tick.
type Env struct {
	Wind           float64
	VortexStrength float64
	VortexSpin     float64
	InertialScale  float64
	WindowVelocity mgl64.Vec2 // world units per second
}

// Field holds the placed vortices and emitters.
type Field struct {
	mu         sync.RWMutex
	vortices   []Vortex
	emitters   []*Emitter
	spawnPoint mgl64.Vec2
	manual     []world.SpawnRequest
	nextID     uint32

	window     mgl64.Vec2
	lastWindow mgl64.Vec2
	windowSeen bool
}

// NewField returns an empty field with the given manual spawn point.
func NewField(spawnPoint mgl64.Vec2) *Field {
	return &Field{spawnPoint: spawnPoint}
}

func (f *Field) id() uint32 {
	f.nextID++
	return f.nextID
}

// AddVortex places a vortex and returns its id.
func (f *Field) AddVortex(pos mgl64.Vec2) VortexID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := VortexID(f.id())
	f.vortices = append(f.vortices, Vortex{ID: id, Position: pos})
	return id
}

// RemoveVortex removes a vortex.
func (f *Field) RemoveVortex(id VortexID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.vortices, func(v Vortex) bool { return v.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownForce, id)
	}
	f.vortices = slices.Delete(f.vortices, i, i+1)
	return nil
}

// Vortices returns a copy of the placed vortices.
func (f *Field) Vortices() []Vortex {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.vortices)
}

// AddEmitter places an emitter and returns its id.
func (f *Field) AddEmitter(e Emitter) (EmitterID, error) {
	if !e.Kind.Valid() || !(e.Mass > 0) || !(e.Rate > 0) {
		return 0, fmt.Errorf("%w: kind %v mass %v rate %v", ErrInvalidEmitter, e.Kind, e.Mass, e.Rate)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = EmitterID(f.id())
	e.acc = 0
	f.emitters = append(f.emitters, &e)
	return e.ID, nil
}

// RemoveEmitter removes an emitter.
func (f *Field) RemoveEmitter(id EmitterID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.emitters, func(e *Emitter) bool { return e.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownEmitter, id)
	}
	f.emitters = slices.Delete(f.emitters, i, i+1)
	return nil
}

// Emitters returns copies of the placed emitters.
func (f *Field) Emitters() []Emitter {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Emitter, len(f.emitters))
	for i, e := range f.emitters {
		out[i] = *e
	}
	return out
}

// SpawnPoint returns the manual spawn position.
func (f *Field) SpawnPoint() mgl64.Vec2 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.spawnPoint
}

// SetSpawnPoint moves the manual spawn position.
func (f *Field) SetSpawnPoint(p mgl64.Vec2) {
	f.mu.Lock()
	f.spawnPoint = p
	f.mu.Unlock()
}

// QueueManual records a manual spawn for the next tick.
func (f *Field) QueueManual(req world.SpawnRequest) {
	f.mu.Lock()
	f.manual = append(f.manual, req)
	f.mu.Unlock()
}

// TakeManual returns and clears the pending manual spawns.
func (f *Field) TakeManual() []world.SpawnRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.manual
	f.manual = nil
	return out
}

// SetWindow records the on-screen position of the container, in world
// units.
func (f *Field) SetWindow(p mgl64.Vec2) {
	f.mu.Lock()
	f.window = p
	f.mu.Unlock()
}

// WindowVelocity returns the container velocity since the previous call.
func (f *Field) WindowVelocity(elapsed float64) mgl64.Vec2 {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := f.window
	if !f.windowSeen {
		f.windowSeen = true
		f.lastWindow = cur
		return mgl64.Vec2{}
	}
	d := cur.Sub(f.lastWindow)
	f.lastWindow = cur
	if !(elapsed > 0) {
		return mgl64.Vec2{}
	}
	return d.Mul(1 / elapsed)
}

// Apply pushes wind, inertial and vortex forces onto every body.
func (f *Field) Apply(p Pusher, bodies []Body, env Env) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	wind := WindForce(env.Wind)
	for _, b := range bodies {
		total := wind.Add(InertialForce(env.WindowVelocity, env.InertialScale, b.Mass))
		for _, v := range f.vortices {
			if vf, ok := VortexForce(b.Position, v.Position, env.VortexStrength, env.VortexSpin); ok {
				total = total.Add(vf)
			}
		}
		if total != (mgl64.Vec2{}) {
			p.ApplyForce(b.ID, total)
		}
	}
}

// Emit advances every emitter by elapsed seconds and calls spawn once per
// due spawn.
func (f *Field) Emit(elapsed float64, maxCatchUp int, spawn func(world.SpawnRequest)) int {
	f.mu.Lock()
	var due []world.SpawnRequest
	for _, e := range f.emitters {
		for n := e.Advance(elapsed, maxCatchUp); n > 0; n-- {
			due = append(due, e.Request())
		}
	}
	f.mu.Unlock()

	for _, req := range due {
		spawn(req)
	}
	return len(due)
}

// Clear removes every vortex, emitter and pending manual spawn.
func (f *Field) Clear() {
	f.mu.Lock()
	f.vortices = nil
	f.emitters = nil
	f.manual = nil
	f.mu.Unlock()
}

// Snapshot fills the force, emitter and spawn point sections of s.
func (f *Field) Snapshot(s *world.Scene) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s.SpawnPoint = world.PointOf(f.spawnPoint)
	s.Forces = s.Forces[:0]
	for _, v := range f.vortices {
		s.Forces = append(s.Forces, world.ForceState{Kind: "vortex", Position: world.PointOf(v.Position)})
	}
	s.Emitters = s.Emitters[:0]
	for _, e := range f.emitters {
		s.Emitters = append(s.Emitters, e.state())
	}
}

// Restore replaces the field contents with the scene's. The scene must
// already be validated.
func (f *Field) Restore(s *world.Scene) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vortices = nil
	f.emitters = nil
	f.manual = nil
	f.spawnPoint = s.SpawnPoint.Vec()
	for _, fs := range s.Forces {
		f.vortices = append(f.vortices, Vortex{ID: VortexID(f.id()), Position: fs.Position.Vec()})
	}
	for _, es := range s.Emitters {
		f.emitters = append(f.emitters, &Emitter{
			ID:       EmitterID(f.id()),
			Position: es.Position.Vec(),
			Rate:     es.Rate,
			Kind:     es.Kind,
			Velocity: es.Velocity.Vec(),
			Mass:     es.Mass,
			Polarity: es.Polarity,
		})
	}
}
