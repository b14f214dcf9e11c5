package collision

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/audio"
	"github.com/san-kum/bouncebox/internal/engine"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/world"
)

type fakeWorld struct {
	objects map[engine.BodyID]*world.Object
	strokes map[engine.BodyID]*world.Stroke
}

func (w *fakeWorld) ObjectByBody(id engine.BodyID) (*world.Object, bool) {
	o, ok := w.objects[id]
	return o, ok
}

func (w *fakeWorld) StrokeByBody(id engine.BodyID) (*world.Stroke, bool) {
	s, ok := w.strokes[id]
	return s, ok
}

type damping struct{ linear, angular float64 }

type fakeBodies struct {
	velocity map[engine.BodyID]mgl64.Vec2
	damping  map[engine.BodyID]damping
}

func (b *fakeBodies) SetLinearVelocity(id engine.BodyID, v mgl64.Vec2) bool {
	b.velocity[id] = v
	return true
}

func (b *fakeBodies) SetDamping(id engine.BodyID, linear, angular float64) bool {
	b.damping[id] = damping{linear, angular}
	return true
}

type sink struct{ hits []audio.Hit }

func (s *sink) Push(h audio.Hit) bool {
	s.hits = append(s.hits, h)
	return true
}

type fakeContact struct {
	a, b        engine.BodyID
	point       mgl64.Vec2
	restitution float64
}

func (c *fakeContact) Bodies() (engine.BodyID, engine.BodyID) { return c.a, c.b }
func (c *fakeContact) SetRestitution(e float64)               { c.restitution = e }
func (c *fakeContact) WorldPoint() (mgl64.Vec2, bool)         { return c.point, true }

const (
	strokeBody engine.BodyID = 100
	objectBody engine.BodyID = 200
)

type fixture struct {
	router *Router
	world  *fakeWorld
	bodies *fakeBodies
	sink   *sink
	object *world.Object
	stroke *world.Stroke
}

func newFixture(m kind.Material) *fixture {
	f := &fixture{
		world: &fakeWorld{
			objects: map[engine.BodyID]*world.Object{},
			strokes: map[engine.BodyID]*world.Stroke{},
		},
		bodies: &fakeBodies{
			velocity: map[engine.BodyID]mgl64.Vec2{},
			damping:  map[engine.BodyID]damping{},
		},
		sink: &sink{},
	}
	f.object = &world.Object{Kind: kind.Square, Mass: 1, Body: objectBody, LastCollision: math.Inf(-1)}
	f.stroke = &world.Stroke{Material: m, Direction: mgl64.Vec2{0, 1}, Body: strokeBody}
	f.world.objects[objectBody] = f.object
	f.world.strokes[strokeBody] = f.stroke
	f.router = NewRouter(DefaultConfig(), f.world, f.bodies, f.sink)
	return f
}

// collide runs one tick with a single impact.
func (f *fixture) collide(now float64, c *fakeContact, impulse float64) {
	f.router.BeginTick(now)
	f.router.BeginContact(c)
	f.router.PreSolve(c)
	f.router.PostSolve(c, []float64{impulse / 2, impulse / 2})
	f.router.EndTick()
}

func TestRouterCooldown(t *testing.T) {
	f := newFixture(kind.Metal)
	c := &fakeContact{a: strokeBody, b: objectBody, point: mgl64.Vec2{4, 0}}

	for _, ms := range []float64{0, 20, 60} {
		f.collide(ms/1000, c, 5)
	}

	if len(f.sink.hits) != 2 {
		t.Fatalf("expected hits at 0ms and 60ms, got %d", len(f.sink.hits))
	}
	if f.object.LastCollision != 0.06 {
		t.Errorf("expected last collision at 0.06, got %f", f.object.LastCollision)
	}
	if f.router.Stats().Cooled.Load() != 1 {
		t.Errorf("expected one cooled collision, got %d", f.router.Stats().Cooled.Load())
	}
}

func TestRouterHitFields(t *testing.T) {
	f := newFixture(kind.Wood)
	// bodies may arrive in either order
	c := &fakeContact{a: objectBody, b: strokeBody, point: mgl64.Vec2{12, 3}}
	f.collide(1, c, 6)

	if len(f.sink.hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(f.sink.hits))
	}
	h := f.sink.hits[0]
	if h.Material != kind.Wood || h.Kind != kind.Square {
		t.Errorf("unexpected hit %+v", h)
	}
	if math.Abs(h.Impulse-6) > 1e-9 {
		t.Errorf("expected summed impulse 6, got %f", h.Impulse)
	}
	if math.Abs(h.Pan-0.75) > 1e-9 {
		t.Errorf("expected pan 0.75, got %f", h.Pan)
	}
}

func TestRouterImpulseThreshold(t *testing.T) {
	f := newFixture(kind.Metal)
	c := &fakeContact{a: strokeBody, b: objectBody}
	f.collide(0, c, DefaultConfig().ImpulseThreshold/2)
	if len(f.sink.hits) != 0 {
		t.Error("soft contact should not sound")
	}
}

func TestRouterNeedsBeginInSameTick(t *testing.T) {
	f := newFixture(kind.Metal)
	c := &fakeContact{a: strokeBody, b: objectBody}

	f.router.BeginTick(0)
	f.router.BeginContact(c)
	f.router.EndTick()

	// resting contact: post-solve without a fresh begin
	f.router.BeginTick(1)
	f.router.PostSolve(c, []float64{10})
	f.router.EndTick()

	if len(f.sink.hits) != 0 {
		t.Error("candidates must not outlive their tick")
	}
}

func TestRouterSilentMaterials(t *testing.T) {
	for _, m := range []kind.Material{kind.Conveyor, kind.BouncyGoo, kind.StickyMud} {
		f := newFixture(m)
		f.collide(0, &fakeContact{a: strokeBody, b: objectBody}, 10)
		if len(f.sink.hits) != 0 {
			t.Errorf("%v should not sound", m)
		}
	}
}

func TestRouterConveyor(t *testing.T) {
	f := newFixture(kind.Conveyor)
	f.collide(0, &fakeContact{a: strokeBody, b: objectBody}, 1)

	want := mgl64.Vec2{0, DefaultConfig().ConveyorSpeed}
	if got := f.bodies.velocity[objectBody]; got != want {
		t.Errorf("expected velocity %v, got %v", want, got)
	}
}

func TestRouterGoo(t *testing.T) {
	f := newFixture(kind.BouncyGoo)
	c := &fakeContact{a: strokeBody, b: objectBody}
	f.router.PreSolve(c)
	if c.restitution <= 1 {
		t.Errorf("goo restitution should exceed 1, got %f", c.restitution)
	}

	m := newFixture(kind.Metal)
	c = &fakeContact{a: strokeBody, b: objectBody}
	m.router.PreSolve(c)
	if c.restitution != 0 {
		t.Error("metal should not override restitution")
	}
}

func TestRouterMud(t *testing.T) {
	f := newFixture(kind.StickyMud)
	c := &fakeContact{a: strokeBody, b: objectBody}

	f.router.BeginContact(c)
	if d := f.bodies.damping[objectBody]; d.linear != 8 || d.angular != 8 {
		t.Errorf("expected damping 8, got %+v", d)
	}
	f.router.EndContact(c)
	if d := f.bodies.damping[objectBody]; d.linear != 0 || d.angular != 0 {
		t.Errorf("expected damping reset, got %+v", d)
	}
}

func TestRouterMudEndsAfterStrokeErased(t *testing.T) {
	f := newFixture(kind.StickyMud)
	c := &fakeContact{a: strokeBody, b: objectBody}
	f.router.BeginContact(c)

	// the stroke no longer resolves while its body is being destroyed
	delete(f.world.strokes, strokeBody)
	f.router.EndContact(c)

	if d := f.bodies.damping[objectBody]; d.linear != 0 {
		t.Errorf("damping should reset even for erased strokes, got %+v", d)
	}
}

func TestRouterMudTwoStrokes(t *testing.T) {
	f := newFixture(kind.StickyMud)
	other := &world.Stroke{Material: kind.StickyMud, Body: 101}
	f.world.strokes[101] = other

	a := &fakeContact{a: strokeBody, b: objectBody}
	b := &fakeContact{a: 101, b: objectBody}
	f.router.BeginContact(a)
	f.router.BeginContact(b)
	f.router.EndContact(a)
	if d := f.bodies.damping[objectBody]; d.linear != 8 {
		t.Error("still touching mud, damping must stay")
	}
	f.router.EndContact(b)
	if d := f.bodies.damping[objectBody]; d.linear != 0 {
		t.Error("left all mud, damping must reset")
	}
}

func TestRouterStaleReferences(t *testing.T) {
	f := newFixture(kind.Metal)
	c := &fakeContact{a: strokeBody, b: objectBody}

	f.router.BeginTick(0)
	f.router.BeginContact(c)
	// object erased mid-tick
	delete(f.world.objects, objectBody)
	f.router.PostSolve(c, []float64{10})
	f.router.EndContact(c)
	f.router.EndTick()

	unknown := &fakeContact{a: 1, b: 2}
	f.router.BeginContact(unknown)
	f.router.PreSolve(unknown)
	f.router.PostSolve(unknown, []float64{10})
	f.router.EndContact(unknown)

	if len(f.sink.hits) != 0 {
		t.Error("stale contacts must not sound")
	}
	if f.router.Stats().Unmatched.Load() != 2 {
		t.Errorf("expected 2 unmatched, got %d", f.router.Stats().Unmatched.Load())
	}
}

func TestRouterCooldownConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Cooldown != 50*time.Millisecond {
		t.Errorf("expected 50ms cooldown, got %v", cfg.Cooldown)
	}
}
