package world

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/arena"
	"github.com/san-kum/bouncebox/internal/engine"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/params"
)

type fakeEngine struct {
	bodies    *arena.Arena[engine.BodyDef]
	locked    bool
	destroyed []engine.BodyID
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{bodies: arena.New[engine.BodyDef](16)}
}

func (f *fakeEngine) CreateBody(def engine.BodyDef) (engine.BodyID, error) {
	if f.locked {
		return engine.NoBody, engine.ErrWorldLocked
	}
	if len(def.Fixtures) == 0 {
		return engine.NoBody, engine.ErrNoFixtures
	}
	return engine.BodyID(f.bodies.Insert(def)), nil
}

func (f *fakeEngine) DestroyBody(id engine.BodyID) error {
	if f.locked {
		return engine.ErrWorldLocked
	}
	if _, ok := f.bodies.Remove(arena.Handle(id)); !ok {
		return engine.ErrUnknownBody
	}
	f.destroyed = append(f.destroyed, id)
	return nil
}

func (f *fakeEngine) State(id engine.BodyID) (engine.BodyState, bool) {
	def, ok := f.bodies.Get(arena.Handle(id))
	if !ok {
		return engine.BodyState{}, false
	}
	return engine.BodyState{Position: def.Position, Velocity: def.Velocity, Angle: def.Angle}, true
}

func (f *fakeEngine) alive(id engine.BodyID) bool {
	return f.bodies.Contains(arena.Handle(id))
}

func newTestManager(limit float64) (*Manager, *fakeEngine, *params.Store) {
	eng := newFakeEngine()
	store := params.NewStore()
	store.Set(params.PopulationCap, limit)
	return NewManager(eng, store, DefaultConfig(), nil), eng, store
}

func ball(x float64) SpawnRequest {
	return SpawnRequest{Kind: kind.Ball, Mass: 1, Position: mgl64.Vec2{x, 5}}
}

func TestSpawnNeverExceedsCap(t *testing.T) {
	m, eng, _ := newTestManager(3)

	for i := 0; i < 10; i++ {
		if _, err := m.Spawn(ball(float64(i))); err != nil {
			t.Fatalf("spawn %d: %v", i, err)
		}
		if m.Count() > 3 {
			t.Fatalf("count %d exceeds cap after spawn %d", m.Count(), i)
		}
	}
	if m.Count() != 3 {
		t.Errorf("expected 3 active, got %d", m.Count())
	}
	if m.Evicted() != 7 {
		t.Errorf("expected 7 evictions, got %d", m.Evicted())
	}
	if n := m.CommitDestructions(); n != 7 {
		t.Errorf("expected 7 destroyed, got %d", n)
	}
	if eng.bodies.Len() != 3 {
		t.Errorf("expected 3 engine bodies, got %d", eng.bodies.Len())
	}
}

func TestSpawnEvictsOldestFirst(t *testing.T) {
	m, _, _ := newTestManager(2)

	first, _ := m.Spawn(ball(1))
	second, _ := m.Spawn(ball(2))
	third, _ := m.Spawn(ball(3))

	if _, ok := m.Object(first); ok {
		t.Error("oldest object should have been evicted")
	}
	active := m.Active()
	if len(active) != 2 || active[0] != second || active[1] != third {
		t.Errorf("unexpected active order: %v", active)
	}
}

func TestCapLoweredEvictsDownToCap(t *testing.T) {
	m, _, store := newTestManager(5)
	for i := 0; i < 5; i++ {
		m.Spawn(ball(float64(i)))
	}
	store.Set(params.PopulationCap, 2)
	if _, err := m.Spawn(ball(9)); err != nil {
		t.Fatal(err)
	}
	if m.Count() != 2 {
		t.Errorf("expected 2 active, got %d", m.Count())
	}
}

func TestSpawnSetsDensityFromMass(t *testing.T) {
	m, eng, _ := newTestManager(10)

	id, err := m.Spawn(SpawnRequest{Kind: kind.Square, Mass: 2.56})
	if err != nil {
		t.Fatal(err)
	}
	obj, _ := m.Object(id)
	def, _ := eng.bodies.Get(arena.Handle(obj.Body))
	// square of side 0.8 has area 0.64
	if got := def.Fixtures[0].Density; math.Abs(got-4) > 1e-9 {
		t.Errorf("expected density 4, got %f", got)
	}
	if def.Type != engine.Dynamic {
		t.Error("objects must be dynamic")
	}
}

func TestSpawnRejectsInvalid(t *testing.T) {
	m, _, _ := newTestManager(10)

	tests := []SpawnRequest{
		{Kind: kind.Ball, Mass: 0},
		{Kind: kind.Ball, Mass: -1},
		{Kind: kind.Shape(7), Mass: 1},
		{Kind: kind.Ball, Mass: math.NaN()},
		{Kind: kind.Square, Mass: 1, Vertices: []mgl64.Vec2{{0, 0}, {0, 0}, {0, 0}}},
		{Kind: kind.Square, Mass: 1, Vertices: []mgl64.Vec2{{0, 0}, {1, 0}}},
	}
	for _, req := range tests {
		if _, err := m.Spawn(req); !errors.Is(err, ErrInvalidSpawn) {
			t.Errorf("%+v: expected ErrInvalidSpawn, got %v", req, err)
		}
	}
	if m.Count() != 0 {
		t.Errorf("expected no objects, got %d", m.Count())
	}
}

func TestDegenerateSpawnKeepsPopulation(t *testing.T) {
	m, _, _ := newTestManager(1)
	keep, err := m.Spawn(ball(1))
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Spawn(SpawnRequest{Kind: kind.Triangle, Mass: 1, Vertices: []mgl64.Vec2{{0, 0}, {1, 1}, {2, 2}}})
	if !errors.Is(err, ErrInvalidSpawn) || !errors.Is(err, engine.ErrDegeneratePolygon) {
		t.Fatalf("expected ErrInvalidSpawn wrapping ErrDegeneratePolygon, got %v", err)
	}
	if _, ok := m.Object(keep); !ok {
		t.Error("rejected spawn evicted an existing object")
	}
	if m.Pending() != 0 {
		t.Errorf("pending = %d, want 0", m.Pending())
	}
}

func TestEraseIsDeferredUntilCommit(t *testing.T) {
	m, eng, _ := newTestManager(10)

	id, _ := m.Spawn(ball(1))
	obj, _ := m.Object(id)
	body := obj.Body

	if !m.MarkForErase(id) {
		t.Fatal("mark should succeed")
	}
	if !eng.alive(body) {
		t.Error("body must survive until commit")
	}
	if _, ok := m.ObjectByBody(body); ok {
		t.Error("marked object should no longer resolve from its body")
	}
	if m.MarkForErase(id) {
		t.Error("second mark should be a no-op")
	}

	if n := m.CommitDestructions(); n != 1 {
		t.Errorf("expected 1 destroyed, got %d", n)
	}
	if eng.alive(body) {
		t.Error("body should be destroyed after commit")
	}
	if m.Pending() != 0 {
		t.Errorf("pending should be empty, got %d", m.Pending())
	}
}

func TestCommitDuringStepKeepsPending(t *testing.T) {
	m, eng, _ := newTestManager(10)
	a, _ := m.Spawn(ball(1))
	b, _ := m.Spawn(ball(2))
	m.MarkForErase(a)
	m.MarkForErase(b)

	eng.locked = true
	if n := m.CommitDestructions(); n != 0 {
		t.Errorf("expected nothing destroyed while locked, got %d", n)
	}
	if m.Pending() != 2 {
		t.Errorf("expected 2 pending, got %d", m.Pending())
	}

	eng.locked = false
	if n := m.CommitDestructions(); n != 2 {
		t.Errorf("expected 2 destroyed, got %d", n)
	}
}

func TestAddStroke(t *testing.T) {
	m, eng, store := newTestManager(10)

	id, err := m.AddStroke(StrokeRequest{
		Material: kind.Metal,
		Points:   []mgl64.Vec2{{0, 300}, {100, 300}, {200, 300}},
	})
	if err != nil {
		t.Fatal(err)
	}
	st, ok := m.Stroke(id)
	if !ok {
		t.Fatal("stroke not found")
	}
	if d := st.Direction.Sub(mgl64.Vec2{1, 0}).Len(); d > 1e-9 {
		t.Errorf("expected direction (1,0), got %v", st.Direction)
	}
	def, _ := eng.bodies.Get(arena.Handle(st.Body))
	if def.Type != engine.Static {
		t.Error("strokes must be static")
	}
	// two segments and three joints
	if len(def.Fixtures) != 5 {
		t.Errorf("expected 5 fixtures, got %d", len(def.Fixtures))
	}
	wantFriction := store.Get(params.Friction(kind.Metal))
	for _, f := range def.Fixtures {
		if f.Friction != wantFriction {
			t.Errorf("fixture friction %f, want %f", f.Friction, wantFriction)
		}
	}
	if got, _ := m.StrokeByBody(st.Body); got != st {
		t.Error("stroke should resolve from its body")
	}
}

func TestAddStrokeDirectionIsWorldSpace(t *testing.T) {
	m, _, _ := newTestManager(10)

	// pixel y grows downward, so this stroke goes up in the world
	id, err := m.AddStroke(StrokeRequest{Material: kind.Conveyor, Points: []mgl64.Vec2{{100, 400}, {100, 200}}})
	if err != nil {
		t.Fatal(err)
	}
	st, _ := m.Stroke(id)
	if st.Direction.Y() < 0.99 {
		t.Errorf("expected upward direction, got %v", st.Direction)
	}
}

func TestAddStrokeDegenerate(t *testing.T) {
	m, _, _ := newTestManager(10)

	tests := []struct {
		name   string
		points []mgl64.Vec2
	}{
		{"empty", nil},
		{"single", []mgl64.Vec2{{1, 1}}},
		{"coincident", []mgl64.Vec2{{5, 5}, {5, 5}, {5, 5}}},
	}
	for _, tt := range tests {
		_, err := m.AddStroke(StrokeRequest{Material: kind.Wood, Points: tt.points})
		if !errors.Is(err, ErrDegenerateStroke) {
			t.Errorf("%s: expected ErrDegenerateStroke, got %v", tt.name, err)
		}
	}
	if m.StrokeCount() != 0 {
		t.Errorf("expected no strokes, got %d", m.StrokeCount())
	}
}

func TestClearDefersEverything(t *testing.T) {
	m, eng, _ := newTestManager(10)
	m.Spawn(ball(1))
	m.Spawn(ball(2))
	m.AddStroke(StrokeRequest{Material: kind.Soil, Points: []mgl64.Vec2{{0, 0}, {50, 0}}})

	m.Clear()
	if m.Count() != 0 || m.StrokeCount() != 0 {
		t.Errorf("expected empty world, got %d objects %d strokes", m.Count(), m.StrokeCount())
	}
	if eng.bodies.Len() != 3 {
		t.Errorf("bodies must survive until commit, got %d", eng.bodies.Len())
	}
	m.CommitDestructions()
	if eng.bodies.Len() != 0 {
		t.Errorf("expected no bodies, got %d", eng.bodies.Len())
	}
}

func TestPixelWorldMapping(t *testing.T) {
	m, _, _ := newTestManager(10)

	p := mgl64.Vec2{100, 500}
	w := m.PixelToWorld(p)
	if w != (mgl64.Vec2{2, 2}) {
		t.Errorf("expected (2,2), got %v", w)
	}
	if back := m.WorldToPixel(w); back.Sub(p).Len() > 1e-9 {
		t.Errorf("round trip mismatch: %v", back)
	}
}
