// Package collision routes physics contact callbacks to material side
// effects and sound events.
package collision

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/audio"
	"github.com/san-kum/bouncebox/internal/engine"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/world"
)

// Lookup resolves engine bodies to live sandbox entities. Erased entities
// must not resolve.
type Lookup interface {
	ObjectByBody(engine.BodyID) (*world.Object, bool)
	StrokeByBody(engine.BodyID) (*world.Stroke, bool)
}

// Bodies is the part of the engine the router mutates from callbacks.
type Bodies interface {
	SetLinearVelocity(id engine.BodyID, v mgl64.Vec2) bool
	SetDamping(id engine.BodyID, linear, angular float64) bool
}

// HitSink receives sound events. It must not block.
type HitSink interface {
	Push(audio.Hit) bool
}

// Config tunes the router.
type Config struct {
	ConveyorSpeed    float64       // world units per second
	MudDamping       float64       // linear and angular damping on mud
	GooRestitution   float64       // contact restitution on goo
	ImpulseThreshold float64       // minimum summed normal impulse for sound
	Cooldown         time.Duration // per object
	WorldWidth       float64       // canvas width in world units, for pan
}

// DefaultConfig returns the stock tuning for a 16 unit wide canvas.
func DefaultConfig() Config {
	return Config{
		ConveyorSpeed:    4,
		MudDamping:       8,
		GooRestitution:   1.4,
		ImpulseThreshold: 0.5,
		Cooldown:         50 * time.Millisecond,
		WorldWidth:       16,
	}
}

type pair struct {
	stroke engine.BodyID
	object engine.BodyID
}

// Stats counts router outcomes. Safe from any goroutine.
type Stats struct {
	Hits      atomic.Uint64
	Cooled    atomic.Uint64
	Dropped   atomic.Uint64
	Unmatched atomic.Uint64
}

// Router implements engine.ContactHandler. All callbacks run on the
// physics goroutine inside Step.
type Router struct {
	cfg    Config
	lookup Lookup
	bodies Bodies
	sink   HitSink

	now        float64
	candidates map[pair]struct{}
	mud        map[pair]struct{}
	stuck      map[engine.BodyID]int

	stats Stats
}

var _ engine.ContactHandler = (*Router)(nil)

// NewRouter returns a router. A nil sink discards sound events.
func NewRouter(cfg Config, lookup Lookup, bodies Bodies, sink HitSink) *Router {
	return &Router{
		cfg:        cfg,
		lookup:     lookup,
		bodies:     bodies,
		sink:       sink,
		candidates: make(map[pair]struct{}),
		mud:        make(map[pair]struct{}),
		stuck:      make(map[engine.BodyID]int),
	}
}

// Stats returns the router counters.
func (r *Router) Stats() *Stats { return &r.stats }

// BeginTick sets the tick clock, in seconds, used for cooldowns.
func (r *Router) BeginTick(now float64) { r.now = now }

// EndTick forgets this tick's sound candidates. Call after Step returns.
func (r *Router) EndTick() { clear(r.candidates) }

// Reset forgets all contact state. Used when the scene is replaced.
func (r *Router) Reset() {
	clear(r.candidates)
	clear(r.mud)
	clear(r.stuck)
}

// classify finds the stroke and object of a contact, in either order.
func (r *Router) classify(c engine.Contact) (*world.Stroke, *world.Object, bool) {
	a, b := c.Bodies()
	if s, ok := r.lookup.StrokeByBody(a); ok {
		o, ok := r.lookup.ObjectByBody(b)
		return s, o, ok
	}
	if s, ok := r.lookup.StrokeByBody(b); ok {
		o, ok := r.lookup.ObjectByBody(a)
		return s, o, ok
	}
	return nil, nil, false
}

func (r *Router) BeginContact(c engine.Contact) {
	s, o, ok := r.classify(c)
	if !ok {
		return
	}
	switch s.Material {
	case kind.Conveyor:
		r.bodies.SetLinearVelocity(o.Body, s.Direction.Mul(r.cfg.ConveyorSpeed))
	case kind.StickyMud:
		p := pair{s.Body, o.Body}
		if _, seen := r.mud[p]; !seen {
			r.mud[p] = struct{}{}
			r.stuck[o.Body]++
		}
		r.bodies.SetDamping(o.Body, r.cfg.MudDamping, r.cfg.MudDamping)
	}
	if s.Material.Sounding() {
		r.candidates[pair{s.Body, o.Body}] = struct{}{}
	}
}

// EndContact works on raw body handles since it also fires while a stroke
// or object is being destroyed.
func (r *Router) EndContact(c engine.Contact) {
	a, b := c.Bodies()
	for _, p := range [2]pair{{a, b}, {b, a}} {
		if _, ok := r.mud[p]; !ok {
			continue
		}
		delete(r.mud, p)
		r.stuck[p.object]--
		if r.stuck[p.object] <= 0 {
			delete(r.stuck, p.object)
			r.bodies.SetDamping(p.object, 0, 0)
		}
	}
}

func (r *Router) PreSolve(c engine.Contact) {
	s, _, ok := r.classify(c)
	if !ok || s.Material != kind.BouncyGoo {
		return
	}
	c.SetRestitution(r.cfg.GooRestitution)
}

func (r *Router) PostSolve(c engine.Contact, normalImpulses []float64) {
	total := 0.0
	for _, imp := range normalImpulses {
		total += imp
	}
	if total <= r.cfg.ImpulseThreshold {
		return
	}
	s, o, ok := r.classify(c)
	if !ok {
		r.stats.Unmatched.Add(1)
		return
	}
	if _, ok := r.candidates[pair{s.Body, o.Body}]; !ok {
		return
	}
	if r.now-o.LastCollision < r.cfg.Cooldown.Seconds() {
		r.stats.Cooled.Add(1)
		return
	}
	point, ok := c.WorldPoint()
	if !ok {
		return
	}

	hit := audio.Hit{
		Material: s.Material,
		Impulse:  total,
		Pan:      r.pan(point.X()),
		Kind:     o.Kind,
	}
	if r.sink != nil && !r.sink.Push(hit) {
		r.stats.Dropped.Add(1)
	}
	r.stats.Hits.Add(1)
	o.LastCollision = r.now
}

func (r *Router) pan(x float64) float64 {
	if r.cfg.WorldWidth <= 0 {
		return 0.5
	}
	return math.Max(0, math.Min(1, x/r.cfg.WorldWidth))
}
