package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/collision"
	"github.com/san-kum/bouncebox/internal/cv"
	"github.com/san-kum/bouncebox/internal/engine"
	"github.com/san-kum/bouncebox/internal/forces"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/params"
	"github.com/san-kum/bouncebox/internal/world"
)

var (
	ErrInvalidConfig = errors.New("sim: invalid driver config")
	ErrNoScene       = errors.New("sim: load command without scene")
)

// Config tunes the tick driver.
type Config struct {
	TickRate   float64 // ticks per second
	SpawnMass  float64 // mass of objects spawned by audio triggers
	MaxCatchUp int     // emitter spawns per tick, 0 for unbounded
}

func (c Config) validate() error {
	if !(c.TickRate > 0) {
		return fmt.Errorf("%w: tick rate must be positive, got %f", ErrInvalidConfig, c.TickRate)
	}
	if !(c.SpawnMass > 0) {
		return fmt.Errorf("%w: spawn mass must be positive, got %f", ErrInvalidConfig, c.SpawnMass)
	}
	if c.MaxCatchUp < 0 {
		return fmt.Errorf("%w: max catch-up must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Options wires a Driver to its shared state.
type Options struct {
	Config     Config
	World      world.Config
	Router     collision.Config
	Aggregator cv.AggregatorConfig

	Params  *params.Store
	Bridge  *cv.Bridge
	Outputs *cv.Outputs
	Field   *forces.Field
	Queues  Queues
	Logger  *log.Logger
}

// Driver runs the physics tick. Everything it owns is touched only from
// the goroutine calling Tick or Run; Frame is safe from any goroutine.
type Driver struct {
	cfg    Config
	log    *log.Logger
	params *params.Store
	bridge *cv.Bridge
	q      Queues

	engine *engine.World
	world  *world.Manager
	field  *forces.Field
	router *collision.Router
	agg    *cv.Aggregator

	tick uint64
	now  float64

	frame     atomic.Pointer[Frame]
	observers []Observer

	bodies  []forces.Body
	samples []cv.Sample
}

// New builds the engine, world and router and connects them.
func New(opts Options) (*Driver, error) {
	if err := opts.Config.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	store := opts.Params
	if store == nil {
		store = params.NewStore()
	}
	bridge := opts.Bridge
	if bridge == nil {
		bridge = cv.NewBridge()
	}
	out := opts.Outputs
	if out == nil {
		out = &cv.Outputs{}
	}
	field := opts.Field
	if field == nil {
		field = forces.NewField(mgl64.Vec2{})
	}

	eng := engine.NewWorld(forces.Gravity(store.Get(params.Gravity)))
	mgr := world.NewManager(eng, store, opts.World, logger)

	var sink collision.HitSink
	if opts.Queues.Hits != nil {
		sink = opts.Queues.Hits
	}
	router := collision.NewRouter(opts.Router, mgr, eng, sink)
	eng.SetContactHandler(router)

	d := &Driver{
		cfg:    opts.Config,
		log:    logger,
		params: store,
		bridge: bridge,
		q:      opts.Queues,
		engine: eng,
		world:  mgr,
		field:  field,
		router: router,
		agg:    cv.NewAggregator(opts.Aggregator, out),
	}
	d.frame.Store(&Frame{SpawnPoint: field.SpawnPoint()})
	return d, nil
}

func (d *Driver) AddObserver(o Observer) { d.observers = append(d.observers, o) }

// World returns the object manager. Only the physics goroutine may use it
// while the driver runs.
func (d *Driver) World() *world.Manager { return d.world }

// Router returns the collision router.
func (d *Driver) Router() *collision.Router { return d.router }

// Frame returns the most recently published telemetry frame.
func (d *Driver) Frame() *Frame { return d.frame.Load() }

// Now returns the tick clock in seconds.
func (d *Driver) Now() float64 { return d.now }

// Dt returns the fixed step length.
func (d *Driver) Dt() float64 { return 1 / d.cfg.TickRate }

// Run ticks at the configured rate until ctx is done.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / d.cfg.TickRate))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			d.Tick(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Tick runs one physics tick. elapsed is the wall time since the previous
// tick and drives the tick clock, window velocity and emitters; the engine
// always steps by Dt.
func (d *Driver) Tick(elapsed float64) {
	if elapsed < 0 {
		elapsed = 0
	}
	d.now += elapsed
	d.tick++

	d.drainRequests()
	d.runCommands()

	gravity, env := forces.Resolve(d.bridge, d.params, d.field.WindowVelocity(elapsed))
	d.engine.SetGravity(forces.Gravity(gravity))
	d.bodies = d.bodies[:0]
	d.world.EachObject(func(o *world.Object, st engine.BodyState) {
		d.bodies = append(d.bodies, forces.Body{ID: o.Body, Position: st.Position, Mass: st.Mass})
	})
	d.field.Apply(d.engine, d.bodies, env)

	d.field.Emit(elapsed, d.cfg.MaxCatchUp, d.spawn)

	d.router.BeginTick(d.now)
	d.engine.Step(d.Dt())
	d.world.CommitDestructions()
	d.router.EndTick()

	d.samples = d.samples[:0]
	d.world.EachObject(func(o *world.Object, st engine.BodyState) {
		d.samples = append(d.samples, cv.Sample{Kind: o.Kind, Position: st.Position, Velocity: st.Velocity})
	})
	d.agg.Update(d.samples)

	f := d.buildFrame(gravity, env)
	d.frame.Store(f)
	for _, o := range d.observers {
		o.OnTick(f)
	}
}

func (d *Driver) spawn(req world.SpawnRequest) {
	if _, err := d.world.Spawn(req); err != nil {
		d.log.Printf("spawn: %v", err)
	}
}

func (d *Driver) drainRequests() {
	if d.q.Strokes != nil {
		d.q.Strokes.Drain(func(req world.StrokeRequest) {
			if _, err := d.world.AddStroke(req); err != nil {
				d.log.Printf("stroke: %v", err)
			}
		})
	}
	if d.q.Destroy != nil {
		d.q.Destroy.Drain(func(e Erase) {
			if e.Object != 0 {
				d.world.MarkForErase(e.Object)
			}
			if e.Stroke != 0 {
				d.world.EraseStroke(e.Stroke)
			}
		})
	}
	if d.q.Spawns != nil {
		d.q.Spawns.Drain(func(s kind.Shape) {
			d.spawn(world.SpawnRequest{Kind: s, Mass: d.cfg.SpawnMass, Position: d.field.SpawnPoint()})
		})
	}
	for _, req := range d.field.TakeManual() {
		d.spawn(req)
	}
}

func (d *Driver) runCommands() {
	if d.q.Control == nil {
		return
	}
	d.q.Control.Drain(func(c Command) {
		var r Reply
		switch c.Kind {
		case CmdClear:
			d.world.Clear()
			d.world.CommitDestructions()
			d.field.Clear()
			d.router.Reset()
		case CmdLoad:
			r.Err = d.load(c.Scene)
		case CmdSnapshot:
			r.Scene = d.Snapshot()
		default:
			r.Err = fmt.Errorf("sim: unknown command %d", c.Kind)
		}
		if r.Err != nil {
			d.log.Printf("%s: %v", c.Kind, r.Err)
		}
		if c.Reply != nil {
			select {
			case c.Reply <- r:
			default:
				d.log.Printf("%s: reply channel full, dropping reply", c.Kind)
			}
		}
	})
}

func (d *Driver) load(s *world.Scene) error {
	if s == nil {
		return ErrNoScene
	}
	if err := s.Validate(); err != nil {
		return err
	}
	d.router.Reset()
	err := d.world.Restore(s)
	d.field.Restore(s)
	return err
}

// Snapshot captures the whole scene. Physics goroutine only; other
// goroutines queue a CmdSnapshot.
func (d *Driver) Snapshot() *world.Scene {
	s := d.world.Snapshot()
	d.field.Snapshot(s)
	return s
}

func (d *Driver) buildFrame(gravity float64, env forces.Env) *Frame {
	stats := d.router.Stats()
	f := &Frame{
		Tick:       d.tick,
		Time:       d.now,
		Gravity:    gravity,
		Env:        env,
		Objects:    make([]ObjectView, 0, d.world.Count()),
		Strokes:    make([]StrokeView, 0, d.world.StrokeCount()),
		Vortices:   d.field.Vortices(),
		Emitters:   d.field.Emitters(),
		SpawnPoint: d.field.SpawnPoint(),
		Evicted:    d.world.Evicted(),
		Hits:       stats.Hits.Load(),
		Cooled:     stats.Cooled.Load(),
		Unmatched:  stats.Unmatched.Load(),
		Drops:      d.q.drops(),
	}
	d.world.EachObject(func(o *world.Object, st engine.BodyState) {
		f.Objects = append(f.Objects, ObjectView{
			ID:       o.ID,
			Kind:     o.Kind,
			Position: st.Position,
			Velocity: st.Velocity,
			Angle:    st.Angle,
			Mass:     o.Mass,
			Radius:   o.Radius,
			Vertices: o.Vertices,
		})
	})
	d.world.EachStroke(func(s *world.Stroke) {
		pts := make([]mgl64.Vec2, len(s.Points))
		for i, p := range s.Points {
			pts[i] = d.world.PixelToWorld(p)
		}
		f.Strokes = append(f.Strokes, StrokeView{ID: s.ID, Material: s.Material, Points: pts})
	})
	d.agg.Outputs().ReadAll(&f.CV)
	return f
}
