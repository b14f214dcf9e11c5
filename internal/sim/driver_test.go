package sim_test

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/bouncebox/internal/collision"
	"github.com/san-kum/bouncebox/internal/cv"
	"github.com/san-kum/bouncebox/internal/forces"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/params"
	"github.com/san-kum/bouncebox/internal/sim"
	"github.com/san-kum/bouncebox/internal/world"
)

const dt = 1.0 / 60

type rig struct {
	d      *sim.Driver
	q      sim.Queues
	store  *params.Store
	bridge *cv.Bridge
	out    *cv.Outputs
	field  *forces.Field
}

func newRig() *rig {
	r := &rig{
		q:      sim.NewQueues(64, 64, 64, 16, 256),
		store:  params.NewStore(),
		bridge: cv.NewBridge(),
		out:    &cv.Outputs{},
		field:  forces.NewField(mgl64.Vec2{8, 10}),
	}
	d, err := sim.New(sim.Options{
		Config:     sim.Config{TickRate: 60, SpawnMass: 1},
		World:      world.DefaultConfig(),
		Router:     collision.DefaultConfig(),
		Aggregator: cv.AggregatorConfig{Width: 16, Height: 12, MaxVelocity: 20},
		Params:     r.store,
		Bridge:     r.bridge,
		Outputs:    r.out,
		Field:      r.field,
		Queues:     r.q,
	})
	Expect(err).NotTo(HaveOccurred())
	r.d = d
	return r
}

func (r *rig) ticks(n int) {
	for i := 0; i < n; i++ {
		r.d.Tick(dt)
	}
}

func (r *rig) command(c sim.Command) sim.Reply {
	reply := make(chan sim.Reply, 1)
	c.Reply = reply
	Expect(r.q.Control.Push(c)).To(BeTrue())
	r.d.Tick(dt)
	var out sim.Reply
	Expect(reply).To(Receive(&out))
	return out
}

var _ = Describe("Driver", func() {
	var r *rig

	BeforeEach(func() {
		r = newRig()
	})

	It("rejects a non-positive tick rate", func() {
		_, err := sim.New(sim.Options{Config: sim.Config{TickRate: 0, SpawnMass: 1}})
		Expect(err).To(MatchError(sim.ErrInvalidConfig))
	})

	It("publishes an empty frame before the first tick", func() {
		f := r.d.Frame()
		Expect(f).NotTo(BeNil())
		Expect(f.Count()).To(Equal(0))
		Expect(f.SpawnPoint).To(Equal(mgl64.Vec2{8, 10}))
	})

	Describe("spawn requests", func() {
		It("spawns audio triggers at the spawn point", func() {
			Expect(r.q.Spawns.Push(kind.Triangle)).To(BeTrue())
			r.d.Tick(dt)

			f := r.d.Frame()
			Expect(f.Objects).To(HaveLen(1))
			Expect(f.Objects[0].Kind).To(Equal(kind.Triangle))
			Expect(f.Objects[0].Position.X()).To(BeNumerically("~", 8, 1e-6))
			Expect(f.Objects[0].Position.Y()).To(BeNumerically("<", 10))
		})

		It("never exceeds the population cap", func() {
			r.store.Set(params.PopulationCap, 3)
			for i := 0; i < 5; i++ {
				Expect(r.q.Spawns.Push(kind.Ball)).To(BeTrue())
			}
			r.d.Tick(dt)

			f := r.d.Frame()
			Expect(f.Count()).To(Equal(3))
			Expect(f.Evicted).To(Equal(uint64(2)))
			Expect(r.d.World().Pending()).To(Equal(0))
		})

		It("takes manual spawns queued on the field", func() {
			r.field.QueueManual(world.SpawnRequest{Kind: kind.Square, Mass: 2, Position: mgl64.Vec2{3, 4}})
			r.d.Tick(dt)
			Expect(r.d.Frame().Objects).To(HaveLen(1))
			Expect(r.d.Frame().Objects[0].Kind).To(Equal(kind.Square))
		})

		It("runs emitters with catch-up", func() {
			_, err := r.field.AddEmitter(forces.Emitter{Position: mgl64.Vec2{4, 8}, Rate: 10, Kind: kind.Ball, Mass: 1})
			Expect(err).NotTo(HaveOccurred())

			r.d.Tick(0.35)
			Expect(r.d.Frame().Count()).To(Equal(3))
		})
	})

	Describe("erasure", func() {
		It("destroys objects and strokes from the destroy queue", func() {
			Expect(r.q.Spawns.Push(kind.Ball)).To(BeTrue())
			Expect(r.q.Strokes.Push(world.StrokeRequest{
				Material: kind.Wood,
				Points:   []mgl64.Vec2{{50, 550}, {250, 550}},
			})).To(BeTrue())
			r.d.Tick(dt)

			f := r.d.Frame()
			Expect(f.Objects).To(HaveLen(1))
			Expect(f.Strokes).To(HaveLen(1))

			Expect(r.q.Destroy.Push(sim.Erase{Object: f.Objects[0].ID})).To(BeTrue())
			Expect(r.q.Destroy.Push(sim.Erase{Stroke: f.Strokes[0].ID})).To(BeTrue())
			r.d.Tick(dt)

			f = r.d.Frame()
			Expect(f.Objects).To(BeEmpty())
			Expect(f.Strokes).To(BeEmpty())
			Expect(r.d.World().Pending()).To(Equal(0))
		})

		It("ignores stale handles", func() {
			Expect(r.q.Spawns.Push(kind.Ball)).To(BeTrue())
			r.d.Tick(dt)
			id := r.d.Frame().Objects[0].ID

			Expect(r.q.Destroy.Push(sim.Erase{Object: id})).To(BeTrue())
			Expect(r.q.Destroy.Push(sim.Erase{Object: id})).To(BeTrue())
			Expect(func() { r.d.Tick(dt) }).NotTo(Panic())
			Expect(r.d.Frame().Count()).To(Equal(0))
		})
	})

	Describe("collisions", func() {
		It("turns a ball landing on metal into a hit", func() {
			Expect(r.q.Strokes.Push(world.StrokeRequest{
				Material: kind.Metal,
				Points:   []mgl64.Vec2{{100, 550}, {700, 550}},
			})).To(BeTrue())
			r.field.QueueManual(world.SpawnRequest{Kind: kind.Ball, Mass: 1, Position: mgl64.Vec2{8, 3}})
			r.ticks(120)

			hit, ok := r.q.Hits.Pop()
			Expect(ok).To(BeTrue())
			Expect(hit.Material).To(Equal(kind.Metal))
			Expect(hit.Kind).To(Equal(kind.Ball))
			Expect(hit.Pan).To(BeNumerically("~", 0.5, 0.05))
			Expect(hit.Impulse).To(BeNumerically(">", 0.5))
			Expect(r.d.Frame().Hits).To(BeNumerically(">=", 1))
		})

		It("keeps silent strokes silent", func() {
			Expect(r.q.Strokes.Push(world.StrokeRequest{
				Material: kind.StickyMud,
				Points:   []mgl64.Vec2{{100, 550}, {700, 550}},
			})).To(BeTrue())
			r.field.QueueManual(world.SpawnRequest{Kind: kind.Ball, Mass: 1, Position: mgl64.Vec2{8, 3}})
			r.ticks(120)

			Expect(r.q.Hits.Len()).To(Equal(0))
		})
	})

	Describe("forces", func() {
		It("follows the modulated gravity channel", func() {
			r.bridge.Publish(cv.ModGravity, []float32{0.5})
			r.field.QueueManual(world.SpawnRequest{Kind: kind.Ball, Mass: 1, Position: mgl64.Vec2{8, 6}})
			r.ticks(30)

			f := r.d.Frame()
			Expect(f.Gravity).To(BeNumerically("~", 0, 1e-9))
			Expect(f.Objects[0].Position.Y()).To(BeNumerically("~", 6, 1e-6))
		})

		It("falls back to the base value when disconnected", func() {
			r.bridge.Publish(cv.ModGravity, nil)
			r.d.Tick(dt)
			Expect(r.d.Frame().Gravity).To(BeNumerically("~", 9.8, 1e-9))
		})

		It("blows objects downwind", func() {
			r.store.Set(params.Gravity, 0)
			r.store.Set(params.Wind, 5)
			r.field.QueueManual(world.SpawnRequest{Kind: kind.Ball, Mass: 1, Position: mgl64.Vec2{8, 6}})
			r.ticks(30)

			o := r.d.Frame().Objects[0]
			Expect(o.Position.X()).To(BeNumerically(">", 8))
			Expect(o.Velocity.X()).To(BeNumerically(">", 0))
		})
	})

	Describe("control commands", func() {
		BeforeEach(func() {
			Expect(r.q.Strokes.Push(world.StrokeRequest{
				Material: kind.Soil,
				Points:   []mgl64.Vec2{{50, 550}, {300, 500}, {550, 550}},
			})).To(BeTrue())
			Expect(r.q.Spawns.Push(kind.Ball)).To(BeTrue())
			Expect(r.q.Spawns.Push(kind.Square)).To(BeTrue())
			r.field.AddVortex(mgl64.Vec2{4, 4})
			r.d.Tick(dt)
		})

		It("snapshots the whole scene", func() {
			reply := r.command(sim.Command{Kind: sim.CmdSnapshot})
			Expect(reply.Err).NotTo(HaveOccurred())
			Expect(reply.Scene.Objects).To(HaveLen(2))
			Expect(reply.Scene.Strokes).To(HaveLen(1))
			Expect(reply.Scene.Forces).To(HaveLen(1))
			Expect(reply.Scene.SpawnPoint).To(Equal(world.Point{8, 10}))
		})

		It("clears everything", func() {
			reply := r.command(sim.Command{Kind: sim.CmdClear})
			Expect(reply.Err).NotTo(HaveOccurred())

			f := r.d.Frame()
			Expect(f.Objects).To(BeEmpty())
			Expect(f.Strokes).To(BeEmpty())
			Expect(f.Vortices).To(BeEmpty())
		})

		It("restores a snapshot", func() {
			saved := r.command(sim.Command{Kind: sim.CmdSnapshot}).Scene
			r.command(sim.Command{Kind: sim.CmdClear})
			Expect(r.d.Frame().Count()).To(Equal(0))

			reply := r.command(sim.Command{Kind: sim.CmdLoad, Scene: saved})
			Expect(reply.Err).NotTo(HaveOccurred())

			f := r.d.Frame()
			Expect(f.Objects).To(HaveLen(2))
			Expect(f.Strokes).To(HaveLen(1))
			Expect(f.Vortices).To(HaveLen(1))
		})

		It("leaves the world alone when a scene is invalid", func() {
			reply := r.command(sim.Command{Kind: sim.CmdLoad, Scene: &world.Scene{Version: world.SceneVersion + 1}})
			Expect(reply.Err).To(MatchError(world.ErrInvalidScene))

			f := r.d.Frame()
			Expect(f.Objects).To(HaveLen(2))
			Expect(f.Strokes).To(HaveLen(1))
		})

		It("removes replaced bodies before the next step", func() {
			r.store.Set(params.Gravity, 0)
			r.field.QueueManual(world.SpawnRequest{Kind: kind.Ball, Mass: 1, Position: mgl64.Vec2{5, 5}})
			r.d.Tick(dt)

			scene := &world.Scene{Version: world.SceneVersion, Objects: []world.ObjectState{
				{Kind: kind.Ball, Mass: 1, Position: world.Point{5.5, 5}},
			}}
			reply := r.command(sim.Command{Kind: sim.CmdLoad, Scene: scene})
			Expect(reply.Err).NotTo(HaveOccurred())

			// an overlapping leftover body would push the new ball sideways
			f := r.d.Frame()
			Expect(f.Objects).To(HaveLen(1))
			Expect(f.Objects[0].Position.X()).To(BeNumerically("~", 5.5, 1e-6))
			Expect(f.Objects[0].Velocity.Len()).To(BeNumerically("<", 1e-6))
			Expect(r.d.World().Pending()).To(Equal(0))
		})

		It("rejects a degenerate polygon without touching the world", func() {
			scene := &world.Scene{Version: world.SceneVersion, Objects: []world.ObjectState{
				{Kind: kind.Square, Mass: 1, Vertices: []world.Point{{0, 0}, {0, 0}, {0, 0}}},
			}}
			var reply sim.Reply
			Expect(func() { reply = r.command(sim.Command{Kind: sim.CmdLoad, Scene: scene}) }).NotTo(Panic())
			Expect(reply.Err).To(MatchError(world.ErrInvalidScene))
			Expect(r.d.Frame().Objects).To(HaveLen(2))
		})

		It("rejects a load without a scene", func() {
			reply := r.command(sim.Command{Kind: sim.CmdLoad})
			Expect(reply.Err).To(MatchError(sim.ErrNoScene))
		})

		It("does not block on a full reply channel", func() {
			reply := make(chan sim.Reply, 1)
			reply <- sim.Reply{}
			Expect(r.q.Control.Push(sim.Command{Kind: sim.CmdSnapshot, Reply: reply})).To(BeTrue())
			Expect(func() { r.d.Tick(dt) }).NotTo(Panic())
			Expect(reply).To(HaveLen(1))
		})
	})

	Describe("telemetry", func() {
		It("publishes CV outputs and notifies observers", func() {
			var seen []uint64
			r.d.AddObserver(sim.ObserverFunc(func(f *sim.Frame) { seen = append(seen, f.Tick) }))

			Expect(r.q.Spawns.Push(kind.Ball)).To(BeTrue())
			r.ticks(3)

			Expect(seen).To(Equal([]uint64{1, 2, 3}))
			f := r.d.Frame()
			Expect(f.CV[cv.OutputIndex(kind.Ball, cv.PosX)]).To(BeNumerically("~", 0.5, 1e-3))
			Expect(f.Time).To(BeNumerically("~", 3*dt, 1e-9))
		})

		It("counts queue drops", func() {
			for i := 0; i < r.q.Spawns.Cap()+4; i++ {
				r.q.Spawns.Push(kind.Ball)
			}
			r.d.Tick(dt)
			Expect(r.d.Frame().Drops.Spawn).To(Equal(uint64(4)))
		})

		It("finds the nearest object and stroke", func() {
			r.field.QueueManual(world.SpawnRequest{Kind: kind.Ball, Mass: 1, Position: mgl64.Vec2{2, 8}})
			Expect(r.q.Strokes.Push(world.StrokeRequest{
				Material: kind.Wood,
				Points:   []mgl64.Vec2{{500, 500}, {700, 500}},
			})).To(BeTrue())
			r.d.Tick(dt)

			f := r.d.Frame()
			_, ok := f.Nearest(mgl64.Vec2{2, 8}, 0.5)
			Expect(ok).To(BeTrue())
			_, ok = f.Nearest(mgl64.Vec2{12, 8}, 0.5)
			Expect(ok).To(BeFalse())

			s, ok := f.NearestStroke(mgl64.Vec2{12, 2.2}, 0.5)
			Expect(ok).To(BeTrue())
			Expect(s.Material).To(Equal(kind.Wood))
		})
	})

	It("runs until the context is cancelled", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		err := r.d.Run(ctx)
		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(r.d.Frame().Tick).To(BeNumerically(">", 0))
	})
})

var _ = Describe("Ensemble", func() {
	It("benchmarks independent drivers", func() {
		drivers := make([]*sim.Driver, 3)
		for i := range drivers {
			rr := newRig()
			for j := 0; j < 4; j++ {
				rr.q.Spawns.Push(kind.Ball)
			}
			drivers[i] = rr.d
		}
		e := sim.NewEnsemble(len(drivers), func(run int) (*sim.Driver, error) {
			return drivers[run], nil
		})
		results, err := e.Run(context.Background(), 30)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for _, res := range results {
			Expect(res.Ticks).To(Equal(30))
			Expect(res.Objects).To(Equal(4))
		}
	})
})
