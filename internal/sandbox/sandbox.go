// Package sandbox assembles the physics driver, audio host, interaction
// session and websocket server from a config and runs them together.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/audio"
	"github.com/san-kum/bouncebox/internal/collision"
	"github.com/san-kum/bouncebox/internal/config"
	"github.com/san-kum/bouncebox/internal/cv"
	"github.com/san-kum/bouncebox/internal/forces"
	"github.com/san-kum/bouncebox/internal/interaction"
	"github.com/san-kum/bouncebox/internal/params"
	"github.com/san-kum/bouncebox/internal/queue"
	"github.com/san-kum/bouncebox/internal/server"
	"github.com/san-kum/bouncebox/internal/sim"
	"github.com/san-kum/bouncebox/internal/storage"
	"github.com/san-kum/bouncebox/internal/world"
)

// AudioOff disables the audio host.
const AudioOff = "off"

// ErrRunning is returned by calls that are only valid before Run, and by a
// second concurrent Run.
var ErrRunning = errors.New("sandbox: already running")

const (
	tapSize      = 8192
	analyzerSize = 1024
)

// Options selects the optional parts of a sandbox.
type Options struct {
	Serve  bool           // run the websocket server
	Store  *storage.Store // scene store for the server, may be nil
	LogOut io.Writer      // nil logs to stderr
}

// Sandbox is one assembled instrument.
type Sandbox struct {
	cfg *config.Config

	Params  *params.Store
	Bridge  *cv.Bridge
	Outputs *cv.Outputs
	Field   *forces.Field
	Queues  sim.Queues

	Driver   *sim.Driver
	Proc     *audio.Processor
	Host     *audio.Host
	Analyzer *audio.Analyzer
	Session  *interaction.Session
	Server   *server.Server

	running atomic.Bool
}

func logger(out io.Writer, tag string) *log.Logger {
	return log.New(out, "["+tag+"] ", log.LstdFlags)
}

// WorldConfig returns the canvas mapping for cfg.
func WorldConfig(cfg *config.Config) world.Config {
	wc := world.DefaultConfig()
	wc.PixelsPerMeter = cfg.Canvas.PixelsPerMeter
	wc.CanvasHeight = float64(cfg.Canvas.Height)
	return wc
}

// RouterConfig returns the collision router tuning for cfg.
func RouterConfig(cfg *config.Config) collision.Config {
	rc := collision.DefaultConfig()
	rc.Cooldown = time.Duration(cfg.Router.CooldownMs) * time.Millisecond
	rc.ImpulseThreshold = cfg.Router.ImpulseThreshold
	rc.ConveyorSpeed = cfg.Router.ConveyorSpeed
	rc.GooRestitution = cfg.Router.GooRestitution
	rc.MudDamping = cfg.Router.MudDamping
	rc.WorldWidth = cfg.WorldWidth()
	return rc
}

// New builds a sandbox. Nothing runs until Run.
func New(cfg *config.Config, opts Options) (*Sandbox, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	out := opts.LogOut
	if out == nil {
		out = os.Stderr
	}

	store := params.NewStore()
	if err := cfg.ApplyParams(store); err != nil {
		return nil, fmt.Errorf("sandbox: params: %w", err)
	}

	sb := &Sandbox{
		cfg:     cfg,
		Params:  store,
		Bridge:  cv.NewBridge(),
		Outputs: &cv.Outputs{},
		Field:   forces.NewField(mgl64.Vec2(cfg.Spawn.Point)),
		Queues: sim.NewQueues(cfg.Queues.Spawn, cfg.Queues.Destroy, cfg.Queues.Stroke,
			cfg.Queues.Control, cfg.Queues.Hits),
	}
	audioOn := cfg.Audio.Backend != AudioOff
	if !audioOn {
		sb.Queues.Hits = nil
		sb.Queues.Spawns = nil
	}

	driver, err := sim.New(sim.Options{
		Config: sim.Config{
			TickRate:   cfg.TickRate,
			SpawnMass:  cfg.Spawn.Mass,
			MaxCatchUp: cfg.Emitters.MaxCatchUp,
		},
		World:  WorldConfig(cfg),
		Router: RouterConfig(cfg),
		Aggregator: cv.AggregatorConfig{
			Width:       cfg.WorldWidth(),
			Height:      cfg.WorldHeight(),
			MaxVelocity: cfg.Aggregator.MaxVelocity,
			Smoothing:   cfg.Aggregator.Smoothing,
		},
		Params:  store,
		Bridge:  sb.Bridge,
		Outputs: sb.Outputs,
		Field:   sb.Field,
		Queues:  sb.Queues,
		Logger:  logger(out, "physics"),
	})
	if err != nil {
		return nil, err
	}
	sb.Driver = driver

	if audioOn {
		src, err := cfg.AudioSource()
		if err != nil {
			return nil, fmt.Errorf("sandbox: inputs: %w", err)
		}
		tap := queue.MustNew[float32](tapSize)
		sb.Proc = audio.NewProcessor(cfg.RenderConfig(), audio.Links{
			Bridge:  sb.Bridge,
			Outputs: sb.Outputs,
			Spawns:  sb.Queues.Spawns,
			Hits:    sb.Queues.Hits,
			Tap:     tap,
		})
		sb.Host = audio.NewHost(sb.Proc, src, audio.Backend(cfg.Audio.Backend), cfg.Audio.Volume, logger(out, "audio"))
		sb.Analyzer = audio.NewAnalyzer(tap, analyzerSize, cfg.Audio.SampleRate)
	}

	sessCfg := interaction.DefaultConfig()
	sessCfg.Canvas = WorldConfig(cfg)
	sessCfg.SpawnMass = cfg.Spawn.Mass
	sb.Session = interaction.NewSession(sessCfg, sb.Queues, sb.Field, store, driver.Frame, logger(out, "session"))

	if opts.Serve {
		sb.Server = server.New(server.Config{
			Addr:        cfg.Server.Addr,
			BroadcastHz: cfg.Server.BroadcastHz,
			Canvas:      WorldConfig(cfg),
		}, sb.Session, opts.Store, driver.Frame, logger(out, "server"))
	}
	return sb, nil
}

// LoadScene queues scene to replace the sandbox contents on the next tick.
// It must be called before Run: once running, the session is the only
// producer on the control queue, so loads go through Session.Load.
func (sb *Sandbox) LoadScene(scene *world.Scene) error {
	if sb.running.Load() {
		return ErrRunning
	}
	if scene == nil {
		return sim.ErrNoScene
	}
	if err := scene.Validate(); err != nil {
		return err
	}
	if !sb.Queues.Control.Push(sim.Command{Kind: sim.CmdLoad, Scene: scene}) {
		return interaction.ErrQueueFull
	}
	return nil
}

// Run starts every component and blocks until ctx is done or one of them
// fails.
func (sb *Sandbox) Run(ctx context.Context) error {
	if !sb.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer sb.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := fn(ctx)
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", name, err)
			}
			mu.Unlock()
			cancel()
		}()
	}

	start("physics", sb.Driver.Run)
	if sb.Host != nil {
		start("audio", sb.Host.Run)
	}
	if sb.Server != nil {
		start("server", sb.Server.ListenAndServe)
	}

	wg.Wait()
	return firstErr
}

// Trace writes one CSV row every `every` ticks to path until Close.
// Rows are written from the physics goroutine.
type Trace struct {
	t     *storage.Trace
	every uint64
	err   error
}

// AttachTrace records the driver's frames into path.
func (sb *Sandbox) AttachTrace(path string, every int) (*Trace, error) {
	t, err := storage.CreateTrace(path)
	if err != nil {
		return nil, err
	}
	if every < 1 {
		every = 1
	}
	tr := &Trace{t: t, every: uint64(every)}
	sb.Driver.AddObserver(sim.ObserverFunc(tr.observe))
	return tr, nil
}

func (tr *Trace) observe(f *sim.Frame) {
	if tr.err != nil || f.Tick%tr.every != 0 {
		return
	}
	tr.err = tr.t.Write(storage.TraceRow{
		Time:    f.Time,
		Objects: len(f.Objects),
		Strokes: len(f.Strokes),
		Hits:    f.Hits,
		Drops:   f.Drops.Total(),
	})
}

// Close flushes the trace. Call after Run returns.
func (tr *Trace) Close() error {
	if err := tr.t.Close(); err != nil {
		return err
	}
	return tr.err
}
