// Package interaction turns user gestures into sandbox requests. A Session
// is owned by a single goroutine and is the only producer of the stroke,
// destroy and control queues.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/forces"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/params"
	"github.com/san-kum/bouncebox/internal/sim"
	"github.com/san-kum/bouncebox/internal/world"
)

var (
	ErrQueueFull   = errors.New("interaction: request queue full")
	ErrNothingHere = errors.New("interaction: nothing to erase")
	ErrUnknownTool = errors.New("interaction: unknown tool")
	ErrNoControl   = errors.New("interaction: no control queue")
)

// Tool selects what a pointer press does.
type Tool int

const (
	ToolDraw Tool = iota
	ToolErase
	ToolVortex
	ToolEmitter
	ToolSpawn
	ToolSpawnPoint
	numTools
)

var toolNames = [numTools]string{"draw", "erase", "vortex", "emitter", "spawn", "spawn_point"}

func (t Tool) String() string {
	if t >= 0 && t < numTools {
		return toolNames[t]
	}
	return "unknown"
}

// ParseTool parses a tool name.
func ParseTool(name string) (Tool, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range toolNames {
		if n == name {
			return Tool(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// Config tunes a Session. Distances are in pixels.
type Config struct {
	Canvas      world.Config
	SpawnMass   float64
	EmitterRate float64 // spawns per second for the emitter tool
	EraseRadius float64
	MinSpacing  float64 // drag points closer than this to the last point are skipped
}

// DefaultConfig returns the settings used by the default canvas.
func DefaultConfig() Config {
	return Config{
		Canvas:      world.DefaultConfig(),
		SpawnMass:   1,
		EmitterRate: 2,
		EraseRadius: 24,
		MinSpacing:  4,
	}
}

// Session holds the selection state and the stroke in progress.
type Session struct {
	cfg    Config
	q      sim.Queues
	field  *forces.Field
	params *params.Store
	frame  func() *sim.Frame
	log    *log.Logger

	tool     Tool
	material kind.Material
	shape    kind.Shape

	drawing bool
	stroke  []mgl64.Vec2 // pixels
}

// NewSession returns a session producing into q. frame supplies the latest
// telemetry for hit testing and may be nil.
func NewSession(cfg Config, q sim.Queues, field *forces.Field, store *params.Store, frame func() *sim.Frame, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if frame == nil {
		frame = func() *sim.Frame { return &sim.Frame{} }
	}
	if cfg.Canvas.PixelsPerMeter <= 0 {
		cfg.Canvas = world.DefaultConfig()
	}
	return &Session{
		cfg:      cfg,
		q:        q,
		field:    field,
		params:   store,
		frame:    frame,
		log:      logger,
		material: kind.Metal,
		shape:    kind.Ball,
	}
}

func (s *Session) Tool() Tool                  { return s.tool }
func (s *Session) Material() kind.Material     { return s.material }
func (s *Session) Shape() kind.Shape           { return s.shape }
func (s *Session) Drawing() bool               { return s.drawing }
func (s *Session) SetMaterial(m kind.Material) { s.material = m }
func (s *Session) SetShape(k kind.Shape)       { s.shape = k }

// SetTool switches tools, abandoning any stroke in progress.
func (s *Session) SetTool(t Tool) {
	if t != ToolDraw {
		s.CancelStroke()
	}
	s.tool = t
}

func (s *Session) toWorld(px mgl64.Vec2) mgl64.Vec2 { return s.cfg.Canvas.PixelToWorld(px) }

// Press applies the current tool at a pixel position.
func (s *Session) Press(px mgl64.Vec2) error {
	switch s.tool {
	case ToolDraw:
		s.BeginStroke(px)
		return nil
	case ToolErase:
		return s.EraseAt(px)
	case ToolVortex:
		s.AddVortex(px)
		return nil
	case ToolEmitter:
		_, err := s.AddEmitter(px, s.shape, s.cfg.EmitterRate, mgl64.Vec2{})
		return err
	case ToolSpawn:
		return s.Spawn(px, s.shape)
	case ToolSpawnPoint:
		s.SetSpawnPoint(px)
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnknownTool, s.tool)
}

// Drag extends the stroke in progress.
func (s *Session) Drag(px mgl64.Vec2) {
	if s.drawing {
		s.ExtendStroke(px)
	}
}

// Release finishes the stroke in progress, if any.
func (s *Session) Release(px mgl64.Vec2) error {
	if !s.drawing {
		return nil
	}
	s.ExtendStroke(px)
	return s.EndStroke()
}

// BeginStroke starts a stroke at px, dropping any unfinished one.
func (s *Session) BeginStroke(px mgl64.Vec2) {
	s.drawing = true
	s.stroke = append(s.stroke[:0], px)
}

// ExtendStroke appends px unless it is within MinSpacing of the last point.
func (s *Session) ExtendStroke(px mgl64.Vec2) {
	if !s.drawing {
		return
	}
	if n := len(s.stroke); n > 0 && px.Sub(s.stroke[n-1]).Len() < s.cfg.MinSpacing {
		return
	}
	s.stroke = append(s.stroke, px)
}

// CancelStroke discards the stroke in progress.
func (s *Session) CancelStroke() {
	s.drawing = false
	s.stroke = s.stroke[:0]
}

// EndStroke queues the stroke in progress with the selected material.
func (s *Session) EndStroke() error {
	if !s.drawing {
		return nil
	}
	pts := make([]mgl64.Vec2, len(s.stroke))
	copy(pts, s.stroke)
	s.CancelStroke()
	return s.submitStroke(s.material, pts)
}

// Stroke queues a complete stroke given in pixels.
func (s *Session) Stroke(m kind.Material, px []mgl64.Vec2) error {
	pts := make([]mgl64.Vec2, len(px))
	copy(pts, px)
	return s.submitStroke(m, pts)
}

func (s *Session) submitStroke(m kind.Material, pts []mgl64.Vec2) error {
	if !m.Valid() {
		return fmt.Errorf("interaction: unknown material %d", m)
	}
	if len(pts) < 2 {
		return fmt.Errorf("%w: %d points", world.ErrDegenerateStroke, len(pts))
	}
	if s.q.Strokes == nil || !s.q.Strokes.Push(world.StrokeRequest{Material: m, Points: pts}) {
		return fmt.Errorf("%w: stroke", ErrQueueFull)
	}
	return nil
}

// EraseAt erases the object under px, or failing that the nearest stroke.
func (s *Session) EraseAt(px mgl64.Vec2) error {
	f := s.frame()
	p := s.toWorld(px)
	r := s.cfg.EraseRadius / s.cfg.Canvas.PixelsPerMeter
	if o, ok := f.Nearest(p, r); ok {
		return s.EraseObject(o.ID)
	}
	if st, ok := f.NearestStroke(p, r); ok {
		return s.EraseStroke(st.ID)
	}
	return ErrNothingHere
}

// EraseObject queues the destruction of an object.
func (s *Session) EraseObject(id world.ObjectID) error {
	return s.erase(sim.Erase{Object: id})
}

// EraseStroke queues the destruction of a stroke.
func (s *Session) EraseStroke(id world.StrokeID) error {
	return s.erase(sim.Erase{Stroke: id})
}

func (s *Session) erase(e sim.Erase) error {
	if s.q.Destroy == nil || !s.q.Destroy.Push(e) {
		return fmt.Errorf("%w: destroy", ErrQueueFull)
	}
	return nil
}

// AddVortex places a vortex at px.
func (s *Session) AddVortex(px mgl64.Vec2) forces.VortexID {
	return s.field.AddVortex(s.toWorld(px))
}

func (s *Session) RemoveVortex(id forces.VortexID) error { return s.field.RemoveVortex(id) }

// AddEmitter places an emitter at px. vel is in world units per second.
func (s *Session) AddEmitter(px mgl64.Vec2, k kind.Shape, rate float64, vel mgl64.Vec2) (forces.EmitterID, error) {
	return s.field.AddEmitter(forces.Emitter{
		Position: s.toWorld(px),
		Rate:     rate,
		Kind:     k,
		Velocity: vel,
		Mass:     s.cfg.SpawnMass,
	})
}

func (s *Session) RemoveEmitter(id forces.EmitterID) error { return s.field.RemoveEmitter(id) }

// Spawn queues one object at px.
func (s *Session) Spawn(px mgl64.Vec2, k kind.Shape) error {
	if !k.Valid() {
		return fmt.Errorf("%w: kind %d", world.ErrInvalidSpawn, k)
	}
	s.field.QueueManual(world.SpawnRequest{Kind: k, Mass: s.cfg.SpawnMass, Position: s.toWorld(px)})
	return nil
}

// SetSpawnPoint moves the point where trigger spawns appear.
func (s *Session) SetSpawnPoint(px mgl64.Vec2) {
	s.field.SetSpawnPoint(s.toWorld(px))
}

// MoveWindow reports the host window position in screen pixels. Window
// motion is felt by every object as an inertial force.
func (s *Session) MoveWindow(px mgl64.Vec2) {
	ppm := s.cfg.Canvas.PixelsPerMeter
	s.field.SetWindow(mgl64.Vec2{px.X() / ppm, -px.Y() / ppm})
}

// SetParam sets a base parameter by name and returns the clamped value.
func (s *Session) SetParam(name string, v float64) (float64, error) {
	return s.params.SetByName(name, v)
}

// Clear queues removal of everything in the sandbox.
func (s *Session) Clear() error {
	s.CancelStroke()
	if s.q.Control == nil {
		return ErrNoControl
	}
	if !s.q.Control.Push(sim.Command{Kind: sim.CmdClear}) {
		return fmt.Errorf("%w: control", ErrQueueFull)
	}
	return nil
}

// Snapshot asks the physics goroutine for the current scene.
func (s *Session) Snapshot(ctx context.Context) (*world.Scene, error) {
	r, err := s.request(ctx, sim.Command{Kind: sim.CmdSnapshot})
	if err != nil {
		return nil, err
	}
	return r.Scene, nil
}

// Load replaces the sandbox with scene. Invalid scenes are rejected before
// they are queued.
func (s *Session) Load(ctx context.Context, scene *world.Scene) error {
	if scene == nil {
		return sim.ErrNoScene
	}
	if err := scene.Validate(); err != nil {
		return err
	}
	s.CancelStroke()
	_, err := s.request(ctx, sim.Command{Kind: sim.CmdLoad, Scene: scene})
	return err
}

func (s *Session) request(ctx context.Context, c sim.Command) (sim.Reply, error) {
	if s.q.Control == nil {
		return sim.Reply{}, ErrNoControl
	}
	reply := make(chan sim.Reply, 1)
	c.Reply = reply
	if !s.q.Control.Push(c) {
		return sim.Reply{}, fmt.Errorf("%w: control", ErrQueueFull)
	}
	select {
	case r := <-reply:
		return r, r.Err
	case <-ctx.Done():
		return sim.Reply{}, ctx.Err()
	}
}
