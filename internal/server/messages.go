package server

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/cv"
	"github.com/san-kum/bouncebox/internal/sim"
	"github.com/san-kum/bouncebox/internal/world"
)

// Client message types.
const (
	MsgStroke        = "stroke"
	MsgErase         = "erase"
	MsgEraseAt       = "erase_at"
	MsgVortex        = "vortex"
	MsgRemoveForce   = "remove_force"
	MsgEmitter       = "emitter"
	MsgRemoveEmitter = "remove_emitter"
	MsgSpawn         = "spawn"
	MsgSpawnPoint    = "spawn_point"
	MsgWindow        = "window"
	MsgTool          = "tool"
	MsgPress         = "press"
	MsgDrag          = "drag"
	MsgRelease       = "release"
	MsgClear         = "clear"
	MsgSave          = "save"
	MsgLoad          = "load"
	MsgScenes        = "scenes"
	MsgParam         = "param"
)

// Server message types.
const (
	MsgFrame = "frame"
	MsgAck   = "ack"
	MsgError = "error"
	MsgInfo  = "info"
)

// Message is a client request. Positions are canvas pixels, y down.
type Message struct {
	Type string `json:"type"`

	ID     uint64       `json:"id,omitempty"`
	Target string       `json:"target,omitempty"` // "object" or "stroke" for erase
	X      float64      `json:"x,omitempty"`
	Y      float64      `json:"y,omitempty"`
	Points [][2]float64 `json:"points,omitempty"`

	Tool     string  `json:"tool,omitempty"`
	Material string  `json:"material,omitempty"`
	Shape    string  `json:"shape,omitempty"`
	Rate     float64 `json:"rate,omitempty"`
	VX       float64 `json:"vx,omitempty"`
	VY       float64 `json:"vy,omitempty"`

	Name  string  `json:"name,omitempty"`
	Value float64 `json:"value,omitempty"`
}

func (m Message) pos() mgl64.Vec2 { return mgl64.Vec2{m.X, m.Y} }

// Reply answers one client message.
type Reply struct {
	Type    string `json:"type"`
	Cmd     string `json:"cmd,omitempty"`
	ID      uint64 `json:"id,omitempty"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

type objectJSON struct {
	ID       uint64       `json:"id"`
	Kind     string       `json:"kind"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	Angle    float64      `json:"angle"`
	Radius   float64      `json:"radius,omitempty"`
	Vertices [][2]float64 `json:"vertices,omitempty"`
}

type strokeJSON struct {
	ID       uint64       `json:"id"`
	Material string       `json:"material"`
	Points   [][2]float64 `json:"points"`
}

type markerJSON struct {
	ID   uint64  `json:"id"`
	Kind string  `json:"kind,omitempty"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Rate float64 `json:"rate,omitempty"`
}

// FrameMessage is the broadcast telemetry, in canvas pixels.
type FrameMessage struct {
	Type       string             `json:"type"`
	Tick       uint64             `json:"tick"`
	Time       float64            `json:"time"`
	Gravity    float64            `json:"gravity"`
	Wind       float64            `json:"wind"`
	Objects    []objectJSON       `json:"objects"`
	Strokes    []strokeJSON       `json:"strokes"`
	Vortices   []markerJSON       `json:"vortices"`
	Emitters   []markerJSON       `json:"emitters"`
	SpawnPoint [2]float64         `json:"spawn_point"`
	Evicted    uint64             `json:"evicted"`
	Hits       uint64             `json:"hits"`
	Drops      sim.Drops          `json:"drops"`
	CV         map[string]float32 `json:"cv"`
}

func pixel(c world.Config, p mgl64.Vec2) [2]float64 {
	q := c.WorldToPixel(p)
	return [2]float64{q.X(), q.Y()}
}

// NewFrameMessage converts a telemetry frame to canvas pixels.
func NewFrameMessage(c world.Config, f *sim.Frame) *FrameMessage {
	m := &FrameMessage{
		Type:       MsgFrame,
		Tick:       f.Tick,
		Time:       f.Time,
		Gravity:    f.Gravity,
		Wind:       f.Env.Wind,
		Objects:    make([]objectJSON, 0, len(f.Objects)),
		Strokes:    make([]strokeJSON, 0, len(f.Strokes)),
		Vortices:   make([]markerJSON, 0, len(f.Vortices)),
		Emitters:   make([]markerJSON, 0, len(f.Emitters)),
		SpawnPoint: pixel(c, f.SpawnPoint),
		Evicted:    f.Evicted,
		Hits:       f.Hits,
		Drops:      f.Drops,
		CV:         make(map[string]float32, cv.NumOutputs),
	}
	ppm := c.PixelsPerMeter
	for _, o := range f.Objects {
		p := pixel(c, o.Position)
		oj := objectJSON{ID: uint64(o.ID), Kind: o.Kind.String(), X: p[0], Y: p[1], Angle: o.Angle, Radius: o.Radius * ppm}
		for _, v := range o.Vertices {
			oj.Vertices = append(oj.Vertices, [2]float64{v.X() * ppm, -v.Y() * ppm})
		}
		m.Objects = append(m.Objects, oj)
	}
	for _, s := range f.Strokes {
		sj := strokeJSON{ID: uint64(s.ID), Material: s.Material.String(), Points: make([][2]float64, len(s.Points))}
		for i, p := range s.Points {
			sj.Points[i] = pixel(c, p)
		}
		m.Strokes = append(m.Strokes, sj)
	}
	for _, v := range f.Vortices {
		p := pixel(c, v.Position)
		m.Vortices = append(m.Vortices, markerJSON{ID: uint64(v.ID), X: p[0], Y: p[1]})
	}
	for _, e := range f.Emitters {
		p := pixel(c, e.Position)
		m.Emitters = append(m.Emitters, markerJSON{ID: uint64(e.ID), Kind: e.Kind.String(), X: p[0], Y: p[1], Rate: e.Rate})
	}
	for i, v := range f.CV {
		m.CV[cv.OutputName(i)] = v
	}
	return m
}
