package forces

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/world"
)

// EmitterID identifies a placed emitter.
type EmitterID uint32

// Emitter periodically spawns objects of one kind.
type Emitter struct {
	ID       EmitterID
	Position mgl64.Vec2
	Rate     float64 // Hz
	Kind     kind.Shape
	Velocity mgl64.Vec2
	Mass     float64
	Polarity kind.Polarity

	acc float64
}

// emitterSlack absorbs rounding in the accumulator so that elapsed time
// summing to whole periods spawns on time.
const emitterSlack = 1e-9

// Period returns the seconds between spawns.
func (e *Emitter) Period() float64 {
	if e.Rate <= 0 {
		return math.Inf(1)
	}
	return 1 / e.Rate
}

// Advance adds elapsed seconds to the accumulator and returns how many
// spawns are due. Delayed ticks catch up with several spawns at once. A
// positive maxCatchUp bounds the spawns per call and drops the backlog.
func (e *Emitter) Advance(elapsed float64, maxCatchUp int) int {
	period := e.Period()
	if math.IsInf(period, 1) || !(elapsed > 0) {
		return 0
	}
	e.acc += elapsed
	n := 0
	for e.acc+emitterSlack >= period {
		e.acc -= period
		n++
		if maxCatchUp > 0 && n == maxCatchUp {
			e.acc = math.Mod(e.acc, period)
			if e.acc+emitterSlack >= period {
				e.acc = 0
			}
			break
		}
	}
	return n
}

// Request returns the spawn request this emitter issues.
func (e *Emitter) Request() world.SpawnRequest {
	return world.SpawnRequest{
		Kind:     e.Kind,
		Mass:     e.Mass,
		Position: e.Position,
		Velocity: e.Velocity,
		Polarity: e.Polarity,
	}
}

func (e *Emitter) state() world.EmitterState {
	return world.EmitterState{
		Position: world.PointOf(e.Position),
		Rate:     e.Rate,
		Kind:     e.Kind,
		Velocity: world.PointOf(e.Velocity),
		Mass:     e.Mass,
		Polarity: e.Polarity,
	}
}
