package cv

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/kind"
)

// Sample is the state of one live object fed to the aggregator.
type Sample struct {
	Kind     kind.Shape
	Position mgl64.Vec2
	Velocity mgl64.Vec2
}

// AggregatorConfig sets the normalization and smoothing of the aggregator.
type AggregatorConfig struct {
	Width       float64 // canvas width in world units
	Height      float64 // canvas height in world units
	MaxVelocity float64 // velocity mapped to +-1
	Smoothing   float64 // one-pole coefficient in [0,1); 0 disables smoothing
}

// Aggregator reduces the live objects of each shape kind to medians and
// publishes them. Physics side only.
type Aggregator struct {
	cfg     AggregatorConfig
	out     *Outputs
	scratch [kind.NumShapes][NumFields][]float64
	primed  [kind.NumShapes]bool
	state   [kind.NumShapes][NumFields]float64
}

// NewAggregator returns an aggregator publishing into out.
func NewAggregator(cfg AggregatorConfig, out *Outputs) *Aggregator {
	if cfg.MaxVelocity <= 0 {
		cfg.MaxVelocity = 1
	}
	cfg.Smoothing = math.Max(0, math.Min(0.999, cfg.Smoothing))
	return &Aggregator{cfg: cfg, out: out}
}

// Outputs returns the published values.
func (a *Aggregator) Outputs() *Outputs { return a.out }

// Update aggregates one tick worth of samples. Shape kinds with no samples
// keep their previous outputs.
func (a *Aggregator) Update(samples []Sample) {
	for s := range a.scratch {
		for f := range a.scratch[s] {
			a.scratch[s][f] = a.scratch[s][f][:0]
		}
	}
	for _, smp := range samples {
		if !smp.Kind.Valid() {
			continue
		}
		b := &a.scratch[smp.Kind]
		b[PosX] = append(b[PosX], smp.Position.X())
		b[PosY] = append(b[PosY], smp.Position.Y())
		b[VelX] = append(b[VelX], smp.Velocity.X())
		b[VelY] = append(b[VelY], smp.Velocity.Y())
	}

	for s := kind.Shape(0); s < kind.NumShapes; s++ {
		b := &a.scratch[s]
		if len(b[PosX]) == 0 {
			continue
		}
		target := [NumFields]float64{
			clamp(Median(b[PosX])/a.cfg.Width, 0, 1),
			clamp(Median(b[PosY])/a.cfg.Height, 0, 1),
			clamp(Median(b[VelX])/a.cfg.MaxVelocity, -1, 1),
			clamp(Median(b[VelY])/a.cfg.MaxVelocity, -1, 1),
		}
		for f := Field(0); f < NumFields; f++ {
			v := target[f]
			if a.primed[s] && a.cfg.Smoothing > 0 {
				v = a.state[s][f]*a.cfg.Smoothing + v*(1-a.cfg.Smoothing)
			}
			a.state[s][f] = v
			a.out.set(s, f, v)
		}
		a.primed[s] = true
	}
}

// Median returns the median of xs, averaging the two middle values for an
// even count. xs is reordered.
func Median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	slices.Sort(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
