package metrics

import "github.com/san-kum/bouncebox/internal/sim"

// Energy is the mean total kinetic energy of the live objects per frame.
type Energy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

// Kinetic returns the summed translational kinetic energy of f's objects.
func Kinetic(f *sim.Frame) float64 {
	var ke float64
	for _, o := range f.Objects {
		ke += 0.5 * o.Mass * o.Velocity.Dot(o.Velocity)
	}
	return ke
}

func (e *Energy) Observe(f *sim.Frame) {
	e.totalEnergy += Kinetic(f)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}
