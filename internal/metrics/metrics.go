// Package metrics accumulates summary statistics over sandbox frames.
package metrics

import "github.com/san-kum/bouncebox/internal/sim"

// Metric folds frames into one number.
type Metric interface {
	Name() string
	Observe(f *sim.Frame)
	Value() float64
	Reset()
}

// Set observes every frame into each of its metrics. It is a sim.Observer.
type Set struct {
	metrics []Metric
}

func NewSet(ms ...Metric) *Set {
	return &Set{metrics: ms}
}

// Default returns energy, containment and hit rate for a w by h world.
func Default(w, h float64) *Set {
	return NewSet(NewEnergy(), NewContainment(w, h, 1), NewHitRate())
}

func (s *Set) OnTick(f *sim.Frame) {
	for _, m := range s.metrics {
		m.Observe(f)
	}
}

func (s *Set) Metrics() []Metric { return s.metrics }

// Values returns each metric by name.
func (s *Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s *Set) Reset() {
	for _, m := range s.metrics {
		m.Reset()
	}
}
