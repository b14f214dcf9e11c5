// Package params holds the tunable parameters of the sandbox. Values are
// stored as atomics: the interaction goroutine writes them and the physics
// goroutine reads them every tick.
package params

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/san-kum/bouncebox/internal/kind"
)

// ID identifies a tunable parameter.
type ID int

const (
	Gravity ID = iota
	Wind
	StrokeThickness
	PopulationCap
	VortexStrength
	VortexSpin
	InertialScale
	frictionBase
	restitutionBase = frictionBase + kind.NumMaterials
	numParams       = restitutionBase + kind.NumMaterials
)

// Count is the number of parameters.
const Count = int(numParams)

// Friction returns the friction parameter of material m.
func Friction(m kind.Material) ID { return frictionBase + ID(m) }

// Restitution returns the restitution parameter of material m.
func Restitution(m kind.Material) ID { return restitutionBase + ID(m) }

// Spec declares a parameter's name, range and default.
type Spec struct {
	Name    string
	Min     float64
	Max     float64
	Default float64
}

// Clamp limits v to the declared range.
func (s Spec) Clamp(v float64) float64 {
	return math.Max(s.Min, math.Min(s.Max, v))
}

// Denormalize maps a normalized value in [0,1] onto the declared range.
// Values outside [0,1] are clamped first.
func (s Spec) Denormalize(v float64) float64 {
	v = math.Max(0, math.Min(1, v))
	return s.Min + v*(s.Max-s.Min)
}

// Normalize maps v from the declared range onto [0,1].
func (s Spec) Normalize(v float64) float64 {
	if s.Max == s.Min {
		return 0
	}
	return (s.Clamp(v) - s.Min) / (s.Max - s.Min)
}

var specs = func() [numParams]Spec {
	var s [numParams]Spec
	s[Gravity] = Spec{"gravity", -30, 30, 9.8}
	s[Wind] = Spec{"wind", -20, 20, 0}
	s[StrokeThickness] = Spec{"stroke_thickness", 1, 40, 6}
	s[PopulationCap] = Spec{"population_cap", 1, 512, 64}
	s[VortexStrength] = Spec{"vortex_strength", -200, 200, 40}
	s[VortexSpin] = Spec{"vortex_spin", -100, 100, 20}
	s[InertialScale] = Spec{"inertial_scale", 0, 5, 1}

	friction := [kind.NumMaterials]float64{0.3, 0.6, 0.9, 0.8, 0.2, 1.0}
	restitution := [kind.NumMaterials]float64{0.5, 0.35, 0.1, 0.0, 0.9, 0.0}
	for m := kind.Material(0); m < kind.NumMaterials; m++ {
		s[Friction(m)] = Spec{"friction_" + m.String(), 0, 2, friction[m]}
		s[Restitution(m)] = Spec{"restitution_" + m.String(), 0, 1.5, restitution[m]}
	}
	return s
}()

// SpecOf returns the declaration of id.
func SpecOf(id ID) Spec { return specs[id] }

// Lookup finds a parameter by name.
func Lookup(name string) (ID, bool) {
	for i, s := range specs {
		if s.Name == name {
			return ID(i), true
		}
	}
	return 0, false
}

func (id ID) String() string {
	if id >= 0 && id < numParams {
		return specs[id].Name
	}
	return fmt.Sprintf("param(%d)", int(id))
}

// Store holds the current value of every parameter.
type Store struct {
	values [numParams]atomic.Uint64
}

// NewStore returns a store initialised to the declared defaults.
func NewStore() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Reset restores every default.
func (s *Store) Reset() {
	for i := range s.values {
		s.values[i].Store(math.Float64bits(specs[i].Default))
	}
}

// Get returns the current value of id.
func (s *Store) Get(id ID) float64 {
	return math.Float64frombits(s.values[id].Load())
}

// Set stores v clamped to the declared range and returns the stored value.
func (s *Store) Set(id ID, v float64) float64 {
	if math.IsNaN(v) {
		v = specs[id].Default
	}
	v = specs[id].Clamp(v)
	s.values[id].Store(math.Float64bits(v))
	return v
}

// SetByName is Set addressed by parameter name.
func (s *Store) SetByName(name string, v float64) (float64, error) {
	id, ok := Lookup(name)
	if !ok {
		return 0, fmt.Errorf("unknown parameter: %s", name)
	}
	return s.Set(id, v), nil
}

// Cap returns the population cap as an integer.
func (s *Store) Cap() int {
	return int(math.Round(s.Get(PopulationCap)))
}

// Snapshot returns every value keyed by name.
func (s *Store) Snapshot() map[string]float64 {
	out := make(map[string]float64, numParams)
	for i := range s.values {
		out[specs[i].Name] = s.Get(ID(i))
	}
	return out
}
