package audio

import "github.com/san-kum/bouncebox/internal/kind"

// MaxPartials is the number of modes a voice can ring.
const MaxPartials = 4

// Profile is the sound of one material.
type Profile struct {
	Partials    []float64 // overtone ratios relative to BaseFreq
	BaseFreq    float64   // Hz
	Decay       float64   // seconds to -60dB of the fundamental
	Gain        float64
	Brightness  float64 // 0 dull, 1 bright; weights the upper partials
	Friction    float64
	Restitution float64
}

// Silent reports whether the profile makes no sound.
func (p Profile) Silent() bool { return p.Gain <= 0 || len(p.Partials) == 0 }

// Mode ratios of a free bar for metal, damped plates for wood and a low
// thud for soil. Functional materials are silent.
var profiles = [kind.NumMaterials]Profile{
	kind.Metal: {
		Partials: []float64{1, 2.756, 5.404, 8.933}, BaseFreq: 523.25, Decay: 1.4,
		Gain: 0.45, Brightness: 0.8, Friction: 0.3, Restitution: 0.5,
	},
	kind.Wood: {
		Partials: []float64{1, 3.93, 9.03}, BaseFreq: 220, Decay: 0.22,
		Gain: 0.7, Brightness: 0.35, Friction: 0.6, Restitution: 0.35,
	},
	kind.Soil: {
		Partials: []float64{1, 1.58, 2.31}, BaseFreq: 82.4, Decay: 0.09,
		Gain: 0.9, Brightness: 0.15, Friction: 0.9, Restitution: 0.1,
	},
	kind.Conveyor:  {Friction: 0.8},
	kind.BouncyGoo: {Friction: 0.2, Restitution: 0.9},
	kind.StickyMud: {Friction: 1.0},
}

// ProfileOf returns the static profile of m.
func ProfileOf(m kind.Material) Profile {
	if !m.Valid() {
		return Profile{}
	}
	return profiles[m]
}
