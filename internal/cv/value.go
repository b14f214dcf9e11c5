// Package cv carries control-voltage values between the audio and physics
// goroutines.
//
// Every channel is a single-writer/single-reader atomic scalar. The
// modulation [Bridge] is written by the audio render callback and read by the
// physics tick; the [Outputs] are written by the physics tick through the
// [Aggregator] and read by the audio render callback.
package cv

import (
	"math"
	"sync/atomic"
)

// Value is an atomically published float64. The zero Value holds 0.
type Value struct {
	bits atomic.Uint64
}

// Store publishes v.
func (v *Value) Store(x float64) { v.bits.Store(math.Float64bits(x)) }

// Load returns the last published value.
func (v *Value) Load() float64 { return math.Float64frombits(v.bits.Load()) }

// Disconnect publishes the "not connected" sentinel.
func (v *Value) Disconnect() { v.Store(math.NaN()) }

// Connected returns the published value and false when the sentinel is set.
func (v *Value) Connected() (float64, bool) {
	x := v.Load()
	if math.IsNaN(x) {
		return 0, false
	}
	return x, true
}
