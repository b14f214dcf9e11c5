package audio

import (
	"sync/atomic"

	"github.com/san-kum/bouncebox/internal/kind"
)

// MaxVoices bounds the pool size.
const MaxVoices = 32

// Pool is a fixed set of voices started in rotation. A new hit always takes
// the next voice, even if it is still ringing.
type Pool struct {
	voices     [MaxVoices]Voice
	n          int
	next       int
	sampleRate int
}

// NewPool returns a pool of n voices, clamped to [1, MaxVoices].
func NewPool(n, sampleRate int) *Pool {
	n = max(1, min(n, MaxVoices))
	return &Pool{n: n, sampleRate: sampleRate}
}

// Size returns the number of voices.
func (p *Pool) Size() int { return p.n }

// Trigger starts the next voice in rotation and returns its index.
func (p *Pool) Trigger(profile Profile, impulse, pan float64) int {
	i := p.next
	p.voices[i].Start(profile, impulse, pan, p.sampleRate)
	p.next = (p.next + 1) % p.n
	return i
}

// Voice returns voice i.
func (p *Pool) Voice(i int) *Voice { return &p.voices[i] }

// Active returns the number of ringing voices.
func (p *Pool) Active() int {
	n := 0
	for i := 0; i < p.n; i++ {
		if p.voices[i].active {
			n++
		}
	}
	return n
}

// Mix adds every voice to out.
func (p *Pool) Mix(out [][2]float64) {
	for i := 0; i < p.n; i++ {
		p.voices[i].Mix(out)
	}
}

// Pulses are one-shot flags per shape kind plus one for any collision.
// Set by a trigger, cleared by the read.
type Pulses struct {
	kinds [kind.NumShapes]atomic.Bool
	any   atomic.Bool
}

// Fire raises the flag of k and the global flag.
func (p *Pulses) Fire(k kind.Shape) {
	if k.Valid() {
		p.kinds[k].Store(true)
	}
	p.any.Store(true)
}

// Read returns and clears the flag of k.
func (p *Pulses) Read(k kind.Shape) bool {
	if !k.Valid() {
		return false
	}
	return p.kinds[k].Swap(false)
}

// ReadAny returns and clears the global flag.
func (p *Pulses) ReadAny() bool { return p.any.Swap(false) }
