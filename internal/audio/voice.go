package audio

import "math"

// silence is the envelope level at which a partial stops.
const silence = 1e-4

type partial struct {
	phase float64 // 0-1
	step  float64 // phase increment per sample
	env   float64
	decay float64 // per-sample envelope multiplier
}

// Voice is a modal one-shot: a few decaying sine partials, panned.
type Voice struct {
	partials [MaxPartials]partial
	n        int
	left     float64
	right    float64
	active   bool
}

// Active reports whether the voice is still ringing.
func (v *Voice) Active() bool { return v.active }

// PanGains returns equal-power gains for pan in [0,1].
func PanGains(pan float64) (left, right float64) {
	pan = math.Max(0, math.Min(1, pan))
	return math.Cos(pan * math.Pi / 2), math.Sin(pan * math.Pi / 2)
}

// Velocity maps a collision impulse to a loudness in [0,1).
func Velocity(impulse float64) float64 {
	if !(impulse > 0) {
		return 0
	}
	return 1 - math.Exp(-impulse/4)
}

// Start restarts the voice with profile p, cutting off whatever it was
// playing.
func (v *Voice) Start(p Profile, impulse, pan float64, sampleRate int) {
	v.active = false
	v.n = 0
	if p.Silent() || sampleRate <= 0 {
		return
	}
	amp := p.Gain * Velocity(impulse)
	v.left, v.right = PanGains(pan)
	nyquist := float64(sampleRate) / 2

	weight := 1.0
	for i, ratio := range p.Partials {
		if i == MaxPartials {
			break
		}
		freq := p.BaseFreq * ratio
		if freq >= nyquist {
			break
		}
		// higher modes die faster
		decay := p.Decay / (1 + float64(i))
		v.partials[v.n] = partial{
			step:  freq / float64(sampleRate),
			env:   amp * weight,
			decay: math.Pow(silence, 1/(decay*float64(sampleRate))),
		}
		v.n++
		weight *= p.Brightness
	}
	v.active = v.n > 0 && amp > 0
}

// Mix adds the voice to out.
func (v *Voice) Mix(out [][2]float64) {
	if !v.active {
		return
	}
	for i := range out {
		s := 0.0
		ringing := false
		for j := 0; j < v.n; j++ {
			p := &v.partials[j]
			if p.env < silence {
				continue
			}
			ringing = true
			s += p.env * math.Sin(2*math.Pi*p.phase)
			p.phase += p.step
			if p.phase >= 1 {
				p.phase -= 1
			}
			p.env *= p.decay
		}
		if !ringing {
			v.active = false
			return
		}
		out[i][0] += s * v.left
		out[i][1] += s * v.right
	}
}
