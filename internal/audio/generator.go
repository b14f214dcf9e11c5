package audio

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/bouncebox/internal/cv"
	"github.com/san-kum/bouncebox/internal/kind"
)

// Generator synthesizes an input channel when no external signal is
// connected.
type Generator interface {
	Fill(buf []float32)
}

// Wave selects an LFO shape.
type Wave int

const (
	Sine Wave = iota
	Triangle
	Square
)

// ParseWave parses "sine", "triangle" or "square".
func ParseWave(name string) (Wave, error) {
	switch strings.ToLower(name) {
	case "", "sine":
		return Sine, nil
	case "triangle", "tri":
		return Triangle, nil
	case "square":
		return Square, nil
	}
	return Sine, fmt.Errorf("unknown wave: %s", name)
}

func triangle(phase float64) float64 {
	p := phase - math.Floor(phase)
	return 4*math.Abs(p-0.5) - 1
}

// LFO is a slow unipolar modulation source: Offset + Depth*wave/2.
type LFO struct {
	wave   Wave
	step   float64
	phase  float64
	depth  float64
	offset float64
}

// NewLFO returns an LFO at rate Hz.
func NewLFO(wave Wave, rate, depth, offset float64, sampleRate int) *LFO {
	return &LFO{
		wave:   wave,
		step:   rate / float64(sampleRate),
		depth:  depth,
		offset: offset,
	}
}

func (l *LFO) Fill(buf []float32) {
	for i := range buf {
		var w float64
		switch l.wave {
		case Triangle:
			w = triangle(l.phase)
		case Square:
			w = 1
			if l.phase >= 0.5 {
				w = -1
			}
		default:
			w = math.Sin(2 * math.Pi * l.phase)
		}
		buf[i] = float32(l.offset + l.depth*w/2)
		l.phase += l.step
		if l.phase >= 1 {
			l.phase -= 1
		}
	}
}

// Clock emits a short gate at a fixed rate, for trigger inputs.
type Clock struct {
	period int
	width  int
	pos    int
}

// NewClock returns a clock ticking at rate Hz with 5ms gates.
func NewClock(rate float64, sampleRate int) *Clock {
	period := 1
	if rate > 0 {
		period = max(2, int(float64(sampleRate)/rate))
	}
	width := max(1, min(period/2, sampleRate/200))
	return &Clock{period: period, width: width}
}

func (c *Clock) Fill(buf []float32) {
	for i := range buf {
		if c.pos < c.width {
			buf[i] = 1
		} else {
			buf[i] = 0
		}
		c.pos++
		if c.pos >= c.period {
			c.pos = 0
		}
	}
}

// Source fills Inputs from generators. Channels without a generator stay
// disconnected.
type Source struct {
	Triggers [kind.NumShapes]Generator
	Mod      [cv.NumChannels]Generator

	trig [kind.NumShapes][]float32
	mod  [cv.NumChannels][]float32
}

// NewSource preallocates buffers of blockSize samples.
func NewSource(blockSize int) *Source {
	s := &Source{}
	for i := range s.trig {
		s.trig[i] = make([]float32, blockSize)
	}
	for i := range s.mod {
		s.mod[i] = make([]float32, blockSize)
	}
	return s
}

// Fill renders n samples of every connected generator. n must not exceed
// the block size.
func (s *Source) Fill(n int) Inputs {
	var in Inputs
	for i, g := range s.Triggers {
		if g != nil {
			g.Fill(s.trig[i][:n])
			in.Triggers[i] = s.trig[i][:n]
		}
	}
	for i, g := range s.Mod {
		if g != nil {
			g.Fill(s.mod[i][:n])
			in.Mod[i] = s.mod[i][:n]
		}
	}
	return in
}
