package audio

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/san-kum/bouncebox/internal/cv"
	"github.com/san-kum/bouncebox/internal/queue"
)

// Band edges in Hz.
const (
	bassEdge = 250
	midEdge  = 2000
	highEdge = 8000
)

// Analyzer measures bass, mid and high levels of the mix from the tap. It
// runs on a monitor goroutine, never in Render.
type Analyzer struct {
	tap        *queue.Ring[float32]
	sampleRate int
	window     []float64
	fill       int
	maxLevel   float64

	bass, mid, high cv.Value
}

// NewAnalyzer reads frames of size samples from tap.
func NewAnalyzer(tap *queue.Ring[float32], size, sampleRate int) *Analyzer {
	return &Analyzer{
		tap:        tap,
		sampleRate: sampleRate,
		window:     make([]float64, size),
		maxLevel:   0.1,
	}
}

// Update drains the tap and analyzes every complete frame. It reports
// whether any frame was analyzed.
func (a *Analyzer) Update() bool {
	updated := false
	a.tap.Drain(func(s float32) {
		a.window[a.fill] = float64(s)
		a.fill++
		if a.fill == len(a.window) {
			a.analyze()
			a.fill = 0
			updated = true
		}
	})
	return updated
}

func (a *Analyzer) analyze() {
	n := len(a.window)
	frame := make([]float64, n)
	for i, v := range a.window {
		hann := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		frame[i] = v * hann
	}
	spectrum := fft.FFTReal(frame)

	binHz := float64(a.sampleRate) / float64(n)
	var bass, mid, high float64
	for i := 1; i < n/2; i++ {
		mag := cmplx.Abs(spectrum[i]) / float64(n)
		switch f := float64(i) * binHz; {
		case f < bassEdge:
			bass += mag
		case f < midEdge:
			mid += mag
		case f < highEdge:
			high += mag
		}
	}

	// slow automatic gain
	peak := math.Max(bass, math.Max(mid, high))
	if peak > a.maxLevel {
		a.maxLevel = peak
	} else {
		a.maxLevel *= 0.999
	}
	gain := 1.0
	if a.maxLevel > 1e-3 {
		gain = 1 / a.maxLevel
	}
	a.bass.Store(smooth(a.bass.Load(), bass*gain))
	a.mid.Store(smooth(a.mid.Load(), mid*gain))
	a.high.Store(smooth(a.high.Load(), high*gain))
}

func smooth(prev, v float64) float64 {
	return prev*0.8 + math.Min(v, 1)*0.2
}

// Bands returns the smoothed levels in [0,1]. Safe from any goroutine.
func (a *Analyzer) Bands() (bass, mid, high float64) {
	return a.bass.Load(), a.mid.Load(), a.high.Load()
}
