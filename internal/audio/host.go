package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"github.com/san-kum/bouncebox/internal/kind"
)

var (
	ErrUnknownBackend     = errors.New("audio: unknown backend")
	ErrBackendUnavailable = errors.New("audio: backend not compiled in")
)

// Backend selects where rendered audio goes.
type Backend string

const (
	Speaker   Backend = "speaker"   // beep speaker
	PortAudio Backend = "portaudio" // duplex device, external CV on the inputs
	Headless  Backend = "headless"  // real-time clock, output discarded
)

// Host drives a Processor from an audio device or a clock.
type Host struct {
	proc    *Processor
	src     *Source
	cfg     Config
	backend Backend
	volume  float64
	log     *log.Logger

	scratch [][2]float64
	pulses  [1 + kind.NumShapes]atomic.Uint64
}

// NewHost returns a host. A nil logger discards output.
func NewHost(proc *Processor, src *Source, backend Backend, volume float64, logger *log.Logger) *Host {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if src == nil {
		src = NewSource(proc.cfg.BlockSize)
	}
	return &Host{
		proc:    proc,
		src:     src,
		cfg:     proc.cfg,
		backend: backend,
		volume:  volume,
		log:     logger,
		scratch: make([][2]float64, proc.cfg.BlockSize),
	}
}

// PulseCount returns how many blocks pulsed trigger output i.
func (h *Host) PulseCount(i int) uint64 { return h.pulses[i].Load() }

// render processes out in chunks of at most one block, with generator
// inputs.
func (h *Host) render(out [][2]float64) {
	for off := 0; off < len(out); off += h.cfg.BlockSize {
		n := min(h.cfg.BlockSize, len(out)-off)
		in := h.src.Fill(n)
		h.count(h.proc.Render(in, out[off:off+n]))
	}
}

func (h *Host) count(o Outputs) {
	for i, v := range o.Triggers {
		if v > 0 {
			h.pulses[i].Add(1)
		}
	}
}

// Stream implements beep.Streamer.
func (h *Host) Stream(samples [][2]float64) (int, bool) {
	h.render(samples)
	return len(samples), true
}

// Err implements beep.Streamer.
func (h *Host) Err() error { return nil }

var _ beep.Streamer = (*Host)(nil)

// Run renders until ctx is done.
func (h *Host) Run(ctx context.Context) error {
	h.log.Printf("backend %s, %d Hz, block %d, %d voices", h.backend, h.cfg.SampleRate, h.cfg.BlockSize, h.proc.pool.Size())
	switch h.backend {
	case Speaker:
		return h.runSpeaker(ctx)
	case PortAudio:
		return h.runPortAudio(ctx)
	case Headless:
		return h.runHeadless(ctx)
	}
	return fmt.Errorf("%w: %q", ErrUnknownBackend, h.backend)
}

func (h *Host) runSpeaker(ctx context.Context) error {
	sr := beep.SampleRate(h.cfg.SampleRate)
	if err := speaker.Init(sr, sr.N(20*time.Millisecond)); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}
	speaker.Play(masterVolume(h, h.volume))
	<-ctx.Done()
	speaker.Clear()
	return nil
}

func masterVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

func (h *Host) runHeadless(ctx context.Context) error {
	period := time.Duration(float64(time.Second) * float64(h.cfg.BlockSize) / float64(h.cfg.SampleRate))
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.render(h.scratch)
		}
	}
}
