//go:build portaudio

package audio

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/san-kum/bouncebox/internal/cv"
	"github.com/san-kum/bouncebox/internal/kind"
)

// InputChannels is the device input layout: one trigger per shape kind,
// then the modulation channels.
const InputChannels = kind.NumShapes + cv.NumChannels

func (h *Host) runPortAudio(ctx context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return fmt.Errorf("portaudio input device: %w", err)
	}
	inputs := min(InputChannels, dev.MaxInputChannels)

	stream, err := portaudio.OpenDefaultStream(inputs, 2, float64(h.cfg.SampleRate), h.cfg.BlockSize, h.duplex)
	if err != nil {
		return fmt.Errorf("portaudio open: %w", err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return fmt.Errorf("portaudio start: %w", err)
	}
	h.log.Printf("portaudio: %d input channels from %s", inputs, dev.Name)

	<-ctx.Done()
	return stream.Stop()
}

// duplex is the device callback. Device inputs override generators.
func (h *Host) duplex(in, out [][]float32) {
	frames := len(out[0])
	for off := 0; off < frames; off += h.cfg.BlockSize {
		n := min(h.cfg.BlockSize, frames-off)
		inputs := h.src.Fill(n)
		for ch := range in {
			block := in[ch][off : off+n]
			if ch < kind.NumShapes {
				inputs.Triggers[ch] = block
			} else if c := ch - kind.NumShapes; c < cv.NumChannels {
				inputs.Mod[c] = block
			}
		}
		buf := h.scratch[:n]
		h.count(h.proc.Render(inputs, buf))
		for i, s := range buf {
			out[0][off+i] = float32(s[0] * h.volume)
			out[1][off+i] = float32(s[1] * h.volume)
		}
	}
}
