//go:build !portaudio

package audio

import (
	"context"
	"fmt"
)

func (h *Host) runPortAudio(ctx context.Context) error {
	return fmt.Errorf("%w: rebuild with -tags portaudio", ErrBackendUnavailable)
}
