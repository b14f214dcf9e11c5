package metrics

import "github.com/san-kum/bouncebox/internal/sim"

// HitRate is routed hits per simulated second between the first and last
// observed frames.
type HitRate struct {
	name        string
	first, last *sim.Frame
}

func NewHitRate() *HitRate {
	return &HitRate{name: "hit_rate"}
}

func (h *HitRate) Name() string { return h.name }

func (h *HitRate) Observe(f *sim.Frame) {
	if h.first == nil {
		h.first = f
	}
	h.last = f
}

func (h *HitRate) Value() float64 {
	if h.first == nil || h.last.Time <= h.first.Time {
		return 0
	}
	return float64(h.last.Hits-h.first.Hits) / (h.last.Time - h.first.Time)
}

func (h *HitRate) Reset() {
	h.first, h.last = nil, nil
}
