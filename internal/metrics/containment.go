package metrics

import "github.com/san-kum/bouncebox/internal/sim"

// Containment is the fraction of frames in which every object lies within
// the canvas grown by margin on each side.
type Containment struct {
	name       string
	w, h       float64
	margin     float64
	violations int
	samples    int
}

func NewContainment(w, h, margin float64) *Containment {
	return &Containment{name: "containment", w: w, h: h, margin: margin}
}

func (c *Containment) Name() string { return c.name }

func (c *Containment) Observe(f *sim.Frame) {
	c.samples++
	for _, o := range f.Objects {
		p := o.Position
		if p.X() < -c.margin || p.X() > c.w+c.margin || p.Y() < -c.margin || p.Y() > c.h+c.margin {
			c.violations++
			break
		}
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}
