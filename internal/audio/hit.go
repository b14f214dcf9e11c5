package audio

import "github.com/san-kum/bouncebox/internal/kind"

// Hit is a collision that should sound. Sent from the physics tick to the
// render callback.
type Hit struct {
	Material kind.Material
	Impulse  float64
	Pan      float64 // 0 left, 1 right
	Kind     kind.Shape
}
