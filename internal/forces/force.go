package forces

import (
	"github.com/go-gl/mathgl/mgl64"
)

// MinVortexDistance guards the radial term against the singularity at the
// vortex center.
const MinVortexDistance = 0.1

// VortexForce returns the force a vortex at center exerts on a body at pos.
// Positive strength attracts, positive spin turns counter-clockwise. The
// second result is false inside MinVortexDistance, where no force applies.
func VortexForce(pos, center mgl64.Vec2, strength, spin float64) (mgl64.Vec2, bool) {
	dir := center.Sub(pos)
	d := dir.Len()
	if d < MinVortexDistance {
		return mgl64.Vec2{}, false
	}
	n := dir.Mul(1 / d)
	radial := n.Mul(strength / d)
	tangential := mgl64.Vec2{-n.Y(), n.X()}.Mul(spin)
	return radial.Add(tangential), true
}

// InertialForce is the apparent force on a body of the given mass when the
// container moves with velocity v.
func InertialForce(v mgl64.Vec2, scale, mass float64) mgl64.Vec2 {
	return v.Mul(-scale * mass)
}

// WindForce is a constant horizontal push, so heavier bodies drift slower.
func WindForce(wind float64) mgl64.Vec2 {
	return mgl64.Vec2{wind, 0}
}
