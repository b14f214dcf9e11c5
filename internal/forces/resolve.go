package forces

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/cv"
	"github.com/san-kum/bouncebox/internal/params"
)

// Resolve returns the gravity magnitude and force environment for this
// tick. Modulated channels override their base values.
func Resolve(b *cv.Bridge, store *params.Store, windowVelocity mgl64.Vec2) (gravity float64, env Env) {
	gravity = b.Resolve(cv.ModGravity, store)
	env = Env{
		Wind:           b.Resolve(cv.ModWind, store),
		VortexStrength: b.Resolve(cv.ModVortexStrength, store),
		VortexSpin:     b.Resolve(cv.ModVortexSpin, store),
		InertialScale:  store.Get(params.InertialScale),
		WindowVelocity: windowVelocity,
	}
	return gravity, env
}

// Gravity returns the world gravity vector for a magnitude. Positive
// magnitudes pull down.
func Gravity(g float64) mgl64.Vec2 {
	return mgl64.Vec2{0, -g}
}
