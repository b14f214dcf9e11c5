package cv

import "github.com/san-kum/bouncebox/internal/params"

// Channel identifies a modulation input.
type Channel int

const (
	ModGravity Channel = iota
	ModWind
	ModVortexStrength
	ModVortexSpin
)

// NumChannels is the number of modulation inputs.
const NumChannels = 4

var channelParams = [NumChannels]params.ID{
	params.Gravity,
	params.Wind,
	params.VortexStrength,
	params.VortexSpin,
}

// Param returns the parameter modulated by c.
func (c Channel) Param() params.ID { return channelParams[c] }

// Bridge publishes one modulation sample per channel per render block.
type Bridge struct {
	values [NumChannels]Value
}

// NewBridge returns a bridge with every channel disconnected.
func NewBridge() *Bridge {
	b := &Bridge{}
	for i := range b.values {
		b.values[i].Disconnect()
	}
	return b
}

// Publish records the first sample of block for c, or the disconnected
// sentinel when block is nil or empty. Audio side only.
func (b *Bridge) Publish(c Channel, block []float32) {
	if len(block) == 0 {
		b.values[c].Disconnect()
		return
	}
	b.values[c].Store(float64(block[0]))
}

// Resolve returns the value the physics tick should use for c: the base
// parameter when the channel is disconnected, otherwise the latest sample
// mapped through the parameter's declared range.
func (b *Bridge) Resolve(c Channel, store *params.Store) float64 {
	id := c.Param()
	v, ok := b.values[c].Connected()
	if !ok {
		return store.Get(id)
	}
	return params.SpecOf(id).Denormalize(v)
}

// Raw returns the latest published sample and whether the channel is connected.
func (b *Bridge) Raw(c Channel) (float64, bool) {
	return b.values[c].Connected()
}
