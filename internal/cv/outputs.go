package cv

import "github.com/san-kum/bouncebox/internal/kind"

// Field is one aggregated quantity per shape kind.
type Field int

const (
	PosX Field = iota
	PosY
	VelX
	VelY
)

// NumFields is the number of aggregated quantities per shape kind.
const NumFields = 4

// NumOutputs is the number of CV outputs: every field for every shape kind.
const NumOutputs = NumFields * kind.NumShapes

var fieldNames = [NumFields]string{"posX", "posY", "velX", "velY"}

func (f Field) String() string { return fieldNames[f] }

// OutputIndex returns the flat output index of field f for shape s, ordered
// {posX, posY, velX, velY} x {ball, square, triangle}.
func OutputIndex(s kind.Shape, f Field) int {
	return int(s)*NumFields + int(f)
}

// OutputName returns a label such as "ball.posX".
func OutputName(i int) string {
	return kind.Shape(i/NumFields).String() + "." + Field(i%NumFields).String()
}

// Outputs holds the published CV values. Written by the physics tick, read by
// the audio render callback as held signals.
type Outputs struct {
	values [NumOutputs]Value
}

// Get returns output i.
func (o *Outputs) Get(i int) float64 { return o.values[i].Load() }

// Of returns field f for shape s.
func (o *Outputs) Of(s kind.Shape, f Field) float64 {
	return o.values[OutputIndex(s, f)].Load()
}

// ReadAll copies every output into dst.
func (o *Outputs) ReadAll(dst *[NumOutputs]float32) {
	for i := range o.values {
		dst[i] = float32(o.values[i].Load())
	}
}

func (o *Outputs) set(s kind.Shape, f Field, v float64) {
	o.values[OutputIndex(s, f)].Store(v)
}
