// Package kind holds the small enumerations shared by every layer of the
// sandbox: shape kinds, stroke materials and polarity tags.
package kind

import (
	"fmt"
	"strings"
)

// Shape is the kind of a dynamic object.
type Shape uint8

const (
	Ball Shape = iota
	Square
	Triangle
)

// NumShapes is the number of shape kinds.
const NumShapes = 3

var shapeNames = [NumShapes]string{"ball", "square", "triangle"}

func (s Shape) String() string {
	if int(s) < NumShapes {
		return shapeNames[s]
	}
	return fmt.Sprintf("shape(%d)", s)
}

// Valid reports whether s is a known shape kind.
func (s Shape) Valid() bool { return int(s) < NumShapes }

// ParseShape parses a shape name. "circle" is accepted for Ball.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ball", "circle":
		return Ball, nil
	case "square", "box":
		return Square, nil
	case "triangle":
		return Triangle, nil
	}
	return 0, fmt.Errorf("unknown shape kind: %q", name)
}

func (s Shape) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid shape kind %d", s)
	}
	return []byte(s.String()), nil
}

func (s *Shape) UnmarshalText(b []byte) error {
	v, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Material is the material or function of a stroke.
type Material uint8

const (
	Metal Material = iota
	Wood
	Soil
	Conveyor
	BouncyGoo
	StickyMud
)

// NumMaterials is the number of stroke materials.
const NumMaterials = 6

var materialNames = [NumMaterials]string{"metal", "wood", "soil", "conveyor", "bouncy_goo", "sticky_mud"}

func (m Material) String() string {
	if int(m) < NumMaterials {
		return materialNames[m]
	}
	return fmt.Sprintf("material(%d)", m)
}

// Valid reports whether m is a known material.
func (m Material) Valid() bool { return int(m) < NumMaterials }

// Sounding reports whether collisions against m produce sound.
func (m Material) Sounding() bool {
	return m == Metal || m == Wood || m == Soil
}

// ParseMaterial parses a material name. Dashes, spaces and underscores are
// interchangeable.
func ParseMaterial(name string) (Material, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer("-", "_", " ", "_").Replace(n)
	switch n {
	case "bouncygoo", "goo":
		n = "bouncy_goo"
	case "stickymud", "mud":
		n = "sticky_mud"
	}
	for i, s := range materialNames {
		if s == n {
			return Material(i), nil
		}
	}
	return 0, fmt.Errorf("unknown material: %q", name)
}

func (m Material) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid material %d", m)
	}
	return []byte(m.String()), nil
}

func (m *Material) UnmarshalText(b []byte) error {
	v, err := ParseMaterial(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Polarity tags an object for future magnetic forces. It is stored and
// persisted but no force reads it yet.
type Polarity uint8

const (
	NoPolarity Polarity = iota
	North
	South
)

func (p Polarity) String() string {
	switch p {
	case North:
		return "north"
	case South:
		return "south"
	}
	return "none"
}

func (p Polarity) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Polarity) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "none":
		*p = NoPolarity
	case "north", "n":
		*p = North
	case "south", "s":
		*p = South
	default:
		return fmt.Errorf("unknown polarity: %q", b)
	}
	return nil
}
