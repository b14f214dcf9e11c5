package world

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateStroke indicates a stroke with fewer than two distinct points.
	ErrDegenerateStroke = errors.New("world: degenerate stroke")

	// ErrInvalidSpawn indicates a spawn request with an unknown kind or a
	// non-positive mass.
	ErrInvalidSpawn = errors.New("world: invalid spawn request")

	// ErrInvalidScene indicates scene data that cannot be loaded.
	ErrInvalidScene = errors.New("world: invalid scene")
)

// LoadError reports which entry of a scene failed validation.
type LoadError struct {
	Section string
	Index   int
	Wrapped error
}

func (e *LoadError) Error() string {
	if e.Section == "" {
		return fmt.Sprintf("load scene: %v", e.Wrapped)
	}
	return fmt.Sprintf("load scene: %s[%d]: %v", e.Section, e.Index, e.Wrapped)
}

func (e *LoadError) Unwrap() error {
	return e.Wrapped
}
