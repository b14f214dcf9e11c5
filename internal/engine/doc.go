// Package engine adapts the box2d rigid-body world to the sandbox.
//
// The adapter owns every engine body. Callers hold opaque, generation-counted
// [BodyID] handles; the body's user data stores the same handle, so contact
// callbacks never carry pointers into domain objects.
//
// # Stepping contract
//
// [World.Step] must only be called from the physics goroutine. Bodies may not
// be created or destroyed while a step is running; such calls return
// [ErrWorldLocked] and leave the world untouched. Contact callbacks run
// synchronously inside Step.
package engine
