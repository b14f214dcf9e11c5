// Package world owns every simulated object of the sandbox: the dynamic
// shapes users spawn and the static strokes they draw.
//
// The [Manager] enforces the population cap with oldest-first eviction and
// implements two-phase destruction: erased or evicted objects are moved to a
// pending list immediately, and their engine bodies are destroyed by
// [Manager.CommitDestructions] once the current step has returned.
//
// The Manager is owned by the physics goroutine. Only [Manager.Count] and
// [Manager.StrokeCount] may be called from other goroutines.
package world
