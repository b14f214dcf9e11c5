// Package forces applies the global and local forces of the sandbox each
// tick and runs the periodic emitters.
//
// Vortices, emitters, the manual spawn point and pending manual spawns are
// edited by the interaction side and read by the physics tick. They sit
// behind one RWMutex that the audio render path never touches.
package forces
