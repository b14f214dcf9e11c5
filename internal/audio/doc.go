// Package audio is the sound side of the sandbox: a round-robin pool of
// modal one-shot voices driven by collision hits, and the render callback
// that exchanges triggers and control voltages with the physics tick.
//
// Render never blocks, allocates or logs. Everything it shares with the
// physics goroutine goes through queue.Ring or atomics.
package audio
