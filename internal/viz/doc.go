// Package viz is the terminal monitor for a running sandbox.
//
// The monitor polls the physics telemetry frame, draws the sandbox on a
// Braille canvas and shows object counts, hit activity, queue drops, the CV
// outputs and, when audio runs, the spectrum bands of the mix.
//
// # Key Bindings
//
//	Space - Pause/Resume the view
//	Tab   - Select parameter
//	Up/K  - Increase parameter
//	Down/J- Decrease parameter
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
