// Package viz provides a live terminal view of a closed-loop run.
//
// The view is a Bubble Tea program that advances a [Stepper] in real time
// and plots the tracking error and command magnitude with asciigraph.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	+/-   - Faster/Slower
//	Q     - Quit
package viz
