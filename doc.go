// Package editor implements the server-side core of the n3n flow editor:
// the canonical graph state machine behind the canvas, with undo/redo,
// clipboard operations, debounced draft autosave, flow versioning, and a
// live execution overlay fed by the engine's event stream.
package editor

const (
	// Name identifies the service in logs and HTTP headers
	Name = "n3n-editor"

	// Version is the service version reported at startup
	Version = "1.0.0"
)
