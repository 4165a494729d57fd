package emu

import "io"

// Device bundles the three append-only console sinks a guest program can
// write to: message is the ordinary stdout-equivalent stream libc's
// putchar/puts/printf write through, profile receives opt-in interpreter
// diagnostics (instruction counts, cache-hit ratios), and panic receives
// the final FailToInterpret report when a run-time trap terminates
// execution. Keeping them as separate io.Writer fields, rather than a
// single stream, lets a caller (a test, or the CLI's --quiet flag)
// redirect or discard any one of them independently.
type Device struct {
	Message io.Writer
	Profile io.Writer
	Panic   io.Writer

	// Stdin feeds getchar/scanf. A nil Stdin makes both report EOF.
	Stdin io.Reader
}

// NewDevice wires the three sinks and the input stream explicitly. Callers
// that don't care about one stream should pass io.Discard, not nil.
func NewDevice(message, profile, panic io.Writer, stdin io.Reader) *Device {
	return &Device{Message: message, Profile: profile, Panic: panic, Stdin: stdin}
}
