// Package ui holds the user-facing console abstraction. It is passed
// explicitly into components instead of living as package-level state, which
// keeps tests isolated and output routing obvious.
package ui

import (
	"fmt"
	"io"
)

// Console writes human-facing status lines. A quiet Console swallows
// everything; logging is unaffected either way.
type Console struct {
	w     io.Writer
	quiet bool
}

// NewConsole returns a Console writing to w. If quiet is true all output is
// suppressed.
func NewConsole(w io.Writer, quiet bool) *Console {
	return &Console{w: w, quiet: quiet}
}

// Quiet reports whether output is suppressed.
func (c *Console) Quiet() bool { return c == nil || c.quiet || c.w == nil }

// Print writes a plain status line.
func (c *Console) Print(format string, args ...any) {
	if c.Quiet() {
		return
	}
	fmt.Fprintf(c.w, format+"\n", args...)
}

// Status rewrites the current line in place, for lightweight progress
// display. Follow with Print to move past it.
func (c *Console) Status(format string, args ...any) {
	if c.Quiet() {
		return
	}
	fmt.Fprintf(c.w, "\r"+format, args...)
}

// Warn writes a warning line.
func (c *Console) Warn(format string, args ...any) {
	c.Print("! "+format, args...)
}

// Error writes an error line, optionally followed by a suggestion.
func (c *Console) Error(format string, args ...any) {
	c.Print("error: "+format, args...)
}

// Suggest writes a follow-up hint under an error message.
func (c *Console) Suggest(format string, args ...any) {
	c.Print("  hint: "+format, args...)
}
