// Package tui provides the two terminal frontends: a plain line-based loop
// and a bubbletea full-screen chat. Both sit behind the IO interface so the
// tutoring loop never knows which one is attached.
package tui

import "context"

// IO is the terminal boundary of the tutoring loop.
type IO interface {
	// ReadInput blocks until the user submits a line. Returns io.EOF when
	// input is exhausted or the user quit.
	ReadInput() (string, error)

	// UserMessage echoes a submitted user turn.
	UserMessage(text string)

	// ThinkingStart signals that a request is in flight.
	ThinkingStart()

	// Assistant renders a complete assistant reply.
	Assistant(text string)

	// SystemMessage renders an informational line (session switches, hints).
	SystemMessage(text string)

	// Error renders a failure the user should see.
	Error(msg string)

	// SetSession updates the displayed session title.
	SetSession(title string)

	// SetTokens updates the cumulative token counter.
	SetTokens(n int)
}

// LoopCanceller is implemented by IOs that can cancel the in-flight turn when
// the user quits. The tutoring loop registers a per-turn cancel function so a
// quit never has to wait out a slow remote call.
type LoopCanceller interface {
	SetLoopCancel(cancel context.CancelFunc)
	ClearLoopCancel()
}
