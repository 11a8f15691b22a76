package tui

import (
	"context"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// TuiIO implements the IO interface by sending messages to a bubbletea Program.
// All methods are safe to call from any goroutine.
type TuiIO struct {
	program *tea.Program
	inputCh chan inputResult
	done    chan struct{} // closed when the program has exited

	mu         sync.Mutex
	cancelLoop context.CancelFunc
}

var _ IO = (*TuiIO)(nil)

func (t *TuiIO) ReadInput() (string, error) {
	select {
	case <-t.done:
		return "", io.EOF
	default:
	}

	// Tell the TUI to activate the text input
	t.program.Send(readInputMsg{})

	// Block until the user submits or the TUI exits
	select {
	case res := <-t.inputCh:
		if res.err != nil {
			return "", io.EOF
		}
		return res.text, nil
	case <-t.done:
		return "", io.EOF
	}
}

func (t *TuiIO) UserMessage(text string) {
	t.program.Send(userMsg{text: text})
}

func (t *TuiIO) ThinkingStart() {
	t.program.Send(thinkingStartMsg{})
}

func (t *TuiIO) Assistant(text string) {
	t.program.Send(assistantMsg{text: text})
}

func (t *TuiIO) SystemMessage(text string) {
	t.program.Send(systemMsg{text: text})
}

func (t *TuiIO) Error(msg string) {
	t.program.Send(errorMsg{text: msg})
}

func (t *TuiIO) SetSession(title string) {
	t.program.Send(sessionMsg{title: title})
}

func (t *TuiIO) SetTokens(n int) {
	t.program.Send(tokensMsg{n: n})
}

// --- LoopCanceller implementation ---

// SetLoopCancel registers the per-turn cancel function for the tutoring loop.
func (t *TuiIO) SetLoopCancel(cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLoop = cancel
}

// ClearLoopCancel clears the loop cancel function when the turn ends.
func (t *TuiIO) ClearLoopCancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLoop = nil
}

// CancelLoop cancels the in-flight turn. Returns true if a turn was actually
// cancelled.
func (t *TuiIO) CancelLoop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelLoop != nil {
		t.cancelLoop()
		t.cancelLoop = nil
		return true
	}
	return false
}
