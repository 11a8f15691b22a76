package tui

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// RunTUI starts the bubbletea program in alt-screen mode and runs loopFn
// concurrently. It blocks until either the loop finishes or the user quits.
func RunTUI(loopFn func(io IO) error) error {
	inputCh := make(chan inputResult, 1)
	model := NewModel(inputCh)

	tuiIO := &TuiIO{inputCh: inputCh, done: make(chan struct{})}
	// Wire the quit path before the model is copied into the tea.Program so
	// ctrl+c can cancel an in-flight turn.
	model.cancelLoopFn = tuiIO.CancelLoop

	p := tea.NewProgram(model, tea.WithAltScreen())
	tuiIO.program = p

	var (
		loopErr error
		wg      sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		loopErr = loopFn(tuiIO)
		// Signal the TUI that the loop is done
		p.Send(loopDoneMsg{err: loopErr})
	}()

	_, runErr := p.Run()
	// Unblock any pending or future ReadInput so the loop goroutine can
	// observe EOF and exit; without this a quit mid-request would hang here.
	close(tuiIO.done)

	if runErr != nil {
		wg.Wait()
		return fmt.Errorf("TUI error: %w", runErr)
	}

	// Wait for the loop goroutine to finish after the TUI exits
	wg.Wait()

	return loopErr
}
