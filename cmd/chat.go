package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tutorctl/tutorctl/internal/assemble"
	"github.com/tutorctl/tutorctl/internal/session"
	"github.com/tutorctl/tutorctl/internal/tui"
	"github.com/tutorctl/tutorctl/internal/tutor"
)

// runChat starts the interactive chat (REPL) mode.
func runChat() error {
	cfg := initConfig()

	log, closer := newLogger(cfg)
	if closer != nil {
		defer closer.Close()
	}

	completer, err := buildCompleter(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Model == "" {
		cfg.Model = completer.DefaultModel()
	}

	store, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open session store:", err)
		os.Exit(1)
	}
	defer store.Close()

	manager := session.NewManager(store, log)

	policy := assemble.Policy{
		ReferenceBudget:     cfg.Context.ReferenceBudget,
		HistoryWindow:       cfg.Context.HistoryWindow,
		SearchWithReference: cfg.Context.SearchWithReference,
	}

	newTutor := func(ui tui.IO) *tutor.Tutor {
		return tutor.New(tutor.Options{
			Completer:   completer,
			Searcher:    buildSearcher(cfg),
			Manager:     manager,
			Policy:      policy,
			Model:       cfg.Model,
			Language:    cfg.Language,
			Instruction: cfg.Instruction,
			IO:          ui,
			Log:         log,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	welcome := fmt.Sprintf("tutorctl %s — type /help for commands", appVersion)

	if useTUI {
		return tui.RunTUI(func(ui tui.IO) error {
			ui.SystemMessage(welcome)
			return newTutor(ui).Run(ctx)
		})
	}

	// Plain IO mode (default)
	ui := tui.NewPlainIO()
	ui.SystemMessage(welcome)
	return newTutor(ui).Run(ctx)
}
