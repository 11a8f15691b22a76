package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tutorctl/tutorctl/internal/assemble"
	"github.com/tutorctl/tutorctl/internal/extract"
	"github.com/tutorctl/tutorctl/internal/session"
	"github.com/tutorctl/tutorctl/internal/tui"
	"github.com/tutorctl/tutorctl/internal/tutor"
)

func newAskCmd() *cobra.Command {
	var (
		refPath    string
		imagePath  string
		withSearch bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question non-interactively",
		Example: `  tutorctl ask "What is the Pythagorean theorem?"
  tutorctl ask --ref chapter3.pdf "Summarize the main argument"
  tutorctl ask --image diagram.png "What does this circuit do?"
  tutorctl ask --search "Who won the 2024 Nobel Prize in Physics?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(strings.Join(args, " "), refPath, imagePath, withSearch)
		},
	}

	cmd.Flags().StringVar(&refPath, "ref", "", "attach a document (PDF/txt/md) as reference material")
	cmd.Flags().StringVar(&imagePath, "image", "", "attach an image")
	cmd.Flags().BoolVar(&withSearch, "search", false, "augment the answer with live web search")

	return cmd
}

// runAsk executes a single turn and exits. The exchange is recorded in a new
// session so it shows up in `tutorctl sessions`.
func runAsk(question, refPath, imagePath string, withSearch bool) error {
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
	manager.Create(session.DefaultTitle(cfg.Language))

	t := tutor.New(tutor.Options{
		Completer:   completer,
		Searcher:    buildSearcher(cfg),
		Manager:     manager,
		Policy:      assemble.Policy{ReferenceBudget: cfg.Context.ReferenceBudget, HistoryWindow: cfg.Context.HistoryWindow, SearchWithReference: cfg.Context.SearchWithReference},
		Model:       cfg.Model,
		Language:    cfg.Language,
		Instruction: cfg.Instruction,
		IO:          tui.NewPlainIO(),
		Log:         log,
	})

	if refPath != "" {
		text, err := extract.FromFile(refPath)
		if err != nil {
			return fmt.Errorf("attach %s: %w", refPath, err)
		}
		t.SetReference(text)
	}
	t.SetSearch(withSearch)

	image := ""
	if imagePath != "" {
		img, err := extract.LoadImage(imagePath)
		if err != nil {
			return fmt.Errorf("attach %s: %w", imagePath, err)
		}
		image = img.DataURL()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return t.RunOnce(ctx, question, image)
}
