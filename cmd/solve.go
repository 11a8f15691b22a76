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
	"github.com/tutorctl/tutorctl/internal/config"
	"github.com/tutorctl/tutorctl/internal/extract"
	"github.com/tutorctl/tutorctl/internal/gateway"
	"github.com/tutorctl/tutorctl/internal/session"
	"github.com/tutorctl/tutorctl/internal/tui"
	"github.com/tutorctl/tutorctl/internal/tutor"
)

const solveInstructionEN = `You are a patient tutor helping a student with a photographed homework problem.
Read the problem from the image carefully, restate it briefly, then solve it step by step.
Explain each step so the student learns the method, not just the answer.`

const solveInstructionAR = `أنت معلم صبور تساعد طالباً في مسألة واجب منزلي مصوّرة.
اقرأ المسألة من الصورة بعناية، ثم أعد صياغتها باختصار، ثم حلّها خطوة بخطوة.
اشرح كل خطوة حتى يتعلم الطالب الطريقة، لا الجواب فقط.`

func newSolveCmd() *cobra.Command {
	var ocrOnly bool

	cmd := &cobra.Command{
		Use:   "solve <image> [question]",
		Short: "Solve a homework problem from a photo",
		Example: `  tutorctl solve homework.jpg
  tutorctl solve equation.png "explain the second step in detail"
  tutorctl solve worksheet.jpg --ocr`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := ""
			if len(args) > 1 {
				question = strings.Join(args[1:], " ")
			}
			return runSolve(args[0], question, ocrOnly)
		},
	}

	cmd.Flags().BoolVar(&ocrOnly, "ocr", false, "only transcribe the text in the image, do not solve")

	return cmd
}

func runSolve(imagePath, question string, ocrOnly bool) error {
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

	img, err := extract.LoadImage(imagePath)
	if err != nil {
		return fmt.Errorf("load %s: %w", imagePath, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if ocrOnly {
		tr, ok := completer.(gateway.Transcriber)
		if !ok {
			return fmt.Errorf("provider %q does not support image transcription", completer.Name())
		}
		text, err := tr.Transcribe(ctx, img)
		if err != nil {
			return fmt.Errorf("transcribe: %w", err)
		}
		fmt.Println(text)
		return nil
	}

	store, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open session store:", err)
		os.Exit(1)
	}
	defer store.Close()

	manager := session.NewManager(store, log)
	manager.Create(session.DefaultTitle(cfg.Language))

	instruction := solveInstructionEN
	if cfg.Language == config.LangArabic {
		instruction = solveInstructionAR
	}
	if question == "" {
		question = "Solve this problem step by step."
		if cfg.Language == config.LangArabic {
			question = "حلّ هذه المسألة خطوة بخطوة."
		}
	}

	t := tutor.New(tutor.Options{
		Completer:   completer,
		Manager:     manager,
		Policy:      assemble.Policy{ReferenceBudget: cfg.Context.ReferenceBudget, HistoryWindow: cfg.Context.HistoryWindow},
		Model:       cfg.Model,
		Language:    cfg.Language,
		Instruction: instruction,
		IO:          tui.NewPlainIO(),
		Log:         log,
	})

	return t.RunOnce(ctx, question, img.DataURL())
}
