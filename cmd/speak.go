package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tutorctl/tutorctl/internal/extract"
	"github.com/tutorctl/tutorctl/internal/gateway"
	"github.com/tutorctl/tutorctl/internal/speech"
)

func newSpeakCmd() *cobra.Command {
	var (
		filePath string
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "speak [text]",
		Short: "Read text aloud or save it as audio",
		Example: `  tutorctl speak "The mitochondria is the powerhouse of the cell"
  tutorctl speak --file notes.txt -o notes.mp3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if filePath != "" {
				extracted, err := extract.FromFile(filePath)
				if err != nil {
					return fmt.Errorf("read %s: %w", filePath, err)
				}
				text = extracted
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("nothing to speak: pass text or --file")
			}
			return runSpeak(text, outPath)
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "speak the contents of a file (PDF/txt/md)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "speech.mp3", "output audio file")

	return cmd
}

func runSpeak(text, outPath string) error {
	cfg := initConfig()

	log, closer := newLogger(cfg)
	if closer != nil {
		defer closer.Close()
	}

	// Remote synthesis needs the OpenAI TTS route; without a key the local
	// fallback still works.
	var synth gateway.SpeechSynthesizer
	if gw, err := buildOpenAIGateway(cfg); err == nil {
		synth = gw
	} else {
		fmt.Fprintln(os.Stderr, "note:", err)
	}

	s := speech.New(synth, cfg.Voice, log)
	path, err := s.Speak(context.Background(), text, outPath)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Println("Saved:", path)
	}
	return nil
}
