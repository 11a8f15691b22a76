package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newImagineCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "imagine <prompt>",
		Short: "Generate an illustration from a text prompt",
		Example: `  tutorctl imagine "a labeled diagram of a plant cell"
  tutorctl imagine -o orbit.png "the solar system with orbital paths"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImagine(strings.Join(args, " "), outPath)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "image.png", "output image file")

	return cmd
}

func runImagine(prompt, outPath string) error {
	cfg := initConfig()

	log, closer := newLogger(cfg)
	if closer != nil {
		defer closer.Close()
	}
	gw, err := buildOpenAIGateway(cfg)
	if err != nil {
		return err
	}
	log.Debug().Str("prompt", prompt).Msg("generating image")

	data, err := gw.SynthesizeImage(context.Background(), prompt)
	if err != nil {
		return fmt.Errorf("generate image: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	fmt.Println("Saved:", outPath)
	return nil
}
