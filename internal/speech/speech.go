// Package speech turns assistant text into audio: remote synthesis when the
// gateway offers it, an on-device synthesizer as the fallback.
package speech

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/tutorctl/tutorctl/internal/gateway"
)

// Speaker coordinates remote synthesis and the local fallback.
type Speaker struct {
	synth gateway.SpeechSynthesizer // nil when the provider has no TTS route
	voice string
	log   zerolog.Logger
}

func New(synth gateway.SpeechSynthesizer, voice string, log zerolog.Logger) *Speaker {
	return &Speaker{synth: synth, voice: voice, log: log}
}

// Speak synthesizes text. On success it writes the audio to outPath and
// returns that path. When remote synthesis is unavailable or fails, it falls
// back to speaking aloud through an on-device synthesizer and returns "".
func (s *Speaker) Speak(ctx context.Context, text, outPath string) (string, error) {
	if s.synth != nil {
		data, err := s.synth.SynthesizeSpeech(ctx, text, s.voice)
		if err == nil {
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return "", fmt.Errorf("write audio: %w", err)
			}
			return outPath, nil
		}
		s.log.Warn().Err(err).Msg("remote speech synthesis failed, trying local fallback")
	}

	if err := s.speakLocal(ctx, text); err != nil {
		return "", fmt.Errorf("speech synthesis unavailable: %w", err)
	}
	return "", nil
}

// speakLocal runs the platform speech synthesizer, if one is installed.
func (s *Speaker) speakLocal(ctx context.Context, text string) error {
	bin := localSynthesizer()
	if bin == "" {
		return fmt.Errorf("no on-device synthesizer found (tried say, espeak)")
	}
	cmd := exec.CommandContext(ctx, bin, text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", bin, err)
	}
	return nil
}

// localSynthesizer returns the first available on-device TTS binary.
func localSynthesizer() string {
	for _, candidate := range []string{"say", "espeak", "espeak-ng"} {
		if p, err := exec.LookPath(candidate); err == nil {
			return p
		}
	}
	return ""
}
