// Package logger provides the process-wide structured logger.
// tutorctl is a terminal app, so the logger stays quiet on the console by
// default and writes to a file under the data directory; --debug raises the
// level and mirrors output to stderr.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level   string // debug, info, warn, error
	File    string // log file path; empty disables the file sink
	Console bool   // mirror output to stderr (pretty format)
}

// New creates a zerolog.Logger according to cfg.
// The returned closer is nil when no file sink is open.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.WarnLevel
	}

	var writers []io.Writer
	var closer io.Closer

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	if len(writers) == 0 {
		return zerolog.Nop(), nil, nil
	}

	var w io.Writer = writers[0]
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}
