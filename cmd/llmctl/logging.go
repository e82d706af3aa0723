package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"llmctl/internal/config"
)

// newLogger writes JSON lines to [server] log_file and, when console is set,
// human-readable lines to stderr. The returned closer releases the file.
func newLogger(sc config.ServerConfig, override string, console bool) (zerolog.Logger, io.Closer, error) {
	level := sc.Level()
	if override != "" {
		level = config.ServerConfig{LogLevel: override}.Level()
	}
	var writers []io.Writer
	var closer io.Closer = io.NopCloser(nil)
	if p := strings.TrimSpace(sc.LogFile); p != "" {
		f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}
	if console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}
	lg := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger()
	return lg, closer, nil
}
