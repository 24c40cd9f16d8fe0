package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger returns a JSON logger on stdout. An unknown level falls back to
// info.
func NewLogger(level string) zerolog.Logger {
	return NewLoggerTo(os.Stdout, level)
}

func NewLoggerTo(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
