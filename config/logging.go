package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger. level is parsed by
// zerolog and defaults to info; format "json" emits structured lines,
// anything else a human-readable console stream.
func InitLogger(level, format string) {
	initLogger(os.Stderr, level, format)
}

func initLogger(out io.Writer, level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	w := out
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(w).
		With().
		Timestamp().
		Logger()
}
