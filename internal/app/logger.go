package app

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger installs the global zerolog logger writing to w and returns it.
// An empty or unknown level falls back to info.
func NewLogger(w io.Writer, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl := zerolog.InfoLevel
	if level != "" {
		if l, err := zerolog.ParseLevel(level); err == nil {
			lvl = l
		}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	return log.Logger
}
