package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configures the global logger.
type Options struct {
	Level   string
	Format  string
	NoColor bool

	// Output defaults to stderr.
	Output io.Writer
}

// InitDefault sets up a console logger before flags and config are parsed.
func InitDefault() {
	_ = Init(Options{Level: "info", Format: FormatConsole})
}

// Init configures the global zerolog logger. Loggers taken from a context
// without one fall back to it.
func Init(opts Options) error {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return fmt.Errorf("parsing log level '%s': %w", opts.Level, err)
		}
		level = l
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	switch strings.ToLower(opts.Format) {
	case "", FormatConsole:
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    opts.NoColor,
			TimeFormat: time.TimeOnly,
		}
	case FormatJSON:
	default:
		return fmt.Errorf("unknown log format '%s' (console, json)", opts.Format)
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger
	return nil
}
