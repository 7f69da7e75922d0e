package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration assembled by the CLI layer.
type Config struct {
	// Level is the minimum level to emit: trace, debug, info, warn, error.
	Level string

	// Format selects the output encoding: console, json, or auto.
	Format string

	// Output selects the destination: stderr or stdout.
	Output string

	// AddCaller includes file:line of the call site in each event.
	AddCaller bool
}

// NewLoggerFromConfig creates a logger from a Config and installs its level
// globally. Invalid levels fall back to info.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if cfg.Output == "stdout" {
		out = os.Stdout
	}

	useConsole := cfg.Format == "console" || (cfg.Format != "json" && isatty())
	if useConsole {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()

	if cfg.AddCaller {
		logger = logger.With().Caller().Logger()
	}

	return logger
}
