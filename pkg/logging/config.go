package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/agentstation/graphmerge/pkg/constants"
)

// Config controls how NewLoggerFromConfig builds a logger.
type Config struct {
	// Level is one of trace, debug, info, warn, error or off.
	Level string

	// Format is json, console or auto (console on a terminal).
	Format string

	// Output is stderr, stdout, discard or a file path. Files are appended to.
	Output string

	// NoColor disables color in console mode.
	NoColor bool

	// AddCaller includes file:line in every entry.
	AddCaller bool
}

// DefaultConfig returns info level auto-format logging to stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:   "info",
		Format:  "auto",
		Output:  "stderr",
		NoColor: os.Getenv("NO_COLOR") != "",
	}
}

// ParseLevel converts a level name to a zerolog level. The empty string
// is an error so callers can tell "unset" from "info".
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "off", "none":
		return zerolog.Disabled, nil
	}
	return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
}

// NewLoggerFromConfig builds a logger. Unknown levels fall back to info and
// an unwritable log file falls back to stderr.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(writerFor(cfg)).Level(level).With().Timestamp().Logger()
	if cfg.AddCaller {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

func writerFor(cfg *Config) io.Writer {
	output := outputFor(cfg.Output)

	format := strings.ToLower(cfg.Format)
	if format == "" || format == "auto" {
		format = "json"
		if f, ok := output.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			format = "console"
		}
	}
	if format != "console" && format != "pretty" {
		return output
	}
	return zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.Kitchen,
		NoColor:    cfg.NoColor,
	}
}

func outputFor(name string) io.Writer {
	switch strings.ToLower(name) {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	case "discard", "none":
		return io.Discard
	}
	file, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return os.Stderr
	}
	return file
}
