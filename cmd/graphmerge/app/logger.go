package app

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/agentstation/graphmerge/pkg/logging"
)

// warnings receives configuration warnings printed before a logger exists.
var warnings io.Writer = os.Stderr

// NewLogger creates a configured logger based on the application configuration.
// Log level precedence (highest to lowest):
//  1. --log-level flag
//  2. -q/--quiet flag (shortcut for warn, wins over -v)
//  3. -v/--verbose flag (shortcut for debug)
//  4. GRAPHMERGE_LOG_LEVEL, LOG_LEVEL or log_level config key
//  5. info
func NewLogger(config *Config) zerolog.Logger {
	level := determineLogLevel(config)

	return logging.NewLoggerFromConfig(&logging.Config{
		Level:     level.String(),
		Format:    config.LogFormat,
		Output:    config.LogOutput,
		NoColor:   config.NoColor,
		AddCaller: level <= zerolog.DebugLevel,
	})
}

func determineLogLevel(config *Config) zerolog.Level {
	switch {
	case config.LogLevel != "":
		return parseLevelOrInfo("--log-level", config.LogLevel)
	case config.Verbose && config.Quiet:
		fmt.Fprintln(warnings, "Warning: both --verbose and --quiet specified, using --quiet")
		return zerolog.WarnLevel
	case config.Quiet:
		return zerolog.WarnLevel
	case config.Verbose:
		return zerolog.DebugLevel
	case config.envLogLevel != "":
		return parseLevelOrInfo("log_level", config.envLogLevel)
	}
	return zerolog.InfoLevel
}

func parseLevelOrInfo(source, value string) zerolog.Level {
	level, err := logging.ParseLevel(value)
	if err != nil || level == zerolog.Disabled {
		fmt.Fprintf(warnings, "Warning: invalid %s %q, using \"info\"\n", source, value)
		return zerolog.InfoLevel
	}
	return level
}
