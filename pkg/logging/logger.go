// Package logging provides structured logging for graphmerge using zerolog.
// Console output is used when stderr is a terminal, JSON otherwise.
//
// Every pipeline stage logs through a logger scoped with ForStage, and
// per-type work adds ForEntityType, so one run can be followed by its
// run_id, stage and entity_type fields:
//
//	logger := logging.ForStage(logging.Default(), logging.StageResolve)
//	logger.Info().Int("groups", 12).Msg("Deduplicated")
package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agentstation/graphmerge/pkg/types"
)

// Field names shared by every component.
const (
	FieldRunID      = "run_id"
	FieldStage      = "stage"
	FieldEntityType = "entity_type"
	FieldName       = "name"
	FieldStableID   = "stable_id"
	FieldScore      = "score"
)

// Pipeline stages.
const (
	StageLoad     = "load"
	StageResolve  = "resolve"
	StageIdentify = "identify"
	StageInfer    = "infer"
	StageMerge    = "merge"
	StagePersist  = "persist"
)

var defaultLogger = createDefaultLogger()

func createDefaultLogger() zerolog.Logger {
	var writer io.Writer = os.Stderr
	if stderrIsTerminal() && os.Getenv("LOG_FORMAT") != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	level := zerolog.InfoLevel
	if l, err := ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		level = l
	}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// Default returns the process-wide logger used when no logger is configured.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// New creates a JSON logger writing to w at the global level.
func New(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).Level(zerolog.GlobalLevel()).With().Timestamp().Logger()
}

// NewNopLogger creates a logger that discards all output.
func NewNopLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// ForStage returns a child of l tagged with a pipeline stage.
func ForStage(l *zerolog.Logger, stage string) *zerolog.Logger {
	if l == nil {
		l = Default()
	}
	child := l.With().Str(FieldStage, stage).Logger()
	return &child
}

// ForEntityType returns a child of l tagged with an entity type.
func ForEntityType(l *zerolog.Logger, t types.EntityType) zerolog.Logger {
	if l == nil {
		l = Default()
	}
	return l.With().Str(FieldEntityType, string(t)).Logger()
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
