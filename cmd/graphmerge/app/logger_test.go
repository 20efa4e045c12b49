package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// TestDetermineLogLevel tests the log level precedence logic.
func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected zerolog.Level
		warning  string
	}{
		{
			name:     "default level when no flags set",
			config:   &Config{},
			expected: zerolog.InfoLevel,
		},
		{
			name:     "verbose flag sets debug",
			config:   &Config{Verbose: true},
			expected: zerolog.DebugLevel,
		},
		{
			name:     "quiet flag sets warn",
			config:   &Config{Quiet: true},
			expected: zerolog.WarnLevel,
		},
		{
			name:     "quiet wins over verbose",
			config:   &Config{Verbose: true, Quiet: true},
			expected: zerolog.WarnLevel,
			warning:  "both --verbose and --quiet",
		},
		{
			name:     "explicit log-level overrides verbose",
			config:   &Config{LogLevel: "error", Verbose: true},
			expected: zerolog.ErrorLevel,
		},
		{
			name:     "explicit log-level overrides quiet",
			config:   &Config{LogLevel: "trace", Quiet: true},
			expected: zerolog.TraceLevel,
		},
		{
			name:     "environment level below verbose",
			config:   &Config{Verbose: true, envLogLevel: "error"},
			expected: zerolog.DebugLevel,
		},
		{
			name:     "environment level without flags",
			config:   &Config{envLogLevel: "warning"},
			expected: zerolog.WarnLevel,
		},
		{
			name:     "invalid level falls back to info",
			config:   &Config{LogLevel: "loud"},
			expected: zerolog.InfoLevel,
			warning:  `invalid --log-level "loud"`,
		},
		{
			name:     "off is not accepted from the environment",
			config:   &Config{envLogLevel: "off"},
			expected: zerolog.InfoLevel,
			warning:  `invalid log_level "off"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			orig := warnings
			warnings = &buf
			t.Cleanup(func() { warnings = orig })

			if got := determineLogLevel(tt.config); got != tt.expected {
				t.Errorf("determineLogLevel() = %s, want %s", got, tt.expected)
			}
			if tt.warning == "" && buf.Len() > 0 {
				t.Errorf("unexpected warning %q", buf.String())
			}
			if tt.warning != "" && !strings.Contains(buf.String(), tt.warning) {
				t.Errorf("warning %q does not contain %q", buf.String(), tt.warning)
			}
		})
	}
}

func TestNewLoggerLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	logger := NewLogger(&Config{Verbose: true, LogFormat: "json", LogOutput: "discard"})
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("NewLogger() level = %s, want debug", logger.GetLevel())
	}
}
