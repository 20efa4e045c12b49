package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// TestLogger captures JSON log output for assertions. It is safe to write
// from the per-type dedup goroutines.
type TestLogger struct {
	*zerolog.Logger
	mu  sync.Mutex
	buf bytes.Buffer
}

// Entry is one decoded log line.
type Entry map[string]any

// Level returns the entry's level field.
func (e Entry) Level() string { return e.Str(zerolog.LevelFieldName) }

// Message returns the entry's message field.
func (e Entry) Message() string { return e.Str(zerolog.MessageFieldName) }

// Str returns a string field, or "" when absent.
func (e Entry) Str(key string) string {
	s, _ := e[key].(string)
	return s
}

// NewTestLogger creates a trace level logger writing into memory. The
// global level is restored when the test ends.
func NewTestLogger(t testing.TB) *TestLogger {
	t.Helper()

	tl := &TestLogger{}
	oldLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(oldLevel) })

	logger := zerolog.New(tl).Level(zerolog.TraceLevel).With().Timestamp().Logger()
	tl.Logger = &logger
	return tl
}

// Write implements io.Writer.
func (tl *TestLogger) Write(p []byte) (int, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.buf.Write(p)
}

// Output returns everything logged so far.
func (tl *TestLogger) Output() string {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.buf.String()
}

// Lines returns the captured output split into log lines.
func (tl *TestLogger) Lines() []string {
	output := strings.TrimSpace(tl.Output())
	if output == "" {
		return nil
	}
	return strings.Split(output, "\n")
}

// Entries decodes every captured line. Lines that are not JSON are skipped.
func (tl *TestLogger) Entries() []Entry {
	var entries []Entry
	for _, line := range tl.Lines() {
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

// Find returns the entries whose message is msg.
func (tl *TestLogger) Find(msg string) []Entry {
	var found []Entry
	for _, e := range tl.Entries() {
		if e.Message() == msg {
			found = append(found, e)
		}
	}
	return found
}

// Contains reports whether the output contains substr.
func (tl *TestLogger) Contains(substr string) bool {
	return strings.Contains(tl.Output(), substr)
}

// ContainsAll reports whether the output contains every substring.
func (tl *TestLogger) ContainsAll(substrs ...string) bool {
	output := tl.Output()
	for _, substr := range substrs {
		if !strings.Contains(output, substr) {
			return false
		}
	}
	return true
}

// Count returns the number of captured entries.
func (tl *TestLogger) Count() int {
	return len(tl.Lines())
}

// CaptureLoggingForTest swaps the default logger for a TestLogger until the test ends.
func CaptureLoggingForTest(t testing.TB) *TestLogger {
	t.Helper()

	original := *Default()
	tl := NewTestLogger(t)
	SetDefault(*tl.Logger)
	t.Cleanup(func() { SetDefault(original) })
	return tl
}
