package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agentstation/graphmerge"
	"github.com/agentstation/graphmerge/pkg/errors"
)

func testApp(t *testing.T, config *Config) *App {
	t.Helper()
	resetViper(t)
	t.Chdir(t.TempDir())
	logger := zerolog.Nop()
	opts := []Option{WithLogger(&logger)}
	if config != nil {
		opts = append(opts, WithConfig(config))
	}
	a, err := New("1.0.0", "abc123", "2026-01-01", "test", opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return a
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app := testApp(t, nil)

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2026-01-01" {
		t.Errorf("Date() = %s, want 2026-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

// TestApp_OpenStore verifies store selection and shutdown.
func TestApp_OpenStore(t *testing.T) {
	dir := t.TempDir()
	app := testApp(t, &Config{Store: StoreMemory, SQLitePath: filepath.Join(dir, "graph.db")})
	ctx := context.Background()

	if _, err := app.OpenStore(ctx, ""); err != nil {
		t.Fatalf("OpenStore(memory) failed: %v", err)
	}
	if _, err := app.OpenStore(ctx, StoreSQLite); err != nil {
		t.Fatalf("OpenStore(sqlite) failed: %v", err)
	}

	_, err := app.OpenStore(ctx, "mongodb")
	if !errors.IsValidationError(err) {
		t.Errorf("OpenStore(mongodb) error = %v, want validation error", err)
	}

	if err := app.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() failed: %v", err)
	}
	if len(app.stores) != 0 {
		t.Error("Shutdown() should forget closed stores")
	}
}

// TestApp_PipelineOptions verifies configuration reaches the pipeline.
func TestApp_PipelineOptions(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		app := testApp(t, &Config{Threshold: 0.9, Workers: 2})
		opts, err := app.PipelineOptions()
		if err != nil {
			t.Fatalf("PipelineOptions() failed: %v", err)
		}
		if _, err := graphmerge.New(opts...); err != nil {
			t.Errorf("graphmerge.New() failed: %v", err)
		}
	})

	t.Run("invalid threshold", func(t *testing.T) {
		app := testApp(t, &Config{Threshold: 3})
		opts, err := app.PipelineOptions()
		if err != nil {
			t.Fatalf("PipelineOptions() failed: %v", err)
		}
		if _, err := graphmerge.New(opts...); err == nil {
			t.Error("graphmerge.New() should reject threshold 3")
		}
	})

	t.Run("missing schema file", func(t *testing.T) {
		app := testApp(t, &Config{SchemaFile: "missing.yaml"})
		if _, err := app.PipelineOptions(); err == nil {
			t.Error("PipelineOptions() should fail for a missing schema file")
		}
	})
}

// TestApp_VersionCommand verifies version output.
func TestApp_VersionCommand(t *testing.T) {
	app := testApp(t, &Config{})
	var buf bytes.Buffer
	root := app.createRootCommand()
	root.SetOut(&buf)
	root.SetArgs([]string{"version", "--verbose"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(buf.String(), "graphmerge 1.0.0") || !strings.Contains(buf.String(), "abc123") {
		t.Errorf("unexpected version output: %q", buf.String())
	}
}
