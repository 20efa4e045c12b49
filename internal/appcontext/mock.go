package appcontext

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/graphmerge"
	"github.com/agentstation/graphmerge/pkg/graph"
	"github.com/agentstation/graphmerge/pkg/graph/memory"
	"github.com/agentstation/graphmerge/pkg/schema"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default value.
type Mock struct {
	PipelineOptionsFunc func() ([]graphmerge.Option, error)
	OpenStoreFunc       func(ctx context.Context, kind string) (graph.Store, error)
	SchemaFunc          func() (*schema.Schema, error)
	IdentityTablePath   string
	Format              string
	LoggerFunc          func() *zerolog.Logger
	VersionFunc         func() string
	CommitFunc          func() string
	DateFunc            func() string
	BuiltByFunc         func() string
}

// PipelineOptions returns options using the mock function or none.
func (m *Mock) PipelineOptions() ([]graphmerge.Option, error) {
	if m.PipelineOptionsFunc != nil {
		return m.PipelineOptionsFunc()
	}
	return []graphmerge.Option{graphmerge.WithLogger(m.Logger())}, nil
}

// OpenStore returns a store using the mock function or a fresh memory store.
func (m *Mock) OpenStore(ctx context.Context, kind string) (graph.Store, error) {
	if m.OpenStoreFunc != nil {
		return m.OpenStoreFunc(ctx, kind)
	}
	return memory.New(), nil
}

// Schema returns a schema using the mock function or the default schema.
func (m *Mock) Schema() (*schema.Schema, error) {
	if m.SchemaFunc != nil {
		return m.SchemaFunc()
	}
	return schema.Default(), nil
}

// IdentityTable returns IdentityTablePath.
func (m *Mock) IdentityTable() string {
	return m.IdentityTablePath
}

// OutputFormat returns Format.
func (m *Mock) OutputFormat() string {
	return m.Format
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns builtBy using the mock function or "test".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "test"
}

// Ensure Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
