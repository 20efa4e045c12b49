// Package appcontext provides the shared application context interface
// used by all commands. Commands accept this interface rather than the
// concrete App type so they can be tested with Mock.
package appcontext

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/graphmerge"
	"github.com/agentstation/graphmerge/pkg/graph"
	"github.com/agentstation/graphmerge/pkg/schema"
)

// Interface defines the application context that commands need.
type Interface interface {
	// PipelineOptions returns pipeline options built from configuration.
	// Commands append their own flag overrides after them.
	PipelineOptions() ([]graphmerge.Option, error)

	// OpenStore connects to the graph store of the given kind
	// (memory, sqlite or neo4j). An empty kind uses the configured store.
	OpenStore(ctx context.Context, kind string) (graph.Store, error)

	// Schema returns the effective schema: the configured schema file, or the default.
	Schema() (*schema.Schema, error)

	// IdentityTable returns the configured identity table path.
	IdentityTable() string

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
