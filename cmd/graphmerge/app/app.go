// Package app provides the application context and dependency management
// for the graphmerge CLI. It centralizes configuration, logging, store
// connections and lifecycle management.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/graphmerge"
	"github.com/agentstation/graphmerge/internal/appcontext"
	"github.com/agentstation/graphmerge/internal/stores/neo4j"
	"github.com/agentstation/graphmerge/internal/stores/sqlite"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/graph"
	"github.com/agentstation/graphmerge/pkg/graph/memory"
	"github.com/agentstation/graphmerge/pkg/schema"
)

// Store kinds accepted by --store.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreNeo4j  = "neo4j"
)

// App represents the graphmerge application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Persistent flags of the root command
	flags *globalFlags

	// Stores opened by commands, closed on Shutdown
	mu     sync.Mutex
	stores []graph.Store
}

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)

// New creates a new App instance with the given version information.
// The app is initialized with configuration loaded from the environment
// that can be customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// IdentityTable returns the configured identity table path.
func (a *App) IdentityTable() string {
	return a.config.IdentityTable
}

// Schema returns the configured schema file, or the built-in schema when none is set.
func (a *App) Schema() (*schema.Schema, error) {
	if a.config.SchemaFile == "" {
		return schema.Default(), nil
	}
	return schema.Load(a.config.SchemaFile)
}

// PipelineOptions builds pipeline options from the configuration.
func (a *App) PipelineOptions() ([]graphmerge.Option, error) {
	s, err := a.Schema()
	if err != nil {
		return nil, err
	}

	opts := []graphmerge.Option{
		graphmerge.WithLogger(a.logger),
		graphmerge.WithSchema(s),
		graphmerge.WithIdentityTable(a.config.IdentityTable),
	}
	if a.config.Threshold > 0 {
		opts = append(opts, graphmerge.WithThreshold(a.config.Threshold))
	}
	if a.config.ReferenceThreshold > 0 {
		opts = append(opts, graphmerge.WithReferenceThreshold(a.config.ReferenceThreshold))
	}
	if a.config.Workers > 0 {
		opts = append(opts, graphmerge.WithWorkers(a.config.Workers))
	}
	if a.config.ProvenanceFile != "" {
		opts = append(opts, graphmerge.WithProvenanceFile(a.config.ProvenanceFile))
	}
	return opts, nil
}

// OpenStore connects to a graph store. The store is closed on Shutdown.
func (a *App) OpenStore(ctx context.Context, kind string) (graph.Store, error) {
	if kind == "" {
		kind = a.config.Store
	}

	var (
		store graph.Store
		err   error
	)
	switch kind {
	case StoreMemory, "":
		store = memory.New()
	case StoreSQLite:
		store, err = sqlite.Open(ctx, a.config.SQLitePath, a.logger)
	case StoreNeo4j:
		cfg := neo4j.DefaultConfig()
		cfg.URI = a.config.Neo4jURI
		cfg.User = a.config.Neo4jUser
		cfg.Password = a.config.Neo4jPassword
		if a.config.Neo4jDatabase != "" {
			cfg.Database = a.config.Neo4jDatabase
		}
		store, err = neo4j.Open(ctx, cfg, a.logger)
	default:
		return nil, errors.NewValidationError("store", kind, "must be one of: memory, sqlite, neo4j")
	}
	if err != nil {
		return nil, errors.WrapResource("open", "store", kind, err)
	}

	a.mu.Lock()
	a.stores = append(a.stores, store)
	a.mu.Unlock()
	return store, nil
}

// Shutdown closes every store opened through the app.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	stores := a.stores
	a.stores = nil
	a.mu.Unlock()

	var errs []error
	for _, s := range stores {
		if err := s.Close(ctx); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close graph store during shutdown")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
