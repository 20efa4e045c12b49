package graphmerge

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/graphmerge/pkg/constants"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/graph"
	"github.com/agentstation/graphmerge/pkg/logging"
	"github.com/agentstation/graphmerge/pkg/schema"
)

// config holds the settings of a Pipeline
type config struct {
	threshold          float64
	referenceThreshold float64 // zero means threshold
	workers            int
	schema             *schema.Schema
	store              graph.Store
	identityTable      string
	provenanceFile     string
	dryRun             bool
	logger             *zerolog.Logger
}

func defaultConfig() *config {
	return &config{
		threshold: constants.DefaultThreshold,
		workers:   constants.DefaultWorkers,
		schema:    schema.Default(),
		logger:    logging.Default(),
	}
}

// Option is a function that configures a Pipeline
type Option func(*config) error

// WithThreshold sets the minimum similarity for two names to denote the same entity.
func WithThreshold(threshold float64) Option {
	return func(c *config) error {
		if threshold <= 0 || threshold > 1 {
			return errors.NewValidationError("threshold", threshold, "must be in (0, 1]")
		}
		c.threshold = threshold
		return nil
	}
}

// WithReferenceThreshold sets the similarity a referenced name needs to
// resolve to a relationship target. By default the dedup threshold is used.
func WithReferenceThreshold(threshold float64) Option {
	return func(c *config) error {
		if threshold <= 0 || threshold > 1 {
			return errors.NewValidationError("reference_threshold", threshold, "must be in (0, 1]")
		}
		c.referenceThreshold = threshold
		return nil
	}
}

// WithWorkers bounds how many entity types are deduplicated concurrently.
func WithWorkers(n int) Option {
	return func(c *config) error {
		if n < 1 || n > constants.MaxWorkers {
			return errors.NewValidationError("workers", n, "out of range")
		}
		c.workers = n
		return nil
	}
}

// WithSchema replaces the default schema.
func WithSchema(s *schema.Schema) Option {
	return func(c *config) error {
		if s == nil {
			return &errors.ValidationError{Field: "schema", Message: "cannot be nil"}
		}
		if err := s.Validate(); err != nil {
			return err
		}
		c.schema = s
		return nil
	}
}

// WithStore configures the graph store. Without it an in-memory store is used.
func WithStore(store graph.Store) Option {
	return func(c *config) error {
		if store == nil {
			return &errors.ValidationError{Field: "store", Message: "cannot be nil"}
		}
		c.store = store
		return nil
	}
}

// WithIdentityTable persists stable identifiers in the file at path.
// Without it identifiers live as long as the Pipeline.
func WithIdentityTable(path string) Option {
	return func(c *config) error {
		c.identityTable = path
		return nil
	}
}

// WithProvenanceFile records field level merge decisions and writes them
// as YAML to path after each run.
func WithProvenanceFile(path string) Option {
	return func(c *config) error {
		c.provenanceFile = path
		return nil
	}
}

// WithDryRun keeps the identity table and provenance file untouched.
func WithDryRun(enabled bool) Option {
	return func(c *config) error {
		c.dryRun = enabled
		return nil
	}
}

// WithLogger sets the logger of every pipeline stage.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return &errors.ValidationError{Field: "logger", Message: "cannot be nil"}
		}
		c.logger = logger
		return nil
	}
}
