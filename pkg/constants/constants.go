// Package constants provides shared constants used throughout the graphmerge codebase.
// This includes matching thresholds, file permissions, limits, and default paths
// that should be consistent across the application.
package constants

import "time"

// Matching constants
const (
	// DefaultThreshold is the minimum similarity score for two names to denote the same entity
	DefaultThreshold = 0.85

	// CaseInsensitiveScore is the score of names equal after case and punctuation folding
	CaseInsensitiveScore = 0.98

	// MaxEditScore caps edit-distance scores so normalized equality always ranks higher
	MaxEditScore = 0.97

	// MinStemLength is the shortest token a plural strip may leave behind
	MinStemLength = 3
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants
const (
	// DefaultWorkers is the default number of entity types deduplicated concurrently
	DefaultWorkers = 4

	// MaxWorkers bounds the dedup worker pool
	MaxWorkers = 64

	// MaxReportedErrors is the number of merge errors printed in report summaries
	MaxReportedErrors = 5

	// MaxLineSize is the largest JSON Lines record the loader accepts (4 MiB)
	MaxLineSize = 4 * 1024 * 1024
)

// Timeout constants
const (
	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 30 * time.Minute

	// StoreConnectTimeout bounds connectivity checks against external graph stores
	StoreConnectTimeout = 15 * time.Second
)

// Default values
const (
	// DefaultIdentityTable is the default path of the persisted identity table
	DefaultIdentityTable = "graphmerge-ids.json"

	// DefaultSQLitePath is the default database file for the sqlite store
	DefaultSQLitePath = "graphmerge.db"

	// DefaultNeo4jURI is the default bolt endpoint for the neo4j store
	DefaultNeo4jURI = "bolt://localhost:7687"

	// DefaultNeo4jUser is the default neo4j user
	DefaultNeo4jUser = "neo4j"

	// DefaultNeo4jDatabase is the default neo4j database name
	DefaultNeo4jDatabase = "neo4j"

	// DefaultStore is the default graph store backend
	DefaultStore = "memory"
)

// Path constants
const (
	// DefaultConfigPath is the default path for configuration files
	DefaultConfigPath = "~/.graphmerge.yaml"
)
