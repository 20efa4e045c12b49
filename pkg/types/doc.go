// Package types provides shared type definitions used across the graphmerge packages.
//
// This package contains fundamental types like EntityType and SourceUnitID that are
// referenced by multiple packages (entities, provenance, dedup, graph, etc.) to avoid
// import cycles while maintaining type safety.
//
// The package has zero dependencies and serves as a foundation for the type system.
//
//nolint:revive // Package name 'types' is appropriate for common type definitions
package types
