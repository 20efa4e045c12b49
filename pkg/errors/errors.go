// Package errors provides custom error types for the graphmerge system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the resolution pipeline.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Aliases of the standard library functions, so callers need a single errors import.
var (
	New  = errors.New
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors for the graphmerge system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedObservation indicates an observation without a usable name
	ErrMalformedObservation = errors.New("malformed observation")

	// ErrAmbiguousMatch indicates a name matched several unrelated groups
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrIdentityTableCorrupt indicates the persisted identity table could not be trusted
	ErrIdentityTableCorrupt = errors.New("identity table corrupt")

	// ErrGraphMerge indicates the graph store rejected an upsert
	ErrGraphMerge = errors.New("graph merge failed")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// MalformedObservationError represents an observation that cannot be resolved,
// typically because it carries no name field. It is recovered locally by
// skipping the observation.
type MalformedObservationError struct {
	EntityType string
	SourceUnit string
	Reason     string
}

// Error implements the error interface
func (e *MalformedObservationError) Error() string {
	if e.SourceUnit != "" {
		return fmt.Sprintf("malformed %s observation from %s: %s", e.EntityType, e.SourceUnit, e.Reason)
	}
	return fmt.Sprintf("malformed %s observation: %s", e.EntityType, e.Reason)
}

// Is implements errors.Is support
func (e *MalformedObservationError) Is(target error) bool {
	return target == ErrMalformedObservation
}

// NewMalformedObservationError creates a new MalformedObservationError
func NewMalformedObservationError(entityType, sourceUnit, reason string) *MalformedObservationError {
	return &MalformedObservationError{
		EntityType: entityType,
		SourceUnit: sourceUnit,
		Reason:     reason,
	}
}

// AmbiguousMatchError describes a name that cleared the threshold against
// several groups that do not match each other. The name is merged into
// Chosen; Candidates lists every matching group primary name.
type AmbiguousMatchError struct {
	EntityType string
	Name       string
	Chosen     string
	Score      float64
	Candidates []string
}

// Error implements the error interface
func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous %s match for %q: candidates %v, merged into %q (score %.3f)",
		e.EntityType, e.Name, e.Candidates, e.Chosen, e.Score)
}

// Is implements errors.Is support
func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrAmbiguousMatch
}

// IdentityTableCorruptionError indicates the persisted identity table is
// unreadable or internally inconsistent. It is fatal for a run: allocating
// against it would renumber entities already materialized in the graph.
type IdentityTableCorruptionError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *IdentityTableCorruptionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("identity table %s is corrupt: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("identity table is corrupt: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IdentityTableCorruptionError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *IdentityTableCorruptionError) Is(target error) bool {
	return target == ErrIdentityTableCorrupt
}

// NewIdentityTableCorruptionError creates a new IdentityTableCorruptionError
func NewIdentityTableCorruptionError(path, message string, err error) *IdentityTableCorruptionError {
	return &IdentityTableCorruptionError{
		Path:    path,
		Message: message,
		Err:     err,
	}
}

// GraphMergeError represents an upsert rejected by the graph store.
// Target is "node" or "edge"; Key identifies it (e.g. "Band:12").
type GraphMergeError struct {
	Operation string // "get", "create", "update", "link"
	Target    string
	Key       string
	Err       error
}

// Error implements the error interface
func (e *GraphMergeError) Error() string {
	return fmt.Sprintf("graph merge failed to %s %s %s: %v", e.Operation, e.Target, e.Key, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *GraphMergeError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *GraphMergeError) Is(target error) bool {
	return target == ErrGraphMerge
}

// graphMergeFailure is the serialized form of a GraphMergeError.
type graphMergeFailure struct {
	Operation string `json:"operation" yaml:"operation"`
	Target    string `json:"target" yaml:"target"`
	Key       string `json:"key" yaml:"key"`
	Error     string `json:"error" yaml:"error"`
}

func (e *GraphMergeError) failure() graphMergeFailure {
	f := graphMergeFailure{Operation: e.Operation, Target: e.Target, Key: e.Key}
	if e.Err != nil {
		f.Error = e.Err.Error()
	}
	return f
}

// MarshalJSON encodes the error as {operation, target, key, error}.
func (e *GraphMergeError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.failure())
}

// MarshalYAML encodes the error like MarshalJSON.
func (e *GraphMergeError) MarshalYAML() (any, error) {
	return e.failure(), nil
}

// NewGraphMergeError creates a new GraphMergeError
func NewGraphMergeError(operation, target, key string, err error) *GraphMergeError {
	return &GraphMergeError{
		Operation: operation,
		Target:    target,
		Key:       key,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsMalformedObservation checks if an error marks a skipped observation
func IsMalformedObservation(err error) bool {
	return errors.Is(err, ErrMalformedObservation)
}

// IsIdentityTableCorrupt checks if an error is fatal identity table corruption
func IsIdentityTableCorrupt(err error) bool {
	return errors.Is(err, ErrIdentityTableCorrupt)
}

// IsGraphMerge checks if an error came from a rejected graph upsert
func IsGraphMerge(err error) bool {
	return errors.Is(err, ErrGraphMerge)
}

// ParseError represents an error when parsing data formats. Line is set
// for line oriented formats.
type ParseError struct {
	Format  string // "json", "yaml", "jsonl"
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "rename", "sync"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "open", "load", "save", "close"
	Resource  string // "graph store", "identity table", "schema"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
