//nolint:revive // Package types provides common type definitions
package types

// SourceUnitID identifies the source unit (a document chunk) an observation
// was extracted from.
type SourceUnitID string

// String returns the string representation of a source unit ID.
func (id SourceUnitID) String() string {
	return string(id)
}

// DocumentID identifies the source document a source unit belongs to.
type DocumentID string

// String returns the string representation of a document ID.
func (id DocumentID) String() string {
	return string(id)
}
