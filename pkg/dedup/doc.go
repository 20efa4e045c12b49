// Package dedup groups raw observations into canonical entities.
//
// Observations are processed per entity type in input order. Each name is
// looked up in the type's arena; a name scoring at or above the matcher
// threshold against any variation of an existing entity merges into the
// best match, otherwise it starts a new entity. Ties go to the entity
// created first.
//
// Attributes merge by field kind (see schema.Kind):
//
//	missing      adopt the new value
//	list         case-insensitive union, first-seen casing and order
//	description  append unless already a case-insensitive substring
//	numeric/date keep the first value, record others as conflicts
//	string       keep the first value, record dissimilar ones as alternates
//
// Callers must supply observations in a stable order (for example sorted
// by source document and source unit). Primary values are first-seen, so
// a different order may select different primaries; which observations
// share an entity does not depend on order.
//
// Entity types are independent during grouping and Run resolves them on
// separate goroutines. Results are identical for any worker count.
package dedup
