package dedup

import (
	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/types"
)

// TypeStats counts what happened to the observations of one entity type.
type TypeStats struct {
	Observations       int // observations accepted for grouping
	DuplicatesIgnored  int // repeats of an already seen observation
	Skipped            int // malformed or of an unknown type
	Groups             int // canonical entities
	Merged             int // observations merged into an existing entity
	AmbiguousMatches   int
	ConflictsRecorded  int
	AlternatesRecorded int
}

// Result holds the canonical entities of a run, one arena per type.
type Result struct {
	arenas map[types.EntityType]*Arena
	stats  map[types.EntityType]*TypeStats

	// Skipped lists the observations that could not be resolved, in input order per type.
	Skipped []error

	// Ambiguities lists names that matched several unrelated entities.
	Ambiguities []*errors.AmbiguousMatchError
}

// NewResult assembles a result from arenas. It is intended for callers
// that build arenas outside a Deduplicator, such as tests.
func NewResult(arenas ...*Arena) *Result {
	r := &Result{
		arenas: make(map[types.EntityType]*Arena),
		stats:  make(map[types.EntityType]*TypeStats),
	}
	for _, a := range arenas {
		r.arenas[a.Type()] = a
		r.stats[a.Type()] = &TypeStats{Groups: a.Len()}
	}
	return r
}

// Types returns the entity types present in the result, in canonical order.
func (r *Result) Types() []types.EntityType {
	out := make([]types.EntityType, 0, len(r.stats))
	for t := range r.stats {
		out = append(out, t)
	}
	types.SortEntityTypes(out)
	return out
}

// Arena returns the arena of t, or nil.
func (r *Result) Arena(t types.EntityType) *Arena {
	return r.arenas[t]
}

// Entities returns the entities of t in slot order.
func (r *Result) Entities(t types.EntityType) []*entities.CanonicalEntity {
	if a := r.arenas[t]; a != nil {
		return a.All()
	}
	return nil
}

// Stats returns the counters of t. The zero TypeStats is returned for absent types.
func (r *Result) Stats(t types.EntityType) TypeStats {
	if s := r.stats[t]; s != nil {
		return *s
	}
	return TypeStats{}
}

// Total returns the number of canonical entities across all types.
func (r *Result) Total() int {
	n := 0
	for _, a := range r.arenas {
		n += a.Len()
	}
	return n
}

// Each calls fn for every entity, by type in canonical order then slot.
func (r *Result) Each(fn func(*entities.CanonicalEntity)) {
	for _, t := range r.Types() {
		if a := r.arenas[t]; a != nil {
			for _, e := range a.items {
				fn(e)
			}
		}
	}
}
