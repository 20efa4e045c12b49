package entities

import (
	"slices"
	"sort"

	"github.com/agentstation/graphmerge/pkg/types"
)

// CanonicalEntity is the merged record of one real-world entity.
//
// NameVariations is never empty; its first entry is the first-seen literal
// name and CanonicalKey is derived from it once, at creation.
type CanonicalEntity struct {
	EntityType        types.EntityType     `json:"entity_type" yaml:"entity_type"`
	StableID          int64                `json:"stable_id" yaml:"stable_id"`
	CanonicalKey      string               `json:"canonical_key" yaml:"canonical_key"`
	NameField         string               `json:"name_field" yaml:"name_field"`
	PrimaryAttributes Attributes           `json:"primary_attributes" yaml:"primary_attributes"`
	Conflicts         map[string][]Value   `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	AlternateValues   map[string][]string  `json:"alternate_values,omitempty" yaml:"alternate_values,omitempty"`
	NameVariations    []string             `json:"name_variations" yaml:"name_variations"`
	SourceUnits       []types.SourceUnitID `json:"source_units" yaml:"source_units"`

	// Slot is the entity's index in its arena. It is meaningful only within a run.
	Slot int `json:"-" yaml:"-"`
}

// NewCanonicalEntity starts an entity from its first name.
func NewCanonicalEntity(entityType types.EntityType, nameField, name, key string) *CanonicalEntity {
	return &CanonicalEntity{
		EntityType:     entityType,
		CanonicalKey:   key,
		NameField:      nameField,
		NameVariations: []string{name},
	}
}

// Primary returns the first-seen name.
func (e *CanonicalEntity) Primary() string {
	if len(e.NameVariations) == 0 {
		return ""
	}
	return e.NameVariations[0]
}

// AddNameVariation records a distinct literal name. It reports whether the
// name was new.
func (e *CanonicalEntity) AddNameVariation(name string) bool {
	if name == "" || slices.Contains(e.NameVariations, name) {
		return false
	}
	e.NameVariations = append(e.NameVariations, name)
	return true
}

// AddSourceUnit records a contributing source unit. It reports whether the
// unit was new.
func (e *CanonicalEntity) AddSourceUnit(id types.SourceUnitID) bool {
	if id == "" || slices.Contains(e.SourceUnits, id) {
		return false
	}
	e.SourceUnits = append(e.SourceUnits, id)
	return true
}

// HasSourceUnit reports whether id contributed to e.
func (e *CanonicalEntity) HasSourceUnit(id types.SourceUnitID) bool {
	return slices.Contains(e.SourceUnits, id)
}

// AddConflict appends v to the conflicts of field unless the same value
// (see Value.Same) is already recorded.
func (e *CanonicalEntity) AddConflict(field string, v Value) bool {
	for _, existing := range e.Conflicts[field] {
		if existing.Same(v) {
			return false
		}
	}
	if e.Conflicts == nil {
		e.Conflicts = make(map[string][]Value)
	}
	e.Conflicts[field] = append(e.Conflicts[field], v.Clone())
	return true
}

// AddAlternate appends s to the alternate values of field unless already recorded.
func (e *CanonicalEntity) AddAlternate(field, s string) bool {
	if slices.Contains(e.AlternateValues[field], s) {
		return false
	}
	if e.AlternateValues == nil {
		e.AlternateValues = make(map[string][]string)
	}
	e.AlternateValues[field] = append(e.AlternateValues[field], s)
	return true
}

// ConflictFields returns the fields with recorded conflicts, sorted.
func (e *CanonicalEntity) ConflictFields() []string {
	return sortedKeys(e.Conflicts)
}

// AlternateFields returns the fields with recorded alternates, sorted.
func (e *CanonicalEntity) AlternateFields() []string {
	return sortedKeys(e.AlternateValues)
}

// ConflictCount returns the total number of recorded conflict values.
func (e *CanonicalEntity) ConflictCount() int {
	n := 0
	for _, vs := range e.Conflicts {
		n += len(vs)
	}
	return n
}

// AlternateCount returns the total number of recorded alternate values.
func (e *CanonicalEntity) AlternateCount() int {
	n := 0
	for _, vs := range e.AlternateValues {
		n += len(vs)
	}
	return n
}

// Clone returns a deep copy of e.
func (e *CanonicalEntity) Clone() *CanonicalEntity {
	out := *e
	out.PrimaryAttributes = e.PrimaryAttributes.Clone()
	out.NameVariations = slices.Clone(e.NameVariations)
	out.SourceUnits = slices.Clone(e.SourceUnits)
	out.Conflicts = nil
	for field, vs := range e.Conflicts {
		for _, v := range vs {
			out.AddConflict(field, v)
		}
	}
	out.AlternateValues = nil
	for field, vs := range e.AlternateValues {
		for _, s := range vs {
			out.AddAlternate(field, s)
		}
	}
	return &out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
