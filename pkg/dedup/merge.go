package dedup

import (
	"strings"

	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/fuzzy"
	"github.com/agentstation/graphmerge/pkg/provenance"
	"github.com/agentstation/graphmerge/pkg/schema"
)

// FieldChange is the outcome of merging one value into one field.
type FieldChange struct {
	Field   string
	Value   entities.Value
	Outcome provenance.Outcome
}

// Changed reports whether the merge modified the entity.
func (c FieldChange) Changed() bool {
	return c.Outcome != provenance.OutcomeUnchanged
}

// Merger applies the per-field merge rules.
type Merger struct {
	matcher *fuzzy.Matcher
	schema  *schema.Schema
}

// NewMerger creates a Merger.
func NewMerger(matcher *fuzzy.Matcher, s *schema.Schema) *Merger {
	return &Merger{matcher: matcher, schema: s}
}

// MergeField merges incoming into field of e. Empty incoming values are
// ignored and reported as unchanged.
func (m *Merger) MergeField(e *entities.CanonicalEntity, field string, incoming entities.Value) FieldChange {
	change := FieldChange{Field: field, Value: incoming, Outcome: provenance.OutcomeUnchanged}
	if incoming.IsEmpty() {
		return change
	}

	existing, ok := e.PrimaryAttributes.Get(field)
	if !ok || existing.IsEmpty() {
		kind := m.schema.KindOf(e.EntityType, field, incoming)
		if kind == schema.KindList {
			incoming = asList(incoming)
		}
		e.PrimaryAttributes.Set(field, incoming.Clone())
		change.Value = incoming
		change.Outcome = provenance.OutcomeAdopted
		return change
	}

	// Name fields are tracked through NameVariations; the primary stays first-seen.
	if m.schema.IsNameField(e.EntityType, field) {
		return change
	}

	switch kind := m.schema.KindOf(e.EntityType, field, existing); kind {
	case schema.KindList:
		merged, added := unionList(existing, incoming)
		if added {
			e.PrimaryAttributes.Set(field, merged)
			change.Value = merged
			change.Outcome = provenance.OutcomeUnioned
		}
	case schema.KindDescription:
		if text, appended := appendText(existing.String(), incoming.String()); appended {
			e.PrimaryAttributes.Set(field, entities.String(text))
			change.Outcome = provenance.OutcomeAppended
		}
	case schema.KindNumeric, schema.KindDate:
		if !existing.Same(incoming) && e.AddConflict(field, incoming) {
			change.Outcome = provenance.OutcomeConflict
		}
	case schema.KindString:
		if m.nearIdentical(existing.String(), incoming.String()) {
			break
		}
		if e.AddAlternate(field, incoming.String()) {
			change.Outcome = provenance.OutcomeAlternate
		}
	}
	return change
}

// MergeInto folds src into dst with the same rules used for observations:
// every name variation and source unit of src is added, each primary
// attribute is merged field by field, and the conflicts and alternates
// src has already recorded are carried over. dst keeps its first-seen
// values.
func (m *Merger) MergeInto(dst, src *entities.CanonicalEntity) []FieldChange {
	var changes []FieldChange

	for _, name := range src.NameVariations {
		dst.AddNameVariation(name)
	}
	for _, unit := range src.SourceUnits {
		dst.AddSourceUnit(unit)
	}

	src.PrimaryAttributes.Each(func(field string, v entities.Value) bool {
		changes = append(changes, m.MergeField(dst, field, v))
		return true
	})

	for _, field := range src.ConflictFields() {
		primary, _ := dst.PrimaryAttributes.Get(field)
		for _, v := range src.Conflicts[field] {
			if primary.Same(v) || !dst.AddConflict(field, v) {
				continue
			}
			changes = append(changes, FieldChange{Field: field, Value: v, Outcome: provenance.OutcomeConflict})
		}
	}

	for _, field := range src.AlternateFields() {
		primary, _ := dst.PrimaryAttributes.Get(field)
		for _, s := range src.AlternateValues[field] {
			if primary.String() == s || !dst.AddAlternate(field, s) {
				continue
			}
			changes = append(changes, FieldChange{Field: field, Value: entities.String(s), Outcome: provenance.OutcomeAlternate})
		}
	}

	return changes
}

func (m *Merger) nearIdentical(a, b string) bool {
	return a == b || m.matcher.IsMatch(a, b)
}

func asList(v entities.Value) entities.Value {
	switch v.Kind() {
	case entities.KindList:
		return v
	case entities.KindString, entities.KindNumber:
		return entities.List(v.String())
	default:
		return entities.List()
	}
}

// unionList appends the elements of incoming missing from existing,
// comparing case-insensitively.
func unionList(existing, incoming entities.Value) (entities.Value, bool) {
	items := asList(existing).Items()
	added := false
	for _, item := range asList(incoming).Items() {
		if containsFold(items, item) {
			continue
		}
		items = append(items, item)
		added = true
	}
	return entities.List(items...), added
}

func containsFold(items []string, s string) bool {
	for _, it := range items {
		if strings.EqualFold(it, s) {
			return true
		}
	}
	return false
}

func appendText(existing, incoming string) (string, bool) {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" || strings.Contains(strings.ToLower(existing), strings.ToLower(incoming)) {
		return existing, false
	}
	if strings.TrimSpace(existing) == "" {
		return incoming, true
	}
	return existing + " " + incoming, true
}

