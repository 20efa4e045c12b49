// Package schema declares how each entity type is resolved: which fields
// carry its name, how each attribute merges, and which attributes project
// relationships onto other entity types.
package schema

import (
	"regexp"
	"slices"

	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/types"
)

// Kind selects the merge rule applied to a field.
type Kind string

// Field kinds.
const (
	KindString      Kind = "string"
	KindNumeric     Kind = "numeric"
	KindDate        Kind = "date"
	KindList        Kind = "list"
	KindDescription Kind = "description"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindString, KindNumeric, KindDate, KindList, KindDescription:
		return true
	}
	return false
}

// IsScalarConflict reports whether disagreements on k are recorded as conflicts.
func (k Kind) IsScalarConflict() bool {
	return k == KindNumeric || k == KindDate
}

// FieldRule assigns a kind to fields matching Path. Path may end in "*" or
// use filepath.Match syntax. Higher Priority wins, then the longer pattern.
type FieldRule struct {
	Path     string `json:"path" yaml:"path"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	Priority int    `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// TypeSchema holds the rules of one entity type.
type TypeSchema struct {
	Type       types.EntityType `json:"type" yaml:"type"`
	NameFields []string         `json:"name_fields,omitempty" yaml:"name_fields,omitempty"`
	Fields     []FieldRule      `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// RelationshipRule projects an attribute of Source entities onto edges to
// Target entities. Each referenced name yields one edge when it resolves.
// Reverse flips the edge so it points from the referenced entity to the
// source entity. A non-empty Delimiter keeps only the text before its first
// occurrence ("Birmingham, England" resolves as "Birmingham").
type RelationshipRule struct {
	Type      types.RelationshipType `json:"type" yaml:"type"`
	Source    types.EntityType       `json:"source" yaml:"source"`
	Field     string                 `json:"field" yaml:"field"`
	Target    types.EntityType       `json:"target" yaml:"target"`
	Reverse   bool                   `json:"reverse,omitempty" yaml:"reverse,omitempty"`
	Delimiter string                 `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
}

// Schema is the full resolution schema.
type Schema struct {
	// DefaultNameFields is used for types without their own NameFields.
	DefaultNameFields []string `json:"default_name_fields,omitempty" yaml:"default_name_fields,omitempty"`

	// Common rules apply to every type, below type-specific rules of equal priority.
	Common []FieldRule `json:"common,omitempty" yaml:"common,omitempty"`

	Types         []TypeSchema       `json:"types,omitempty" yaml:"types,omitempty"`
	Relationships []RelationshipRule `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

// Type returns the schema of t, if declared.
func (s *Schema) Type(t types.EntityType) (*TypeSchema, bool) {
	for i := range s.Types {
		if s.Types[i].Type == t {
			return &s.Types[i], true
		}
	}
	return nil, false
}

// Knows reports whether observations of type t can be resolved.
func (s *Schema) Knows(t types.EntityType) bool {
	if t.IsValid() {
		return true
	}
	_, ok := s.Type(t)
	return ok
}

// NameFields returns the fields holding the name of t, in lookup order.
func (s *Schema) NameFields(t types.EntityType) []string {
	if ts, ok := s.Type(t); ok && len(ts.NameFields) > 0 {
		return ts.NameFields
	}
	if len(s.DefaultNameFields) > 0 {
		return s.DefaultNameFields
	}
	return []string{"name", "title"}
}

// IsNameField reports whether field is one of the name fields of t.
func (s *Schema) IsNameField(t types.EntityType, field string) bool {
	return slices.Contains(s.NameFields(t), field)
}

// KindOf returns the merge kind of field on t. Fields without a matching
// rule fall back to the tag of v: numbers are numeric, lists are lists,
// and strings are dates when they look like one.
func (s *Schema) KindOf(t types.EntityType, field string, v entities.Value) Kind {
	var typeRules []FieldRule
	if ts, ok := s.Type(t); ok {
		typeRules = ts.Fields
	}
	if rule := resolve(field, typeRules, s.Common); rule != nil {
		return rule.Kind
	}
	return kindFromValue(v)
}

// RulesFor returns the relationship rules whose source is t.
func (s *Schema) RulesFor(t types.EntityType) []RelationshipRule {
	var out []RelationshipRule
	for _, r := range s.Relationships {
		if r.Source == t {
			out = append(out, r)
		}
	}
	return out
}

// ReferenceFields returns the fields of t that feed relationship inference.
func (s *Schema) ReferenceFields(t types.EntityType) []string {
	var out []string
	for _, r := range s.RulesFor(t) {
		if !slices.Contains(out, r.Field) {
			out = append(out, r.Field)
		}
	}
	return out
}

var dateLike = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2})?)?$`)

func kindFromValue(v entities.Value) Kind {
	switch v.Kind() {
	case entities.KindNumber:
		return KindNumeric
	case entities.KindList:
		return KindList
	case entities.KindString:
		if dateLike.MatchString(v.Str()) {
			return KindDate
		}
		return KindString
	default:
		return KindString
	}
}
