package entities

import (
	"strings"

	"github.com/agentstation/graphmerge/pkg/types"
)

// Provenance identifies where an observation came from.
type Provenance struct {
	SourceUnit     types.SourceUnitID `json:"source_unit" yaml:"source_unit"`
	SourceDocument types.DocumentID   `json:"source_document,omitempty" yaml:"source_document,omitempty"`
}

// RawObservation is one entity mention extracted from one source unit.
// Observations are treated as immutable; consumers clone before mutating.
type RawObservation struct {
	EntityType types.EntityType `json:"entity_type" yaml:"entity_type"`
	Attributes Attributes       `json:"attributes" yaml:"attributes"`
	Provenance Provenance       `json:"provenance" yaml:"provenance"`
}

// Name returns the first non-empty string among fields, along with the
// field it came from.
func (o RawObservation) Name(fields ...string) (field, name string, ok bool) {
	for _, f := range fields {
		v, exists := o.Attributes.Get(f)
		if !exists || v.Kind() != KindString {
			continue
		}
		if s := strings.TrimSpace(v.Str()); s != "" {
			return f, s, true
		}
	}
	return "", "", false
}
