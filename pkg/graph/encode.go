package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/types"
)

// Reserved node properties. Primary attributes are stored next to them
// under their own names.
const (
	PropStableID       = "stable_id"
	PropEntityType     = "entity_type"
	PropCanonicalKey   = "canonical_key"
	PropNameField      = "name_field"
	PropNameVariations = "name_variations"
	PropSourceUnits    = "source_units"
	PropConflicts      = "conflicts_json"
	PropAlternates     = "alternates_json"
)

// attrPrefix escapes primary attributes whose name is reserved.
const attrPrefix = "attr_"

var reserved = map[string]bool{
	PropStableID:       true,
	PropEntityType:     true,
	PropCanonicalKey:   true,
	PropNameField:      true,
	PropNameVariations: true,
	PropSourceUnits:    true,
	PropConflicts:      true,
	PropAlternates:     true,
}

// IsReserved reports whether name is a bookkeeping property.
func IsReserved(name string) bool { return reserved[name] }

func attributeProp(field string) string {
	if reserved[field] {
		return attrPrefix + field
	}
	return field
}

func propAttribute(prop string) (string, bool) {
	if reserved[prop] {
		return "", false
	}
	if rest, ok := strings.CutPrefix(prop, attrPrefix); ok && reserved[rest] {
		return rest, true
	}
	return prop, true
}

// KeyOf returns the node key of e.
func KeyOf(e *entities.CanonicalEntity) NodeKey {
	return NodeKey{Label: e.EntityType, StableID: e.StableID}
}

// EncodeNode converts e to a node. Empty attributes are omitted.
func EncodeNode(e *entities.CanonicalEntity) (Node, error) {
	props := Properties{}
	e.PrimaryAttributes.Each(func(field string, v entities.Value) bool {
		if !v.IsEmpty() {
			props[attributeProp(field)] = v.Plain()
		}
		return true
	})

	props[PropStableID] = e.StableID
	props[PropEntityType] = string(e.EntityType)
	props[PropCanonicalKey] = e.CanonicalKey
	props[PropNameField] = e.NameField
	props[PropNameVariations] = slices.Clone(e.NameVariations)

	units := make([]string, len(e.SourceUnits))
	for i, u := range e.SourceUnits {
		units[i] = string(u)
	}
	props[PropSourceUnits] = units

	if len(e.Conflicts) > 0 {
		data, err := json.Marshal(e.Conflicts)
		if err != nil {
			return Node{}, fmt.Errorf("encode conflicts: %w", err)
		}
		props[PropConflicts] = string(data)
	}
	if len(e.AlternateValues) > 0 {
		data, err := json.Marshal(e.AlternateValues)
		if err != nil {
			return Node{}, fmt.Errorf("encode alternates: %w", err)
		}
		props[PropAlternates] = string(data)
	}

	return Node{Key: KeyOf(e), Properties: props}, nil
}

// DecodeNode rebuilds the canonical entity stored in n. Nodes without
// name_variations fall back to the property named by name_field, then "name".
func DecodeNode(n Node) (*entities.CanonicalEntity, error) {
	p := n.Properties
	e := &entities.CanonicalEntity{
		EntityType:   n.Key.Label,
		StableID:     n.Key.StableID,
		CanonicalKey: stringProp(p[PropCanonicalKey]),
		NameField:    stringProp(p[PropNameField]),
	}
	if et := stringProp(p[PropEntityType]); et != "" && types.EntityType(et) != n.Key.Label {
		return nil, fmt.Errorf("node %s has entity_type %q", n.Key, et)
	}
	if id, ok := intProp(p[PropStableID]); ok && id != n.Key.StableID {
		return nil, fmt.Errorf("node %s has stable_id %d", n.Key, id)
	}

	for _, name := range listProp(p[PropNameVariations]) {
		e.AddNameVariation(name)
	}
	if len(e.NameVariations) == 0 {
		field := e.NameField
		if field == "" {
			field = "name"
		}
		name := stringProp(p[attributeProp(field)])
		if name == "" {
			return nil, fmt.Errorf("node %s has no name", n.Key)
		}
		e.NameField = field
		e.AddNameVariation(name)
	}
	if e.NameField == "" {
		e.NameField = "name"
	}

	for _, u := range listProp(p[PropSourceUnits]) {
		e.AddSourceUnit(types.SourceUnitID(u))
	}

	if raw := stringProp(p[PropConflicts]); raw != "" {
		var conflicts map[string][]entities.Value
		if err := json.Unmarshal([]byte(raw), &conflicts); err != nil {
			return nil, fmt.Errorf("node %s: decode conflicts: %w", n.Key, err)
		}
		for _, field := range sortedKeys(conflicts) {
			for _, v := range conflicts[field] {
				e.AddConflict(field, v)
			}
		}
	}
	if raw := stringProp(p[PropAlternates]); raw != "" {
		var alternates map[string][]string
		if err := json.Unmarshal([]byte(raw), &alternates); err != nil {
			return nil, fmt.Errorf("node %s: decode alternates: %w", n.Key, err)
		}
		for _, field := range sortedKeys(alternates) {
			for _, s := range alternates[field] {
				e.AddAlternate(field, s)
			}
		}
	}

	for _, prop := range sortedKeys(p) {
		field, ok := propAttribute(prop)
		if !ok {
			continue
		}
		if v, ok := entities.ValueOf(p[prop]); ok {
			e.PrimaryAttributes.Set(field, v)
		}
	}
	return e, nil
}

// Diff returns the properties of next that are absent from or differ in
// prev. Properties present only in prev are never removed.
func Diff(prev, next Properties) Properties {
	out := Properties{}
	for k, v := range next {
		if isEmptyProp(v) {
			continue
		}
		if old, ok := prev[k]; ok && PropEqual(old, v) {
			continue
		}
		out[k] = v
	}
	return out
}

// PropEqual compares property values across the representations stores
// return: any numeric type, and lists as []string or []any.
func PropEqual(a, b any) bool {
	return reflect.DeepEqual(normalizeProp(a), normalizeProp(b))
}

func normalizeProp(v any) any {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	if f, ok := floatProp(v); ok {
		return f
	}
	return v
}

func isEmptyProp(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return false
}

func stringProp(v any) string {
	s, _ := v.(string)
	return s
}

func listProp(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func intProp(v any) (int64, bool) {
	f, ok := floatProp(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func floatProp(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
