package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

// Attributes is an insertion-ordered mapping from field name to Value.
// The zero Attributes is empty and ready to use.
type Attributes struct {
	keys   []string
	values map[string]Value
}

// Attrs builds Attributes from alternating key/value arguments. Values go
// through ValueOf; pairs with a non-string key or an unsupported value are
// skipped.
func Attrs(kv ...any) Attributes {
	var a Attributes
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if v, ok := ValueOf(kv[i+1]); ok {
			a.Set(key, v)
		}
	}
	return a
}

// Set stores v under key. A new key is appended to the order; an existing
// key keeps its position. Invalid values are ignored.
func (a *Attributes) Set(key string, v Value) {
	if v.IsZero() {
		return
	}
	if a.values == nil {
		a.values = make(map[string]Value)
	}
	if _, exists := a.values[key]; !exists {
		a.keys = append(a.keys, key)
	}
	a.values[key] = v
}

// Get returns the value stored under key.
func (a Attributes) Get(key string) (Value, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Has reports whether key holds a non-empty value.
func (a Attributes) Has(key string) bool {
	v, ok := a.values[key]
	return ok && !v.IsEmpty()
}

// Delete removes key, preserving the order of the remaining keys.
func (a *Attributes) Delete(key string) {
	if _, ok := a.values[key]; !ok {
		return
	}
	delete(a.values, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in insertion order.
func (a Attributes) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of fields.
func (a Attributes) Len() int { return len(a.keys) }

// Each calls fn for every field in order until fn returns false.
func (a Attributes) Each(fn func(key string, v Value) bool) {
	for _, k := range a.keys {
		if !fn(k, a.values[k]) {
			return
		}
	}
}

// Clone returns a deep copy of a.
func (a Attributes) Clone() Attributes {
	var out Attributes
	for _, k := range a.keys {
		out.Set(k, a.values[k].Clone())
	}
	return out
}

// MarshalJSON encodes a as a JSON object in insertion order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order. Fields whose
// values are not scalars or lists of scalars are dropped.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = Attributes{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("entities: attributes must be an object, got %v", tok)
	}

	var out Attributes
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if v, ok := ValueOf(raw); ok {
			out.Set(key, v)
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}

// MarshalYAML encodes a as an ordered YAML mapping.
func (a Attributes) MarshalYAML() (any, error) {
	ms := make(yaml.MapSlice, 0, len(a.keys))
	for _, k := range a.keys {
		ms = append(ms, yaml.MapItem{Key: k, Value: a.values[k].Plain()})
	}
	return ms, nil
}

// UnmarshalYAML decodes an ordered YAML mapping.
func (a *Attributes) UnmarshalYAML(unmarshal func(any) error) error {
	var ms yaml.MapSlice
	if err := unmarshal(&ms); err != nil {
		return err
	}
	*a = FromMapSlice(ms)
	return nil
}

// FromMapSlice converts an ordered YAML mapping into Attributes.
func FromMapSlice(ms yaml.MapSlice) Attributes {
	var out Attributes
	for _, item := range ms {
		key := strings.TrimSpace(fmt.Sprint(item.Key))
		if v, ok := ValueOf(item.Value); ok {
			out.Set(key, v)
		}
	}
	return out
}
