package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindList
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// Value is a typed attribute value: a scalar string, a scalar number, or a
// list of strings. The zero Value is invalid.
type Value struct {
	kind Kind
	str  string
	num  float64
	list []string
}

// String returns a string Value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number returns a numeric Value.
func Number(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// List returns a list Value holding a copy of items.
func List(items ...string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v is the invalid zero Value.
func (v Value) IsZero() bool { return v.kind == KindInvalid }

// Str returns the string payload. It is empty unless Kind is KindString.
func (v Value) Str() string { return v.str }

// Num returns the numeric payload. It is zero unless Kind is KindNumber.
func (v Value) Num() float64 { return v.num }

// Items returns a copy of the list payload.
func (v Value) Items() []string {
	if v.kind != KindList {
		return nil
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp
}

// IsEmpty reports whether v carries no information: invalid, a blank
// string or an empty list. Numbers are never empty.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindString:
		return strings.TrimSpace(v.str) == ""
	case KindNumber:
		return false
	case KindList:
		return len(v.list) == 0
	default:
		return true
	}
}

// Equal reports whether two values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Same reports whether v and o denote the same fact: they are Equal, or
// they print the same, so "1968" and 1968 are the same year.
func (v Value) Same(o Value) bool {
	if v.Equal(o) {
		return true
	}
	if v.IsZero() || o.IsZero() {
		return false
	}
	return strings.TrimSpace(v.String()) == strings.TrimSpace(o.String())
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	if v.kind == KindList {
		return List(v.list...)
	}
	return v
}

// String renders v for display. Lists are joined with ", ".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	case KindList:
		return strings.Join(v.list, ", ")
	default:
		return ""
	}
}

// Native returns v as a plain Go value: string, float64 or []string.
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindList:
		return v.Items()
	default:
		return nil
	}
}

// MarshalJSON encodes v as a native JSON scalar or array.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber && (math.IsNaN(v.num) || math.IsInf(v.num, 0)) {
		return nil, fmt.Errorf("entities: cannot encode non-finite number %v", v.num)
	}
	return json.Marshal(v.Native())
}

// UnmarshalJSON decodes a JSON scalar or array of scalars.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, ok := ValueOf(raw)
	if !ok && raw != nil {
		return fmt.Errorf("entities: unsupported value %s", string(data))
	}
	*v = parsed
	return nil
}

// MarshalYAML encodes v as a native YAML scalar or sequence. Whole numbers
// are emitted as integers.
func (v Value) MarshalYAML() (any, error) {
	return v.Plain(), nil
}

// Plain is Native with whole numbers as int64, for encodings that
// distinguish integers from floats.
func (v Value) Plain() any {
	if v.kind == KindNumber && v.num == math.Trunc(v.num) && math.Abs(v.num) < 1<<53 {
		return int64(v.num)
	}
	return v.Native()
}

// UnmarshalYAML decodes a YAML scalar or sequence of scalars.
func (v *Value) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, ok := ValueOf(raw)
	if !ok && raw != nil {
		return fmt.Errorf("entities: unsupported value %v", raw)
	}
	*v = parsed
	return nil
}

// ValueOf converts a decoded document value into a Value. Strings become
// String, every integer and float type becomes Number, booleans become
// "true"/"false", and slices of scalars become List with blank elements
// dropped. Maps, nested lists and nil report false.
func ValueOf(raw any) (Value, bool) {
	switch x := raw.(type) {
	case nil:
		return Value{}, false
	case Value:
		return x, !x.IsZero()
	case string:
		return String(x), true
	case bool:
		return String(strconv.FormatBool(x)), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return String(x.String()), true
		}
		return Number(f), true
	case []string:
		return listOf(x), true
	case []any:
		items := make([]string, 0, len(x))
		for _, elem := range x {
			s, ok := scalarString(elem)
			if !ok {
				continue
			}
			items = append(items, s)
		}
		return listOf(items), true
	}
	if f, ok := toFloat(raw); ok {
		return Number(f), true
	}
	return Value{}, false
}

func listOf(items []string) Value {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return Value{kind: KindList, list: out}
}

func scalarString(raw any) (string, bool) {
	switch x := raw.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case json.Number:
		return x.String(), true
	}
	if f, ok := toFloat(raw); ok {
		return formatNumber(f), true
	}
	return "", false
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
