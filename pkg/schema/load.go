package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/graphmerge/pkg/errors"
)

// Load reads and validates a schema file. YAML and JSON are accepted. A
// loaded schema replaces the defaults entirely; `graphmerge schema` prints
// the defaults as a starting point.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.File = filepath.Base(path)
		}
		return nil, err
	}
	return s, nil
}

// Parse decodes and validates a schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Marshal encodes s as YAML.
func (s *Schema) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Validate rejects rules that cannot be applied.
func (s *Schema) Validate() error {
	seenTypes := make(map[string]bool)
	for i, ts := range s.Types {
		path := fmt.Sprintf("types[%d]", i)
		if ts.Type == "" {
			return errors.NewValidationError(path+".type", ts.Type, "cannot be empty")
		}
		if seenTypes[string(ts.Type)] {
			return errors.NewValidationError(path+".type", ts.Type, "declared more than once")
		}
		seenTypes[string(ts.Type)] = true
		if err := validateFields(path+".fields", ts.Fields); err != nil {
			return err
		}
	}
	if err := validateFields("common", s.Common); err != nil {
		return err
	}

	type ruleKey struct {
		rel            string
		source, target string
		field          string
	}
	seenRules := make(map[ruleKey]bool)
	for i, r := range s.Relationships {
		path := fmt.Sprintf("relationships[%d]", i)
		switch {
		case r.Type == "":
			return errors.NewValidationError(path+".type", r.Type, "cannot be empty")
		case r.Field == "":
			return errors.NewValidationError(path+".field", r.Field, "cannot be empty")
		case !s.Knows(r.Source):
			return errors.NewValidationError(path+".source", r.Source, "unknown entity type")
		case !s.Knows(r.Target):
			return errors.NewValidationError(path+".target", r.Target, "unknown entity type")
		}
		key := ruleKey{string(r.Type), string(r.Source), string(r.Target), r.Field}
		if seenRules[key] {
			return errors.NewValidationError(path, r.Type, "duplicate relationship rule")
		}
		seenRules[key] = true
	}
	return nil
}

func validateFields(path string, rules []FieldRule) error {
	for i, rule := range rules {
		p := fmt.Sprintf("%s[%d]", path, i)
		if rule.Path == "" {
			return errors.NewValidationError(p+".path", rule.Path, "cannot be empty")
		}
		if !rule.Kind.IsValid() {
			return errors.NewValidationError(p+".kind", rule.Kind, "unknown field kind")
		}
		if _, err := filepath.Match(rule.Path, ""); err != nil {
			return errors.NewValidationError(p+".path", rule.Path, "malformed pattern")
		}
	}
	return nil
}
