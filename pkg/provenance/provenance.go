// Package provenance provides field-level tracking of merge decisions: which
// source unit supplied, extended, or contradicted each attribute of each
// canonical entity.
package provenance

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/graphmerge/pkg/constants"
	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/types"
)

// Outcome is the decision taken when a value met an entity.
type Outcome string

// Merge outcomes.
const (
	OutcomeCreated   Outcome = "created"   // first observation of the entity
	OutcomeAdopted   Outcome = "adopted"   // field was missing and is now set
	OutcomeUnioned   Outcome = "unioned"   // list gained new elements
	OutcomeAppended  Outcome = "appended"  // free text was extended
	OutcomeConflict  Outcome = "conflict"  // scalar disagreed, recorded in conflicts
	OutcomeAlternate Outcome = "alternate" // string disagreed, recorded in alternates
	OutcomeUnchanged Outcome = "unchanged" // value already present
)

// Record describes one decision about one field.
type Record struct {
	SourceUnit types.SourceUnitID `yaml:"source_unit,omitempty" json:"source_unit,omitempty"`
	Field      string             `yaml:"field" json:"field"`
	Value      entities.Value     `yaml:"value" json:"value"`
	Outcome    Outcome            `yaml:"outcome" json:"outcome"`
	Reason     string             `yaml:"reason,omitempty" json:"reason,omitempty"`
	Timestamp  time.Time          `yaml:"timestamp" json:"timestamp"`
}

// NewRecord creates a record of a decision about field.
func NewRecord(field string, value entities.Value, outcome Outcome) Record {
	return Record{Field: field, Value: value, Outcome: outcome}
}

// Map tracks provenance for multiple entities.
type Map map[string][]Record // key is "entityType:canonicalKey:field"

// Tracker records merge decisions. Implementations are safe for concurrent use.
type Tracker interface {
	// Track records a decision about a field of an entity
	Track(entityType types.EntityType, entityKey string, rec Record)

	// FindByField retrieves the records of a single field
	FindByField(entityType types.EntityType, entityKey, field string) []Record

	// FindByEntity retrieves all records of an entity, keyed by field
	FindByEntity(entityType types.EntityType, entityKey string) map[string][]Record

	// Map returns a copy of all records
	Map() Map

	// Len returns the number of records
	Len() int

	// Clear removes all records
	Clear()
}

type tracker struct {
	mu         sync.Mutex
	provenance Map
	enabled    bool
	count      int
}

// NewTracker creates a new provenance tracker. A disabled tracker drops
// everything it is given.
func NewTracker(enabled bool) Tracker {
	return &tracker{
		provenance: make(Map),
		enabled:    enabled,
	}
}

func (p *tracker) Track(entityType types.EntityType, entityKey string, rec Record) {
	if !p.enabled {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	key := makeKey(entityType, entityKey, rec.Field)
	p.mu.Lock()
	p.provenance[key] = append(p.provenance[key], rec)
	p.count++
	p.mu.Unlock()
}

func (p *tracker) FindByField(entityType types.EntityType, entityKey, field string) []Record {
	if !p.enabled {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Record(nil), p.provenance[makeKey(entityType, entityKey, field)]...)
}

func (p *tracker) FindByEntity(entityType types.EntityType, entityKey string) map[string][]Record {
	if !p.enabled {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	result := make(map[string][]Record)
	prefix := fmt.Sprintf("%s:%s:", entityType, entityKey)
	for key, recs := range p.provenance {
		if field, found := strings.CutPrefix(key, prefix); found {
			result[field] = append([]Record(nil), recs...)
		}
	}
	return result
}

func (p *tracker) Map() Map {
	if !p.enabled {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	result := make(Map, len(p.provenance))
	for k, v := range p.provenance {
		result[k] = append([]Record(nil), v...)
	}
	return result
}

func (p *tracker) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func (p *tracker) Clear() {
	p.mu.Lock()
	p.provenance = make(Map)
	p.count = 0
	p.mu.Unlock()
}

// makeKey joins the parts of a record key. Canonical keys never contain
// ':' because normalization strips punctuation.
func makeKey(entityType types.EntityType, entityKey, field string) string {
	return fmt.Sprintf("%s:%s:%s", entityType, entityKey, field)
}

// Report groups provenance by entity for display.
type Report struct {
	Entities map[string]EntityProvenance // key is "entityType:canonicalKey"
}

// EntityProvenance holds the records of one entity.
type EntityProvenance struct {
	Type   types.EntityType
	Key    string
	Fields map[string][]Record
}

// GenerateReport creates a provenance report from a Map.
func GenerateReport(provenance Map) *Report {
	report := &Report{Entities: make(map[string]EntityProvenance)}

	for key, recs := range provenance {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}
		entityKey := parts[0] + ":" + parts[1]
		ent, exists := report.Entities[entityKey]
		if !exists {
			ent = EntityProvenance{
				Type:   types.EntityType(parts[0]),
				Key:    parts[1],
				Fields: make(map[string][]Record),
			}
		}
		ent.Fields[parts[2]] = recs
		report.Entities[entityKey] = ent
	}

	return report
}

// String renders the report, sorted by entity and field.
func (r *Report) String() string {
	var sb strings.Builder

	sb.WriteString("Provenance Report\n")
	sb.WriteString("=================\n\n")

	keys := make([]string, 0, len(r.Entities))
	for key := range r.Entities {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		ent := r.Entities[key]
		fmt.Fprintf(&sb, "%s: %s\n", ent.Type, ent.Key)
		sb.WriteString(strings.Repeat("-", 40))
		sb.WriteString("\n")

		fields := make([]string, 0, len(ent.Fields))
		for field := range ent.Fields {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			fmt.Fprintf(&sb, "  %s:\n", field)
			for i, rec := range ent.Fields[field] {
				if i > 5 {
					fmt.Fprintf(&sb, "    ... and %d more\n", len(ent.Fields[field])-i)
					break
				}
				fmt.Fprintf(&sb, "    - %s %q from %s\n", rec.Outcome, rec.Value.String(), rec.SourceUnit)
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// File is the on-disk form of a provenance map.
type File struct {
	RunID      string `yaml:"run_id,omitempty"`
	Provenance Map    `yaml:"provenance"`
}

// Save writes provenance records to a YAML file.
func Save(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Load reads provenance data from a YAML file.
// Returns nil, nil if the file doesn't exist (not an error).
func Load(path string) (*File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return &f, nil
}
