package identity

import (
	"fmt"
	"sort"
	"sync"

	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/types"
)

// Entry is one identifier and every canonical key bound to it.
// Key is the key the identifier was allocated for; Aliases were bound later.
type Entry struct {
	EntityType types.EntityType `json:"entity_type" yaml:"entity_type"`
	ID         int64            `json:"id" yaml:"id"`
	Key        string           `json:"key" yaml:"key"`
	Aliases    []string         `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Table is the persistent identity mapping. It is safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	keys    map[types.EntityType]map[string]int64
	entries map[types.EntityType]map[int64]*Entry
	next    map[types.EntityType]int64
	dirty   bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		keys:    make(map[types.EntityType]map[string]int64),
		entries: make(map[types.EntityType]map[int64]*Entry),
		next:    make(map[types.EntityType]int64),
	}
}

// Lookup returns the identifier bound to key.
func (t *Table) Lookup(entityType types.EntityType, key string) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.keys[entityType][key]
	return id, ok
}

// Allocate returns the identifier of key, allocating the next one of the
// type when key is unknown. created reports a new allocation.
func (t *Table) Allocate(entityType types.EntityType, key string) (id int64, created bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.keys[entityType][key]; ok {
		return id, false
	}
	id = t.nextLocked(entityType)
	t.next[entityType] = id + 1
	t.insertLocked(&Entry{EntityType: entityType, ID: id, Key: key})
	t.dirty = true
	return id, true
}

// Bind aliases key to the existing identifier id. Binding a key to the
// identifier it already has is a no-op.
func (t *Table) Bind(entityType types.EntityType, key string, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if key == "" {
		return &errors.ValidationError{Field: "key", Message: "cannot be empty"}
	}
	entry, ok := t.entries[entityType][id]
	if !ok {
		return errors.NewNotFoundError(string(entityType)+" identifier", fmt.Sprint(id))
	}
	if bound, ok := t.keys[entityType][key]; ok {
		if bound == id {
			return nil
		}
		return errors.NewValidationError("key", key,
			fmt.Sprintf("already bound to %s %d", entityType, bound))
	}
	entry.Aliases = append(entry.Aliases, key)
	t.keys[entityType][key] = id
	t.dirty = true
	return nil
}

// Next returns the identifier the next allocation of entityType would get.
func (t *Table) Next(entityType types.EntityType) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextLocked(entityType)
}

// Len returns the number of identifiers across all types.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, byID := range t.entries {
		n += len(byID)
	}
	return n
}

// Types returns the entity types with at least one identifier, in canonical order.
func (t *Table) Types() []types.EntityType {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.EntityType, 0, len(t.entries))
	for et, byID := range t.entries {
		if len(byID) > 0 {
			out = append(out, et)
		}
	}
	types.SortEntityTypes(out)
	return out
}

// Entries returns copies of the entries of entityType sorted by identifier.
func (t *Table) Entries(entityType types.EntityType) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entriesLocked(entityType)
}

// Dirty reports whether the table changed since it was loaded or saved.
func (t *Table) Dirty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dirty
}

func (t *Table) entriesLocked(entityType types.EntityType) []Entry {
	byID := t.entries[entityType]
	out := make([]Entry, 0, len(byID))
	for _, e := range byID {
		c := *e
		c.Aliases = append([]string(nil), e.Aliases...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *Table) nextLocked(entityType types.EntityType) int64 {
	if n := t.next[entityType]; n > 0 {
		return n
	}
	return 1
}

func (t *Table) insertLocked(e *Entry) {
	if t.keys[e.EntityType] == nil {
		t.keys[e.EntityType] = make(map[string]int64)
		t.entries[e.EntityType] = make(map[int64]*Entry)
	}
	t.entries[e.EntityType][e.ID] = e
	t.keys[e.EntityType][e.Key] = e.ID
	for _, alias := range e.Aliases {
		t.keys[e.EntityType][alias] = e.ID
	}
}
