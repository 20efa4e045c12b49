package dedup

import (
	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/fuzzy"
	"github.com/agentstation/graphmerge/pkg/types"
)

// Arena stores the canonical entities of one type, indexed by slot. Every
// name variation of every entity is indexed under the entity's slot.
type Arena struct {
	entityType types.EntityType
	items      []*entities.CanonicalEntity
	index      *fuzzy.Index
}

// NewArena creates an empty arena for entityType.
func NewArena(entityType types.EntityType, matcher *fuzzy.Matcher) *Arena {
	return &Arena{
		entityType: entityType,
		index:      matcher.NewIndex(),
	}
}

// Type returns the arena's entity type.
func (a *Arena) Type() types.EntityType { return a.entityType }

// Len returns the number of entities.
func (a *Arena) Len() int { return len(a.items) }

// Get returns the entity in slot, or nil when out of range.
func (a *Arena) Get(slot int) *entities.CanonicalEntity {
	if slot < 0 || slot >= len(a.items) {
		return nil
	}
	return a.items[slot]
}

// All returns the entities in slot order.
func (a *Arena) All() []*entities.CanonicalEntity {
	out := make([]*entities.CanonicalEntity, len(a.items))
	copy(out, a.items)
	return out
}

// Matches returns the entities whose variations match name, best first.
func (a *Arena) Matches(name string) []fuzzy.Match {
	return a.index.Matches(name)
}

func (a *Arena) insert(e *entities.CanonicalEntity) {
	e.Slot = len(a.items)
	a.items = append(a.items, e)
	for _, name := range e.NameVariations {
		a.index.Add(name, e.Slot)
	}
}

// addVariation records name on the entity in slot and indexes it.
func (a *Arena) addVariation(slot int, name string) bool {
	if !a.items[slot].AddNameVariation(name) {
		return false
	}
	a.index.Add(name, slot)
	return true
}
