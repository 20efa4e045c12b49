package identity

import (
	"strconv"

	"github.com/rs/zerolog"

	"github.com/agentstation/graphmerge/pkg/dedup"
	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/fuzzy"
	"github.com/agentstation/graphmerge/pkg/logging"
	"github.com/agentstation/graphmerge/pkg/types"
)

// Stats counts how the entities of one type got their identifiers.
type Stats struct {
	Reused    int `json:"reused" yaml:"reused"`       // primary key already known
	Aliased   int `json:"aliased" yaml:"aliased"`     // matched through a name variation; primary key bound as alias
	Allocated int `json:"allocated" yaml:"allocated"` // new identifier
	Collided  int `json:"collided" yaml:"collided"`   // identifier already taken by another entity of the run
}

// Total returns the number of entities assigned.
func (s Stats) Total() int { return s.Reused + s.Aliased + s.Allocated }

// Assignment summarizes AssignAll per entity type.
type Assignment map[types.EntityType]Stats

// Allocator assigns identifiers from a Table.
type Allocator struct {
	table  *Table
	logger *zerolog.Logger
}

// AllocatorOption configures an Allocator.
type AllocatorOption func(*Allocator)

// WithLogger sets the allocator's logger.
func WithLogger(logger *zerolog.Logger) AllocatorOption {
	return func(a *Allocator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAllocator creates an allocator over table.
func NewAllocator(table *Table, opts ...AllocatorOption) *Allocator {
	a := &Allocator{table: table, logger: logging.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Table returns the underlying table.
func (a *Allocator) Table() *Table { return a.table }

// Allocate returns the identifier of key, allocating one if needed.
func (a *Allocator) Allocate(entityType types.EntityType, key string) int64 {
	id, _ := a.table.Allocate(entityType, key)
	return id
}

// Lookup returns the identifier bound to key.
func (a *Allocator) Lookup(entityType types.EntityType, key string) (int64, bool) {
	return a.table.Lookup(entityType, key)
}

// Bind aliases key to the existing identifier id.
func (a *Allocator) Bind(entityType types.EntityType, key string, id int64) error {
	return a.table.Bind(entityType, key, id)
}

// Dirty reports whether allocation changed the table.
func (a *Allocator) Dirty() bool { return a.table.Dirty() }

// AssignAll sets StableID on every entity of res, type by type in slot
// order. An entity keeps the identifier of its canonical key; failing that,
// the identifier of the first of its name variations the table knows, with
// the canonical key bound as an alias; failing that, a new identifier.
func (a *Allocator) AssignAll(res *dedup.Result) Assignment {
	out := make(Assignment)
	for _, et := range res.Types() {
		claimed := make(map[int64]int)
		var stats Stats
		for _, e := range res.Entities(et) {
			a.assign(e, claimed, &stats)
		}
		if stats.Total() > 0 {
			out[et] = stats
		}
	}
	return out
}

func (a *Allocator) assign(e *entities.CanonicalEntity, claimed map[int64]int, stats *Stats) {
	et := e.EntityType
	log := a.logger.With().Str(logging.FieldEntityType, string(et)).Str(logging.FieldName, e.Primary()).Logger()

	id, ok := a.table.Lookup(et, e.CanonicalKey)
	if ok && a.free(id, e, claimed, &log) {
		stats.Reused++
		a.claim(e, id, claimed)
		return
	}
	if !ok {
		if id, ok = a.viaVariation(e, claimed, &log); ok {
			if err := a.table.Bind(et, e.CanonicalKey, id); err != nil {
				log.Warn().Err(err).Int64(logging.FieldStableID, id).Msg("Cannot alias canonical key")
			}
			stats.Aliased++
			a.claim(e, id, claimed)
			log.Debug().Int64(logging.FieldStableID, id).Msg("Reused identifier through name variation")
			return
		}
	}

	created := true
	if ok {
		// The key's identifier belongs to an earlier entity of this run.
		stats.Collided++
		id, created = a.split(e, claimed)
	} else {
		id, _ = a.table.Allocate(et, e.CanonicalKey)
	}
	if !created {
		stats.Reused++
		a.claim(e, id, claimed)
		log.Debug().Int64(logging.FieldStableID, id).Msg("Reused split identifier")
		return
	}
	stats.Allocated++
	a.claim(e, id, claimed)
	log.Debug().Int64(logging.FieldStableID, id).Msg("Allocated identifier")
}

// split returns the identifier of the first split key of e ("key#2",
// "key#3", ...) not claimed in this run, allocating it when unknown.
// Canonical keys never contain '#', so split keys cannot shadow them.
func (a *Allocator) split(e *entities.CanonicalEntity, claimed map[int64]int) (int64, bool) {
	for n := 2; ; n++ {
		key := splitKey(e.CanonicalKey, n)
		id, ok := a.table.Lookup(e.EntityType, key)
		if !ok {
			return a.table.Allocate(e.EntityType, key)
		}
		if slot, taken := claimed[id]; !taken || slot == e.Slot {
			return id, false
		}
	}
}

func splitKey(key string, n int) string {
	return key + "#" + strconv.Itoa(n)
}

func (a *Allocator) viaVariation(e *entities.CanonicalEntity, claimed map[int64]int, log *zerolog.Logger) (int64, bool) {
	for _, name := range e.NameVariations {
		key := fuzzy.Key(name)
		if key == "" || key == e.CanonicalKey {
			continue
		}
		if id, ok := a.table.Lookup(e.EntityType, key); ok && a.free(id, e, claimed, log) {
			return id, true
		}
	}
	return 0, false
}

func (a *Allocator) free(id int64, e *entities.CanonicalEntity, claimed map[int64]int, log *zerolog.Logger) bool {
	slot, taken := claimed[id]
	if taken && slot != e.Slot {
		log.Warn().Int64(logging.FieldStableID, id).Int("claimed_by_slot", slot).Msg("Identifier already assigned in this run")
		return false
	}
	return true
}

func (a *Allocator) claim(e *entities.CanonicalEntity, id int64, claimed map[int64]int) {
	e.StableID = id
	claimed[id] = e.Slot
}
