// Package identity assigns stable numeric identifiers to canonical entities.
//
// A Table maps (entity type, canonical key) to an identifier and keeps a
// per-type counter for the next unused one. The table is persisted between
// runs so that an entity observed again keeps its identifier, which is what
// makes graph upserts idempotent.
//
//	table, err := identity.Load("graphmerge-ids.json")
//	if err != nil {
//		return err // corruption is fatal
//	}
//	alloc := identity.NewAllocator(table)
//	stats := alloc.AssignAll(result)
//	if alloc.Dirty() {
//		err = table.Save("graphmerge-ids.json")
//	}
package identity
