package types

import (
	"sort"
	"strings"
)

// EntityType identifies the kind of real-world entity an observation describes.
// Entity types double as node labels in the graph store.
type EntityType string

const (
	// EntityTypeBand represents a musical group (e.g., Black Sabbath).
	EntityTypeBand EntityType = "Band"

	// EntityTypePerson represents an individual (musician, producer, ...).
	EntityTypePerson EntityType = "Person"

	// EntityTypeAlbum represents a release.
	EntityTypeAlbum EntityType = "Album"

	// EntityTypeSong represents a single track.
	EntityTypeSong EntityType = "Song"

	// EntityTypeSubgenre represents a genre or style.
	EntityTypeSubgenre EntityType = "Subgenre"

	// EntityTypeLocation represents a geographic location (usually a city).
	EntityTypeLocation EntityType = "Location"

	// EntityTypeEvent represents a cultural event (festival, tour, incident).
	EntityTypeEvent EntityType = "Event"

	// EntityTypeVenue represents a performance venue.
	EntityTypeVenue EntityType = "Venue"

	// EntityTypeMovement represents a scene or movement (e.g., NWOBHM).
	EntityTypeMovement EntityType = "Movement"

	// EntityTypeRecordLabel represents a record label.
	EntityTypeRecordLabel EntityType = "RecordLabel"

	// EntityTypeStudio represents a recording studio.
	EntityTypeStudio EntityType = "Studio"
)

// EntityTypes returns all known entity types in their canonical processing order.
func EntityTypes() []EntityType {
	return []EntityType{
		EntityTypeBand,
		EntityTypePerson,
		EntityTypeAlbum,
		EntityTypeSong,
		EntityTypeSubgenre,
		EntityTypeLocation,
		EntityTypeEvent,
		EntityTypeVenue,
		EntityTypeMovement,
		EntityTypeRecordLabel,
		EntityTypeStudio,
	}
}

// entityTypeAliases maps the spellings produced by extractors to entity types.
// Keys are lowercase with separators removed.
var entityTypeAliases = map[string]EntityType{
	"band":               EntityTypeBand,
	"bands":              EntityTypeBand,
	"person":             EntityTypePerson,
	"people":             EntityTypePerson,
	"persons":            EntityTypePerson,
	"album":              EntityTypeAlbum,
	"albums":             EntityTypeAlbum,
	"song":               EntityTypeSong,
	"songs":              EntityTypeSong,
	"subgenre":           EntityTypeSubgenre,
	"subgenres":          EntityTypeSubgenre,
	"genre":              EntityTypeSubgenre,
	"genres":             EntityTypeSubgenre,
	"location":           EntityTypeLocation,
	"locations":          EntityTypeLocation,
	"geographiclocation": EntityTypeLocation,
	"event":              EntityTypeEvent,
	"events":             EntityTypeEvent,
	"culturalevent":      EntityTypeEvent,
	"venue":              EntityTypeVenue,
	"venues":             EntityTypeVenue,
	"movement":           EntityTypeMovement,
	"movements":          EntityTypeMovement,
	"recordlabel":        EntityTypeRecordLabel,
	"recordlabels":       EntityTypeRecordLabel,
	"label":              EntityTypeRecordLabel,
	"labels":             EntityTypeRecordLabel,
	"studio":             EntityTypeStudio,
	"studios":            EntityTypeStudio,
}

// ParseEntityType resolves an extractor spelling ("bands", "Band", "record_label")
// to an entity type. The boolean is false for unknown types.
func ParseEntityType(s string) (EntityType, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	et, ok := entityTypeAliases[key]
	return et, ok
}

// String returns the string representation of an entity type.
func (et EntityType) String() string {
	return string(et)
}

// IsValid returns true if the EntityType is one of the defined constants.
func (et EntityType) IsValid() bool {
	for _, known := range EntityTypes() {
		if known == et {
			return true
		}
	}
	return false
}

// RelationshipType identifies an edge type in the graph (e.g., MEMBER_OF).
type RelationshipType string

// Relationship types projected from entity attributes.
const (
	RelationshipMemberOf       RelationshipType = "MEMBER_OF"
	RelationshipReleased       RelationshipType = "RELEASED"
	RelationshipFormedIn       RelationshipType = "FORMED_IN"
	RelationshipPlaysGenre     RelationshipType = "PLAYS_GENRE"
	RelationshipContainsTrack  RelationshipType = "CONTAINS_TRACK"
	RelationshipInfluencedBy   RelationshipType = "INFLUENCED_BY"
	RelationshipParticipatedIn RelationshipType = "PARTICIPATED_IN"
	RelationshipProduced       RelationshipType = "PRODUCED"
	RelationshipReleasedBy     RelationshipType = "RELEASED_BY"
	RelationshipRecordedAt     RelationshipType = "RECORDED_AT"
)

// String returns the string representation of a relationship type.
func (rt RelationshipType) String() string {
	return string(rt)
}

// SortEntityTypes orders types by their position in EntityTypes, with
// types outside that list sorted by name after the known ones.
func SortEntityTypes(ts []EntityType) {
	rank := make(map[EntityType]int, len(EntityTypes()))
	for i, et := range EntityTypes() {
		rank[et] = i
	}
	sort.SliceStable(ts, func(i, j int) bool {
		ri, iKnown := rank[ts[i]]
		rj, jKnown := rank[ts[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return ts[i] < ts[j]
		}
	})
}
