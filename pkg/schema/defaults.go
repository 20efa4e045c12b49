package schema

import "github.com/agentstation/graphmerge/pkg/types"

// Default returns the built-in schema for the music history graph.
func Default() *Schema {
	return &Schema{
		DefaultNameFields: []string{"name", "title"},
		Common:            defaultCommonFields(),
		Types:             defaultTypes(),
		Relationships:     defaultRelationships(),
	}
}

func defaultCommonFields() []FieldRule {
	return []FieldRule{
		// Years, counts, and measurements
		{Path: "*_year", Kind: KindNumeric, Priority: 50},
		{Path: "year", Kind: KindNumeric, Priority: 50},
		{Path: "era_start", Kind: KindNumeric, Priority: 50},
		{Path: "era_end", Kind: KindNumeric, Priority: 50},
		{Path: "bpm*", Kind: KindNumeric, Priority: 50},
		{Path: "*_position", Kind: KindNumeric, Priority: 50},
		{Path: "*_seconds", Kind: KindNumeric, Priority: 50},
		{Path: "*_number", Kind: KindNumeric, Priority: 50},
		{Path: "capacity", Kind: KindNumeric, Priority: 50},

		// Dates
		{Path: "*_date", Kind: KindDate, Priority: 50},
		{Path: "date", Kind: KindDate, Priority: 50},

		// Free text accumulates
		{Path: "*description*", Kind: KindDescription, Priority: 40},
		{Path: "*_context", Kind: KindDescription, Priority: 40},
		{Path: "known_for", Kind: KindDescription, Priority: 40},
		{Path: "famous_for", Kind: KindDescription, Priority: 40},
		{Path: "impact", Kind: KindDescription, Priority: 40},
		{Path: "legacy_impact", Kind: KindDescription, Priority: 40},
		{Path: "key_characteristics", Kind: KindDescription, Priority: 40},

		// Lists union
		{Path: "instruments", Kind: KindList, Priority: 50},
		{Path: "roles", Kind: KindList, Priority: 50},
		{Path: "genres", Kind: KindList, Priority: 50},
		{Path: "associated_bands", Kind: KindList, Priority: 50},
		{Path: "parent_influences", Kind: KindList, Priority: 50},
		{Path: "participants", Kind: KindList, Priority: 50},
		{Path: "key_*", Kind: KindList, Priority: 30},
		{Path: "characteristics", Kind: KindList, Priority: 50},
		{Path: "members", Kind: KindList, Priority: 50},
		{Path: "tracks", Kind: KindList, Priority: 50},
	}
}

func defaultTypes() []TypeSchema {
	return []TypeSchema{
		{Type: types.EntityTypeBand, NameFields: []string{"name"}},
		{Type: types.EntityTypePerson, NameFields: []string{"name"}},
		{Type: types.EntityTypeAlbum, NameFields: []string{"title", "name"}},
		{Type: types.EntityTypeSong, NameFields: []string{"title", "name"}},
		{Type: types.EntityTypeSubgenre, NameFields: []string{"name"}},
		{Type: types.EntityTypeLocation, NameFields: []string{"city", "name"}},
		{Type: types.EntityTypeEvent, NameFields: []string{"name", "title"}},
		{Type: types.EntityTypeVenue, NameFields: []string{"name"}},
		{Type: types.EntityTypeMovement, NameFields: []string{"name"}},
		{Type: types.EntityTypeRecordLabel, NameFields: []string{"name"}},
		{Type: types.EntityTypeStudio, NameFields: []string{"name"}},
	}
}

func defaultRelationships() []RelationshipRule {
	return []RelationshipRule{
		{Type: types.RelationshipMemberOf, Source: types.EntityTypePerson, Field: "associated_bands", Target: types.EntityTypeBand},
		{Type: types.RelationshipReleased, Source: types.EntityTypeAlbum, Field: "band_name", Target: types.EntityTypeBand, Reverse: true},
		{Type: types.RelationshipFormedIn, Source: types.EntityTypeBand, Field: "origin_city", Target: types.EntityTypeLocation},
		{Type: types.RelationshipFormedIn, Source: types.EntityTypeBand, Field: "origin_location", Target: types.EntityTypeLocation, Delimiter: ","},
		{Type: types.RelationshipPlaysGenre, Source: types.EntityTypeBand, Field: "genres", Target: types.EntityTypeSubgenre},
		{Type: types.RelationshipContainsTrack, Source: types.EntityTypeSong, Field: "album", Target: types.EntityTypeAlbum, Reverse: true},
		{Type: types.RelationshipInfluencedBy, Source: types.EntityTypeSubgenre, Field: "parent_influences", Target: types.EntityTypeSubgenre},
		{Type: types.RelationshipParticipatedIn, Source: types.EntityTypeEvent, Field: "participants", Target: types.EntityTypeBand, Reverse: true},
		{Type: types.RelationshipProduced, Source: types.EntityTypeAlbum, Field: "producer", Target: types.EntityTypePerson, Reverse: true},
		{Type: types.RelationshipReleasedBy, Source: types.EntityTypeAlbum, Field: "label", Target: types.EntityTypeRecordLabel},
		{Type: types.RelationshipRecordedAt, Source: types.EntityTypeAlbum, Field: "studio", Target: types.EntityTypeStudio},
	}
}
