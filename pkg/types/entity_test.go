package types_test

import (
	"testing"

	"github.com/agentstation/graphmerge/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestParseEntityType(t *testing.T) {
	tests := []struct {
		in   string
		want types.EntityType
		ok   bool
	}{
		{"Band", types.EntityTypeBand, true},
		{"bands", types.EntityTypeBand, true},
		{"people", types.EntityTypePerson, true},
		{"record_label", types.EntityTypeRecordLabel, true},
		{"Geographic Location", types.EntityTypeLocation, true},
		{"genres", types.EntityTypeSubgenre, true},
		{"planet", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := types.ParseEntityType(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, types.EntityTypeStudio.IsValid())
	assert.False(t, types.EntityType("bands").IsValid())
}

func TestSortEntityTypes(t *testing.T) {
	ts := []types.EntityType{"Zeta", types.EntityTypeSong, "Alpha", types.EntityTypeBand}
	types.SortEntityTypes(ts)
	assert.Equal(t, []types.EntityType{types.EntityTypeBand, types.EntityTypeSong, "Alpha", "Zeta"}, ts)
}
