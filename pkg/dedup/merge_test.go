package dedup_test

import (
	"testing"

	"github.com/agentstation/graphmerge/pkg/dedup"
	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/fuzzy"
	"github.com/agentstation/graphmerge/pkg/provenance"
	"github.com/agentstation/graphmerge/pkg/schema"
	"github.com/agentstation/graphmerge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sabbath() *entities.CanonicalEntity {
	e := entities.NewCanonicalEntity(types.EntityTypeBand, "name", "Black Sabbath", "black sabbath")
	e.PrimaryAttributes.Set("name", entities.String("Black Sabbath"))
	e.PrimaryAttributes.Set("formed_year", entities.Number(1968))
	e.PrimaryAttributes.Set("genres", entities.List("heavy metal"))
	e.AddSourceUnit("chunk-1")
	return e
}

func TestMergeField(t *testing.T) {
	m := dedup.NewMerger(fuzzy.Default(), schema.Default())

	tests := []struct {
		name    string
		field   string
		value   entities.Value
		outcome provenance.Outcome
	}{
		{"missing field adopted", "origin_city", entities.String("Birmingham"), provenance.OutcomeAdopted},
		{"empty value ignored", "origin_city", entities.String(" "), provenance.OutcomeUnchanged},
		{"name field keeps primary", "name", entities.String("Black Sabath"), provenance.OutcomeUnchanged},
		{"equal number unchanged", "formed_year", entities.Number(1968), provenance.OutcomeUnchanged},
		{"different number conflicts", "formed_year", entities.Number(1969), provenance.OutcomeConflict},
		{"list gains element", "genres", entities.List("doom metal"), provenance.OutcomeUnioned},
		{"list subset unchanged", "genres", entities.List("Heavy Metal"), provenance.OutcomeUnchanged},
		{"scalar into list field", "genres", entities.String("blues rock"), provenance.OutcomeUnioned},
		{"description adopted", "description", entities.String("Heavy metal pioneers."), provenance.OutcomeAdopted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := sabbath()
			change := m.MergeField(e, tt.field, tt.value)
			assert.Equal(t, tt.outcome, change.Outcome)
			assert.Equal(t, tt.outcome != provenance.OutcomeUnchanged, change.Changed())
		})
	}
}

func TestMergeFieldListAdoptionNormalizesScalar(t *testing.T) {
	m := dedup.NewMerger(fuzzy.Default(), schema.Default())
	e := entities.NewCanonicalEntity(types.EntityTypePerson, "name", "Ozzy Osbourne", "ozzy osbourne")

	m.MergeField(e, "instruments", entities.String("vocals"))
	v, _ := e.PrimaryAttributes.Get("instruments")
	assert.Equal(t, entities.KindList, v.Kind())
	assert.Equal(t, []string{"vocals"}, v.Items())
}

func TestMergeIntoIsIdempotent(t *testing.T) {
	m := dedup.NewMerger(fuzzy.Default(), schema.Default())

	src := sabbath()
	src.AddNameVariation("Black Sabath")
	src.AddSourceUnit("chunk-2")
	src.AddConflict("formed_year", entities.Number(1971))
	src.AddAlternate("origin_city", "Aston")
	src.PrimaryAttributes.Set("origin_city", entities.String("Birmingham"))

	dst := src.Clone()
	for _, c := range m.MergeInto(dst, src) {
		assert.False(t, c.Changed(), "field %s: %s", c.Field, c.Outcome)
	}
	assert.Equal(t, src, dst)
}

func TestMergeIntoCarriesConflictsAndAlternates(t *testing.T) {
	m := dedup.NewMerger(fuzzy.Default(), schema.Default())

	stored := sabbath()
	stored.PrimaryAttributes.Set("origin_city", entities.String("Birmingham"))

	incoming := entities.NewCanonicalEntity(types.EntityTypeBand, "name", "BLACK SABBATH", "black sabbath")
	incoming.PrimaryAttributes.Set("formed_year", entities.Number(1971))
	incoming.PrimaryAttributes.Set("origin_city", entities.String("Aston"))
	incoming.AddConflict("formed_year", entities.Number(1968))
	incoming.AddConflict("formed_year", entities.Number(1970))
	incoming.AddAlternate("origin_city", "Birmingham")
	incoming.AddSourceUnit("chunk-9")

	changes := m.MergeInto(stored, incoming)

	var outcomes []provenance.Outcome
	for _, c := range changes {
		if c.Changed() {
			outcomes = append(outcomes, c.Outcome)
		}
	}
	assert.ElementsMatch(t, []provenance.Outcome{
		provenance.OutcomeConflict,  // 1971 from the primary
		provenance.OutcomeAlternate, // Aston from the primary
		provenance.OutcomeConflict,  // 1970 carried over
	}, outcomes)

	year, _ := stored.PrimaryAttributes.Get("formed_year")
	assert.Equal(t, 1968.0, year.Num())
	require.Len(t, stored.Conflicts["formed_year"], 2)
	assert.Equal(t, []string{"Aston"}, stored.AlternateValues["origin_city"])
	assert.Equal(t, []string{"Black Sabbath", "BLACK SABBATH"}, stored.NameVariations)
	assert.Equal(t, []types.SourceUnitID{"chunk-1", "chunk-9"}, stored.SourceUnits)
}

func TestMergeIntoMatchesConflictsBySpelling(t *testing.T) {
	m := dedup.NewMerger(fuzzy.Default(), schema.Default())

	stored := sabbath()
	stored.AddConflict("formed_year", entities.Number(1971))

	incoming := entities.NewCanonicalEntity(types.EntityTypeBand, "name", "Black Sabbath", "black sabbath")
	incoming.PrimaryAttributes.Set("formed_year", entities.String("1971"))
	incoming.AddConflict("formed_year", entities.String("1968"))

	for _, c := range m.MergeInto(stored, incoming) {
		assert.False(t, c.Changed(), "field %s: %s", c.Field, c.Outcome)
	}
	assert.Equal(t, 1, stored.ConflictCount())
}

func TestMergeFieldConflictSpellings(t *testing.T) {
	m := dedup.NewMerger(fuzzy.Default(), schema.Default())
	e := sabbath()

	assert.Equal(t, provenance.OutcomeUnchanged, m.MergeField(e, "formed_year", entities.Number(1968)).Outcome)
	assert.Equal(t, provenance.OutcomeConflict, m.MergeField(e, "formed_year", entities.String("1971")).Outcome)
	assert.Equal(t, provenance.OutcomeUnchanged, m.MergeField(e, "formed_year", entities.Number(1971)).Outcome)

	require.Len(t, e.Conflicts["formed_year"], 1)
	assert.Equal(t, "1971", e.Conflicts["formed_year"][0].String())
}
