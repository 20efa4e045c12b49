package relations_test

import (
	"testing"

	"github.com/agentstation/graphmerge/pkg/dedup"
	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/fuzzy"
	"github.com/agentstation/graphmerge/pkg/identity"
	"github.com/agentstation/graphmerge/pkg/logging"
	"github.com/agentstation/graphmerge/pkg/relations"
	"github.com/agentstation/graphmerge/pkg/schema"
	"github.com/agentstation/graphmerge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolved(t *testing.T, obs ...entities.RawObservation) *dedup.Result {
	t.Helper()
	d, err := dedup.New(fuzzy.Default(), schema.Default(), dedup.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	for _, o := range obs {
		require.NoError(t, d.Add(o))
	}
	res := d.Result()
	identity.NewAllocator(identity.NewTable(), identity.WithLogger(logging.NewNopLogger())).AssignAll(res)
	return res
}

func obs(et types.EntityType, kv ...any) entities.RawObservation {
	return entities.RawObservation{
		EntityType: et,
		Attributes: entities.Attrs(kv...),
		Provenance: entities.Provenance{SourceUnit: "chunk-1", SourceDocument: "doc-1"},
	}
}

func keys(rels []relations.InferredRelationship) []string {
	out := make([]string, 0, len(rels))
	for _, r := range rels {
		out = append(out, r.Key())
	}
	return out
}

func TestInfer(t *testing.T) {
	res := resolved(t,
		obs(types.EntityTypeBand, "name", "Black Sabbath", "origin_location", "Birmingham, England", "genres", []string{"Doom Metal"}),
		obs(types.EntityTypeBand, "name", "Deep Purple"),
		obs(types.EntityTypePerson, "name", "Tony Iommi", "associated_bands", []string{"Black Sabath", "BLACK SABBATH", "Heaven & Hell"}),
		obs(types.EntityTypeAlbum, "title", "Paranoid", "band_name", "Black Sabbath"),
		obs(types.EntityTypeLocation, "city", "Birmingham"),
		obs(types.EntityTypeSubgenre, "name", "Doom Metal", "parent_influences", []string{"doom metal", "Heavy Metal"}),
		obs(types.EntityTypeSubgenre, "name", "Heavy Metal"),
	)

	rels, unresolved := relations.New(schema.Default(), fuzzy.Default(), relations.WithLogger(logging.NewNopLogger())).Infer(res)

	assert.Equal(t, []string{
		"Person:1-[MEMBER_OF]->Band:1",
		"Band:1-[RELEASED]->Album:1",
		"Band:1-[FORMED_IN]->Location:1",
		"Band:1-[PLAYS_GENRE]->Subgenre:1",
		"Subgenre:1-[INFLUENCED_BY]->Subgenre:2",
	}, keys(rels))

	released := rels[1]
	assert.Equal(t, "Black Sabbath", released.From.Name)
	assert.Equal(t, "Paranoid", released.To.Name)
	field, _ := released.Attributes.Get("source_field")
	assert.Equal(t, "band_name", field.Str())
	score, _ := released.Attributes.Get("match_score")
	assert.Equal(t, 1.0, score.Num())

	assert.Equal(t, 1, unresolved.Total())
	assert.Equal(t, 1, unresolved[relations.UnresolvedKey{Source: types.EntityTypePerson, Type: types.RelationshipMemberOf}])
	assert.Equal(t, 1, unresolved.ForSource(types.EntityTypePerson))
	assert.Zero(t, unresolved.ForSource(types.EntityTypeBand))
}

func TestInferMissingTargetType(t *testing.T) {
	res := resolved(t, obs(types.EntityTypeAlbum, "title", "Paranoid", "label", "Vertigo", "studio", "Regent Sound"))

	rels, unresolved := relations.Infer(res, schema.Default(), fuzzy.Default())
	assert.Empty(t, rels)
	assert.Equal(t, 2, unresolved.Total())
}

func TestInferStricterReferenceMatcher(t *testing.T) {
	res := resolved(t,
		obs(types.EntityTypeBand, "name", "Slayer"),
		obs(types.EntityTypePerson, "name", "Kerry King", "associated_bands", []string{"Slayor"}),
	)

	loose, _ := relations.Infer(res, schema.Default(), fuzzy.Default())
	assert.Len(t, loose, 1)

	strict, err := fuzzy.New(fuzzy.WithThreshold(0.95))
	require.NoError(t, err)
	rels, unresolved := relations.Infer(res, schema.Default(), strict)
	assert.Empty(t, rels)
	assert.Equal(t, 1, unresolved.Total())
}

func TestRefString(t *testing.T) {
	r := relations.Ref{EntityType: types.EntityTypeBand, StableID: 7, Name: "Slayer"}
	assert.Equal(t, "Band:7", r.String())
}
