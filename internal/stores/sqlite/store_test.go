package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/agentstation/graphmerge/internal/stores/sqlite"
	"github.com/agentstation/graphmerge/pkg/dedup"
	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/fuzzy"
	"github.com/agentstation/graphmerge/pkg/graph"
	"github.com/agentstation/graphmerge/pkg/logging"
	"github.com/agentstation/graphmerge/pkg/relations"
	"github.com/agentstation/graphmerge/pkg/schema"
	"github.com/agentstation/graphmerge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), path, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestStoreOperations(t *testing.T) {
	ctx := context.Background()
	s := open(t, filepath.Join(t.TempDir(), "graph.db"))

	band := graph.NodeKey{Label: types.EntityTypeBand, StableID: 1}
	album := graph.NodeKey{Label: types.EntityTypeAlbum, StableID: 1}

	_, found, err := s.GetNode(ctx, band)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.CreateNode(ctx, graph.Node{Key: band, Properties: graph.Properties{
		"name":        "Black Sabbath",
		"formed_year": int64(1968),
		"genres":      []string{"heavy metal"},
	}}))
	require.NoError(t, s.CreateNode(ctx, graph.Node{Key: album, Properties: graph.Properties{"title": "Paranoid"}}))
	assert.True(t, errors.IsAlreadyExists(s.CreateNode(ctx, graph.Node{Key: band})))

	require.NoError(t, s.SetNodeProperties(ctx, band, graph.Properties{
		"genres":      []string{"heavy metal", "doom metal"},
		"origin_city": "Birmingham",
	}))
	assert.True(t, errors.IsNotFound(s.SetNodeProperties(ctx, graph.NodeKey{Label: types.EntityTypeBand, StableID: 5}, graph.Properties{"x": "y"})))

	node, found, err := s.GetNode(ctx, band)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Black Sabbath", node.Properties["name"])
	assert.True(t, graph.PropEqual(int64(1968), node.Properties["formed_year"]))
	assert.True(t, graph.PropEqual([]string{"heavy metal", "doom metal"}, node.Properties["genres"]))
	assert.Equal(t, "Birmingham", node.Properties["origin_city"])

	edge := graph.EdgeKey{Type: types.RelationshipReleased, From: band, To: album}
	has, err := s.HasEdge(ctx, edge)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.CreateEdge(ctx, graph.Edge{Key: edge, Properties: graph.Properties{"source_field": "band_name"}}))
	require.NoError(t, s.CreateEdge(ctx, graph.Edge{Key: edge}), "existing edges are left alone")
	has, err = s.HasEdge(ctx, edge)
	require.NoError(t, err)
	assert.True(t, has)

	dangling := graph.EdgeKey{Type: types.RelationshipReleased, From: band, To: graph.NodeKey{Label: types.EntityTypeAlbum, StableID: 9}}
	assert.True(t, errors.IsNotFound(s.CreateEdge(ctx, graph.Edge{Key: dangling})))

	nodes, edges, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[types.EntityType]int{types.EntityTypeBand: 1, types.EntityTypeAlbum: 1}, nodes)
	assert.Equal(t, 1, edges)
}

func TestMergeIsIdempotentAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.db")

	band := entities.NewCanonicalEntity(types.EntityTypeBand, "name", "Black Sabbath", "black sabbath")
	band.StableID = 1
	band.AddSourceUnit("chunk-1")
	band.PrimaryAttributes.Set("name", entities.String("Black Sabbath"))
	band.PrimaryAttributes.Set("formed_year", entities.Number(1968))
	band.PrimaryAttributes.Set("genres", entities.List("heavy metal"))
	band.AddConflict("formed_year", entities.Number(1971))

	location := entities.NewCanonicalEntity(types.EntityTypeLocation, "city", "Birmingham", "birmingham")
	location.StableID = 1
	location.PrimaryAttributes.Set("city", entities.String("Birmingham"))

	rels := []relations.InferredRelationship{{
		Type:       types.RelationshipFormedIn,
		From:       relations.Ref{EntityType: types.EntityTypeBand, StableID: 1},
		To:         relations.Ref{EntityType: types.EntityTypeLocation, StableID: 1},
		Attributes: entities.Attrs("source_field", "origin_city"),
	}}

	run := func() *graph.Report {
		s, err := sqlite.Open(ctx, path, logging.NewNopLogger())
		require.NoError(t, err)
		defer func() { _ = s.Close(ctx) }()
		m := graph.NewMerger(s, dedup.NewMerger(fuzzy.Default(), schema.Default()), graph.WithLogger(logging.NewNopLogger()))
		report, err := m.Merge(ctx, []*entities.CanonicalEntity{band, location}, rels)
		require.NoError(t, err)
		require.Empty(t, report.Failures)
		return report
	}

	first := run()
	assert.Equal(t, 2, first.Totals().Created)
	assert.Equal(t, 1, first.EdgesCreated)

	second := run()
	assert.Equal(t, graph.TypeCounts{Unchanged: 2}, second.Totals())
	assert.Equal(t, 1, second.EdgesExisting)
	assert.False(t, second.Changed())
}
