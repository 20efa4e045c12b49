package memory_test

import (
	"context"
	"testing"

	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/graph"
	"github.com/agentstation/graphmerge/pkg/graph/memory"
	"github.com/agentstation/graphmerge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	band := graph.NodeKey{Label: types.EntityTypeBand, StableID: 1}
	album := graph.NodeKey{Label: types.EntityTypeAlbum, StableID: 1}

	_, found, err := s.GetNode(ctx, band)
	require.NoError(t, err)
	assert.False(t, found)

	props := graph.Properties{"name": "Black Sabbath", "genres": []string{"heavy metal"}}
	require.NoError(t, s.CreateNode(ctx, graph.Node{Key: band, Properties: props}))
	require.NoError(t, s.CreateNode(ctx, graph.Node{Key: album, Properties: graph.Properties{"title": "Paranoid"}}))

	err = s.CreateNode(ctx, graph.Node{Key: band})
	assert.True(t, errors.IsAlreadyExists(err))

	// The store keeps its own copy.
	props["genres"].([]string)[0] = "changed"
	node, found, err := s.GetNode(ctx, band)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"heavy metal"}, node.Properties["genres"])

	require.NoError(t, s.SetNodeProperties(ctx, band, graph.Properties{"origin_city": "Birmingham"}))
	node, _, _ = s.GetNode(ctx, band)
	assert.Equal(t, "Black Sabbath", node.Properties["name"])
	assert.Equal(t, "Birmingham", node.Properties["origin_city"])

	err = s.SetNodeProperties(ctx, graph.NodeKey{Label: types.EntityTypeBand, StableID: 9}, graph.Properties{})
	assert.True(t, errors.IsNotFound(err))

	edge := graph.EdgeKey{Type: types.RelationshipReleased, From: band, To: album}
	has, err := s.HasEdge(ctx, edge)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.CreateEdge(ctx, graph.Edge{Key: edge}))
	has, _ = s.HasEdge(ctx, edge)
	assert.True(t, has)
	assert.True(t, errors.IsAlreadyExists(s.CreateEdge(ctx, graph.Edge{Key: edge})))

	dangling := graph.EdgeKey{Type: types.RelationshipReleased, From: band, To: graph.NodeKey{Label: types.EntityTypeAlbum, StableID: 5}}
	assert.True(t, errors.IsNotFound(s.CreateEdge(ctx, graph.Edge{Key: dangling})))

	nodes := s.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, album, nodes[0].Key)
	assert.Len(t, s.Edges(), 1)

	require.NoError(t, s.Close(ctx))
	_, _, err = s.GetNode(ctx, band)
	assert.Error(t, err)
}
