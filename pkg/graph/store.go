// Package graph materializes canonical entities and relationships into a
// property graph with idempotent upsert semantics.
//
// Nodes are keyed by (label, stable ID) and edges by (type, from, to).
// A Merger creates what is missing and, for nodes that already exist,
// merges the stored state with the new one using the same field rules as
// deduplication, then writes back only the properties that changed.
// Running the same input twice leaves the graph untouched the second time.
package graph

import (
	"context"
	"fmt"

	"github.com/agentstation/graphmerge/pkg/types"
)

// NodeKey identifies a node.
type NodeKey struct {
	Label    types.EntityType
	StableID int64
}

// String returns "Label:id".
func (k NodeKey) String() string {
	return fmt.Sprintf("%s:%d", k.Label, k.StableID)
}

// EdgeKey identifies an edge. At most one edge exists per key.
type EdgeKey struct {
	Type types.RelationshipType
	From NodeKey
	To   NodeKey
}

// String returns "From-[TYPE]->To".
func (k EdgeKey) String() string {
	return fmt.Sprintf("%s-[%s]->%s", k.From, k.Type, k.To)
}

// Properties are the properties of a node or edge. Values are strings,
// numbers or lists of strings; stores may return lists as []any.
type Properties map[string]any

// Node is a stored node.
type Node struct {
	Key        NodeKey
	Properties Properties
}

// Edge is a stored edge.
type Edge struct {
	Key        EdgeKey
	Properties Properties
}

// Store is a graph backend. Implementations must be safe for sequential
// use from one goroutine; the Merger never calls a Store concurrently.
type Store interface {
	// GetNode returns the node with key, if any.
	GetNode(ctx context.Context, key NodeKey) (Node, bool, error)

	// CreateNode creates a node. It fails if the node exists.
	CreateNode(ctx context.Context, node Node) error

	// SetNodeProperties overwrites the given properties and leaves the rest.
	SetNodeProperties(ctx context.Context, key NodeKey, props Properties) error

	// HasEdge reports whether an edge with key exists.
	HasEdge(ctx context.Context, key EdgeKey) (bool, error)

	// CreateEdge creates an edge between existing nodes.
	CreateEdge(ctx context.Context, edge Edge) error

	// Close releases the store's resources.
	Close(ctx context.Context) error
}
