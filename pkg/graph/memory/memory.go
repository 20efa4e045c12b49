// Package memory provides an in-process graph.Store for tests and dry runs.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/graph"
)

// Store keeps nodes and edges in maps. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	nodes  map[graph.NodeKey]graph.Properties
	edges  map[graph.EdgeKey]graph.Properties
	closed bool
}

var _ graph.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nodes: make(map[graph.NodeKey]graph.Properties),
		edges: make(map[graph.EdgeKey]graph.Properties),
	}
}

// GetNode implements graph.Store.
func (s *Store) GetNode(_ context.Context, key graph.NodeKey) (graph.Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return graph.Node{}, false, err
	}
	props, ok := s.nodes[key]
	if !ok {
		return graph.Node{}, false, nil
	}
	return graph.Node{Key: key, Properties: copyProps(props)}, true, nil
}

// CreateNode implements graph.Store.
func (s *Store) CreateNode(_ context.Context, node graph.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, exists := s.nodes[node.Key]; exists {
		return &errors.ResourceError{Operation: "create", Resource: "node", ID: node.Key.String(), Message: "already exists", Err: errors.ErrAlreadyExists}
	}
	s.nodes[node.Key] = copyProps(node.Properties)
	return nil
}

// SetNodeProperties implements graph.Store.
func (s *Store) SetNodeProperties(_ context.Context, key graph.NodeKey, props graph.Properties) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	stored, ok := s.nodes[key]
	if !ok {
		return errors.NewNotFoundError("node", key.String())
	}
	for k, v := range copyProps(props) {
		stored[k] = v
	}
	return nil
}

// HasEdge implements graph.Store.
func (s *Store) HasEdge(_ context.Context, key graph.EdgeKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	_, ok := s.edges[key]
	return ok, nil
}

// CreateEdge implements graph.Store.
func (s *Store) CreateEdge(_ context.Context, edge graph.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	for _, end := range []graph.NodeKey{edge.Key.From, edge.Key.To} {
		if _, ok := s.nodes[end]; !ok {
			return errors.NewNotFoundError("node", end.String())
		}
	}
	if _, exists := s.edges[edge.Key]; exists {
		return &errors.ResourceError{Operation: "create", Resource: "edge", ID: edge.Key.String(), Message: "already exists", Err: errors.ErrAlreadyExists}
	}
	s.edges[edge.Key] = copyProps(edge.Properties)
	return nil
}

// Close implements graph.Store. Later calls fail.
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Nodes returns a copy of every node, ordered by label then stable ID.
func (s *Store) Nodes() []graph.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]graph.Node, 0, len(s.nodes))
	for k, p := range s.nodes {
		out = append(out, graph.Node{Key: k, Properties: copyProps(p)})
	}
	sort.Slice(out, func(i, j int) bool { return nodeLess(out[i].Key, out[j].Key) })
	return out
}

// Edges returns a copy of every edge, ordered by key.
func (s *Store) Edges() []graph.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]graph.Edge, 0, len(s.edges))
	for k, p := range s.edges {
		out = append(out, graph.Edge{Key: k, Properties: copyProps(p)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Len returns the number of nodes and edges.
func (s *Store) Len() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges)
}

func (s *Store) checkOpen() error {
	if s.closed {
		return &errors.ResourceError{Operation: "use", Resource: "store", ID: "memory", Message: "closed"}
	}
	return nil
}

func nodeLess(a, b graph.NodeKey) bool {
	if a.Label != b.Label {
		return a.Label < b.Label
	}
	return a.StableID < b.StableID
}

func copyProps(p graph.Properties) graph.Properties {
	out := maps.Clone(p)
	if out == nil {
		out = graph.Properties{}
	}
	for k, v := range out {
		if list, ok := v.([]string); ok {
			out[k] = slices.Clone(list)
		}
	}
	return out
}
