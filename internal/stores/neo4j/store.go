// Package neo4j implements graph.Store on a Neo4j database.
//
// Each entity type is a node label with a uniqueness constraint on
// stable_id, created the first time a label is written. Relationship types
// map to Neo4j relationship types.
package neo4j

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"

	"github.com/agentstation/graphmerge/pkg/constants"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/graph"
	"github.com/agentstation/graphmerge/pkg/logging"
)

// Config holds connection settings.
type Config struct {
	URI            string
	User           string
	Password       string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    int
}

// DefaultConfig returns settings for a local server.
func DefaultConfig() Config {
	return Config{
		URI:            constants.DefaultNeo4jURI,
		User:           constants.DefaultNeo4jUser,
		Database:       constants.DefaultNeo4jDatabase,
		ConnectTimeout: constants.StoreConnectTimeout,
		MaxPoolSize:    50,
	}
}

// Store is a graph.Store backed by Neo4j.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zerolog.Logger

	mu          sync.Mutex
	constrained map[string]bool
}

var _ graph.Store = (*Store)(nil)

// Open connects to the server described by cfg and verifies connectivity.
func Open(ctx context.Context, cfg Config, logger *zerolog.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, &errors.ConfigError{Component: "neo4j", Message: "uri is required"}
	}
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = constants.StoreConnectTimeout
	}

	auth := neo4j.BasicAuth(cfg.User, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		if cfg.MaxPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxPoolSize
		}
		c.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, errors.NewConfigError("neo4j", "init driver", err)
	}

	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, errors.WrapResource("connect", "graph store", cfg.URI, err)
	}

	log := logger.With().Str("store", "neo4j").Str("database", cfg.Database).Logger()
	log.Debug().Str("uri", cfg.URI).Msg("Connected to Neo4j")
	return &Store{
		driver:      driver,
		database:    cfg.Database,
		logger:      &log,
		constrained: make(map[string]bool),
	}, nil
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// GetNode implements graph.Store.
func (s *Store) GetNode(ctx context.Context, key graph.NodeKey) (graph.Node, bool, error) {
	query, err := getNodeQuery(string(key.Label))
	if err != nil {
		return graph.Node{}, false, err
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer func() { _ = session.Close(ctx) }()

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"id": key.StableID})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, res.Err()
		}
		raw, _ := res.Record().Get("props")
		props, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected properties %T", raw)
		}
		return props, nil
	})
	if err != nil {
		return graph.Node{}, false, err
	}
	if out == nil {
		return graph.Node{}, false, nil
	}
	return graph.Node{Key: key, Properties: graph.Properties(out.(map[string]any))}, true, nil
}

// CreateNode implements graph.Store.
func (s *Store) CreateNode(ctx context.Context, node graph.Node) error {
	label := string(node.Key.Label)
	if err := s.ensureConstraint(ctx, label); err != nil {
		return err
	}
	query, err := createNodeQuery(label)
	if err != nil {
		return err
	}
	return s.write(ctx, query, map[string]any{"props": params(node.Properties)}, nil)
}

// SetNodeProperties implements graph.Store.
func (s *Store) SetNodeProperties(ctx context.Context, key graph.NodeKey, props graph.Properties) error {
	query, err := setPropertiesQuery(string(key.Label))
	if err != nil {
		return err
	}
	var matched int64
	err = s.write(ctx, query, map[string]any{"id": key.StableID, "props": params(props)}, &matched)
	if err != nil {
		return err
	}
	if matched == 0 {
		return errors.NewNotFoundError("node", key.String())
	}
	return nil
}

// HasEdge implements graph.Store.
func (s *Store) HasEdge(ctx context.Context, key graph.EdgeKey) (bool, error) {
	query, err := hasEdgeQuery(string(key.Type), string(key.From.Label), string(key.To.Label))
	if err != nil {
		return false, err
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer func() { _ = session.Close(ctx) }()

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"from": key.From.StableID, "to": key.To.StableID})
		if err != nil {
			return false, err
		}
		if !res.Next(ctx) {
			return false, res.Err()
		}
		found, _ := res.Record().Get("found")
		b, _ := found.(bool)
		return b, nil
	})
	if err != nil {
		return false, err
	}
	found, _ := out.(bool)
	return found, nil
}

// CreateEdge implements graph.Store.
func (s *Store) CreateEdge(ctx context.Context, edge graph.Edge) error {
	key := edge.Key
	query, err := createEdgeQuery(string(key.Type), string(key.From.Label), string(key.To.Label))
	if err != nil {
		return err
	}
	var matched int64
	err = s.write(ctx, query, map[string]any{
		"from":  key.From.StableID,
		"to":    key.To.StableID,
		"props": params(edge.Properties),
	}, &matched)
	if err != nil {
		return err
	}
	if matched == 0 {
		return errors.NewNotFoundError("edge endpoints", key.String())
	}
	return nil
}

// Close implements graph.Store.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	return err
}

// write runs query in a write transaction. When matched is non-nil it
// receives the "matched" column of the first record.
func (s *Store) write(ctx context.Context, query string, args map[string]any, matched *int64) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, args)
		if err != nil {
			return nil, err
		}
		if matched != nil {
			*matched = 0
			if res.Next(ctx) {
				v, _ := res.Record().Get("matched")
				*matched, _ = v.(int64)
			}
			if err := res.Err(); err != nil {
				return nil, err
			}
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

// ensureConstraint creates the stable_id uniqueness constraint of label
// once per store. Restricted users may lack schema rights; that is logged
// and otherwise ignored.
func (s *Store) ensureConstraint(ctx context.Context, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.constrained[label] {
		return nil
	}
	query, err := constraintQuery(label)
	if err != nil {
		return err
	}
	if err := s.write(ctx, query, nil, nil); err != nil {
		s.logger.Warn().Err(err).Str("label", label).Msg("Neo4j schema init failed (continuing)")
	}
	s.constrained[label] = true
	return nil
}

// params converts properties to driver parameter values.
func params(p graph.Properties) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
