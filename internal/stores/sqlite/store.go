// Package sqlite implements graph.Store on an embedded SQLite database.
//
// Nodes and edges are rows keyed like their graph counterparts; properties
// are a JSON object column. Property updates use json_patch so only the
// given keys change.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/agentstation/graphmerge/pkg/constants"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/graph"
	"github.com/agentstation/graphmerge/pkg/logging"
	"github.com/agentstation/graphmerge/pkg/types"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS nodes (
	label      TEXT    NOT NULL,
	stable_id  INTEGER NOT NULL,
	props      TEXT    NOT NULL,
	updated_at TEXT    NOT NULL,
	PRIMARY KEY (label, stable_id)
);

CREATE TABLE IF NOT EXISTS edges (
	type       TEXT    NOT NULL,
	from_label TEXT    NOT NULL,
	from_id    INTEGER NOT NULL,
	to_label   TEXT    NOT NULL,
	to_id      INTEGER NOT NULL,
	props      TEXT    NOT NULL,
	created_at TEXT    NOT NULL,
	PRIMARY KEY (type, from_label, from_id, to_label, to_id),
	FOREIGN KEY (from_label, from_id) REFERENCES nodes(label, stable_id),
	FOREIGN KEY (to_label, to_id) REFERENCES nodes(label, stable_id)
);

CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_label, to_id);
`

// Store is a graph.Store backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *zerolog.Logger
}

var _ graph.Store = (*Store)(nil)

// Open opens or creates the database at path and initializes its schema.
func Open(ctx context.Context, path string, logger *zerolog.Logger) (*Store, error) {
	if path == "" {
		path = constants.DefaultSQLitePath
	}
	if logger == nil {
		logger = logging.Default()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.WrapResource("open", "graph store", path, err)
	}

	// Writes are serialized by SQLite; one connection keeps pragmas consistent.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WrapResource("connect", "graph store", path, err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, errors.WrapResource("initialize", "graph store", path, err)
	}

	log := logger.With().Str("store", "sqlite").Str("path", path).Logger()
	log.Debug().Msg("Opened SQLite graph store")
	return &Store{db: db, path: path, logger: &log}, nil
}

// GetNode implements graph.Store.
func (s *Store) GetNode(ctx context.Context, key graph.NodeKey) (graph.Node, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT props FROM nodes WHERE label = ? AND stable_id = ?`,
		string(key.Label), key.StableID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Node{}, false, nil
	}
	if err != nil {
		return graph.Node{}, false, errors.WrapResource("get", "node", key.String(), err)
	}
	props, err := decodeProps(raw)
	if err != nil {
		return graph.Node{}, false, errors.WrapParse("json", key.String(), err)
	}
	return graph.Node{Key: key, Properties: props}, true, nil
}

// CreateNode implements graph.Store.
func (s *Store) CreateNode(ctx context.Context, node graph.Node) error {
	raw, err := encodeProps(node.Properties)
	if err != nil {
		return errors.WrapParse("json", node.Key.String(), err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO nodes (label, stable_id, props, updated_at) VALUES (?, ?, ?, ?)`,
		string(node.Key.Label), node.Key.StableID, raw, now())
	if err != nil {
		return classify(err, "create", "node", node.Key.String())
	}
	return nil
}

// SetNodeProperties implements graph.Store.
func (s *Store) SetNodeProperties(ctx context.Context, key graph.NodeKey, props graph.Properties) error {
	patch, err := encodeProps(props)
	if err != nil {
		return errors.WrapParse("json", key.String(), err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE nodes SET props = json_patch(props, ?), updated_at = ? WHERE label = ? AND stable_id = ?`,
		patch, now(), string(key.Label), key.StableID)
	if err != nil {
		return errors.WrapResource("update", "node", key.String(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WrapResource("update", "node", key.String(), err)
	}
	if n == 0 {
		return errors.NewNotFoundError("node", key.String())
	}
	return nil
}

// HasEdge implements graph.Store.
func (s *Store) HasEdge(ctx context.Context, key graph.EdgeKey) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM edges WHERE type = ? AND from_label = ? AND from_id = ? AND to_label = ? AND to_id = ?`,
		edgeArgs(key)...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.WrapResource("get", "edge", key.String(), err)
	}
	return true, nil
}

// CreateEdge implements graph.Store. An existing edge is left as it is.
func (s *Store) CreateEdge(ctx context.Context, edge graph.Edge) error {
	raw, err := encodeProps(edge.Properties)
	if err != nil {
		return errors.WrapParse("json", edge.Key.String(), err)
	}
	args := append(edgeArgs(edge.Key), raw, now())
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO edges (type, from_label, from_id, to_label, to_id, props, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`, args...)
	if err != nil {
		return classify(err, "create", "edge", edge.Key.String())
	}
	return nil
}

// Counts returns the number of nodes per label and the number of edges.
func (s *Store) Counts(ctx context.Context) (map[types.EntityType]int, int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, COUNT(*) FROM nodes GROUP BY label`)
	if err != nil {
		return nil, 0, errors.WrapResource("count", "nodes", s.path, err)
	}
	defer func() { _ = rows.Close() }()

	nodes := make(map[types.EntityType]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, 0, errors.WrapResource("count", "nodes", s.path, err)
		}
		nodes[types.EntityType(label)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.WrapResource("count", "nodes", s.path, err)
	}

	var edges int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&edges); err != nil {
		return nil, 0, errors.WrapResource("count", "edges", s.path, err)
	}
	return nodes, edges, nil
}

// Close implements graph.Store.
func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

func edgeArgs(k graph.EdgeKey) []any {
	return []any{string(k.Type), string(k.From.Label), k.From.StableID, string(k.To.Label), k.To.StableID}
}

func encodeProps(p graph.Properties) (string, error) {
	if p == nil {
		p = graph.Properties{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeProps(raw string) (graph.Properties, error) {
	props := graph.Properties{}
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, err
	}
	return props, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// classify maps constraint violations onto the package error kinds.
func classify(err error, op, resource, id string) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "PRIMARY KEY"):
		return &errors.ResourceError{Operation: op, Resource: resource, ID: id, Message: "already exists", Err: errors.ErrAlreadyExists}
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return &errors.ResourceError{Operation: op, Resource: resource, ID: id, Message: "endpoint not found", Err: errors.ErrNotFound}
	default:
		return errors.WrapResource(op, resource, id, err)
	}
}
