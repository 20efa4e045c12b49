package graph

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/graphmerge/pkg/dedup"
	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/logging"
	"github.com/agentstation/graphmerge/pkg/relations"
)

// Merger upserts entities and relationships into a Store.
type Merger struct {
	store  Store
	rules  *dedup.Merger
	logger *zerolog.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithLogger sets the merger's logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(m *Merger) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMerger creates a Merger writing to store. rules decide how a stored
// node and a new entity combine.
func NewMerger(store Store, rules *dedup.Merger, opts ...Option) *Merger {
	m := &Merger{store: store, rules: rules, logger: logging.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge writes nodes first, then edges. A rejected node or edge is
// recorded in the report and the merge continues; edges touching a failed
// node are skipped. Only cancellation of ctx returns an error, together
// with the report so far.
func (m *Merger) Merge(ctx context.Context, ents []*entities.CanonicalEntity, rels []relations.InferredRelationship) (*Report, error) {
	report := newReport()
	failed := make(map[NodeKey]bool)

	for _, e := range ents {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		key := KeyOf(e)
		if err := m.mergeNode(ctx, e, report); err != nil {
			failed[key] = true
			report.counts(e.EntityType).Failed++
			m.fail(report, err)
		}
	}

	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		m.mergeEdge(ctx, rel, failed, report)
	}
	return report, nil
}

func (m *Merger) mergeNode(ctx context.Context, e *entities.CanonicalEntity, report *Report) *errors.GraphMergeError {
	key := KeyOf(e)
	counts := report.counts(e.EntityType)
	log := m.logger.With().
		Str(logging.FieldEntityType, string(e.EntityType)).
		Int64(logging.FieldStableID, e.StableID).
		Str(logging.FieldName, e.Primary()).
		Logger()

	if e.StableID <= 0 {
		return errors.NewGraphMergeError("create", "node", key.String(),
			&errors.ValidationError{Field: "stable_id", Value: e.StableID, Message: "not assigned"})
	}

	stored, found, err := m.store.GetNode(ctx, key)
	if err != nil {
		return errors.NewGraphMergeError("get", "node", key.String(), err)
	}

	if !found {
		node, err := EncodeNode(e)
		if err != nil {
			return errors.NewGraphMergeError("create", "node", key.String(), err)
		}
		if err := m.store.CreateNode(ctx, node); err != nil {
			return errors.NewGraphMergeError("create", "node", key.String(), err)
		}
		counts.Created++
		counts.NewConflicts += e.ConflictCount()
		counts.NewAlternates += e.AlternateCount()
		log.Debug().Msg("Created node")
		return nil
	}

	current, err := DecodeNode(stored)
	if err != nil {
		return errors.NewGraphMergeError("update", "node", key.String(), err)
	}
	conflicts, alternates := current.ConflictCount(), current.AlternateCount()

	m.rules.MergeInto(current, e)
	next, err := EncodeNode(current)
	if err != nil {
		return errors.NewGraphMergeError("update", "node", key.String(), err)
	}

	changed := Diff(stored.Properties, next.Properties)
	if len(changed) == 0 {
		counts.Unchanged++
		return nil
	}
	if err := m.store.SetNodeProperties(ctx, key, changed); err != nil {
		return errors.NewGraphMergeError("update", "node", key.String(), err)
	}
	counts.Updated++
	counts.NewConflicts += current.ConflictCount() - conflicts
	counts.NewAlternates += current.AlternateCount() - alternates
	log.Debug().Int("properties", len(changed)).Msg("Updated node")
	return nil
}

func (m *Merger) mergeEdge(ctx context.Context, rel relations.InferredRelationship, failed map[NodeKey]bool, report *Report) {
	key := EdgeKey{
		Type: rel.Type,
		From: NodeKey{Label: rel.From.EntityType, StableID: rel.From.StableID},
		To:   NodeKey{Label: rel.To.EntityType, StableID: rel.To.StableID},
	}
	if failed[key.From] || failed[key.To] || key.From.StableID <= 0 || key.To.StableID <= 0 {
		report.EdgesSkipped++
		return
	}

	exists, err := m.store.HasEdge(ctx, key)
	if err != nil {
		report.EdgesFailed++
		m.fail(report, errors.NewGraphMergeError("get", "edge", key.String(), err))
		return
	}
	if exists {
		report.EdgesExisting++
		return
	}

	props := Properties{}
	rel.Attributes.Each(func(k string, v entities.Value) bool {
		props[k] = v.Plain()
		return true
	})
	if err := m.store.CreateEdge(ctx, Edge{Key: key, Properties: props}); err != nil {
		report.EdgesFailed++
		m.fail(report, errors.NewGraphMergeError("link", "edge", key.String(), err))
		return
	}
	report.EdgesCreated++
}

func (m *Merger) fail(report *Report, err *errors.GraphMergeError) {
	report.Failures = append(report.Failures, err)
	m.logger.Warn().Err(err).Str("target", err.Target).Str("key", err.Key).Msg("Graph upsert failed")
}
