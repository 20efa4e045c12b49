// Package graphmerge resolves raw entity observations into canonical
// entities with stable identifiers and merges them into a property graph.
//
// A run groups near-duplicate names per entity type, merges their
// attributes without discarding information, assigns identifiers from a
// persisted identity table, projects reference attributes to
// relationships, and upserts the result so that repeated runs over the
// same input leave the graph unchanged.
//
// Callers must supply observations in a stable order (for example sorted
// by source document, then source unit); grouping depends on it.
package graphmerge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentstation/graphmerge/pkg/dedup"
	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/fuzzy"
	"github.com/agentstation/graphmerge/pkg/graph"
	"github.com/agentstation/graphmerge/pkg/graph/memory"
	"github.com/agentstation/graphmerge/pkg/identity"
	"github.com/agentstation/graphmerge/pkg/logging"
	"github.com/agentstation/graphmerge/pkg/provenance"
	"github.com/agentstation/graphmerge/pkg/relations"
	"github.com/agentstation/graphmerge/pkg/schema"
)

// Pipeline runs entity resolution against one graph store and identity table.
// Runs are serialized; a Pipeline is safe for concurrent use.
type Pipeline struct {
	mu         sync.Mutex
	config     *config
	matcher    *fuzzy.Matcher
	references *fuzzy.Matcher
	store      graph.Store
	table      *identity.Table // used when no identity table file is configured

	hooks *hooks
}

// New creates a Pipeline with the given options
func New(opts ...Option) (*Pipeline, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	matcher, err := fuzzy.New(fuzzy.WithThreshold(cfg.threshold))
	if err != nil {
		return nil, err
	}
	references := matcher
	if cfg.referenceThreshold > 0 {
		if references, err = fuzzy.New(fuzzy.WithThreshold(cfg.referenceThreshold)); err != nil {
			return nil, err
		}
	}

	store := cfg.store
	if store == nil {
		store = memory.New()
	}

	return &Pipeline{
		config:     cfg,
		matcher:    matcher,
		references: references,
		store:      store,
		table:      identity.NewTable(),
		hooks:      newHooks(),
	}, nil
}

// Schema returns the effective schema.
func (p *Pipeline) Schema() *schema.Schema { return p.config.schema }

// Store returns the graph store the pipeline writes to.
func (p *Pipeline) Store() graph.Store { return p.store }

// OnEntityResolved registers a callback for every identified canonical entity
func (p *Pipeline) OnEntityResolved(fn EntityResolvedHook) { p.hooks.OnEntityResolved(fn) }

// OnRunCompleted registers a callback for completed runs
func (p *Pipeline) OnRunCompleted(fn RunCompletedHook) { p.hooks.OnRunCompleted(fn) }

// ResolveAndMerge runs one batch. It fails before touching the graph when
// the identity table cannot be trusted. Per-observation and per-entity
// problems are counted in the report instead. When ctx is cancelled the
// report so far is returned with ctx's error and nothing is persisted.
func (p *Pipeline) ResolveAndMerge(ctx context.Context, observations []entities.RawObservation) (*MergeReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runID := uuid.NewString()
	started := time.Now().UTC()
	ctx = logging.WithRunID(logging.WithLogger(ctx, p.config.logger), runID)
	logger := *logging.FromContext(ctx)

	report := newMergeReport(runID, started, p.config.dryRun)
	defer func() { report.Duration = time.Since(started) }()

	table, err := p.loadTable()
	if err != nil {
		logger.Error().Err(err).Msg("Cannot use identity table")
		return nil, err
	}

	// resolve
	tracker := provenance.NewTracker(p.config.provenanceFile != "")
	d, err := dedup.New(p.matcher, p.config.schema,
		dedup.WithProvenance(tracker),
		dedup.WithLogger(logging.ForStage(&logger, logging.StageResolve)))
	if err != nil {
		return nil, err
	}
	logger.Info().Int("observations", len(observations)).Msg("Resolving observations")
	res, err := d.Run(ctx, observations, p.config.workers)
	if err != nil {
		return report, err
	}
	report.addResolution(res)

	// identify
	assignment := identity.NewAllocator(table, identity.WithLogger(logging.ForStage(&logger, logging.StageIdentify))).AssignAll(res)
	report.addAssignment(assignment)
	res.Each(p.hooks.entityResolved)

	// infer
	rels, unresolved := relations.New(p.config.schema, p.references, relations.WithLogger(logging.ForStage(&logger, logging.StageInfer))).Infer(res)
	report.EdgesInferred = len(rels)
	report.addUnresolved(unresolved)

	// merge
	ents := make([]*entities.CanonicalEntity, 0, res.Total())
	res.Each(func(e *entities.CanonicalEntity) { ents = append(ents, e) })
	graphReport, err := graph.NewMerger(p.store, d.Merger(), graph.WithLogger(logging.ForStage(&logger, logging.StageMerge))).Merge(ctx, ents, rels)
	report.addGraph(graphReport)
	if err != nil {
		logger.Warn().Err(err).Msg("Merge interrupted, identity table not saved")
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	if err := p.persist(table, tracker, report); err != nil {
		return report, err
	}

	logger.Info().
		Int("entities", res.Total()).
		Int("relationships", report.EdgesCreated).
		Int("errors", len(report.Failures)).
		Msg("Merge complete")
	p.hooks.runCompleted(report)
	return report, nil
}

func (p *Pipeline) loadTable() (*identity.Table, error) {
	if p.config.identityTable == "" {
		return p.table, nil
	}
	return identity.Load(p.config.identityTable)
}

func (p *Pipeline) persist(table *identity.Table, tracker provenance.Tracker, report *MergeReport) error {
	if p.config.dryRun {
		return nil
	}
	if p.config.identityTable != "" && table.Dirty() {
		if err := table.Save(p.config.identityTable); err != nil {
			return err
		}
		report.IdentitySaved = true
	}
	if p.config.provenanceFile != "" {
		f := &provenance.File{RunID: report.RunID, Provenance: tracker.Map()}
		if err := provenance.Save(p.config.provenanceFile, f); err != nil {
			return errors.WrapIO("write", "provenance", err)
		}
	}
	return nil
}
