package dedup

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/graphmerge/pkg/constants"
	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/fuzzy"
	"github.com/agentstation/graphmerge/pkg/logging"
	"github.com/agentstation/graphmerge/pkg/provenance"
	"github.com/agentstation/graphmerge/pkg/schema"
	"github.com/agentstation/graphmerge/pkg/types"
)

// Deduplicator accumulates observations into per-type arenas. It is not
// safe for concurrent use; Run parallelizes across types internally.
type Deduplicator struct {
	matcher *fuzzy.Matcher
	schema  *schema.Schema
	merger  *Merger
	tracker provenance.Tracker
	logger  *zerolog.Logger

	resolvers map[types.EntityType]*typeResolver
	rejected  map[types.EntityType]int
	unknown   []error
}

// New creates a Deduplicator.
func New(matcher *fuzzy.Matcher, s *schema.Schema, opts ...Option) (*Deduplicator, error) {
	if matcher == nil {
		return nil, &errors.ValidationError{Field: "matcher", Message: "cannot be nil"}
	}
	if s == nil {
		return nil, &errors.ValidationError{Field: "schema", Message: "cannot be nil"}
	}
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	return &Deduplicator{
		matcher:   matcher,
		schema:    s,
		merger:    NewMerger(matcher, s),
		tracker:   o.tracker,
		logger:    o.logger,
		resolvers: make(map[types.EntityType]*typeResolver),
		rejected:  make(map[types.EntityType]int),
	}, nil
}

// Merger returns the merge rules used by d.
func (d *Deduplicator) Merger() *Merger { return d.merger }

// Add resolves one observation. It returns a *errors.MalformedObservationError
// for an observation without a usable name and a *errors.ValidationError for
// an unknown entity type; such observations are counted as skipped and the
// caller may continue.
func (d *Deduplicator) Add(obs entities.RawObservation) error {
	r, err := d.resolverFor(obs)
	if err != nil {
		return err
	}
	return r.add(obs)
}

func (d *Deduplicator) resolverFor(obs entities.RawObservation) (*typeResolver, error) {
	if !d.schema.Knows(obs.EntityType) {
		d.rejected[obs.EntityType]++
		err := errors.NewValidationError("entity_type", obs.EntityType,
			fmt.Sprintf("unknown entity type %q from %s", obs.EntityType, obs.Provenance.SourceUnit))
		d.unknown = append(d.unknown, err)
		return nil, err
	}
	r, ok := d.resolvers[obs.EntityType]
	if !ok {
		r = d.newResolver(obs.EntityType)
		d.resolvers[obs.EntityType] = r
	}
	return r, nil
}

// Run resolves observations, one goroutine per entity type and at most
// workers at a time. Observations of one type keep their input order.
// Skipped observations are logged and counted; only cancellation of ctx
// makes Run fail.
func (d *Deduplicator) Run(ctx context.Context, observations []entities.RawObservation, workers int) (*Result, error) {
	if workers <= 0 {
		workers = constants.DefaultWorkers
	}
	workers = min(workers, constants.MaxWorkers)

	batches := make(map[*typeResolver][]entities.RawObservation)
	var order []*typeResolver
	for _, obs := range observations {
		r, err := d.resolverFor(obs)
		if err != nil {
			d.logger.Warn().Err(err).Str(logging.FieldEntityType, string(obs.EntityType)).Msg("Skipping observation")
			continue
		}
		if _, seen := batches[r]; !seen {
			order = append(order, r)
		}
		batches[r] = append(batches[r], obs)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, r := range order {
		batch := batches[r]
		g.Go(func() error {
			for _, obs := range batch {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := r.add(obs); err != nil {
					r.logger.Warn().Err(err).Msg("Skipping observation")
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return d.Result(), nil
}

// Result snapshots the current arenas and counters. Arenas are shared with
// the Deduplicator, not copied.
func (d *Deduplicator) Result() *Result {
	res := &Result{
		arenas: make(map[types.EntityType]*Arena, len(d.resolvers)),
		stats:  make(map[types.EntityType]*TypeStats, len(d.resolvers)+len(d.rejected)),
	}
	for t, r := range d.resolvers {
		stats := r.stats
		stats.Groups = r.arena.Len()
		res.arenas[t] = r.arena
		res.stats[t] = &stats
	}
	for t, n := range d.rejected {
		res.stats[t] = &TypeStats{Skipped: n}
	}

	res.Skipped = append(res.Skipped, d.unknown...)
	for _, t := range res.Types() {
		if r := d.resolvers[t]; r != nil {
			res.Skipped = append(res.Skipped, r.skipped...)
			res.Ambiguities = append(res.Ambiguities, r.ambiguities...)
		}
	}
	return res
}

// observationKey identifies repeats of the same observation.
type observationKey struct {
	unit     types.SourceUnitID
	document types.DocumentID
	name     string
}

// typeResolver owns the arena of one entity type.
type typeResolver struct {
	entityType types.EntityType
	nameFields []string
	arena      *Arena
	matcher    *fuzzy.Matcher
	merger     *Merger
	tracker    provenance.Tracker
	logger     zerolog.Logger

	seen        map[observationKey]struct{}
	stats       TypeStats
	skipped     []error
	ambiguities []*errors.AmbiguousMatchError
}

func (d *Deduplicator) newResolver(t types.EntityType) *typeResolver {
	return &typeResolver{
		entityType: t,
		nameFields: d.schema.NameFields(t),
		arena:      NewArena(t, d.matcher),
		matcher:    d.matcher,
		merger:     d.merger,
		tracker:    d.tracker,
		logger:     logging.ForEntityType(d.logger, t),
		seen:       make(map[observationKey]struct{}),
	}
}

func (r *typeResolver) skip(obs entities.RawObservation, reason string) error {
	err := errors.NewMalformedObservationError(string(r.entityType), string(obs.Provenance.SourceUnit), reason)
	r.stats.Skipped++
	r.skipped = append(r.skipped, err)
	return err
}

func (r *typeResolver) add(obs entities.RawObservation) error {
	if obs.Attributes.Len() == 0 {
		return r.skip(obs, "empty attributes")
	}
	field, name, ok := obs.Name(r.nameFields...)
	if !ok {
		return r.skip(obs, "no name in "+strings.Join(r.nameFields, ", "))
	}
	key := fuzzy.Key(name)
	if key == "" {
		return r.skip(obs, fmt.Sprintf("name %q has no letters or digits", name))
	}

	// Without a source unit two observations cannot be told to be repeats.
	if obs.Provenance.SourceUnit != "" {
		dup := observationKey{unit: obs.Provenance.SourceUnit, document: obs.Provenance.SourceDocument, name: name}
		if _, seen := r.seen[dup]; seen {
			r.stats.DuplicatesIgnored++
			return nil
		}
		r.seen[dup] = struct{}{}
	}
	r.stats.Observations++

	matches := r.arena.Matches(name)
	if len(matches) == 0 {
		e := entities.NewCanonicalEntity(r.entityType, field, name, key)
		r.arena.insert(e)
		r.track(e, obs, provenance.NewRecord(field, entities.String(name), provenance.OutcomeCreated))
		r.apply(e, obs)
		r.logger.Debug().Str(logging.FieldName, name).Int("slot", e.Slot).Msg("New entity")
		return nil
	}

	best := matches[0]
	if len(matches) > 1 {
		r.checkAmbiguity(name, matches)
	}
	e := r.arena.Get(best.Ref)
	r.arena.addVariation(best.Ref, name)
	r.stats.Merged++
	r.apply(e, obs)
	r.logger.Debug().
		Str(logging.FieldName, name).
		Str("into", e.Primary()).
		Float64(logging.FieldScore, best.Score).
		Msg("Merged observation")
	return nil
}

// checkAmbiguity reports a name that matched entities which do not match
// each other. The name still merges into the best match.
func (r *typeResolver) checkAmbiguity(name string, matches []fuzzy.Match) {
	best := r.arena.Get(matches[0].Ref)
	candidates := []string{best.Primary()}
	ambiguous := false
	for _, m := range matches[1:] {
		other := r.arena.Get(m.Ref)
		candidates = append(candidates, other.Primary())
		if !r.matcher.AnyMatch(best.NameVariations, other.NameVariations) {
			ambiguous = true
		}
	}
	if !ambiguous {
		return
	}

	amb := &errors.AmbiguousMatchError{
		EntityType: string(r.entityType),
		Name:       name,
		Chosen:     best.Primary(),
		Score:      matches[0].Score,
		Candidates: candidates,
	}
	r.stats.AmbiguousMatches++
	r.ambiguities = append(r.ambiguities, amb)
	r.logger.Warn().
		Str(logging.FieldName, name).
		Strs("candidates", candidates).
		Str("chosen", amb.Chosen).
		Float64(logging.FieldScore, amb.Score).
		Msg("Ambiguous match")
}

// apply merges every attribute of obs into e.
func (r *typeResolver) apply(e *entities.CanonicalEntity, obs entities.RawObservation) {
	e.AddSourceUnit(obs.Provenance.SourceUnit)
	obs.Attributes.Each(func(field string, v entities.Value) bool {
		change := r.merger.MergeField(e, field, v)
		switch change.Outcome {
		case provenance.OutcomeConflict:
			r.stats.ConflictsRecorded++
		case provenance.OutcomeAlternate:
			r.stats.AlternatesRecorded++
		case provenance.OutcomeUnchanged:
			return true
		}
		r.track(e, obs, provenance.NewRecord(change.Field, change.Value, change.Outcome))
		return true
	})
}

func (r *typeResolver) track(e *entities.CanonicalEntity, obs entities.RawObservation, rec provenance.Record) {
	rec.SourceUnit = obs.Provenance.SourceUnit
	r.tracker.Track(r.entityType, e.CanonicalKey, rec)
}
