package graphmerge

import (
	"fmt"
	"time"

	"github.com/agentstation/graphmerge/pkg/dedup"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/graph"
	"github.com/agentstation/graphmerge/pkg/identity"
	"github.com/agentstation/graphmerge/pkg/relations"
	"github.com/agentstation/graphmerge/pkg/types"
)

// TypeReport summarizes one entity type of a run.
type TypeReport struct {
	Observations       int `json:"observations" yaml:"observations"`
	Skipped            int `json:"skipped" yaml:"skipped"`
	Groups             int `json:"groups" yaml:"groups"`
	Created            int `json:"created" yaml:"created"`
	Updated            int `json:"updated" yaml:"updated"`
	Unchanged          int `json:"unchanged" yaml:"unchanged"`
	ConflictsRecorded  int `json:"conflicts_recorded" yaml:"conflicts_recorded"`   // new to the graph
	AlternatesRecorded int `json:"alternates_recorded" yaml:"alternates_recorded"` // new to the graph
	AmbiguousMatches   int `json:"ambiguous_matches" yaml:"ambiguous_matches"`
	UnresolvedRefs     int `json:"unresolved_refs" yaml:"unresolved_refs"`
	Failures           int `json:"failures" yaml:"failures"`

	Identity identity.Stats `json:"identity" yaml:"identity"`
}

// MergeReport is the outcome of ResolveAndMerge.
type MergeReport struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	DryRun    bool          `json:"dry_run" yaml:"dry_run"`

	Types map[types.EntityType]*TypeReport `json:"types" yaml:"types"`

	EdgesInferred int `json:"edges_inferred" yaml:"edges_inferred"`
	EdgesCreated  int `json:"edges_created" yaml:"edges_created"`
	EdgesExisting int `json:"edges_existing" yaml:"edges_existing"`
	EdgesSkipped  int `json:"edges_skipped" yaml:"edges_skipped"`
	EdgesFailed   int `json:"edges_failed" yaml:"edges_failed"`

	// IdentitiesAllocated counts identifiers handed out for the first time.
	IdentitiesAllocated int  `json:"identities_allocated" yaml:"identities_allocated"`
	IdentitySaved       bool `json:"identity_saved" yaml:"identity_saved"`

	Failures []*errors.GraphMergeError `json:"failures,omitempty" yaml:"failures,omitempty"`
	Warnings []string                  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func newMergeReport(runID string, started time.Time, dryRun bool) *MergeReport {
	return &MergeReport{
		RunID:     runID,
		StartedAt: started,
		DryRun:    dryRun,
		Types:     make(map[types.EntityType]*TypeReport),
	}
}

func (r *MergeReport) typeReport(t types.EntityType) *TypeReport {
	tr, ok := r.Types[t]
	if !ok {
		tr = &TypeReport{}
		r.Types[t] = tr
	}
	return tr
}

// EntityTypes returns the reported types in canonical order.
func (r *MergeReport) EntityTypes() []types.EntityType {
	out := make([]types.EntityType, 0, len(r.Types))
	for t := range r.Types {
		out = append(out, t)
	}
	types.SortEntityTypes(out)
	return out
}

// Totals sums the per-type reports.
func (r *MergeReport) Totals() TypeReport {
	var sum TypeReport
	for _, tr := range r.Types {
		sum.Observations += tr.Observations
		sum.Skipped += tr.Skipped
		sum.Groups += tr.Groups
		sum.Created += tr.Created
		sum.Updated += tr.Updated
		sum.Unchanged += tr.Unchanged
		sum.ConflictsRecorded += tr.ConflictsRecorded
		sum.AlternatesRecorded += tr.AlternatesRecorded
		sum.AmbiguousMatches += tr.AmbiguousMatches
		sum.UnresolvedRefs += tr.UnresolvedRefs
		sum.Failures += tr.Failures
		sum.Identity.Reused += tr.Identity.Reused
		sum.Identity.Aliased += tr.Identity.Aliased
		sum.Identity.Allocated += tr.Identity.Allocated
		sum.Identity.Collided += tr.Identity.Collided
	}
	return sum
}

// Changed reports whether the run wrote anything to the graph.
func (r *MergeReport) Changed() bool {
	t := r.Totals()
	return t.Created > 0 || t.Updated > 0 || r.EdgesCreated > 0
}

// Summary returns a one line description of the run.
func (r *MergeReport) Summary() string {
	t := r.Totals()
	return fmt.Sprintf("%d observations, %d entities (%d created, %d updated, %d unchanged), %d relationships created, %d errors",
		t.Observations, t.Groups, t.Created, t.Updated, t.Unchanged, r.EdgesCreated, len(r.Failures))
}

func (r *MergeReport) addResolution(res *dedup.Result) {
	for _, t := range res.Types() {
		s := res.Stats(t)
		tr := r.typeReport(t)
		tr.Observations = s.Observations
		tr.Skipped = s.Skipped
		tr.Groups = s.Groups
		tr.AmbiguousMatches = s.AmbiguousMatches
	}
	for _, err := range res.Skipped {
		r.Warnings = append(r.Warnings, err.Error())
	}
	for _, err := range res.Ambiguities {
		r.Warnings = append(r.Warnings, err.Error())
	}
}

func (r *MergeReport) addAssignment(a identity.Assignment) {
	for t, s := range a {
		r.typeReport(t).Identity = s
		r.IdentitiesAllocated += s.Allocated
	}
}

func (r *MergeReport) addUnresolved(u relations.Unresolved) {
	for k, n := range u {
		r.typeReport(k.Source).UnresolvedRefs += n
	}
}

func (r *MergeReport) addGraph(g *graph.Report) {
	if g == nil {
		return
	}
	for t, c := range g.Types {
		tr := r.typeReport(t)
		tr.Created = c.Created
		tr.Updated = c.Updated
		tr.Unchanged = c.Unchanged
		tr.Failures = c.Failed
		tr.ConflictsRecorded = c.NewConflicts
		tr.AlternatesRecorded = c.NewAlternates
	}
	r.EdgesCreated = g.EdgesCreated
	r.EdgesExisting = g.EdgesExisting
	r.EdgesSkipped = g.EdgesSkipped
	r.EdgesFailed = g.EdgesFailed
	r.Failures = append(r.Failures, g.Failures...)
}
