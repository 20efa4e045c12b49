package graph

import (
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/types"
)

// TypeCounts are the node outcomes of one entity type.
type TypeCounts struct {
	Created       int
	Updated       int
	Unchanged     int
	Failed        int
	NewConflicts  int // conflict values the graph did not hold before
	NewAlternates int // alternate values the graph did not hold before
}

// Report summarizes one Merge.
type Report struct {
	Types map[types.EntityType]*TypeCounts

	EdgesCreated  int
	EdgesExisting int
	EdgesSkipped  int // an endpoint is missing or failed
	EdgesFailed   int

	// Failures lists rejected upserts in the order they happened.
	Failures []*errors.GraphMergeError
}

func newReport() *Report {
	return &Report{Types: make(map[types.EntityType]*TypeCounts)}
}

func (r *Report) counts(t types.EntityType) *TypeCounts {
	c, ok := r.Types[t]
	if !ok {
		c = &TypeCounts{}
		r.Types[t] = c
	}
	return c
}

// For returns the counts of t.
func (r *Report) For(t types.EntityType) TypeCounts {
	if c, ok := r.Types[t]; ok {
		return *c
	}
	return TypeCounts{}
}

// Totals sums the counts over every type.
func (r *Report) Totals() TypeCounts {
	var sum TypeCounts
	for _, c := range r.Types {
		sum.Created += c.Created
		sum.Updated += c.Updated
		sum.Unchanged += c.Unchanged
		sum.Failed += c.Failed
		sum.NewConflicts += c.NewConflicts
		sum.NewAlternates += c.NewAlternates
	}
	return sum
}

// Changed reports whether the merge wrote anything.
func (r *Report) Changed() bool {
	t := r.Totals()
	return t.Created+t.Updated+r.EdgesCreated > 0
}
