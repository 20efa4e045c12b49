package dedup_test

import (
	"sort"
	"strings"
	"testing"

	"github.com/agentstation/graphmerge/pkg/dedup"
	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/fuzzy"
	"github.com/agentstation/graphmerge/pkg/logging"
	"github.com/agentstation/graphmerge/pkg/schema"
	"github.com/agentstation/graphmerge/pkg/types"
	"github.com/stretchr/testify/require"
)

func observation(entityType types.EntityType, unit string, kv ...any) entities.RawObservation {
	return entities.RawObservation{
		EntityType: entityType,
		Attributes: entities.Attrs(kv...),
		Provenance: entities.Provenance{
			SourceUnit:     types.SourceUnitID(unit),
			SourceDocument: "doc-1",
		},
	}
}

func band(unit string, kv ...any) entities.RawObservation {
	return observation(types.EntityTypeBand, unit, kv...)
}

func newDeduplicator(t *testing.T, opts ...dedup.Option) *dedup.Deduplicator {
	t.Helper()
	opts = append([]dedup.Option{dedup.WithLogger(logging.NewNopLogger())}, opts...)
	d, err := dedup.New(fuzzy.Default(), schema.Default(), opts...)
	require.NoError(t, err)
	return d
}

func addAll(t *testing.T, d *dedup.Deduplicator, obs ...entities.RawObservation) {
	t.Helper()
	for _, o := range obs {
		require.NoError(t, d.Add(o))
	}
}

// membership renders groups as sorted source-unit sets, independent of slot order.
func membership(res *dedup.Result, t types.EntityType) []string {
	var groups []string
	for _, e := range res.Entities(t) {
		units := make([]string, 0, len(e.SourceUnits))
		for _, u := range e.SourceUnits {
			units = append(units, string(u))
		}
		sort.Strings(units)
		groups = append(groups, strings.Join(units, ","))
	}
	sort.Strings(groups)
	return groups
}
