package provenance_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/provenance"
	"github.com/agentstation/graphmerge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	tr := provenance.NewTracker(true)
	tr.Track(types.EntityTypeBand, "black sabbath", provenance.Record{
		SourceUnit: "chunk-1", Field: "formed_year", Value: entities.Number(1968), Outcome: provenance.OutcomeAdopted,
	})
	tr.Track(types.EntityTypeBand, "black sabbath", provenance.Record{
		SourceUnit: "chunk-3", Field: "formed_year", Value: entities.Number(1971), Outcome: provenance.OutcomeConflict,
	})
	tr.Track(types.EntityTypeBand, "black sabbath", provenance.Record{
		SourceUnit: "chunk-2", Field: "origin_city", Value: entities.String("Birmingham"), Outcome: provenance.OutcomeAdopted,
	})

	assert.Equal(t, 3, tr.Len())

	recs := tr.FindByField(types.EntityTypeBand, "black sabbath", "formed_year")
	require.Len(t, recs, 2)
	assert.Equal(t, provenance.OutcomeConflict, recs[1].Outcome)
	assert.False(t, recs[0].Timestamp.IsZero())

	byEntity := tr.FindByEntity(types.EntityTypeBand, "black sabbath")
	assert.Len(t, byEntity, 2)

	report := provenance.GenerateReport(tr.Map())
	out := report.String()
	assert.Contains(t, out, "Band: black sabbath")
	assert.Contains(t, out, `conflict "1971" from chunk-3`)

	tr.Clear()
	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, tr.Map())
}

func TestDisabledTracker(t *testing.T) {
	tr := provenance.NewTracker(false)
	tr.Track(types.EntityTypeBand, "x", provenance.Record{Field: "f"})
	assert.Equal(t, 0, tr.Len())
	assert.Nil(t, tr.Map())
	assert.Nil(t, tr.FindByField(types.EntityTypeBand, "x", "f"))
}

func TestTrackerConcurrent(t *testing.T) {
	tr := provenance.NewTracker(true)
	var wg sync.WaitGroup
	for _, et := range types.EntityTypes() {
		wg.Add(1)
		go func(et types.EntityType) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				tr.Track(et, "k", provenance.Record{Field: "f", Outcome: provenance.OutcomeUnchanged})
			}
		}(et)
	}
	wg.Wait()
	assert.Equal(t, 50*len(types.EntityTypes()), tr.Len())
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "provenance.yaml")

	missing, err := provenance.Load(path)
	require.NoError(t, err)
	assert.Nil(t, missing)

	tr := provenance.NewTracker(true)
	tr.Track(types.EntityTypePerson, "ozzy osbourne", provenance.Record{
		SourceUnit: "chunk-9", Field: "instruments", Value: entities.List("vocals"), Outcome: provenance.OutcomeUnioned,
	})
	require.NoError(t, provenance.Save(path, &provenance.File{RunID: "run-1", Provenance: tr.Map()}))

	loaded, err := provenance.Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "run-1", loaded.RunID)
	recs := loaded.Provenance["Person:ozzy osbourne:instruments"]
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"vocals"}, recs[0].Value.Items())
	assert.Equal(t, provenance.OutcomeUnioned, recs[0].Outcome)
}
