package dedup_test

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/agentstation/graphmerge/pkg/dedup"
	"github.com/agentstation/graphmerge/pkg/entities"
	"github.com/agentstation/graphmerge/pkg/errors"
	"github.com/agentstation/graphmerge/pkg/fuzzy"
	"github.com/agentstation/graphmerge/pkg/logging"
	"github.com/agentstation/graphmerge/pkg/provenance"
	"github.com/agentstation/graphmerge/pkg/schema"
	"github.com/agentstation/graphmerge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlackSabbathScenario(t *testing.T) {
	tracker := provenance.NewTracker(true)
	d := newDeduplicator(t, dedup.WithProvenance(tracker))
	addAll(t, d,
		band("chunk-1", "name", "Black Sabbath", "formed_year", 1968),
		band("chunk-2", "name", "Black Sabath", "origin_city", "Birmingham"),
		band("chunk-3", "name", "BLACK SABBATH", "formed_year", 1971),
	)

	res := d.Result()
	bands := res.Entities(types.EntityTypeBand)
	require.Len(t, bands, 1)

	e := bands[0]
	assert.Equal(t, []string{"Black Sabbath", "Black Sabath", "BLACK SABBATH"}, e.NameVariations)
	assert.Equal(t, "black sabbath", e.CanonicalKey)

	year, ok := e.PrimaryAttributes.Get("formed_year")
	require.True(t, ok)
	assert.Equal(t, 1968.0, year.Num())
	require.Len(t, e.Conflicts["formed_year"], 1)
	assert.Equal(t, 1971.0, e.Conflicts["formed_year"][0].Num())

	city, _ := e.PrimaryAttributes.Get("origin_city")
	assert.Equal(t, "Birmingham", city.Str())

	name, _ := e.PrimaryAttributes.Get("name")
	assert.Equal(t, "Black Sabbath", name.Str())
	assert.Equal(t, []types.SourceUnitID{"chunk-1", "chunk-2", "chunk-3"}, e.SourceUnits)

	stats := res.Stats(types.EntityTypeBand)
	assert.Equal(t, 3, stats.Observations)
	assert.Equal(t, 1, stats.Groups)
	assert.Equal(t, 2, stats.Merged)
	assert.Equal(t, 1, stats.ConflictsRecorded)
	assert.Zero(t, stats.AlternatesRecorded)

	recs := tracker.FindByField(types.EntityTypeBand, "black sabbath", "formed_year")
	require.Len(t, recs, 2)
	assert.Equal(t, provenance.OutcomeAdopted, recs[0].Outcome)
	assert.Equal(t, provenance.OutcomeConflict, recs[1].Outcome)
	assert.Equal(t, types.SourceUnitID("chunk-3"), recs[1].SourceUnit)
}

func TestListMergeIsSetUnion(t *testing.T) {
	person := func(unit string, instruments ...string) entities.RawObservation {
		return observation(types.EntityTypePerson, unit, "name", "Tony Iommi", "instruments", instruments)
	}

	forward := newDeduplicator(t)
	addAll(t, forward, person("a", "guitar"), person("b", "guitar", "keyboards"))
	v, _ := forward.Result().Entities(types.EntityTypePerson)[0].PrimaryAttributes.Get("instruments")
	assert.Equal(t, []string{"guitar", "keyboards"}, v.Items())

	reverse := newDeduplicator(t)
	addAll(t, reverse, person("b", "guitar", "keyboards"), person("a", "guitar"))
	rv, _ := reverse.Result().Entities(types.EntityTypePerson)[0].PrimaryAttributes.Get("instruments")
	assert.ElementsMatch(t, v.Items(), rv.Items())
}

func TestListUnionIsCaseInsensitive(t *testing.T) {
	d := newDeduplicator(t)
	addAll(t, d,
		observation(types.EntityTypeBand, "a", "name", "Black Sabbath", "genres", []string{"Heavy Metal", "doom"}),
		observation(types.EntityTypeBand, "b", "name", "Black Sabbath", "genres", []string{"heavy metal", "Doom", "Blues Rock"}),
	)
	v, _ := d.Result().Entities(types.EntityTypeBand)[0].PrimaryAttributes.Get("genres")
	assert.Equal(t, []string{"Heavy Metal", "doom", "Blues Rock"}, v.Items())
}

func TestConflictRecordingDoesNotDuplicate(t *testing.T) {
	d := newDeduplicator(t)
	addAll(t, d,
		band("a", "name", "Black Sabbath", "formed_year", 1968),
		band("b", "name", "Black Sabbath", "formed_year", 1971),
		band("c", "name", "Black Sabbath", "formed_year", 1971),
		band("d", "name", "Black Sabbath", "formed_year", 1968),
	)
	e := d.Result().Entities(types.EntityTypeBand)[0]
	year, _ := e.PrimaryAttributes.Get("formed_year")
	assert.Equal(t, 1968.0, year.Num())
	require.Len(t, e.Conflicts["formed_year"], 1)
	assert.Equal(t, 1971.0, e.Conflicts["formed_year"][0].Num())
	assert.Equal(t, 1, d.Result().Stats(types.EntityTypeBand).ConflictsRecorded)
}

func TestNumericStringEqualsNumber(t *testing.T) {
	d := newDeduplicator(t)
	addAll(t, d,
		band("a", "name", "Slayer", "formed_year", 1981),
		band("b", "name", "Slayer", "formed_year", "1981"),
	)
	assert.Empty(t, d.Result().Entities(types.EntityTypeBand)[0].Conflicts)
}

func TestConflictSpellingsCollapse(t *testing.T) {
	d := newDeduplicator(t)
	addAll(t, d,
		band("c1", "name", "Black Sabbath", "formed_year", 1968),
		band("c2", "name", "Black Sabbath", "formed_year", "1971"),
		band("c3", "name", "Black Sabbath", "formed_year", 1971),
	)
	res := d.Result()
	e := res.Entities(types.EntityTypeBand)[0]
	require.Len(t, e.Conflicts["formed_year"], 1)
	assert.Equal(t, "1971", e.Conflicts["formed_year"][0].String())
	assert.Equal(t, 1, res.Stats(types.EntityTypeBand).ConflictsRecorded)
}

func TestObservationsWithoutProvenanceAreKept(t *testing.T) {
	d := newDeduplicator(t)
	addAll(t, d,
		band("", "name", "Black Sabbath", "formed_year", 1968),
		band("", "name", "Black Sabbath", "origin_city", "Birmingham"),
	)
	res := d.Result()
	e := res.Entities(types.EntityTypeBand)[0]
	assert.True(t, e.PrimaryAttributes.Has("formed_year"))
	assert.True(t, e.PrimaryAttributes.Has("origin_city"))
	assert.Equal(t, 2, res.Stats(types.EntityTypeBand).Observations)
	assert.Zero(t, res.Stats(types.EntityTypeBand).DuplicatesIgnored)
}

func TestDescriptionAppends(t *testing.T) {
	d := newDeduplicator(t)
	addAll(t, d,
		band("a", "name", "Black Sabbath", "description", "Pioneers of heavy metal."),
		band("b", "name", "Black Sabbath", "description", "pioneers of HEAVY metal"),
		band("c", "name", "Black Sabbath", "description", "Formed in Aston."),
	)
	v, _ := d.Result().Entities(types.EntityTypeBand)[0].PrimaryAttributes.Get("description")
	assert.Equal(t, "Pioneers of heavy metal. Formed in Aston.", v.Str())
}

func TestStringAlternates(t *testing.T) {
	d := newDeduplicator(t)
	addAll(t, d,
		band("a", "name", "Black Sabbath", "origin_city", "Birmingham"),
		band("b", "name", "Black Sabbath", "origin_city", "Birmingam"),
		band("c", "name", "Black Sabbath", "origin_city", "Aston"),
		band("d", "name", "Black Sabbath", "origin_city", "Aston"),
	)
	res := d.Result()
	e := res.Entities(types.EntityTypeBand)[0]
	city, _ := e.PrimaryAttributes.Get("origin_city")
	assert.Equal(t, "Birmingham", city.Str())
	assert.Equal(t, map[string][]string{"origin_city": {"Aston"}}, e.AlternateValues)
	assert.Equal(t, 1, res.Stats(types.EntityTypeBand).AlternatesRecorded)
}

func TestDuplicateObservationIgnored(t *testing.T) {
	d := newDeduplicator(t)
	obs := band("chunk-1", "name", "Black Sabbath", "formed_year", 1968)
	addAll(t, d, obs, obs)

	res := d.Result()
	e := res.Entities(types.EntityTypeBand)[0]
	assert.Equal(t, []types.SourceUnitID{"chunk-1"}, e.SourceUnits)
	assert.Equal(t, 1, res.Stats(types.EntityTypeBand).Observations)
	assert.Equal(t, 1, res.Stats(types.EntityTypeBand).DuplicatesIgnored)
}

func TestMalformedObservations(t *testing.T) {
	d := newDeduplicator(t)

	err := d.Add(band("a", "formed_year", 1968))
	assert.True(t, errors.IsMalformedObservation(err))

	err = d.Add(entities.RawObservation{EntityType: types.EntityTypeBand})
	assert.True(t, errors.IsMalformedObservation(err))

	err = d.Add(band("b", "name", "!!!"))
	assert.True(t, errors.IsMalformedObservation(err))

	err = d.Add(observation("Planet", "c", "name", "Mars"))
	assert.True(t, errors.IsValidationError(err))

	require.NoError(t, d.Add(band("d", "name", "Slayer")))

	res := d.Result()
	assert.Equal(t, 3, res.Stats(types.EntityTypeBand).Skipped)
	assert.Equal(t, 1, res.Stats("Planet").Skipped)
	assert.Len(t, res.Skipped, 4)
	assert.Equal(t, 1, res.Total())
}

func TestNameFieldFallback(t *testing.T) {
	d := newDeduplicator(t)
	addAll(t, d,
		observation(types.EntityTypeAlbum, "a", "title", "Paranoid", "release_year", 1970),
		observation(types.EntityTypeAlbum, "b", "name", "Paranoid", "label", "Vertigo"),
		observation(types.EntityTypeLocation, "c", "city", "Birmingham", "country", "England"),
	)
	res := d.Result()
	albums := res.Entities(types.EntityTypeAlbum)
	require.Len(t, albums, 1)
	assert.Equal(t, "title", albums[0].NameField)
	assert.True(t, albums[0].PrimaryAttributes.Has("label"))
	assert.Equal(t, "Birmingham", res.Entities(types.EntityTypeLocation)[0].Primary())
}

func TestThresholdBoundary(t *testing.T) {
	score := fuzzy.Similarity("Slayer", "Slayor")

	build := func(threshold float64) int {
		m, err := fuzzy.New(fuzzy.WithThreshold(threshold))
		require.NoError(t, err)
		d, err := dedup.New(m, schema.Default(), dedup.WithLogger(logging.NewNopLogger()))
		require.NoError(t, err)
		addAll(t, d, band("a", "name", "Slayer"), band("b", "name", "Slayor"))
		return d.Result().Total()
	}

	assert.Equal(t, 1, build(score), "score equal to threshold merges")
	assert.Equal(t, 2, build(math.Nextafter(score, 1)), "score just below threshold does not")
}

func TestAmbiguousMatchMergesIntoBest(t *testing.T) {
	tl := logging.NewTestLogger(t)
	d, err := dedup.New(fuzzy.Default(), schema.Default(), dedup.WithLogger(tl.Logger))
	require.NoError(t, err)

	// a~c and b~c score 1-1/13; a and b score 1-2/13, below 0.85.
	addAll(t, d,
		band("1", "name", "abcdefghijkl"),
		band("2", "name", "abcdefghijxy"),
		band("3", "name", "abcdefghijxl"),
	)

	res := d.Result()
	require.Equal(t, 2, res.Total())
	first := res.Arena(types.EntityTypeBand).Get(0)
	assert.Equal(t, []string{"abcdefghijkl", "abcdefghijxl"}, first.NameVariations)

	require.Len(t, res.Ambiguities, 1)
	amb := res.Ambiguities[0]
	assert.Equal(t, "abcdefghijkl", amb.Chosen)
	assert.Equal(t, []string{"abcdefghijkl", "abcdefghijxy"}, amb.Candidates)
	assert.True(t, errors.Is(amb, errors.ErrAmbiguousMatch))
	assert.Equal(t, 1, res.Stats(types.EntityTypeBand).AmbiguousMatches)
	assert.True(t, tl.Contains("Ambiguous match"))
}

func TestGroupingIsOrderInsensitive(t *testing.T) {
	names := []string{
		"Black Sabbath", "Black Sabath", "BLACK SABBATH",
		"Deep Purple", "Deep Purpl",
		"Led Zeppelin", "Led Zepelin", "led zeppelin",
		"Judas Priest",
		"Iron Maiden", "Iron Maidan",
	}
	var obs []entities.RawObservation
	for i, n := range names {
		obs = append(obs, band(fmt.Sprintf("u%02d", i), "name", n))
	}

	baseline := newDeduplicator(t)
	addAll(t, baseline, obs...)
	want := membership(baseline.Result(), types.EntityTypeBand)
	require.Len(t, want, 5)

	for seed := uint64(1); seed <= 20; seed++ {
		shuffled := append([]entities.RawObservation(nil), obs...)
		rand.New(rand.NewPCG(seed, seed*7)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		d := newDeduplicator(t)
		addAll(t, d, shuffled...)
		assert.Equal(t, want, membership(d.Result(), types.EntityTypeBand), "seed %d", seed)
	}
}

func TestRunIsDeterministicAcrossWorkers(t *testing.T) {
	var obs []entities.RawObservation
	for i := 0; i < 30; i++ {
		unit := fmt.Sprintf("chunk-%02d", i)
		obs = append(obs,
			band(unit, "name", fmt.Sprintf("Band %d", i%7), "formed_year", 1970+i%3),
			observation(types.EntityTypePerson, unit, "name", fmt.Sprintf("Person %d", i%5), "instruments", []string{"guitar", fmt.Sprintf("inst-%d", i%4)}),
			observation(types.EntityTypeAlbum, unit, "title", fmt.Sprintf("Album %d", i%9), "band_name", fmt.Sprintf("Band %d", i%7)),
		)
	}

	run := func(workers int) *dedup.Result {
		d := newDeduplicator(t)
		res, err := d.Run(context.Background(), obs, workers)
		require.NoError(t, err)
		return res
	}

	serial, parallel := run(1), run(8)
	assert.Equal(t, serial.Types(), parallel.Types())
	for _, et := range serial.Types() {
		assert.Equal(t, serial.Entities(et), parallel.Entities(et), "type %s", et)
		assert.Equal(t, serial.Stats(et), parallel.Stats(et), "type %s", et)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newDeduplicator(t)
	_, err := d.Run(ctx, []entities.RawObservation{band("a", "name", "Slayer")}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunSkipsUnknownTypes(t *testing.T) {
	d := newDeduplicator(t)
	res, err := d.Run(context.Background(), []entities.RawObservation{
		observation("Planet", "a", "name", "Mars"),
		band("b", "name", "Slayer"),
		band("c", "formed_year", 1981),
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total())
	assert.Len(t, res.Skipped, 2)
	assert.Equal(t, []types.EntityType{types.EntityTypeBand, "Planet"}, res.Types())
}

func TestNewValidation(t *testing.T) {
	_, err := dedup.New(nil, schema.Default())
	assert.True(t, errors.IsValidationError(err))
	_, err = dedup.New(fuzzy.Default(), nil)
	assert.True(t, errors.IsValidationError(err))
	_, err = dedup.New(fuzzy.Default(), schema.Default(), dedup.WithProvenance(nil))
	assert.True(t, errors.IsValidationError(err))
}
