package atlas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nashua(source int) *Location {
	return &Location{
		City: "Nashua", State: "NH", Country: "USA",
		Latitude: 42.7654, Longitude: -71.4676,
		Zone: "America/New_York", Rank: 3, PlaceType: "P.PPL",
		Source: source,
	}
}

func mapOf(locs ...*Location) *LocationMap {
	lm := NewLocationMap()
	for _, loc := range locs {
		lm.Add(loc)
	}
	return lm
}

func TestMergeAndDedup_SameGeonameIDKeepsOlderSource(t *testing.T) {
	local := nashua(0)
	local.GeonameID = 5088905
	local.ItemNo = 42

	remote := nashua(SourceGeonamesPostal)
	remote.GeonameID = 5088905
	remote.Rank = ZipRank
	remote.Zip = "03060"
	remote.Elevation = 41

	res := MergeAndDedup(75, mapOf(local), mapOf(remote))
	require.Len(t, res.Matches, 1)

	survivor := res.Matches[0]
	assert.Equal(t, int64(42), survivor.ItemNo, "the local row should survive")
	assert.Equal(t, ZipRank, survivor.Rank, "rank promoted to the higher of the pair")
	assert.Equal(t, "03060", survivor.Zip)
	assert.Equal(t, SourceGeonamesPostal, survivor.Source, "survivor carries the newer source")
	assert.True(t, survivor.UseAsUpdate, "differing rows flag a writeback")
}

func TestMergeAndDedup_SameGeonameIDCloseMatchNoUpdate(t *testing.T) {
	local := nashua(0)
	local.GeonameID = 5088905
	remote := nashua(SourceGeonamesGeneral)
	remote.GeonameID = 5088905

	res := MergeAndDedup(75, mapOf(local), mapOf(remote))
	require.Len(t, res.Matches, 1)
	assert.False(t, res.Matches[0].UseAsUpdate)
}

func TestMergeAndDedup_PeakBeatsMountain(t *testing.T) {
	mt := &Location{City: "Mount Washington", State: "NH", Country: "USA",
		Latitude: 44.2706, Longitude: -71.3033, PlaceType: "T.MT", Rank: 2}
	pk := &Location{City: "Mount Washington", State: "NH", Country: "USA",
		Latitude: 44.2705, Longitude: -71.3032, PlaceType: "T.PK", Rank: 2,
		Source: SourceGeonamesGeneral}

	res := MergeAndDedup(75, mapOf(mt), mapOf(pk))
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "T.PK", res.Matches[0].PlaceType)
}

func TestMergeAndDedup_DifferentPlaceTypesKeepBoth(t *testing.T) {
	ppl := nashua(0)
	park := nashua(0)
	park.PlaceType = "L.PRK"
	park.Latitude += 1 // well apart

	res := MergeAndDedup(75, mapOf(ppl), mapOf(park))
	assert.Len(t, res.Matches, 2)
}

func TestMergeAndDedup_AdminFusesWithPopulatedPlace(t *testing.T) {
	adm := nashua(0)
	adm.PlaceType = "A.ADM2"
	adm.Rank = 2
	ppl := nashua(SourceGeonamesGeneral)
	ppl.Rank = 3

	res := MergeAndDedup(75, mapOf(adm), mapOf(ppl))
	require.Len(t, res.Matches, 1)
	// Local beats remote; rank promoted.
	assert.Equal(t, 3, res.Matches[0].Rank)
	assert.Less(t, res.Matches[0].Source, MinExternalSource)
}

func TestMergeAndDedup_GenericPPLUpgrades(t *testing.T) {
	a := nashua(0)
	a.PlaceType = "P.PPL"
	b := nashua(SourceGeonamesGeneral)
	b.PlaceType = "P.PPLA2"

	res := MergeAndDedup(75, mapOf(a), mapOf(b))
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "P.PPLA2", res.Matches[0].PlaceType)
}

func TestMergeAndDedup_ZoneAmbiguityResolved(t *testing.T) {
	sure := nashua(0)
	unsure := nashua(SourceGetty)
	unsure.Zone = "America/New_York?"
	unsure.PlaceType = "L.PRK" // different type so both survive

	res := MergeAndDedup(75, mapOf(sure), mapOf(unsure))
	require.Len(t, res.Matches, 2)
	for _, m := range res.Matches {
		assert.Equal(t, "America/New_York", m.Zone)
	}
}

func paris(state string) *Location {
	return &Location{
		City: "Paris", State: state, Country: "FRA", LongCountry: "France",
		Latitude: 48.8566, Longitude: 2.3522,
		Zone: "Europe/Paris", Rank: 4, PlaceType: "P.PPL",
	}
}

func TestMergeAndDedup_StateConflictNearbyWarns(t *testing.T) {
	// Outside USA/CAN the bucket key uses the country, so rows that
	// disagree on first-level admin still collide.
	a := paris("11")
	b := paris("A8")
	b.Source = SourceGetty

	res := MergeAndDedup(75, mapOf(a), mapOf(b))
	assert.NotEmpty(t, res.Conflicts)
	require.Len(t, res.Matches, 2)
	for _, m := range res.Matches {
		assert.True(t, m.ShowState)
	}
}

func TestMergeAndDedup_OnlyPopulatedStateSurvives(t *testing.T) {
	anon := paris("")
	named := paris("11")
	named.Latitude = 48.99 // apart enough to skip the conflict warning

	res := MergeAndDedup(75, mapOf(anon), mapOf(named))
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "11", res.Matches[0].State)
}

func TestMergeAndDedup_LocalBeatsRemoteKeepsHigherRank(t *testing.T) {
	local := nashua(0)
	local.Rank = 2
	remote := nashua(SourceGetty)
	remote.Rank = 4

	res := MergeAndDedup(75, mapOf(local), mapOf(remote))
	require.Len(t, res.Matches, 1)
	assert.Less(t, res.Matches[0].Source, MinExternalSource)
	assert.Equal(t, 4, res.Matches[0].Rank)
}

func TestMergeAndDedup_ZipBreaksRankTie(t *testing.T) {
	plain := nashua(0)
	withZip := nashua(0)
	withZip.Zip = "03060"

	res := MergeAndDedup(75, mapOf(plain), mapOf(withZip))
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "03060", res.Matches[0].Zip)
}

func TestMergeAndDedup_LimitTruncates(t *testing.T) {
	lm := NewLocationMap()
	for _, city := range []string{"Alpha", "Beta", "Gamma", "Delta"} {
		lm.Add(&Location{City: city, Country: "USA", State: "NH", Rank: 1, PlaceType: "P.PPL"})
	}

	res := MergeAndDedup(3, lm)
	assert.Len(t, res.Matches, 3)
	assert.True(t, res.LimitReached)
}

func TestMergeAndDedup_Idempotent(t *testing.T) {
	local := nashua(0)
	local.GeonameID = 5088905
	remote := nashua(SourceGeonamesGeneral)
	remote.GeonameID = 5088905
	remote.Rank = 4
	far := nashua(0)
	far.State = "MA"
	far.Latitude = 41.70

	first := MergeAndDedup(75, mapOf(local, far), mapOf(remote))

	again := NewLocationMap()
	for _, m := range first.Matches {
		again.Add(m)
	}
	second := MergeAndDedup(75, again)

	require.Equal(t, len(first.Matches), len(second.Matches))
	for i := range first.Matches {
		assert.Equal(t, first.Matches[i].City, second.Matches[i].City)
		assert.Equal(t, first.Matches[i].Rank, second.Matches[i].Rank)
	}
}

func TestBaseKey(t *testing.T) {
	assert.Equal(t, "NASHUA,NH", BaseKey("NASHUA,NH(2)"))
	assert.Equal(t, "NASHUA,NH", BaseKey("NASHUA,NH"))
	assert.Equal(t, "PARIS(TX)", BaseKey("PARIS(TX)"), "non-numeric suffix is not a collision marker")
}

func TestMakeLocationKey_CollisionSuffix(t *testing.T) {
	keyed := map[string]*Location{}
	k1 := MakeLocationKey("Nashua", "NH", "USA", keyed)
	keyed[k1] = &Location{}
	k2 := MakeLocationKey("Nashua", "NH", "USA", keyed)
	assert.Equal(t, "NASHUA,NH", k1)
	assert.Equal(t, "NASHUA,NH(2)", k2)
}
