package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"albumrun/internal/models"
)

func TestMergePrecedence(t *testing.T) {
	a := models.AlbumRecord{AlbumName: "X", PlayCount: 5, Starred: false}
	b := models.AlbumRecord{AlbumName: "X", PlayCount: 12, Starred: true, Genre: "Pop"}

	merged := MergeRecords([]models.AlbumRecord{a, b})
	assert.Equal(t, 12, merged.PlayCount)
	assert.True(t, merged.Starred)
	assert.Equal(t, "Pop", merged.Genre)
}

func TestMergeStarredMonotonicAcrossOrders(t *testing.T) {
	starred := models.AlbumRecord{AlbumName: "X", PlayCount: 1, Starred: true}
	plain := models.AlbumRecord{AlbumName: "X", PlayCount: 99}
	other := models.AlbumRecord{AlbumName: "X", PlayCount: 50}

	orders := [][]models.AlbumRecord{
		{starred, plain, other},
		{plain, starred, other},
		{other, plain, starred},
	}
	for _, group := range orders {
		assert.True(t, MergeRecords(group).Starred)
	}
}

func TestMergeFirstLastListenSpan(t *testing.T) {
	a := models.AlbumRecord{
		AlbumName: "X", PlayCount: 3,
		FirstListen: "2025-02-01T00:00:00Z", LastListen: "2025-02-05T00:00:00Z",
	}
	b := models.AlbumRecord{
		AlbumName: "X", PlayCount: 9,
		FirstListen: "2025-01-10T00:00:00Z", LastListen: "2025-01-20T00:00:00Z",
	}

	merged := MergeRecords([]models.AlbumRecord{a, b})
	assert.Equal(t, "2025-01-10T00:00:00Z", merged.FirstListen)
	assert.Equal(t, "2025-02-05T00:00:00Z", merged.LastListen)
}

func TestMergeNeverOverwritesPresentFields(t *testing.T) {
	base := models.AlbumRecord{
		AlbumName: "X", PlayCount: 10, ArtistName: "Ashnikko",
		StravaMetrics: &models.StravaMetrics{ActivityID: 1},
	}
	other := models.AlbumRecord{
		AlbumName: "X", PlayCount: 2, ArtistName: "Wrong",
		StravaMetrics: &models.StravaMetrics{ActivityID: 2},
	}

	merged := MergeRecords([]models.AlbumRecord{base, other})
	assert.Equal(t, "Ashnikko", merged.ArtistName)
	require.NotNil(t, merged.StravaMetrics)
	assert.Equal(t, int64(1), merged.StravaMetrics.ActivityID)
}

func TestMergeDoesNotAliasStravaMetrics(t *testing.T) {
	src := &models.StravaMetrics{ActivityID: 7}
	group := []models.AlbumRecord{
		{AlbumName: "X", PlayCount: 5},
		{AlbumName: "X", PlayCount: 1, StravaMetrics: src},
	}
	merged := MergeRecords(group)
	require.NotNil(t, merged.StravaMetrics)
	merged.StravaMetrics.ActivityID = 99
	assert.Equal(t, int64(7), src.ActivityID)
}

func TestDedupeIdempotent(t *testing.T) {
	records := []models.AlbumRecord{
		{AlbumName: "Weedkiller", PlayCount: 40, Starred: true},
		{AlbumName: "Weedkiller - Single", PlayCount: 3, Genre: "Pop"},
		{AlbumName: "Demidevil", PlayCount: 25},
		{AlbumName: "Weedkiller", PlayCount: 7, StravaMetrics: &models.StravaMetrics{ActivityID: 5}},
	}

	once := Dedupe(records)
	twice := Dedupe(once)
	assert.Equal(t, once, twice)

	require.Len(t, once, 2)
	wk := once[0]
	assert.Equal(t, "Weedkiller", wk.AlbumName)
	assert.Equal(t, 40, wk.PlayCount, "max play count kept, never summed")
	assert.True(t, wk.Starred)
	assert.Equal(t, "Pop", wk.Genre)
	require.NotNil(t, wk.StravaMetrics)
	assert.Equal(t, int64(5), wk.StravaMetrics.ActivityID)
}

func TestMergeWithPriorPreservesStarredAndStrava(t *testing.T) {
	fresh := []models.AlbumRecord{
		{AlbumName: "Weedkiller", PlayCount: 44},
		{AlbumName: "Demidevil", PlayCount: 20},
	}
	prior := []models.AlbumRecord{
		{AlbumName: "Weedkiller", PlayCount: 40, Starred: true,
			StravaMetrics: &models.StravaMetrics{ActivityID: 5}},
		{AlbumName: "Gone Album", PlayCount: 2, Starred: true},
	}

	out := MergeWithPrior(fresh, prior)
	require.Len(t, out, 3)

	byName := map[string]models.AlbumRecord{}
	for _, r := range out {
		byName[r.AlbumName] = r
	}

	wk := byName["Weedkiller"]
	assert.Equal(t, 44, wk.PlayCount)
	assert.True(t, wk.Starred)
	require.NotNil(t, wk.StravaMetrics)

	// records only in the prior set survive the merge
	assert.True(t, byName["Gone Album"].Starred)
}

func TestMergeWithPriorFreshWinsOnEqualPlayCount(t *testing.T) {
	fresh := []models.AlbumRecord{{AlbumName: "X", PlayCount: 10, ArtistName: "Fresh"}}
	prior := []models.AlbumRecord{{AlbumName: "X", PlayCount: 10, ArtistName: "Stale"}}

	out := MergeWithPrior(fresh, prior)
	require.Len(t, out, 1)
	assert.Equal(t, "Fresh", out[0].ArtistName)
}

func TestFoldSpeculative(t *testing.T) {
	canon := []models.AlbumRecord{
		{AlbumName: "Weedkiller", PlayCount: 44, Starred: true},
	}
	batch := []models.AlbumRecord{
		// collides: loses body fields, donates missing strava metrics
		{AlbumName: "Weedkiller", PlayCount: 3, Starred: false,
			StravaMetrics: &models.StravaMetrics{ActivityID: 9}},
		// new key: appended
		{AlbumName: "Hi, It's Me", PlayCount: 12, ArtistName: "Ashnikko"},
	}

	out, added, enriched := FoldSpeculative(canon, batch)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, enriched)
	require.Len(t, out, 2)

	byName := map[string]models.AlbumRecord{}
	for _, r := range out {
		byName[r.AlbumName] = r
	}

	wk := byName["Weedkiller"]
	assert.Equal(t, 44, wk.PlayCount, "existing record wins body fields")
	assert.True(t, wk.Starred)
	require.NotNil(t, wk.StravaMetrics)
	assert.Equal(t, int64(9), wk.StravaMetrics.ActivityID)

	assert.Equal(t, 12, byName["Hi, It's Me"].PlayCount)
}

func TestFoldSpeculativeIdempotent(t *testing.T) {
	canon := []models.AlbumRecord{{AlbumName: "X", PlayCount: 5}}
	batch := []models.AlbumRecord{
		{AlbumName: "Y", PlayCount: 2, StravaMetrics: &models.StravaMetrics{ActivityID: 1}},
	}

	once, _, _ := FoldSpeculative(canon, batch)
	twice, added, enriched := FoldSpeculative(once, batch)
	assert.Equal(t, 0, added)
	assert.Equal(t, 0, enriched)
	assert.Equal(t, once, twice)
}
