// Package report assembles, persists and reloads the reconciled album
// document. The on-disk JSON is a read/write round-trip contract: it is the
// sole input for the previously-persisted side of a merge, so every field the
// merger may need to recover is serialized exactly as written.
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"albumrun/internal/aggregate"
	"albumrun/internal/models"
	"albumrun/internal/parser"
)

// BuildAlbums converts finalized aggregates into album records, backfilling
// artist and genre from the catalog by normalized key lookup. Records start
// unstarred; the merge with prior state restores user flags.
func BuildAlbums(aggs []*aggregate.Aggregate, cat *parser.Catalog) []models.AlbumRecord {
	albums := make([]models.AlbumRecord, 0, len(aggs))
	for _, agg := range aggs {
		ratio, ok := aggregate.CompletionRatio(agg)
		if !ok {
			continue
		}

		rec := models.AlbumRecord{
			AlbumName:            agg.Key,
			TotalTracks:          len(agg.AllTracks),
			ListenedTracks:       len(agg.ListenedTracks),
			CompletionPercentage: roundPct(ratio),
			PlayCount:            agg.PlayCount,
			FirstListen:          agg.FirstListen,
			LastListen:           agg.LastListen,
			OnWatch:              agg.OnWatch,
		}
		if cat != nil {
			rec.ArtistName = cat.Artists[agg.Key]
			rec.Genre = cat.Genres[agg.Key]
		}
		albums = append(albums, rec)
	}
	return albums
}

// roundPct converts a ratio to a percentage rounded to one decimal place.
func roundPct(ratio float64) float64 {
	return math.Round(ratio*1000) / 10
}

// Assemble builds the persisted document around an album collection: play
// count ordering, the completed subset, summary statistics, a fresh run ID
// and generation timestamp.
func Assemble(albums []models.AlbumRecord, th aggregate.Thresholds, deviceTypes, deviceOS []string) models.Report {
	sort.SliceStable(albums, func(i, j int) bool {
		return albums[i].PlayCount > albums[j].PlayCount
	})

	rep := models.Report{
		GeneratedAt: time.Now().Format(time.RFC3339),
		RunID:       uuid.NewString(),
		Config: models.ReportConfig{
			ListenThreshold:     th.Listen,
			CompletionThreshold: th.Completion,
		},
		Albums: albums,
	}
	rep.Statistics.DeviceTypesFound = deviceTypes
	rep.Statistics.DeviceOSNamesFound = deviceOS
	Refresh(&rep)
	return rep
}

// Refresh recomputes statistics, the completed subset and the generation
// timestamp after any mutation of the album collection. Device vocabularies
// are left as recorded by the aggregation pass.
func Refresh(rep *models.Report) {
	stats := &rep.Statistics
	stats.TotalAlbums = len(rep.Albums)
	stats.WatchAlbums = 0
	stats.AlbumsWithArtist = 0
	stats.AlbumsWithGenre = 0
	stats.AlbumsWithStrava = 0

	completedPct := rep.Config.CompletionThreshold * 100
	completed := rep.Albums[:0:0]

	for _, a := range rep.Albums {
		if a.OnWatch {
			stats.WatchAlbums++
		}
		if a.ArtistName != "" {
			stats.AlbumsWithArtist++
		}
		if a.Genre != "" {
			stats.AlbumsWithGenre++
		}
		if a.HasStrava() {
			stats.AlbumsWithStrava++
		}
		if a.CompletionPercentage >= completedPct {
			completed = append(completed, a)
		}
	}

	stats.CompletedAlbums = len(completed)
	stats.AlbumsWithoutArtist = stats.TotalAlbums - stats.AlbumsWithArtist
	stats.AlbumsWithoutGenre = stats.TotalAlbums - stats.AlbumsWithGenre
	stats.AlbumsWithoutStrava = stats.TotalAlbums - stats.AlbumsWithStrava

	rep.CompletedAlbums = completed
	rep.GeneratedAt = time.Now().Format(time.RFC3339)
}

// Load reads a persisted report. A missing file surfaces as os.ErrNotExist
// so callers can degrade to an empty prior state.
func Load(path string) (*models.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rep models.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &rep, nil
}

// Save writes the report, creating parent directories as needed.
func Save(path string, rep *models.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Backup copies the current report next to itself before a destructive
// rewrite. Missing source is fine: nothing to back up yet.
func Backup(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.WriteFile(path+".backup", data, 0o644)
}
