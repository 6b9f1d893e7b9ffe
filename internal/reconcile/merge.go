package reconcile

import (
	"sort"

	"albumrun/internal/aggregate"
	"albumrun/internal/models"
)

// MergeRecords folds a group of records sharing one album key into a single
// canonical record. The record with the highest play count is the base (ties
// keep input order); the rest fold into it:
//
//   - starred: OR across the group
//   - first/last listen: min/max (lexicographic ISO-8601)
//   - on-watch: OR
//   - cross-source fields (artist, genre, strava metrics): filled into the
//     base when missing, never overwritten
//
// Play counts are never summed: re-merging the same export twice must not
// inflate them, which also makes the merge idempotent.
func MergeRecords(group []models.AlbumRecord) models.AlbumRecord {
	if len(group) == 0 {
		return models.AlbumRecord{}
	}

	sorted := make([]models.AlbumRecord, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PlayCount > sorted[j].PlayCount
	})

	merged := sorted[0]
	if merged.StravaMetrics != nil {
		cp := *merged.StravaMetrics
		merged.StravaMetrics = &cp
	}

	for _, rec := range sorted[1:] {
		if rec.Starred {
			merged.Starred = true
		}
		if rec.OnWatch {
			merged.OnWatch = true
		}
		if rec.FirstListen != "" && (merged.FirstListen == "" || rec.FirstListen < merged.FirstListen) {
			merged.FirstListen = rec.FirstListen
		}
		if rec.LastListen != "" && (merged.LastListen == "" || rec.LastListen > merged.LastListen) {
			merged.LastListen = rec.LastListen
		}
		if merged.ArtistName == "" {
			merged.ArtistName = rec.ArtistName
		}
		if merged.Genre == "" {
			merged.Genre = rec.Genre
		}
		if merged.StravaMetrics == nil && rec.StravaMetrics != nil {
			cp := *rec.StravaMetrics
			merged.StravaMetrics = &cp
		}
	}

	return merged
}

// Dedupe collapses records sharing a normalized album name into one canonical
// record each, then orders the result by play count descending. Group order
// follows first appearance in the input, so the operation is deterministic
// and a fixed point: Dedupe(Dedupe(s)) == Dedupe(s).
func Dedupe(records []models.AlbumRecord) []models.AlbumRecord {
	groups := make(map[string][]models.AlbumRecord)
	var order []string

	for _, rec := range records {
		key := aggregate.NormalizeAlbum(rec.AlbumName)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	out := make([]models.AlbumRecord, 0, len(order))
	for _, key := range order {
		merged := MergeRecords(groups[key])
		merged.AlbumName = key
		out = append(out, merged)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PlayCount > out[j].PlayCount
	})
	return out
}

// MergeWithPrior reconciles a fresh aggregation run with previously persisted
// records. Fresh records win body fields on equal play counts; prior starred
// flags and any cross-source metrics the fresh run failed to find survive.
// Albums present only in the prior set are retained.
func MergeWithPrior(fresh, prior []models.AlbumRecord) []models.AlbumRecord {
	combined := make([]models.AlbumRecord, 0, len(fresh)+len(prior))
	combined = append(combined, fresh...)
	combined = append(combined, prior...)
	return Dedupe(combined)
}

// FoldSpeculative folds a batch of speculative matches into the canonical
// set. A speculative record colliding with an existing key loses every body
// field but donates cross-source metrics the canonical record was missing;
// genuinely new keys are appended. Returns the new set with counts of added
// and enriched records.
func FoldSpeculative(canon, batch []models.AlbumRecord) (out []models.AlbumRecord, added, enriched int) {
	index := make(map[string]int, len(canon))
	out = make([]models.AlbumRecord, len(canon))
	copy(out, canon)
	for i, rec := range out {
		index[aggregate.NormalizeAlbum(rec.AlbumName)] = i
	}

	for _, spec := range batch {
		key := aggregate.NormalizeAlbum(spec.AlbumName)
		i, exists := index[key]
		if !exists {
			spec.AlbumName = key
			out = append(out, spec)
			index[key] = len(out) - 1
			added++
			continue
		}

		existing := &out[i]
		changed := false
		if existing.ArtistName == "" && spec.ArtistName != "" {
			existing.ArtistName = spec.ArtistName
			changed = true
		}
		if existing.Genre == "" && spec.Genre != "" {
			existing.Genre = spec.Genre
			changed = true
		}
		if existing.StravaMetrics == nil && spec.StravaMetrics != nil {
			cp := *spec.StravaMetrics
			existing.StravaMetrics = &cp
			changed = true
		}
		if changed {
			enriched++
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PlayCount > out[j].PlayCount
	})
	return out, added, enriched
}
