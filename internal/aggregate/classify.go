package aggregate

// Listened reports whether a single playback counts as a listen: the played
// fraction of the media duration meets the threshold. A zero or missing media
// duration is never listened; malformed durations arrive here as zero, so bad
// rows resolve to "not listened" instead of an error.
func Listened(playMS, mediaMS, threshold float64) bool {
	if mediaMS <= 0 {
		return false
	}
	return playMS/mediaMS >= threshold
}

// CompletionRatio returns the fraction of an album's distinct tracks that
// were listened. ok is false when the album has no tracks, in which case the
// ratio is undefined and the album is excluded from completed output.
func CompletionRatio(a *Aggregate) (ratio float64, ok bool) {
	if len(a.AllTracks) == 0 {
		return 0, false
	}
	return float64(len(a.ListenedTracks)) / float64(len(a.AllTracks)), true
}

// Completed reports whether the album meets the completion threshold
// (inclusive).
func (a *Aggregate) Completed(threshold float64) bool {
	ratio, ok := CompletionRatio(a)
	return ok && ratio >= threshold
}
