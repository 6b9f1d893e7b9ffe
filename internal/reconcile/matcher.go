package reconcile

import (
	"time"

	"albumrun/internal/strava"
)

// ParseTimestamp parses the ISO-8601 timestamps carried by both exports.
// ok is false for empty or malformed input; callers treat that as "no
// reference", never as an error.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Match pairs a reference timestamp with the activity whose start time was
// nearest to it.
type Match struct {
	Activity strava.Activity
	Delta    time.Duration
}

// NearestActivity finds the activity whose start time is closest to ref,
// within tolerance (inclusive). This is start-time proximity only, not an
// interval overlap test: a long activity matches by how near its start is to
// ref even when ref falls inside its duration.
//
// Ties on exactly-equal deltas keep the first-encountered candidate; input
// order is defined as fetch order (the API's reverse-chronological listing).
// That tie-break is an arbitrary documented choice, not a semantic one.
// Returns nil when no candidate qualifies.
func NearestActivity(ref string, activities []strava.Activity, tolerance time.Duration) *Match {
	refTime, ok := ParseTimestamp(ref)
	if !ok {
		return nil
	}

	var best *Match
	for _, a := range activities {
		start, ok := ParseTimestamp(a.StartDate)
		if !ok {
			continue
		}
		delta := refTime.Sub(start)
		if delta < 0 {
			delta = -delta
		}
		if delta > tolerance {
			continue
		}
		if best == nil || delta < best.Delta {
			best = &Match{Activity: a, Delta: delta}
		}
	}
	return best
}
