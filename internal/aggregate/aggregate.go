package aggregate

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"albumrun/internal/models"
)

const singleSuffix = " - Single"

// NormalizeAlbum derives the entity key every component shares: trimmed, with
// the trailing " - Single" suffix stripped. All key derivation and comparison
// must go through this function or duplicate entities appear.
func NormalizeAlbum(name string) string {
	name = strings.TrimSpace(name)
	return strings.TrimSuffix(name, singleSuffix)
}

// wearableTokens identify Apple Watch playback. A case-insensitive substring
// hit on any of the three device fields sets the flag.
var wearableTokens = []string{"WATCH", "WATCHOS"}

// IsWearable reports whether the device fields describe a wearable.
func IsWearable(deviceType, deviceOS, deviceName string) bool {
	fields := []string{
		strings.ToUpper(deviceType),
		strings.ToUpper(deviceOS),
		strings.ToUpper(deviceName),
	}
	for _, tok := range wearableTokens {
		for _, f := range fields {
			if strings.Contains(f, tok) {
				return true
			}
		}
	}
	return false
}

// Aggregate accumulates everything known about one album across the event
// stream. Created on the first event for a key, mutated by every matching
// event, frozen by Finalize.
type Aggregate struct {
	Key            string
	AllTracks      map[string]struct{}
	ListenedTracks map[string]struct{}
	PlayCount      int
	FirstListen    string
	LastListen     string
	OnWatch        bool
}

// Context owns all mutable aggregation state for one pass over the event
// stream. It is not safe for concurrent use; the stream is processed strictly
// sequentially.
type Context struct {
	thresholds Thresholds
	albums     map[string]*Aggregate
	order      []string // first-seen key order, kept for deterministic output

	rows    int
	skipped int

	deviceTypes map[string]struct{}
	deviceOS    map[string]struct{}

	finalized bool
	log       zerolog.Logger
}

// Thresholds configures the listen/completion classifier.
type Thresholds struct {
	Listen     float64 // fraction of media duration that counts as listened
	Completion float64 // fraction of distinct tracks that counts as completed
}

// DefaultThresholds matches the original analyzer configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{Listen: 0.50, Completion: 0.70}
}

func NewContext(t Thresholds, log zerolog.Logger) *Context {
	return &Context{
		thresholds:  t,
		albums:      make(map[string]*Aggregate),
		deviceTypes: make(map[string]struct{}),
		deviceOS:    make(map[string]struct{}),
		log:         log,
	}
}

// Apply folds one playback event into the pass. Rows with an empty album key
// or track name are counted and skipped, never fatal.
func (c *Context) Apply(ev models.PlaybackEvent) {
	if c.finalized {
		return
	}

	c.rows++
	if c.rows%10000 == 0 {
		c.log.Debug().Int("rows", c.rows).Msg("processing play activity")
	}

	if t := strings.ToUpper(strings.TrimSpace(ev.DeviceType)); t != "" {
		c.deviceTypes[t] = struct{}{}
	}
	if o := strings.ToUpper(strings.TrimSpace(ev.DeviceOS)); o != "" {
		c.deviceOS[o] = struct{}{}
	}

	key := NormalizeAlbum(ev.AlbumKey)
	track := strings.TrimSpace(ev.Track)
	if key == "" || track == "" {
		c.skipped++
		return
	}

	agg, ok := c.albums[key]
	if !ok {
		agg = &Aggregate{
			Key:            key,
			AllTracks:      make(map[string]struct{}),
			ListenedTracks: make(map[string]struct{}),
		}
		c.albums[key] = agg
		c.order = append(c.order, key)
	}

	agg.AllTracks[track] = struct{}{}
	if Listened(ev.PlayDurationMS, ev.MediaDurationMS, c.thresholds.Listen) {
		agg.ListenedTracks[track] = struct{}{}
	}
	agg.PlayCount++

	// ISO-8601 sorts lexicographically by time; plain string comparison
	// preserves the original tie behavior, so no parse-then-compare here.
	if ts := strings.TrimSpace(ev.Timestamp); ts != "" {
		if agg.FirstListen == "" || ts < agg.FirstListen {
			agg.FirstListen = ts
		}
		if agg.LastListen == "" || ts > agg.LastListen {
			agg.LastListen = ts
		}
	}

	if IsWearable(ev.DeviceType, ev.DeviceOS, ev.DeviceName) {
		agg.OnWatch = true
	}
}

// Finalize freezes the pass and returns aggregates in first-seen order.
func (c *Context) Finalize() []*Aggregate {
	c.finalized = true
	out := make([]*Aggregate, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.albums[key])
	}
	c.log.Info().
		Int("rows", c.rows).
		Int("skipped", c.skipped).
		Int("albums", len(out)).
		Msg("aggregation pass complete")
	return out
}

func (c *Context) Rows() int    { return c.rows }
func (c *Context) Skipped() int { return c.skipped }

// DeviceTypesSeen returns the distinct device type strings observed, sorted.
func (c *Context) DeviceTypesSeen() []string { return sortedKeys(c.deviceTypes) }

// DeviceOSNamesSeen returns the distinct device OS names observed, sorted.
func (c *Context) DeviceOSNamesSeen() []string { return sortedKeys(c.deviceOS) }

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
