package parser

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"albumrun/internal/models"
)

var ErrNoColumns = errors.New("export has no recognizable columns")

// canonical header mapping for the play activity export
var playHeaderAliases = map[string]string{
	"album name":           "album",
	"container album name": "container_album",
	"container name":       "container",

	"song name":  "track",
	"track name": "track",

	"play duration milliseconds":     "play_ms",
	"media duration in milliseconds": "media_ms",

	"device type":        "device_type",
	"device os name":     "device_os",
	"client device name": "device_name",

	"event end timestamp":   "ts_end",
	"event start timestamp": "ts_start",
}

// albumKeyOrder is the candidate column order for the entity key; the first
// non-empty value wins.
var albumKeyOrder = []string{"album", "container_album", "container"}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PlayActivityReader streams the play activity export one row at a time. It
// holds no state beyond the current row, so arbitrarily large exports read in
// constant memory.
type PlayActivityReader struct {
	r    *csv.Reader
	cols map[string]int // canonical name -> column index
}

// NewPlayActivityReader consumes the header row and builds the column map.
// It fails only if no recognizable column is present.
func NewPlayActivityReader(r io.Reader) (*PlayActivityReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rawHeaders, err := cr.Read()
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int)
	for i, h := range rawHeaders {
		if canonical, ok := playHeaderAliases[normalizeHeader(h)]; ok {
			if _, seen := cols[canonical]; !seen {
				cols[canonical] = i
			}
		}
	}
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}

	return &PlayActivityReader{r: cr, cols: cols}, nil
}

// Next returns the next playback event, or io.EOF when the export is
// exhausted. Malformed durations coerce to zero so the classifier resolves
// them to "not listened" instead of an error.
func (p *PlayActivityReader) Next() (models.PlaybackEvent, error) {
	record, err := p.r.Read()
	if err != nil {
		return models.PlaybackEvent{}, err
	}

	var ev models.PlaybackEvent

	for _, cand := range albumKeyOrder {
		if v := p.field(record, cand); v != "" {
			ev.AlbumKey = v
			break
		}
	}

	ev.Track = p.field(record, "track")
	ev.PlayDurationMS = parseMillis(p.field(record, "play_ms"))
	ev.MediaDurationMS = parseMillis(p.field(record, "media_ms"))
	ev.DeviceType = p.field(record, "device_type")
	ev.DeviceOS = p.field(record, "device_os")
	ev.DeviceName = p.field(record, "device_name")

	// end timestamp preferred over start when both are present
	ev.Timestamp = p.field(record, "ts_end")
	if ev.Timestamp == "" {
		ev.Timestamp = p.field(record, "ts_start")
	}

	return ev, nil
}

func (p *PlayActivityReader) field(record []string, canonical string) string {
	i, ok := p.cols[canonical]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseMillis(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
