package models

// PlaybackEvent is one row of the play activity export. Ephemeral: it exists
// only between the reader and the aggregation pass.
type PlaybackEvent struct {
	AlbumKey        string // first non-empty album-identifying column, pre-normalization
	Track           string
	PlayDurationMS  float64
	MediaDurationMS float64
	DeviceType      string
	DeviceOS        string
	DeviceName      string
	Timestamp       string // ISO-8601, compared lexicographically
}

// StravaMetrics holds the activity fields flattened onto an album record.
// The struct is embedded as a pointer so an unmatched album carries none of
// these keys on the wire, which is distinct from a matched activity with
// zero values.
type StravaMetrics struct {
	ActivityID          int64    `json:"strava_activity_id"`
	ActivityName        string   `json:"strava_activity_name"`
	ActivityType        string   `json:"strava_activity_type"`
	StartDate           string   `json:"strava_start_date"`
	DistanceMiles       float64  `json:"strava_distance_miles"`
	DistanceMeters      float64  `json:"strava_distance_meters"`
	MovingTimeSeconds   int      `json:"strava_moving_time_seconds"`
	ElapsedTimeSeconds  int      `json:"strava_elapsed_time_seconds"`
	PacePerMile         string   `json:"strava_pace_per_mile"`
	ElevationGainMeters float64  `json:"strava_elevation_gain_meters"`
	AverageSpeedMPS     float64  `json:"strava_average_speed_mps"`
	MaxSpeedMPS         float64  `json:"strava_max_speed_mps"`
	AverageHeartrate    *float64 `json:"strava_average_heartrate,omitempty"`
	MaxHeartrate        *float64 `json:"strava_max_heartrate,omitempty"`
	AverageCadence      *float64 `json:"strava_average_cadence,omitempty"`
	SufferScore         *float64 `json:"strava_suffer_score,omitempty"`
}

// AlbumRecord is the canonical persisted unit, one per normalized album name.
// Starred is user-controlled and must survive every re-run and merge.
type AlbumRecord struct {
	AlbumName            string  `json:"album_name"`
	ArtistName           string  `json:"artist_name,omitempty"`
	Genre                string  `json:"genre,omitempty"`
	TotalTracks          int     `json:"total_tracks"`
	ListenedTracks       int     `json:"listened_tracks"`
	CompletionPercentage float64 `json:"completion_percentage"`
	PlayCount            int     `json:"play_count"`
	FirstListen          string  `json:"first_listen,omitempty"`
	LastListen           string  `json:"last_listen,omitempty"`
	OnWatch              bool    `json:"on_watch"`
	Starred              bool    `json:"starred"`

	*StravaMetrics
}

// HasStrava reports whether a matched activity is attached.
func (r *AlbumRecord) HasStrava() bool {
	return r.StravaMetrics != nil
}

// ReportConfig records the thresholds a report was generated with.
type ReportConfig struct {
	ListenThreshold     float64 `json:"listen_threshold"`
	CompletionThreshold float64 `json:"completion_threshold"`
}

type Statistics struct {
	TotalAlbums         int      `json:"total_albums"`
	CompletedAlbums     int      `json:"completed_albums"`
	WatchAlbums         int      `json:"watch_albums"`
	AlbumsWithArtist    int      `json:"albums_with_artist_info"`
	AlbumsWithoutArtist int      `json:"albums_without_artist_info"`
	AlbumsWithGenre     int      `json:"albums_with_genre_data"`
	AlbumsWithoutGenre  int      `json:"albums_without_genre_data"`
	AlbumsWithStrava    int      `json:"albums_with_strava_data"`
	AlbumsWithoutStrava int      `json:"albums_without_strava_data"`
	DeviceTypesFound    []string `json:"device_types_found,omitempty"`
	DeviceOSNamesFound  []string `json:"device_os_names_found,omitempty"`
}

// Report is the persisted output document. It is also the sole input for the
// previously-persisted side of a merge, so every optional field the merger
// recovers (starred, strava_* metrics, artist, genre) round-trips through it.
type Report struct {
	GeneratedAt     string        `json:"generated_at"`
	RunID           string        `json:"run_id"`
	Config          ReportConfig  `json:"config"`
	Statistics      Statistics    `json:"statistics"`
	Albums          []AlbumRecord `json:"albums"`
	CompletedAlbums []AlbumRecord `json:"completed_albums"`
}
