package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"albumrun/internal/aggregate"
	"albumrun/internal/models"
	"albumrun/internal/parser"
	"albumrun/internal/reconcile"
	"albumrun/internal/report"
	"albumrun/internal/strava"
)

// rangeBuffer widens the activity fetch window past the listen-date span so
// runs straddling the edges still surface.
const rangeBuffer = 7 * 24 * time.Hour

func init() {
	rootCmd.AddCommand(stravaCmd)
	stravaCmd.AddCommand(stravaMatchCmd, stravaDiscoverCmd)

	stravaDiscoverCmd.Flags().String("after", "", "only consider runs after this date (YYYY-MM-DD)")
	stravaDiscoverCmd.Flags().String("before", "", "only consider runs before this date (YYYY-MM-DD)")
	stravaDiscoverCmd.Flags().Int("min-plays", 3, "minimum plays inside a run window to propose an album")
}

var stravaCmd = &cobra.Command{
	Use:   "strava",
	Short: "Reconcile the album report with Strava runs",
}

var stravaMatchCmd = &cobra.Command{
	Use:   "match",
	Short: "Attach the nearest run to each unmatched album",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStravaMatch(cmd)
	},
}

var stravaDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Propose albums for runs the report has not matched yet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStravaDiscover(cmd)
	},
}

func newStravaClient() *strava.Client {
	return strava.NewClient(
		cfg.Strava.ClientID,
		cfg.Strava.ClientSecret,
		cfg.Strava.AccessToken,
		cfg.Strava.RefreshToken,
		logger,
	)
}

// listenDateRange spans the first/last listen timestamps across the album
// set, widened by the fetch buffer.
func listenDateRange(albums []models.AlbumRecord) (after, before time.Time, ok bool) {
	for _, a := range albums {
		for _, ts := range []string{a.FirstListen, a.LastListen} {
			t, parsed := reconcile.ParseTimestamp(ts)
			if !parsed {
				continue
			}
			if after.IsZero() || t.Before(after) {
				after = t
			}
			if before.IsZero() || t.After(before) {
				before = t
			}
		}
	}
	if after.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	return after.Add(-rangeBuffer), before.Add(rangeBuffer), true
}

func fetchRuns(cmd *cobra.Command, client *strava.Client, after, before time.Time) ([]strava.Activity, error) {
	activities, err := client.Activities(cmd.Context(), after, before)
	if err != nil {
		return nil, fmt.Errorf("fetch activities: %w", err)
	}
	runs := strava.FilterRuns(activities)
	logger.Info().
		Int("activities", len(activities)).
		Int("runs", len(runs)).
		Msg("fetched strava activities")

	// a refresh rotates both tokens; surface them for the next run
	access, refresh := client.Tokens()
	if access != cfg.Strava.AccessToken {
		logger.Info().
			Str("access_token", access).
			Str("refresh_token", refresh).
			Msg("tokens rotated, update your environment")
	}
	return runs, nil
}

func runStravaMatch(cmd *cobra.Command) error {
	rep, err := loadReport()
	if err != nil {
		return err
	}

	after, before, ok := listenDateRange(rep.Albums)
	if !ok {
		return errors.New("no usable listen timestamps in report")
	}

	runs, err := fetchRuns(cmd, newStravaClient(), after, before)
	if err != nil {
		return err
	}

	matched := 0
	for i := range rep.Albums {
		a := &rep.Albums[i]
		if a.HasStrava() {
			continue
		}
		m := reconcile.NearestActivity(a.FirstListen, runs, cfg.MatchTolerance())
		if m == nil {
			continue
		}
		a.StravaMetrics = strava.Metrics(m.Activity)
		matched++
		logger.Info().
			Str("album", a.AlbumName).
			Str("run", m.Activity.Name).
			Dur("delta", m.Delta).
			Msg("matched album to run")
	}

	report.Refresh(rep)
	if err := report.Save(cfg.Paths.Report, rep); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	logger.Info().
		Int("matched_now", matched).
		Int("matched_total", rep.Statistics.AlbumsWithStrava).
		Int("unmatched", rep.Statistics.AlbumsWithoutStrava).
		Msg("strava match complete")
	return nil
}

// specAccumulator gathers plays observed inside one run's window.
type specAccumulator struct {
	run    strava.Activity
	tracks map[string]struct{}
	plays  int
	first  string
	last   string
}

func runStravaDiscover(cmd *cobra.Command) error {
	minPlays, _ := cmd.Flags().GetInt("min-plays")

	rep, err := loadReport()
	if err != nil {
		return err
	}

	after, before, err := discoverRange(cmd, rep.Albums)
	if err != nil {
		return err
	}

	runs, err := fetchRuns(cmd, newStravaClient(), after, before)
	if err != nil {
		return err
	}

	// runs already represented in the report are settled
	matchedStarts := make(map[string]struct{})
	for _, a := range rep.Albums {
		if a.HasStrava() {
			matchedStarts[a.StravaMetrics.StartDate] = struct{}{}
		}
	}
	var open []strava.Activity
	for _, r := range runs {
		if _, ok := matchedStarts[r.StartDate]; !ok {
			open = append(open, r)
		}
	}
	logger.Info().Int("open_runs", len(open)).Msg("runs without a matched album")
	if len(open) == 0 {
		return nil
	}

	batch, err := scanPlaysForRuns(open, cfg.DiscoverTolerance(), minPlays)
	if err != nil {
		return err
	}
	logger.Info().Int("candidates", len(batch)).Msg("speculative albums proposed")

	if err := report.Backup(cfg.Paths.Report); err != nil {
		return fmt.Errorf("backup report: %w", err)
	}

	albums, added, enriched := reconcile.FoldSpeculative(rep.Albums, batch)
	rep.Albums = albums
	report.Refresh(rep)
	if err := report.Save(cfg.Paths.Report, rep); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	logger.Info().Int("added", added).Int("enriched", enriched).Msg("speculative fold complete")
	return nil
}

func discoverRange(cmd *cobra.Command, albums []models.AlbumRecord) (time.Time, time.Time, error) {
	afterFlag, _ := cmd.Flags().GetString("after")
	beforeFlag, _ := cmd.Flags().GetString("before")

	if afterFlag == "" && beforeFlag == "" {
		after, before, ok := listenDateRange(albums)
		if !ok {
			return time.Time{}, time.Time{}, errors.New("no usable listen timestamps in report; pass --after/--before")
		}
		return after, before, nil
	}

	var after, before time.Time
	var err error
	if afterFlag != "" {
		if after, err = time.Parse("2006-01-02", afterFlag); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --after: %w", err)
		}
	}
	if beforeFlag != "" {
		if before, err = time.Parse("2006-01-02", beforeFlag); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --before: %w", err)
		}
	}
	return after, before, nil
}

// scanPlaysForRuns makes one streaming pass over the play export and
// accumulates, per open run, the albums heard inside its window (start minus
// tolerance through end plus tolerance).
func scanPlaysForRuns(open []strava.Activity, tolerance time.Duration, minPlays int) ([]models.AlbumRecord, error) {
	f, err := os.Open(cfg.Paths.PlayActivity)
	if err != nil {
		return nil, fmt.Errorf("play activity export: %w", err)
	}
	defer f.Close()

	r, err := parser.NewPlayActivityReader(f)
	if err != nil {
		return nil, fmt.Errorf("play activity export: %w", err)
	}

	type window struct {
		start, end time.Time
		run        strava.Activity
	}
	windows := make([]window, 0, len(open))
	for _, run := range open {
		start, ok := reconcile.ParseTimestamp(run.StartDate)
		if !ok {
			continue
		}
		end := start.Add(time.Duration(run.MovingTime) * time.Second)
		windows = append(windows, window{
			start: start.Add(-tolerance),
			end:   end.Add(tolerance),
			run:   run,
		})
	}

	perRun := make(map[int64]map[string]*specAccumulator) // run id -> album -> plays

	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read play activity: %w", err)
		}

		ts, ok := reconcile.ParseTimestamp(ev.Timestamp)
		if !ok {
			continue
		}
		album := aggregate.NormalizeAlbum(ev.AlbumKey)
		if album == "" || ev.Track == "" {
			continue
		}

		for _, w := range windows {
			if ts.Before(w.start) || ts.After(w.end) {
				continue
			}
			byAlbum := perRun[w.run.ID]
			if byAlbum == nil {
				byAlbum = make(map[string]*specAccumulator)
				perRun[w.run.ID] = byAlbum
			}
			acc := byAlbum[album]
			if acc == nil {
				acc = &specAccumulator{run: w.run, tracks: make(map[string]struct{})}
				byAlbum[album] = acc
			}
			acc.tracks[ev.Track] = struct{}{}
			acc.plays++
			if acc.first == "" || ev.Timestamp < acc.first {
				acc.first = ev.Timestamp
			}
			if ev.Timestamp > acc.last {
				acc.last = ev.Timestamp
			}
		}
	}

	cat := loadCatalog()
	var batch []models.AlbumRecord
	for _, run := range open {
		byAlbum := perRun[run.ID]
		// album order inside a run is made explicit so repeated discovery
		// passes emit identical batches
		names := make([]string, 0, len(byAlbum))
		for album := range byAlbum {
			names = append(names, album)
		}
		sort.Strings(names)
		for _, album := range names {
			acc := byAlbum[album]
			if acc.plays < minPlays {
				continue
			}
			rec := models.AlbumRecord{
				AlbumName:            album,
				TotalTracks:          len(acc.tracks),
				ListenedTracks:       len(acc.tracks),
				CompletionPercentage: 100,
				PlayCount:            acc.plays,
				FirstListen:          acc.first,
				LastListen:           acc.last,
				StravaMetrics:        strava.Metrics(acc.run),
			}
			if cat != nil {
				rec.ArtistName = cat.Artists[album]
				rec.Genre = cat.Genres[album]
			}
			batch = append(batch, rec)
		}
	}
	return batch, nil
}
