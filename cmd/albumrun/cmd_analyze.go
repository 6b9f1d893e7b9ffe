package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"albumrun/internal/aggregate"
	"albumrun/internal/models"
	"albumrun/internal/parser"
	"albumrun/internal/reconcile"
	"albumrun/internal/report"
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Bool("watch-only", false, "keep only albums heard on a wearable, at >=50% completion")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Aggregate the play activity export into the album report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		watchOnly, _ := cmd.Flags().GetBool("watch-only")
		return runAnalyze(watchOnly)
	},
}

func runAnalyze(watchOnly bool) error {
	// the play activity export is the one mandatory input
	f, err := os.Open(cfg.Paths.PlayActivity)
	if err != nil {
		return fmt.Errorf("play activity export: %w", err)
	}
	defer f.Close()

	r, err := parser.NewPlayActivityReader(f)
	if err != nil {
		return fmt.Errorf("play activity export: %w", err)
	}

	ctx := aggregate.NewContext(thresholds(), logger)
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read play activity: %w", err)
		}
		ctx.Apply(ev)
	}
	aggs := ctx.Finalize()

	cat := loadCatalog()
	albums := report.BuildAlbums(aggs, cat)

	if watchOnly {
		kept := albums[:0]
		for _, a := range albums {
			if a.OnWatch && a.CompletionPercentage >= 50 {
				kept = append(kept, a)
			}
		}
		albums = kept
		logger.Info().Int("albums", len(albums)).Msg("filtered to wearable listens")
	}

	// prior persisted state donates starred flags and any previously matched
	// activity metrics this run did not produce
	prior, err := report.Load(cfg.Paths.Report)
	switch {
	case err == nil:
		albums = reconcile.MergeWithPrior(albums, prior.Albums)
		logger.Info().Int("prior_albums", len(prior.Albums)).Msg("merged with prior report")
	case os.IsNotExist(err):
		logger.Info().Msg("no prior report, starting fresh")
	default:
		return fmt.Errorf("prior report: %w", err)
	}

	rep := report.Assemble(albums, thresholds(), ctx.DeviceTypesSeen(), ctx.DeviceOSNamesSeen())
	if err := report.Save(cfg.Paths.Report, &rep); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	logger.Info().
		Str("path", cfg.Paths.Report).
		Int("albums", rep.Statistics.TotalAlbums).
		Int("completed", rep.Statistics.CompletedAlbums).
		Msg("report written")
	return nil
}

// loadCatalog reads the container details export. It is an optional
// enrichment source: a missing file degrades to an empty catalog.
func loadCatalog() *parser.Catalog {
	f, err := os.Open(cfg.Paths.ContainerDetails)
	if err != nil {
		logger.Warn().Str("path", cfg.Paths.ContainerDetails).Msg("container details export missing, artist info unavailable")
		return nil
	}
	defer f.Close()

	cat, err := parser.ReadCatalog(f)
	if err != nil {
		logger.Warn().Err(err).Msg("container details export unreadable, continuing without it")
		return nil
	}
	logger.Info().Int("albums", len(cat.Artists)).Msg("loaded catalog metadata")
	return cat
}

// loadReport fetches the persisted report that later stages operate on.
func loadReport() (*models.Report, error) {
	rep, err := report.Load(cfg.Paths.Report)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("no report at %s, run analyze first", cfg.Paths.Report)
	}
	return rep, err
}
