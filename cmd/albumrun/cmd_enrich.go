package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"albumrun/internal/catalog"
	"albumrun/internal/registry"
	"albumrun/internal/report"
)

func init() {
	rootCmd.AddCommand(enrichCmd)
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Backfill missing artist and genre metadata from the catalog API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := loadReport()
		if err != nil {
			return err
		}

		// the registry cache is optional; a broken database just means
		// every lookup goes to the API
		cache, err := registry.Open(cfg.Paths.Registry)
		if err != nil {
			logger.Warn().Err(err).Msg("registry unavailable, lookups will not be cached")
			cache = nil
		}
		if cache != nil {
			defer cache.Close()
		}

		backfill, err := catalog.NewBackfill(cmd.Context(),
			cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cache, logger)
		if err != nil {
			return err
		}

		filled, err := backfill.Enrich(cmd.Context(), rep.Albums)
		if err != nil {
			return err
		}

		report.Refresh(rep)
		if err := report.Save(cfg.Paths.Report, rep); err != nil {
			return fmt.Errorf("save report: %w", err)
		}

		logger.Info().
			Int("backfilled", filled).
			Int("with_artist", rep.Statistics.AlbumsWithArtist).
			Int("without_artist", rep.Statistics.AlbumsWithoutArtist).
			Msg("enrichment complete")
		return nil
	},
}
