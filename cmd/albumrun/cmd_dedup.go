package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"albumrun/internal/reconcile"
	"albumrun/internal/report"
)

func init() {
	rootCmd.AddCommand(dedupCmd)
}

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Collapse duplicate album entries in the report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := loadReport()
		if err != nil {
			return err
		}

		before := len(rep.Albums)
		deduped := reconcile.Dedupe(rep.Albums)
		if len(deduped) == before {
			logger.Info().Msg("no duplicates found")
			return nil
		}

		if err := report.Backup(cfg.Paths.Report); err != nil {
			return fmt.Errorf("backup report: %w", err)
		}

		rep.Albums = deduped
		report.Refresh(rep)
		if err := report.Save(cfg.Paths.Report, rep); err != nil {
			return fmt.Errorf("save report: %w", err)
		}

		logger.Info().
			Int("before", before).
			Int("after", len(deduped)).
			Int("removed", before-len(deduped)).
			Msg("deduplication complete")
		return nil
	},
}
