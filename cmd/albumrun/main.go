package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"albumrun/internal/aggregate"
	"albumrun/internal/config"
)

var (
	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "albumrun",
	Short: "Reconcile music play history with running activity",
	Long: "albumrun aggregates a media play-activity export into per-album listening\n" +
		"summaries, matches them against Strava runs by time proximity, and maintains\n" +
		"a deduplicated, re-runnable report of the result.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		level, err := zerolog.ParseLevel(cfg.Log.Level)
		if err != nil {
			level = zerolog.InfoLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().Timestamp().Logger()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "config file path")
}

// thresholds pulls the classifier configuration out of the loaded config.
func thresholds() aggregate.Thresholds {
	return aggregate.Thresholds{
		Listen:     cfg.Thresholds.Listen,
		Completion: cfg.Thresholds.Completion,
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
