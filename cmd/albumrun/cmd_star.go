package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"albumrun/internal/aggregate"
	"albumrun/internal/report"
)

func init() {
	rootCmd.AddCommand(starCmd)
	starCmd.AddCommand(starToggleCmd, starListCmd, starSearchCmd)
}

var starCmd = &cobra.Command{
	Use:   "star",
	Short: "Manage starred albums in the report",
}

var starToggleCmd = &cobra.Command{
	Use:   "toggle <album name>",
	Short: "Flip the starred flag on an album",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := loadReport()
		if err != nil {
			return err
		}

		name := aggregate.NormalizeAlbum(strings.Join(args, " "))
		for i := range rep.Albums {
			if rep.Albums[i].AlbumName != name {
				continue
			}
			rep.Albums[i].Starred = !rep.Albums[i].Starred
			report.Refresh(rep)
			if err := report.Save(cfg.Paths.Report, rep); err != nil {
				return fmt.Errorf("save report: %w", err)
			}
			logger.Info().Str("album", name).Bool("starred", rep.Albums[i].Starred).Msg("star toggled")
			return nil
		}
		return fmt.Errorf("album %q not in report, try star search", name)
	},
}

var starListCmd = &cobra.Command{
	Use:   "list",
	Short: "List starred albums",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := loadReport()
		if err != nil {
			return err
		}

		n := 0
		for _, a := range rep.Albums {
			if !a.Starred {
				continue
			}
			printAlbumLine(cmd, a.AlbumName, a.ArtistName)
			n++
		}
		if n == 0 {
			cmd.Println("no starred albums")
		}
		return nil
	},
}

var starSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find albums by case-insensitive substring match",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := loadReport()
		if err != nil {
			return err
		}

		query := strings.ToLower(strings.Join(args, " "))
		n := 0
		for _, a := range rep.Albums {
			if !strings.Contains(strings.ToLower(a.AlbumName), query) &&
				!strings.Contains(strings.ToLower(a.ArtistName), query) {
				continue
			}
			mark := " "
			if a.Starred {
				mark = "*"
			}
			cmd.Printf("%s %s", mark, a.AlbumName)
			if a.ArtistName != "" {
				cmd.Printf(" - %s", a.ArtistName)
			}
			cmd.Println()
			n++
		}
		if n == 0 {
			cmd.Printf("no albums matching %q\n", query)
		}
		return nil
	},
}

func printAlbumLine(cmd *cobra.Command, album, artist string) {
	if artist != "" {
		cmd.Printf("%s - %s\n", album, artist)
		return
	}
	cmd.Println(album)
}
