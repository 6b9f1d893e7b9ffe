package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"albumrun/internal/server"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := server.New(cfg.Paths.Report, logger)
		logger.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		return http.ListenAndServe(cfg.Server.Addr, srv.Handler())
	},
}
