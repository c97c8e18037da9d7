package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"fair_value/pkg/api"
)

func serveCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			log.Info().Str("addr", a.cfg.Addr()).Str("watchlist", a.cfg.Watchlist.Backend).Msg("fair value API starting")
			return api.Run(cmd.Context(), a.cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port, overrides config")
	return cmd
}
