package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"fair_value/pkg/api"
	"fair_value/pkg/core/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("FAIRVALUE_CONFIG"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetupLogging(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", cfg.Addr()).Str("watchlist", cfg.Watchlist.Backend).Msg("fair value API starting")
	log.Info().Msg("  - GET    /health")
	log.Info().Msg("  - GET    /api/valuation/{ticker}")
	log.Info().Msg("  - POST   /api/valuation/dcf")
	log.Info().Msg("  - POST   /api/signals/rows | /api/signals/findings")
	log.Info().Msg("  - GET    /api/watchlist | POST /api/watchlist | DELETE /api/watchlist/{ticker}")
	log.Info().Msg("  - GET    /api/portfolio | /api/screener | /api/config | /metrics")

	if err := api.Run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
