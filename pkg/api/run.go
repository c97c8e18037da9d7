package api

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"fair_value/pkg/core/config"
	"fair_value/pkg/core/ingest"
	"fair_value/pkg/core/report"
	"fair_value/pkg/core/screener"
	"fair_value/pkg/core/store"
)

// Run wires the production dependencies from cfg and serves until ctx is done.
func Run(ctx context.Context, cfg *config.Config) error {
	if cfg.Provider.APIKey == "" {
		log.Warn().Msgf("%s not set, provider requests will fail", config.EnvAPIKey)
	}
	provider := ingest.NewFMPClient(cfg.ClientConfig())

	watchlist, err := store.Open(ctx, cfg.Watchlist)
	if err != nil {
		return fmt.Errorf("failed to open watchlist: %w", err)
	}
	defer watchlist.Close()

	srv := NewServer(Deps{
		Config:    cfg,
		Builder:   report.NewBuilder(provider),
		Watchlist: watchlist,
		Screener:  screener.New(provider),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}
