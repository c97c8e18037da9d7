package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"fair_value/pkg/core/store"
)

func watchlistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Manage the tracked tickers",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add TICKER...",
			Short: "Add tickers to the watchlist",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withWatchlist(cmd.Context(), func(w store.Watchlist) error {
					for _, t := range args {
						if err := w.Add(cmd.Context(), t); err != nil {
							return err
						}
						fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", t)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove TICKER...",
			Short: "Remove tickers from the watchlist",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withWatchlist(cmd.Context(), func(w store.Watchlist) error {
					for _, t := range args {
						if err := w.Remove(cmd.Context(), t); err != nil {
							return err
						}
						fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", t)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the watchlist",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withWatchlist(cmd.Context(), func(w store.Watchlist) error {
					tickers, err := w.List(cmd.Context())
					if err != nil {
						return err
					}
					for _, t := range tickers {
						fmt.Fprintln(cmd.OutOrStdout(), t)
					}
					return nil
				})
			},
		},
	)
	return cmd
}

// withWatchlist opens the configured store for the duration of fn.
func (a *app) withWatchlist(ctx context.Context, fn func(store.Watchlist) error) error {
	if a.cfg.Watchlist.Backend == store.BackendMemory {
		log.Warn().Msg("watchlist backend is memory, changes are not kept between runs")
	}
	w, err := store.Open(ctx, a.cfg.Watchlist)
	if err != nil {
		return err
	}
	defer w.Close()
	return fn(w)
}
