package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fair_value/pkg/core/report"
	"fair_value/pkg/core/signals"
	"fair_value/pkg/core/store"
)

func portfolioCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Value every watchlist ticker against its market price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assumptions, err := a.assumptions(cmd)
			if err != nil {
				return err
			}
			return a.withWatchlist(cmd.Context(), func(w store.Watchlist) error {
				tickers, err := w.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(tickers) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "watchlist is empty")
					return nil
				}
				rows := a.builder().Portfolio(cmd.Context(), tickers, assumptions)
				return printPortfolio(cmd, rows)
			})
		},
	}
}

func printPortfolio(cmd *cobra.Command, rows []report.PortfolioRow) error {
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "Ticker\tName\tPrice\tDCF\tUndervalued\tError")
	for _, r := range rows {
		under := "no"
		if r.Undervalued {
			under = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Ticker, r.Name,
			signals.FormatTwoDecimals(r.CurrentPrice), signals.FormatTwoDecimals(r.DCFPrice), under, r.Error)
	}
	return tw.Flush()
}
