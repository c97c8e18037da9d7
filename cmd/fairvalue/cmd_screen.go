package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fair_value/pkg/core/ingest"
	"fair_value/pkg/core/screener"
)

func screenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "screen [SYMBOL...]",
		Short: "Run the trend, RSI and volume buy filter",
		Long:  fmt.Sprintf("Run the trend, RSI and volume buy filter. Without symbols, screens %v.", screener.DefaultSymbols),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := screener.New(ingest.NewFMPClient(a.cfg.ClientConfig()))
			results := s.Screen(cmd.Context(), args)

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "Symbol\tStatus\tClose\tSMA50\tSMA200\tRSI14\tVolume\tMessage")
			for _, r := range results {
				if r.Indicators == nil {
					fmt.Fprintf(tw, "%s\t%s\t\t\t\t\t\t%s\n", r.Symbol, r.Status, r.Message)
					continue
				}
				in := r.Indicators
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.1f\t%s\t%s\n", r.Symbol, r.Status,
					in.LastClose, in.SMA50, in.SMA200, in.RSI14, humanize.Comma(int64(in.LastVolume)), r.Message)
			}
			return tw.Flush()
		},
	}
}
