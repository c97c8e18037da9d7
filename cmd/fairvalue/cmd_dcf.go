package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fair_value/pkg/core/signals"
	"fair_value/pkg/core/valuation"
)

func dcfCmd(a *app) *cobra.Command {
	var (
		history []float64
		shares  float64
	)
	cmd := &cobra.Command{
		Use:   "dcf",
		Short: "Value a free cash flow history without fetching market data",
		Example: `  fairvalue dcf --fcf 80,90,100,110 --shares 1000
  fairvalue dcf --fcf 1000000 --shares 1000 --required-rate 10 --perpetual-rate 3 --growth-rate 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assumptions, err := a.assumptions(cmd)
			if err != nil {
				return err
			}
			proj, err := valuation.Project(history, shares, assumptions)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			tw := newTable(w)
			fmt.Fprintln(tw, "Year\tFCF\tDiscount\tPresent value")
			for _, y := range proj.Years {
				fmt.Fprintf(tw, "%d\t%s\t%.4f\t%s\n", y.Year,
					signals.FormatTwoDecimals(y.FreeCashFlow), y.DiscountFactor, signals.FormatTwoDecimals(y.PresentValue))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(w, "Terminal value: %s (PV %s)\n",
				signals.FormatTwoDecimals(proj.TerminalValue), signals.FormatTwoDecimals(proj.PV_Terminal))
			fmt.Fprintf(w, "Fair value per share: %s\n", signals.FormatTwoDecimals(proj.FairValue))
			return nil
		},
	}
	cmd.Flags().Float64SliceVar(&history, "fcf", nil, "free cash flow history, oldest first")
	cmd.Flags().Float64Var(&shares, "shares", 0, "shares outstanding")
	_ = cmd.MarkFlagRequired("fcf")
	_ = cmd.MarkFlagRequired("shares")
	return cmd
}
