package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fair_value/pkg/core/ingest"
	"fair_value/pkg/core/metrics"
	"fair_value/pkg/core/report"
	"fair_value/pkg/core/signals"
)

func rowsCmd(a *app) *cobra.Command {
	var (
		htmlPath string
		price    float64
	)
	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Classify the rows of financial statement tables in an HTML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(htmlPath)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", htmlPath, err)
			}
			tables, err := ingest.ParseStatementTables(string(data))
			if err != nil {
				return err
			}

			ref := metrics.New()
			if cmd.Flags().Changed("price") {
				ref.Set(metrics.CurrentPrice, price)
			}

			w := cmd.OutOrStdout()
			for _, sec := range []struct {
				kind  ingest.StatementKind
				title string
			}{
				{ingest.BalanceSheet, report.SectionBalanceSheet},
				{ingest.IncomeStatement, report.SectionIncomeStatement},
				{ingest.CashFlow, report.SectionCashFlow},
			} {
				s, ok := tables[sec.kind]
				if !ok || s.Empty() {
					continue
				}
				rows := make([]signals.Row, 0, len(s.Rows))
				for _, r := range s.Rows {
					var v any
					if len(r.Values) > 0 {
						v = r.Values[0]
					}
					rows = append(rows, signals.ClassifyRow(r.Label, v, ref))
				}
				fmt.Fprintln(w, sec.title)
				if err := printRows(w, rows); err != nil {
					return err
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&htmlPath, "html", "", "HTML file containing statement tables")
	cmd.Flags().Float64Var(&price, "price", 0, "current share price used by relative rules")
	_ = cmd.MarkFlagRequired("html")
	return cmd
}
