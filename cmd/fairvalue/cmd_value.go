package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fair_value/pkg/core/report"
	"fair_value/pkg/core/signals"
)

func valueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "value TICKER",
		Short: "Build the full valuation report for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assumptions, err := a.assumptions(cmd)
			if err != nil {
				return err
			}
			r, err := a.builder().Build(cmd.Context(), args[0], assumptions)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), r)
		},
	}
}

func printReport(w io.Writer, r *report.Report) error {
	title := r.Ticker
	if r.Name != "" {
		title = fmt.Sprintf("%s (%s)", r.Name, r.Ticker)
	}
	fmt.Fprintln(w, title)

	switch {
	case r.DCFError != "":
		fmt.Fprintln(w, r.DCFError)
	case r.FairValue != nil:
		fmt.Fprintf(w, "Fair value: %s\n", signals.FormatTwoDecimals(*r.FairValue))
	}
	if r.CurrentPrice != nil {
		fmt.Fprintf(w, "Price:      %s\n", signals.FormatTwoDecimals(*r.CurrentPrice))
	}
	if r.DifferencePercent != nil {
		fmt.Fprintf(w, "Verdict:    %s (%s)\n", r.Verdict, formatPercent(*r.DifferencePercent))
	} else {
		fmt.Fprintf(w, "Verdict:    %s\n", r.Verdict)
	}

	printFindings(w, "Positives", r.Findings.Positives)
	printFindings(w, "Negatives", r.Findings.Negatives)

	for _, s := range r.Sections {
		if len(s.Rows) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", s.Title)
		if err := printRows(w, s.Rows); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "\nKey metrics")
	tw := newTable(w)
	for _, m := range r.KeyMetrics {
		fmt.Fprintf(tw, "%s\t%s\n", m.Label, m.Value)
	}
	return tw.Flush()
}

func printFindings(w io.Writer, title string, fs []signals.Finding) {
	if len(fs) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	for _, f := range fs {
		fmt.Fprintf(w, "  - %s\n", f.Text())
	}
}

func printRows(w io.Writer, rows []signals.Row) error {
	tw := newTable(w)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", signMarker(r.Sign), r.Metric, r.Value)
	}
	return tw.Flush()
}

func signMarker(s signals.Sign) string {
	switch s {
	case signals.Positive:
		return "+"
	case signals.Negative:
		return "-"
	default:
		return " "
	}
}
