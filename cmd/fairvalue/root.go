package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fair_value/pkg/api/respond"
	"fair_value/pkg/core/config"
	"fair_value/pkg/core/ingest"
	"fair_value/pkg/core/report"
	"fair_value/pkg/core/valuation"
)

const version = "v0.3.0"

// app is the state shared by all subcommands once the root has loaded config.
type app struct {
	configPath    string
	requiredRate  float64
	perpetualRate float64
	growthRate    float64

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "fairvalue",
		Short:         "Discounted cash flow valuation and fundamental signals",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			config.SetupLoggingTo(cmd.ErrOrStderr(), cfg.Logging)
			a.cfg = cfg
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to YAML config")
	pf.Float64Var(&a.requiredRate, "required-rate", 0, "required rate of return, percent (5-12)")
	pf.Float64Var(&a.perpetualRate, "perpetual-rate", 0, "perpetual growth rate, percent (1-3)")
	pf.Float64Var(&a.growthRate, "growth-rate", 0, "cash flow growth rate, percent (2-10)")

	root.AddCommand(
		valueCmd(a),
		dcfCmd(a),
		rowsCmd(a),
		watchlistCmd(a),
		portfolioCmd(a),
		screenCmd(a),
		serveCmd(a),
	)
	return root
}

// assumptions returns the configured defaults with any rate flags applied.
// Overrides are held to the same bounds as the HTTP API.
func (a *app) assumptions(cmd *cobra.Command) (valuation.Assumptions, error) {
	defaults := a.cfg.DefaultAssumptions()
	p := respond.ParamsFrom(defaults)
	given := false
	for name, pair := range map[string][2]*float64{
		"required-rate":  {&p.RequiredRate, &a.requiredRate},
		"perpetual-rate": {&p.PerpetualRate, &a.perpetualRate},
		"growth-rate":    {&p.CashFlowGrowthRate, &a.growthRate},
	} {
		if cmd.Flags().Changed(name) {
			*pair[0] = *pair[1]
			given = true
		}
	}
	if !given {
		return defaults, nil
	}
	out, err := p.Assumptions()
	if err != nil {
		return valuation.Assumptions{}, fmt.Errorf("invalid assumptions: %w", err)
	}
	return out, nil
}

func (a *app) builder() *report.Builder {
	return report.NewBuilder(ingest.NewFMPClient(a.cfg.ClientConfig()))
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}
