package signals

import (
	"fair_value/pkg/core/metrics"
)

// Finding is one notable observation about a company.
type Finding struct {
	Metric string `json:"metric"`
	Label  string `json:"label"`
	Value  string `json:"value"`
	Sign   Sign   `json:"sign"`
}

// Text renders "Label: Value".
func (f Finding) Text() string {
	return f.Label + ": " + f.Value
}

// Findings groups the positive and negative observations of a report.
// Both slices are non-nil so they encode as [] rather than null.
type Findings struct {
	Positives []Finding `json:"positives"`
	Negatives []Finding `json:"negatives"`
}

// check is one qualitative test over a single metric.
type check struct {
	metric string
	label  string
	sign   Sign
	test   func(v float64) bool
	format Formatter
}

var positiveChecks = []check{
	{metrics.EarningsQuarterlyGrowth, "Earnings Quarterly Growth", Positive, func(v float64) bool { return v > 0 }, FormatPercent},
	{metrics.GrossProfits, "Gross Profits", Positive, func(v float64) bool { return v > 0 }, FormatCurrency},
	{metrics.NetIncomeToCommon, "Net Income", Positive, func(v float64) bool { return v > 0 }, FormatCurrency},
	{metrics.FreeCashflow, "Free Cash Flow", Positive, func(v float64) bool { return v > 0 }, FormatCurrency},
	{metrics.OperatingCashflow, "Operating Cash Flow", Positive, func(v float64) bool { return v > 0 }, FormatCurrency},
	{metrics.TotalCash, "Total Cash", Positive, func(v float64) bool { return v > 0 }, FormatCurrency},
	{metrics.CurrentRatio, "Healthy Current Ratio", Positive, func(v float64) bool { return v >= 1.5 }, FormatTwoDecimals},
	{metrics.ReturnOnEquity, "Strong ROE", Positive, func(v float64) bool { return v > 0.15 }, FormatPercent},
	{metrics.ReturnOnInvestment, "Good ROI", Positive, func(v float64) bool { return v > 0.10 }, FormatPercent},
}

var negativeChecks = []check{
	{metrics.TrailingEps, "Low EPS", Negative, func(v float64) bool { return v < 2 }, FormatRaw},
	{metrics.RevenueGrowth, "Declining Revenue Growth", Negative, func(v float64) bool { return v < 0 }, FormatPercent},
	{metrics.DebtToEquity, "High Debt-to-Equity", Negative, func(v float64) bool { return v > 100 }, FormatRaw},
	{metrics.FreeCashflow, "Negative Free Cash Flow", Negative, func(v float64) bool { return v < 0 }, FormatCurrency},
	{metrics.ReturnOnEquity, "Low ROE", Negative, func(v float64) bool { return v < 0.05 }, FormatPercent},
	{metrics.ReturnOnInvestment, "Poor ROI", Negative, func(v float64) bool { return v < 0.05 }, FormatPercent},
}

// BuildFindings evaluates the fixed positive and negative checks over bag.
// A check whose metric is absent, nil or non-numeric is skipped.
func BuildFindings(bag metrics.Bag) Findings {
	return Findings{
		Positives: evaluate(positiveChecks, bag),
		Negatives: evaluate(negativeChecks, bag),
	}
}

func evaluate(checks []check, bag metrics.Bag) []Finding {
	out := make([]Finding, 0)
	for _, c := range checks {
		v, ok := bag.Float(c.metric)
		if !ok || !c.test(v) {
			continue
		}
		out = append(out, Finding{
			Metric: c.metric,
			Label:  c.label,
			Value:  c.format(v),
			Sign:   c.sign,
		})
	}
	return out
}
