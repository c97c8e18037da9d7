// Package signals turns fundamentals into qualitative signals: a per-row
// sign for tabular display and a summary of notable positives and negatives.
//
// Classification never fails. Missing or non-numeric values simply do not
// qualify for a rule.
package signals

import (
	"fair_value/pkg/core/metrics"
)

// Sign is the qualitative direction of a signal.
type Sign string

const (
	Positive Sign = "positive"
	Negative Sign = "negative"
	Neutral  Sign = "neutral"
)

// Color maps a sign to the display color used by the presentation layer.
func (s Sign) Color() string {
	switch s {
	case Positive:
		return "green"
	case Negative:
		return "red"
	default:
		return "black"
	}
}

// Condition tests a value against a threshold. ref is the bag the row came
// from and may be nil.
type Condition func(v float64, ref metrics.Bag) bool

// Rule is the threshold policy for one named metric.
// Negative is optional.
type Rule struct {
	Metric   string
	Positive Condition
	Negative Condition
	Format   Formatter
}

func greaterThan(t float64) Condition {
	return func(v float64, _ metrics.Bag) bool { return v > t }
}

func lessThan(t float64) Condition {
	return func(v float64, _ metrics.Bag) bool { return v < t }
}

func between(lo, hi float64) Condition {
	return func(v float64, _ metrics.Bag) bool { return v >= lo && v <= hi }
}

func outside(lo, hi float64) Condition {
	return func(v float64, _ metrics.Bag) bool { return v < lo || v > hi }
}

// aboveReference compares against another metric in the same bag.
// A missing reference never qualifies.
func aboveReference(key string) Condition {
	return func(v float64, ref metrics.Bag) bool {
		r, ok := ref.Float(key)
		return ok && v > r
	}
}

func belowReference(key string) Condition {
	return func(v float64, ref metrics.Bag) bool {
		r, ok := ref.Float(key)
		return ok && v < r
	}
}

// GrossProfitRow is the statement row label for gross profit on income statements.
const GrossProfitRow = "Gross Profit"

// rowRules is the single threshold table shared by every section
// (company info, balance sheet, income statement, cash flow).
var rowRules = map[string]Rule{
	metrics.TrailingPE: {
		Metric:   metrics.TrailingPE,
		Positive: between(10, 20),
		Negative: outside(5, 30),
		Format:   FormatRaw,
	},
	metrics.TrailingPegRatio: {
		Metric:   metrics.TrailingPegRatio,
		Positive: lessThan(1),
		Negative: greaterThan(2),
		Format:   FormatTwoDecimals,
	},
	metrics.PriceToSalesTrailing12Months: {
		Metric:   metrics.PriceToSalesTrailing12Months,
		Positive: lessThan(1),
		Negative: greaterThan(2),
		Format:   FormatTwoDecimals,
	},
	metrics.OperatingMargins: {
		Metric:   metrics.OperatingMargins,
		Positive: greaterThan(0.20),
		Negative: lessThan(0.10),
		Format:   FormatPercent,
	},
	metrics.DCF: {
		Metric:   metrics.DCF,
		Positive: aboveReference(metrics.CurrentPrice),
		Negative: belowReference(metrics.CurrentPrice),
		Format:   FormatRaw,
	},
	metrics.EarningsQuarterlyGrowth: {
		Metric:   metrics.EarningsQuarterlyGrowth,
		Positive: greaterThan(0),
		Format:   FormatRaw,
	},
	GrossProfitRow: {
		Metric:   GrossProfitRow,
		Positive: greaterThan(0),
		Format:   FormatRaw,
	},
}

// LookupRule returns the rule for metric, if one exists.
func LookupRule(metric string) (Rule, bool) {
	r, ok := rowRules[metric]
	return r, ok
}

// Row is one classified metric/value pair.
type Row struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
	Sign   Sign   `json:"sign"`
	Color  string `json:"color"`
}

// ClassifyRow formats raw and assigns it a sign using the shared rule table.
// ref supplies reference values for relative rules (dcf vs currentPrice) and may be nil.
//
// Values between the positive and negative bands are Neutral. Metrics
// without a rule, or whose value is not numeric, use FormatDefault and are Neutral.
func ClassifyRow(metric string, raw any, ref metrics.Bag) Row {
	rule, ok := rowRules[metric]
	if !ok {
		return newRow(metric, FormatDefault(raw), Neutral)
	}

	v, ok := metrics.Number(raw)
	if !ok {
		return newRow(metric, FormatDefault(raw), Neutral)
	}

	sign := Neutral
	switch {
	case rule.Positive != nil && rule.Positive(v, ref):
		sign = Positive
	case rule.Negative != nil && rule.Negative(v, ref):
		sign = Negative
	}

	return newRow(metric, rule.Format(v), sign)
}

// ClassifyBag classifies every entry of bag in key order.
func ClassifyBag(bag metrics.Bag) []Row {
	keys := bag.Keys()
	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, ClassifyRow(k, bag[k], bag))
	}
	return rows
}

func newRow(metric, value string, sign Sign) Row {
	return Row{Metric: metric, Value: value, Sign: sign, Color: sign.Color()}
}
