// Package report assembles the valuation report for a ticker: fair value,
// verdict, findings and classified statement rows.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"fair_value/pkg/core/ingest"
	"fair_value/pkg/core/metrics"
	"fair_value/pkg/core/signals"
	"fair_value/pkg/core/valuation"
)

// Verdict compares the fair value per share with the market price.
type Verdict string

const (
	Undervalued Verdict = "undervalued"
	Overvalued  Verdict = "overvalued"
	Unknown     Verdict = "unknown"
)

// Section titles.
const (
	SectionInfo            = "Info"
	SectionBalanceSheet    = "Balance Sheet"
	SectionIncomeStatement = "Income Statement"
	SectionCashFlow        = "Cash Flow"
)

// Calculated income statement rows.
const (
	RowSalesGrowth1Y   = "Sales Growth 1Y"
	RowSalesGrowth3Y   = "Sales Growth 3Y"
	RowOperatingMargin = "Operating Margin"
)

const (
	notAvailable   = "N/A"
	dcfErrorPrefix = "Error in DCF analysis"
)

// Section is a titled table of classified rows.
type Section struct {
	Title string        `json:"title"`
	Rows  []signals.Row `json:"rows"`
}

// KeyMetric is one labeled, formatted headline number.
type KeyMetric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Report is the full valuation view of one ticker.
type Report struct {
	ID                string                `json:"id"`
	Ticker            string                `json:"ticker"`
	Name              string                `json:"name,omitempty"`
	GeneratedAt       time.Time             `json:"generated_at"`
	Assumptions       valuation.Assumptions `json:"assumptions"`
	CurrentPrice      *float64              `json:"current_price"`
	FairValue         *float64              `json:"fair_value"`
	Projection        *valuation.Projection `json:"projection,omitempty"`
	DCFError          string                `json:"dcf_error,omitempty"`
	Verdict           Verdict               `json:"verdict"`
	DifferencePercent *float64              `json:"difference_percent"`
	Findings          signals.Findings      `json:"findings"`
	Sections          []Section             `json:"sections"`
	KeyMetrics        []KeyMetric           `json:"key_metrics"`
}

// Builder fetches data from a provider and assembles reports.
type Builder struct {
	provider ingest.Provider
	// Concurrency bounds parallel fetches in Portfolio.
	Concurrency int
}

// NewBuilder creates a Builder backed by provider.
func NewBuilder(provider ingest.Provider) *Builder {
	return &Builder{provider: provider, Concurrency: 4}
}

// Build assembles the report for ticker. Provider errors are returned; a
// valuation error is recorded on the report and the rest is still built.
func (b *Builder) Build(ctx context.Context, ticker string, a valuation.Assumptions) (*Report, error) {
	snap, err := b.provider.FetchSnapshot(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return Assemble(snap, a), nil
}

// Assemble builds a report from an already fetched snapshot.
func Assemble(snap *ingest.Snapshot, a valuation.Assumptions) *Report {
	bag := snap.Metrics.Clone()

	r := &Report{
		ID:          uuid.NewString(),
		Ticker:      snap.Ticker,
		GeneratedAt: time.Now().UTC(),
		Assumptions: a,
		Verdict:     Unknown,
	}
	if name, ok := bag.String(metrics.LongName); ok {
		r.Name = name
	}

	shares, _ := bag.Float(metrics.SharesOutstanding)
	proj, err := valuation.Project(snap.FCFHistory, shares, a)
	if err != nil {
		r.DCFError = fmt.Sprintf("%s: %v", dcfErrorPrefix, err)
		log.Warn().Str("ticker", snap.Ticker).Err(err).Msg("DCF valuation failed")
	} else {
		fair := proj.FairValue
		r.FairValue = &fair
		r.Projection = &proj
		bag.Set(metrics.DCF, fair)
	}

	if price, ok := bag.Float(metrics.CurrentPrice); ok {
		r.CurrentPrice = &price
		if r.FairValue != nil {
			r.Verdict, r.DifferencePercent = verdict(*r.FairValue, price)
		}
	}

	r.Findings = signals.BuildFindings(bag)
	r.Sections = []Section{
		{Title: SectionInfo, Rows: signals.ClassifyBag(bag)},
		{Title: SectionBalanceSheet, Rows: statementRows(snap.BalanceSheet, bag)},
		{Title: SectionIncomeStatement, Rows: append(statementRows(snap.IncomeStatement, bag), calculatedRows(snap.IncomeStatement)...)},
		{Title: SectionCashFlow, Rows: statementRows(snap.CashFlow, bag)},
	}
	r.KeyMetrics = keyMetrics(bag)
	return r
}

func verdict(fair, price float64) (Verdict, *float64) {
	diff, ok := valuation.UpsidePercent(fair, price)
	if !ok {
		return Unknown, nil
	}
	if fair > price {
		return Undervalued, &diff
	}
	return Overvalued, &diff
}

// statementRows classifies the newest value of each row, in statement order.
func statementRows(s *ingest.Statement, ref metrics.Bag) []signals.Row {
	if s.Empty() {
		return []signals.Row{}
	}
	rows := make([]signals.Row, 0, len(s.Rows))
	for _, r := range s.Rows {
		var v any
		if len(r.Values) > 0 {
			v = r.Values[0]
		}
		rows = append(rows, signals.ClassifyRow(r.Label, v, ref))
	}
	return rows
}

// calculatedRows derives sales growth and operating margin from the income
// statement. A ratio that cannot be computed is reported as 0.00%.
func calculatedRows(is *ingest.Statement) []signals.Row {
	growth := func(back int) float64 {
		cur, ok1 := is.Value(ingest.RowTotalRevenue, 0)
		prior, ok2 := is.Value(ingest.RowTotalRevenue, back)
		if !ok1 || !ok2 || prior == 0 {
			return 0
		}
		return (cur/prior - 1) * 100
	}
	margin := 0.0
	opInc, ok1 := is.Value(ingest.RowOperatingIncome, 0)
	rev, ok2 := is.Value(ingest.RowTotalRevenue, 0)
	if ok1 && ok2 && rev != 0 {
		margin = opInc / rev * 100
	}

	pct := func(v float64) string { return fmt.Sprintf("%.2f%%", v) }
	return []signals.Row{
		signals.ClassifyRow(RowSalesGrowth1Y, pct(growth(1)), nil),
		signals.ClassifyRow(RowSalesGrowth3Y, pct(growth(3)), nil),
		signals.ClassifyRow(RowOperatingMargin, pct(margin), nil),
	}
}

func keyMetrics(bag metrics.Bag) []KeyMetric {
	items := []struct {
		label string
		key   string
	}{
		{"Total Assets", metrics.TotalAssets},
		{"Total Liabilities", metrics.TotalLiabilities},
		{"Shares Outstanding", metrics.SharesOutstanding},
		{"Trailing PE", metrics.TrailingPE},
		{"Forward PE", metrics.ForwardPE},
		{"Book Value", metrics.BookValue},
	}
	out := make([]KeyMetric, 0, len(items))
	for _, it := range items {
		value := notAvailable
		if v, ok := bag.Float(it.key); ok {
			value = signals.FormatDefault(v)
		}
		out = append(out, KeyMetric{Label: it.label, Value: value})
	}
	return out
}
