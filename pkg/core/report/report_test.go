package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair_value/pkg/core/ingest"
	"fair_value/pkg/core/metrics"
	"fair_value/pkg/core/signals"
	"fair_value/pkg/core/valuation"
)

type fakeProvider struct {
	mu        sync.Mutex
	snapshots map[string]*ingest.Snapshot
	calls     int
}

func (f *fakeProvider) FetchSnapshot(ctx context.Context, ticker string) (*ingest.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	s, ok := f.snapshots[strings.ToUpper(ticker)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ingest.ErrTickerNotFound, ticker)
	}
	return s, nil
}

func (f *fakeProvider) FetchPriceHistory(ctx context.Context, ticker string) ([]ingest.PriceBar, error) {
	return nil, errors.New("not used")
}

func sampleSnapshot() *ingest.Snapshot {
	return &ingest.Snapshot{
		Ticker: "ACME",
		Metrics: metrics.Bag{
			metrics.LongName:          "Acme Corp",
			metrics.CurrentPrice:      1.5,
			metrics.SharesOutstanding: 1000.0,
			metrics.TrailingPE:        15.0,
			metrics.ReturnOnEquity:    0.20,
			metrics.DebtToEquity:      150.0,
			metrics.TotalAssets:       2500000.0,
			metrics.ForwardPE:         nil,
		},
		FCFHistory: []float64{80, 90, 100, 110},
		BalanceSheet: &ingest.Statement{
			Kind:    ingest.BalanceSheet,
			Periods: []string{"2024"},
			Rows:    []ingest.StatementRow{{Label: "Total Assets", Values: []any{2500000.0}}},
		},
		IncomeStatement: &ingest.Statement{
			Kind:    ingest.IncomeStatement,
			Periods: []string{"2024", "2023", "2022", "2021"},
			Rows: []ingest.StatementRow{
				{Label: ingest.RowGrossProfit, Values: []any{120.0, 110.0, 100.0, 90.0}},
				{Label: ingest.RowOperatingIncome, Values: []any{50.0, nil, nil, nil}},
				{Label: ingest.RowTotalRevenue, Values: []any{200.0, 180.0, 170.0, 100.0}},
			},
		},
		CashFlow: &ingest.Statement{Kind: ingest.CashFlow},
	}
}

func TestBuild(t *testing.T) {
	p := &fakeProvider{snapshots: map[string]*ingest.Snapshot{"ACME": sampleSnapshot()}}
	b := NewBuilder(p)

	r, err := b.Build(context.Background(), "acme", valuation.DefaultAssumptions())
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "ACME", r.Ticker)
	assert.Equal(t, "Acme Corp", r.Name)
	require.NotNil(t, r.FairValue)
	assert.Equal(t, 2.11, *r.FairValue)
	require.NotNil(t, r.Projection)
	assert.Len(t, r.Projection.Years, valuation.ProjectionYears)
	assert.Empty(t, r.DCFError)

	assert.Equal(t, Undervalued, r.Verdict)
	require.NotNil(t, r.DifferencePercent)
	assert.InDelta(t, 40.6667, *r.DifferencePercent, 1e-3)

	assert.Equal(t, []string{"Strong ROE"}, findingLabels(r.Findings.Positives))
	assert.Equal(t, []string{"High Debt-to-Equity"}, findingLabels(r.Findings.Negatives))

	require.Len(t, r.Sections, 4)
	info := rowsByMetric(r.Sections[0].Rows)
	assert.Equal(t, signals.Positive, info[metrics.DCF].Sign, "dcf above price")
	assert.Equal(t, "2.11", info[metrics.DCF].Value)
	assert.Equal(t, signals.Positive, info[metrics.TrailingPE].Sign)
	assert.Equal(t, "N/A", info[metrics.ForwardPE].Value)

	income := rowsByMetric(r.Sections[2].Rows)
	assert.Equal(t, signals.Positive, income[ingest.RowGrossProfit].Sign)
	assert.Equal(t, "11.11%", income[RowSalesGrowth1Y].Value)
	assert.Equal(t, "100.00%", income[RowSalesGrowth3Y].Value)
	assert.Equal(t, "25.00%", income[RowOperatingMargin].Value)
	assert.Equal(t, signals.Neutral, income[RowOperatingMargin].Sign)

	assert.Empty(t, r.Sections[3].Rows)
	assert.NotNil(t, r.Sections[3].Rows)

	km := map[string]string{}
	for _, k := range r.KeyMetrics {
		km[k.Label] = k.Value
	}
	assert.Equal(t, "$2,500,000", km["Total Assets"])
	assert.Equal(t, "N/A", km["Total Liabilities"])
	assert.Equal(t, "N/A", km["Forward PE"])
	assert.Equal(t, "15", km["Trailing PE"])

	// The provider's bag is not mutated by the report.
	assert.False(t, p.snapshots["ACME"].Metrics.Has(metrics.DCF))
}

func TestBuild_ProviderErrorIsReturned(t *testing.T) {
	b := NewBuilder(&fakeProvider{snapshots: map[string]*ingest.Snapshot{}})
	_, err := b.Build(context.Background(), "NOPE", valuation.DefaultAssumptions())
	assert.ErrorIs(t, err, ingest.ErrTickerNotFound)
}

func TestAssemble_DCFFailureIsRecorded(t *testing.T) {
	snap := sampleSnapshot()
	snap.FCFHistory = nil

	r := Assemble(snap, valuation.DefaultAssumptions())
	assert.Nil(t, r.FairValue)
	assert.Contains(t, r.DCFError, "Error in DCF analysis")
	assert.Contains(t, r.DCFError, valuation.ErrInvalidInput.Error())
	assert.Equal(t, Unknown, r.Verdict)
	assert.Nil(t, r.DifferencePercent)
	require.NotNil(t, r.CurrentPrice)
	assert.Len(t, r.Sections, 4)
}

func TestAssemble_InvalidAssumptions(t *testing.T) {
	r := Assemble(sampleSnapshot(), valuation.FromPercent(2, 2, 3))
	assert.Nil(t, r.FairValue)
	assert.Contains(t, r.DCFError, valuation.ErrInvalidAssumptions.Error())
}

func TestAssemble_Overvalued(t *testing.T) {
	snap := sampleSnapshot()
	snap.Metrics[metrics.CurrentPrice] = 10.0

	r := Assemble(snap, valuation.DefaultAssumptions())
	assert.Equal(t, Overvalued, r.Verdict)
	assert.InDelta(t, -78.9, *r.DifferencePercent, 1e-9)
}

func TestAssemble_UnknownWithoutPrice(t *testing.T) {
	snap := sampleSnapshot()
	snap.Metrics[metrics.CurrentPrice] = nil

	r := Assemble(snap, valuation.DefaultAssumptions())
	require.NotNil(t, r.FairValue)
	assert.Equal(t, Unknown, r.Verdict)
	assert.Nil(t, r.CurrentPrice)
}

func TestAssemble_CalculatedRowsWithoutRevenue(t *testing.T) {
	snap := sampleSnapshot()
	snap.IncomeStatement = nil

	r := Assemble(snap, valuation.DefaultAssumptions())
	income := rowsByMetric(r.Sections[2].Rows)
	assert.Len(t, r.Sections[2].Rows, 3)
	assert.Equal(t, "0.00%", income[RowSalesGrowth1Y].Value)
	assert.Equal(t, "0.00%", income[RowOperatingMargin].Value)
}

func TestPortfolio(t *testing.T) {
	bad := sampleSnapshot()
	bad.Ticker = "BADCO"
	bad.Metrics = bad.Metrics.Clone()
	bad.Metrics[metrics.SharesOutstanding] = 0.0

	p := &fakeProvider{snapshots: map[string]*ingest.Snapshot{
		"ACME":  sampleSnapshot(),
		"BADCO": bad,
	}}
	b := NewBuilder(p)
	b.Concurrency = 2

	rows := b.Portfolio(context.Background(), []string{"ACME", "MISSING", "BADCO"}, valuation.DefaultAssumptions())
	require.Len(t, rows, 3)
	assert.Equal(t, 3, p.calls)

	assert.Equal(t, "ACME", rows[0].Ticker)
	assert.Equal(t, 1.5, rows[0].CurrentPrice)
	assert.Equal(t, 2.11, rows[0].DCFPrice)
	assert.True(t, rows[0].Undervalued)
	assert.Empty(t, rows[0].Error)

	assert.Equal(t, "MISSING", rows[1].Ticker)
	assert.Equal(t, 0.0, rows[1].DCFPrice)
	assert.Contains(t, rows[1].Error, "ticker not found")

	assert.Equal(t, "BADCO", rows[2].Ticker)
	assert.Equal(t, 0.0, rows[2].DCFPrice)
	assert.False(t, rows[2].Undervalued)
	assert.Contains(t, rows[2].Error, valuation.ErrInvalidInput.Error())
}

func TestPortfolio_Empty(t *testing.T) {
	rows := NewBuilder(&fakeProvider{}).Portfolio(context.Background(), nil, valuation.DefaultAssumptions())
	assert.Empty(t, rows)
}

func findingLabels(fs []signals.Finding) []string {
	out := []string{}
	for _, f := range fs {
		out = append(out, f.Label)
	}
	return out
}

func rowsByMetric(rows []signals.Row) map[string]signals.Row {
	out := make(map[string]signals.Row, len(rows))
	for _, r := range rows {
		out[r.Metric] = r
	}
	return out
}
