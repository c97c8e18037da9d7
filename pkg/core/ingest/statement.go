package ingest

import (
	"math"
	"time"

	"fair_value/pkg/core/metrics"
)

// StatementKind identifies one of the three primary financial statements.
type StatementKind string

const (
	BalanceSheet    StatementKind = "balance_sheet"
	IncomeStatement StatementKind = "income_statement"
	CashFlow        StatementKind = "cash_flow"
)

// Statement is a financial statement laid out as labeled rows with one value
// per reporting period. Periods are ordered newest first.
type Statement struct {
	Kind    StatementKind  `json:"kind"`
	Periods []string       `json:"periods"`
	Rows    []StatementRow `json:"rows"`
}

// StatementRow is one line item. Values[i] belongs to Periods[i]; nil marks a missing cell.
type StatementRow struct {
	Label  string `json:"label"`
	Values []any  `json:"values"`
}

// Row returns the row with the given label.
func (s *Statement) Row(label string) (*StatementRow, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Rows {
		if s.Rows[i].Label == label {
			return &s.Rows[i], true
		}
	}
	return nil, false
}

// Value returns the numeric value of label in the period at index (0 = newest).
func (s *Statement) Value(label string, index int) (float64, bool) {
	row, ok := s.Row(label)
	if !ok || index < 0 || index >= len(row.Values) {
		return 0, false
	}
	return metrics.Number(row.Values[index])
}

// Latest returns the newest raw cell of every row, keyed by label.
func (s *Statement) Latest() metrics.Bag {
	bag := metrics.New()
	if s == nil {
		return bag
	}
	for _, r := range s.Rows {
		if len(r.Values) == 0 {
			bag.Set(r.Label, nil)
			continue
		}
		bag.Set(r.Label, r.Values[0])
	}
	return bag
}

// Empty reports whether the statement has no rows.
func (s *Statement) Empty() bool {
	return s == nil || len(s.Rows) == 0
}

// Snapshot is everything the valuation report needs for one ticker.
type Snapshot struct {
	Ticker          string      `json:"ticker"`
	Metrics         metrics.Bag `json:"metrics"`
	FCFHistory      []float64   `json:"fcf_history"` // oldest first, at most 4
	BalanceSheet    *Statement  `json:"balance_sheet,omitempty"`
	IncomeStatement *Statement  `json:"income_statement,omitempty"`
	CashFlow        *Statement  `json:"cash_flow,omitempty"`
	FetchedAt       time.Time   `json:"fetched_at"`
}

// FCFHistoryLength is how many annual free cash flow observations feed the DCF.
const FCFHistoryLength = 4

// FreeCashFlowHistory extracts up to the four most recent values of label from a
// newest-first statement and returns them oldest first, rounded to whole units.
// Missing and NaN cells are dropped.
func FreeCashFlowHistory(s *Statement, label string) []float64 {
	row, ok := s.Row(label)
	if !ok {
		return []float64{}
	}

	newest := make([]float64, 0, FCFHistoryLength)
	for _, cell := range row.Values {
		if len(newest) == FCFHistoryLength {
			break
		}
		v, ok := metrics.Number(cell)
		if !ok || math.IsInf(v, 0) {
			continue
		}
		newest = append(newest, math.Round(v))
	}

	out := make([]float64, len(newest))
	for i, v := range newest {
		out[len(newest)-1-i] = v
	}
	return out
}
