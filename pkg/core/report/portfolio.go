package report

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"fair_value/pkg/core/metrics"
	"fair_value/pkg/core/valuation"
)

// PortfolioRow is one watchlist ticker priced against its DCF value.
// A ticker that could not be fetched or valued has Error set and DCFPrice 0.
type PortfolioRow struct {
	Ticker       string  `json:"ticker"`
	Name         string  `json:"name,omitempty"`
	CurrentPrice float64 `json:"current_price"`
	DCFPrice     float64 `json:"dcf_price"`
	Undervalued  bool    `json:"undervalued"`
	Error        string  `json:"error,omitempty"`
}

// Portfolio values every ticker, preserving input order. Fetches run in
// parallel up to b.Concurrency.
func (b *Builder) Portfolio(ctx context.Context, tickers []string, a valuation.Assumptions) []PortfolioRow {
	rows := make([]PortfolioRow, len(tickers))
	limit := b.Concurrency
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	for i, t := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			rows[i] = b.portfolioRow(ctx, ticker, a)
		}(i, t)
	}
	wg.Wait()
	return rows
}

func (b *Builder) portfolioRow(ctx context.Context, ticker string, a valuation.Assumptions) PortfolioRow {
	row := PortfolioRow{Ticker: ticker}

	snap, err := b.provider.FetchSnapshot(ctx, ticker)
	if err != nil {
		log.Warn().Str("ticker", ticker).Err(err).Msg("portfolio fetch failed")
		row.Error = err.Error()
		return row
	}
	row.Ticker = snap.Ticker
	row.Name, _ = snap.Metrics.String(metrics.LongName)
	row.CurrentPrice, _ = snap.Metrics.Float(metrics.CurrentPrice)

	shares, _ := snap.Metrics.Float(metrics.SharesOutstanding)
	fair, err := valuation.Compute(snap.FCFHistory, shares, a)
	if err != nil {
		row.Error = err.Error()
		return row
	}
	row.DCFPrice = fair
	row.Undervalued = row.CurrentPrice < fair
	return row
}
