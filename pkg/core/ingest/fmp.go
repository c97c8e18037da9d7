// Package ingest provides the Financial Modeling Prep (FMP) data provider and
// HTML statement parsing. It maps provider failures to explicit errors so the
// valuation core never sees a transport problem.
// API Documentation: https://site.financialmodelingprep.com/developer/docs
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"fair_value/pkg/core/metrics"
)

const (
	// DefaultBaseURL is the FMP "stable" API root.
	DefaultBaseURL = "https://financialmodelingprep.com/stable"

	UserAgent = "FairValue/1.0"
)

var (
	// ErrTickerNotFound is returned when the provider has no profile for a ticker.
	ErrTickerNotFound = errors.New("ticker not found")
	// ErrProviderError is returned when the provider answers with an error payload.
	ErrProviderError = errors.New("provider returned an error")
	// ErrProviderUnavailable is returned while the circuit breaker is open.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("missing FMP API key")
)

// StatusError is returned for non-200 responses.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("FMP %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Provider is the FinancialDataProvider collaborator consumed by the report builder.
type Provider interface {
	FetchSnapshot(ctx context.Context, ticker string) (*Snapshot, error)
	FetchPriceHistory(ctx context.Context, ticker string) ([]PriceBar, error)
}

// =============================================================================
// FMP CLIENT
// =============================================================================

// ClientConfig configures the FMP client.
type ClientConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	// Breaker trips after this many consecutive failures.
	MaxConsecutiveFailures uint32
	// BreakerCooldown is how long the breaker stays open before probing again.
	BreakerCooldown time.Duration
}

// DefaultClientConfig returns conservative settings for the FMP free tier.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:                DefaultBaseURL,
		Timeout:                15 * time.Second,
		RequestsPerSecond:      4,
		Burst:                  4,
		MaxConsecutiveFailures: 3,
		BreakerCooldown:        60 * time.Second,
	}
}

// FMPClient implements Provider against the FMP REST API.
type FMPClient struct {
	cfg        ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewFMPClient creates a client. Zero fields in cfg fall back to DefaultClientConfig.
func NewFMPClient(cfg ClientConfig) *FMPClient {
	def := DefaultClientConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.MaxConsecutiveFailures == 0 {
		cfg.MaxConsecutiveFailures = def.MaxConsecutiveFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = def.BreakerCooldown
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	maxFailures := cfg.MaxConsecutiveFailures
	settings := gobreaker.Settings{
		Name:    "fmp",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// Only transport failures and 5xx count against the provider.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < http.StatusInternalServerError
			}
			return errors.Is(err, ErrProviderError) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}

	return &FMPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

// get performs one rate-limited, breaker-guarded GET and returns the raw body.
func (c *FMPClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("apikey", c.cfg.APIKey)
	reqURL := fmt.Sprintf("%s/%s?%s", c.cfg.BaseURL, endpoint, q.Encode())

	out, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
		}
		if msg, ok := errorMessage(body); ok {
			return nil, fmt.Errorf("%w: %s: %s", ErrProviderError, endpoint, msg)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		log.Debug().Str("endpoint", endpoint).Err(err).Msg("FMP request failed")
		return nil, err
	}

	log.Debug().Str("endpoint", endpoint).Str("symbol", params.Get("symbol")).Msg("FMP request ok")
	return out.([]byte), nil
}

// getRecords fetches an endpoint that returns a JSON array of objects.
// Numbers are kept as json.Number.
func (c *FMPClient) getRecords(ctx context.Context, endpoint, ticker string) ([]map[string]any, error) {
	body, err := c.get(ctx, endpoint, url.Values{"symbol": {ticker}})
	if err != nil {
		return nil, err
	}
	return decodeRecords(body)
}

// getOptionalRecords is getRecords for endpoints the free tier may not serve:
// failures degrade to an empty result unless the provider itself is unavailable.
func (c *FMPClient) getOptionalRecords(ctx context.Context, endpoint, ticker string) ([]map[string]any, error) {
	records, err := c.getRecords(ctx, endpoint, ticker)
	if err == nil {
		return records, nil
	}
	if errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrMissingAPIKey) || ctx.Err() != nil {
		return nil, err
	}
	log.Warn().Str("endpoint", endpoint).Str("ticker", ticker).Err(err).Msg("optional FMP endpoint unavailable, continuing without it")
	return nil, nil
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// FetchSnapshot assembles the metrics bag, statements and FCF history for ticker.
func (c *FMPClient) FetchSnapshot(ctx context.Context, ticker string) (*Snapshot, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: empty ticker", ErrTickerNotFound)
	}

	profiles, err := c.getRecords(ctx, "profile", ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile for %s: %w", ticker, err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	}
	profile := profiles[0]

	var quote, keyMetrics, ratios map[string]any
	for _, opt := range []struct {
		endpoint string
		dst      *map[string]any
	}{
		{"quote", &quote},
		{"key-metrics", &keyMetrics},
		{"ratios", &ratios},
	} {
		recs, err := c.getOptionalRecords(ctx, opt.endpoint, ticker)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s for %s: %w", opt.endpoint, ticker, err)
		}
		if len(recs) > 0 {
			*opt.dst = recs[0]
		}
	}

	statements := make(map[StatementKind]*Statement, 3)
	for _, st := range []struct {
		kind     StatementKind
		endpoint string
	}{
		{BalanceSheet, "balance-sheet-statement"},
		{IncomeStatement, "income-statement"},
		{CashFlow, "cash-flow-statement"},
	} {
		recs, err := c.getOptionalRecords(ctx, st.endpoint, ticker)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s for %s: %w", st.endpoint, ticker, err)
		}
		statements[st.kind] = StatementFromRecords(st.kind, recs)
	}

	snap := &Snapshot{
		Ticker:          ticker,
		BalanceSheet:    statements[BalanceSheet],
		IncomeStatement: statements[IncomeStatement],
		CashFlow:        statements[CashFlow],
		FetchedAt:       time.Now().UTC(),
	}
	snap.Metrics = buildMetrics(profile, quote, keyMetrics, ratios, snap)
	snap.FCFHistory = FreeCashFlowHistory(snap.CashFlow, RowFreeCashFlow)

	log.Info().
		Str("ticker", ticker).
		Int("metrics", len(snap.Metrics)).
		Int("fcf_years", len(snap.FCFHistory)).
		Msg("snapshot fetched")

	return snap, nil
}

// buildMetrics maps FMP payloads onto the metrics bag keys.
func buildMetrics(profile, quote, keyMetrics, ratios map[string]any, snap *Snapshot) metrics.Bag {
	bag := metrics.New()

	bag.Set(metrics.LongName, firstValue(profile, "companyName"))
	bag.Set(metrics.Symbol, firstValue(profile, "symbol"))
	bag.Set(metrics.Industry, firstValue(profile, "industry"))
	bag.Set(metrics.Sector, firstValue(profile, "sector"))
	bag.Set(metrics.Website, firstValue(profile, "website"))
	bag.Set(metrics.Description, firstValue(profile, "description"))

	price, hasPrice := firstNumber(quote, "price")
	if !hasPrice {
		price, hasPrice = firstNumber(profile, "price")
	}
	bag.SetFloat(metrics.CurrentPrice, price, hasPrice)

	marketCap, hasCap := firstNumber(profile, "marketCap", "mktCap")
	if !hasCap {
		marketCap, hasCap = firstNumber(quote, "marketCap")
	}
	bag.SetFloat(metrics.MarketCap, marketCap, hasCap)

	// Shares outstanding: market cap / price when both are known, else key-metrics.
	switch {
	case hasPrice && hasCap && price > 0 && marketCap > 0:
		bag.Set(metrics.SharesOutstanding, marketCap/price)
	default:
		shares, ok := firstNumber(keyMetrics, "numberOfShares", "sharesOutstanding")
		bag.SetFloat(metrics.SharesOutstanding, shares, ok)
	}

	setFirst := func(key string, sources ...struct {
		m    map[string]any
		keys []string
	}) {
		for _, s := range sources {
			if v, ok := firstNumber(s.m, s.keys...); ok {
				bag.Set(key, v)
				return
			}
		}
		bag.Set(key, nil)
	}
	src := func(m map[string]any, keys ...string) struct {
		m    map[string]any
		keys []string
	} {
		return struct {
			m    map[string]any
			keys []string
		}{m, keys}
	}

	setFirst(metrics.TrailingPE, src(quote, "pe"), src(ratios, "priceToEarningsRatio", "priceEarningsRatio"))
	setFirst(metrics.TrailingPegRatio, src(ratios, "priceToEarningsGrowthRatio", "pegRatio"))
	setFirst(metrics.PriceToSalesTrailing12Months, src(ratios, "priceToSalesRatio"))
	setFirst(metrics.PriceToBook, src(ratios, "priceToBookRatio"))
	setFirst(metrics.OperatingMargins, src(ratios, "operatingProfitMargin"))
	setFirst(metrics.CurrentRatio, src(ratios, "currentRatio"), src(keyMetrics, "currentRatio"))
	setFirst(metrics.ReturnOnEquity, src(keyMetrics, "returnOnEquity", "roe"))
	setFirst(metrics.ReturnOnInvestment, src(keyMetrics, "returnOnInvestedCapital", "roic"))
	setFirst(metrics.BookValue, src(ratios, "bookValuePerShare"), src(keyMetrics, "bookValuePerShare"))
	setFirst(metrics.TrailingEps, src(quote, "eps"), src(ratios, "netIncomePerShare"))

	// Debt to equity is reported as a percentage (150 = 1.5x), the convention the thresholds use.
	if de, ok := firstNumber(ratios, "debtToEquityRatio", "debtEquityRatio"); ok {
		bag.Set(metrics.DebtToEquity, de*100)
	} else {
		bag.Set(metrics.DebtToEquity, nil)
	}

	bag.Set(metrics.ForwardPE, nil)
	bag.Set(metrics.EarningsQuarterlyGrowth, nil)

	is, bs, cf := snap.IncomeStatement, snap.BalanceSheet, snap.CashFlow

	setStatement := func(key string, s *Statement, label string) {
		v, ok := s.Value(label, 0)
		bag.SetFloat(key, v, ok)
	}
	setStatement(metrics.GrossProfits, is, RowGrossProfit)
	setStatement(metrics.NetIncomeToCommon, is, RowNetIncome)
	setStatement(metrics.FreeCashflow, cf, RowFreeCashFlow)
	setStatement(metrics.OperatingCashflow, cf, RowOperatingCashFlow)
	setStatement(metrics.TotalCash, bs, RowCash)
	setStatement(metrics.TotalAssets, bs, RowTotalAssets)
	setStatement(metrics.TotalLiabilities, bs, RowTotalLiabilities)

	if !bag.Has(metrics.TrailingEps) {
		setStatement(metrics.TrailingEps, is, RowBasicEPS)
	}

	// Revenue growth: latest fiscal year over the prior one.
	cur, okCur := is.Value(RowTotalRevenue, 0)
	prior, okPrior := is.Value(RowTotalRevenue, 1)
	if okCur && okPrior && prior != 0 {
		bag.Set(metrics.RevenueGrowth, cur/prior-1)
	} else {
		bag.Set(metrics.RevenueGrowth, nil)
	}

	return bag
}

// =============================================================================
// STATEMENT MAPPING
// =============================================================================

// Row labels used across statements.
const (
	RowTotalAssets       = "Total Assets"
	RowTotalLiabilities  = "Total Liabilities Net Minority Interest"
	RowCash              = "Cash Cash Equivalents And Short Term Investments"
	RowTotalRevenue      = "Total Revenue"
	RowGrossProfit       = "Gross Profit"
	RowOperatingIncome   = "Operating Income"
	RowNetIncome         = "Net Income"
	RowBasicEPS          = "Basic EPS"
	RowOperatingCashFlow = "Operating Cash Flow"
	RowFreeCashFlow      = "Free Cash Flow"
)

// fieldLabels renames FMP statement fields to conventional line-item labels.
var fieldLabels = map[StatementKind]map[string]string{
	BalanceSheet: {
		"totalAssets":                 RowTotalAssets,
		"totalLiabilities":            RowTotalLiabilities,
		"totalStockholdersEquity":     "Stockholders Equity",
		"cashAndShortTermInvestments": RowCash,
		"totalCurrentAssets":          "Current Assets",
		"totalCurrentLiabilities":     "Current Liabilities",
		"longTermDebt":                "Long Term Debt",
		"totalDebt":                   "Total Debt",
		"retainedEarnings":            "Retained Earnings",
		"commonStock":                 "Common Stock",
	},
	IncomeStatement: {
		"revenue":           RowTotalRevenue,
		"costOfRevenue":     "Cost Of Revenue",
		"grossProfit":       RowGrossProfit,
		"operatingIncome":   RowOperatingIncome,
		"netIncome":         RowNetIncome,
		"ebitda":            "EBITDA",
		"eps":               RowBasicEPS,
		"operatingExpenses": "Operating Expense",
	},
	CashFlow: {
		"operatingCashFlow":  RowOperatingCashFlow,
		"capitalExpenditure": "Capital Expenditure",
		"freeCashFlow":       RowFreeCashFlow,
		"dividendsPaid":      "Cash Dividends Paid",
	},
}

// StatementFromRecords pivots FMP statement records (one object per period,
// newest first) into labeled rows. Non-numeric fields are dropped.
func StatementFromRecords(kind StatementKind, records []map[string]any) *Statement {
	s := &Statement{Kind: kind, Periods: []string{}, Rows: []StatementRow{}}
	if len(records) == 0 {
		return s
	}

	sort.SliceStable(records, func(i, j int) bool {
		return stringField(records[i], "date") > stringField(records[j], "date")
	})

	fields := map[string]bool{}
	for _, rec := range records {
		s.Periods = append(s.Periods, stringField(rec, "date"))
		for k, v := range rec {
			if _, ok := metrics.Number(v); ok && !nonLineItemFields[k] {
				fields[k] = true
			}
		}
	}

	labels := fieldLabels[kind]
	seen := map[string]bool{}
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	for _, f := range names {
		label := f
		if l, ok := labels[f]; ok {
			label = l
		}
		// Two FMP fields may share a label (e.g. dividendsPaid / commonDividendsPaid); first wins.
		if seen[label] {
			continue
		}
		row := StatementRow{Label: label, Values: make([]any, len(records))}
		for i, rec := range records {
			if v, ok := metrics.Number(rec[f]); ok {
				row.Values[i] = v
			}
		}
		s.Rows = append(s.Rows, row)
		seen[label] = true
	}

	sort.SliceStable(s.Rows, func(i, j int) bool { return s.Rows[i].Label < s.Rows[j].Label })
	return s
}

var nonLineItemFields = map[string]bool{
	"cik":          true,
	"fiscalYear":   true,
	"calendarYear": true,
}

// =============================================================================
// PRICE HISTORY
// =============================================================================

// PriceBar is one daily OHLCV observation.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// FetchPriceHistory returns daily bars ordered oldest first.
func (c *FMPClient) FetchPriceHistory(ctx context.Context, ticker string) ([]PriceBar, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	body, err := c.get(ctx, "historical-price-eod/full", url.Values{"symbol": {ticker}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price history for %s: %w", ticker, err)
	}

	var records []map[string]any
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		// Legacy shape: {"symbol": "...", "historical": [...]}
		var wrapped struct {
			Historical []map[string]any `json:"historical"`
		}
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode price history: %w", err)
		}
		records = wrapped.Historical
	} else {
		records, err = decodeRecords(trimmed)
		if err != nil {
			return nil, fmt.Errorf("failed to decode price history: %w", err)
		}
	}

	bars := make([]PriceBar, 0, len(records))
	for _, r := range records {
		d, err := time.Parse("2006-01-02", stringField(r, "date"))
		if err != nil {
			continue
		}
		closePrice, ok := firstNumber(r, "close", "adjClose", "price")
		if !ok {
			continue
		}
		bar := PriceBar{Date: d, Close: closePrice}
		bar.Open, _ = firstNumber(r, "open")
		bar.High, _ = firstNumber(r, "high")
		bar.Low, _ = firstNumber(r, "low")
		bar.Volume, _ = firstNumber(r, "volume")
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeRecords(body []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '{' {
		var single map[string]any
		if err := dec.Decode(&single); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return []map[string]any{single}, nil
	}

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return records, nil
}

// errorMessage detects the {"Error Message": "..."} payload FMP sends with status 200.
func errorMessage(body []byte) (string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var payload map[string]any
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return "", false
	}
	msg, ok := payload["Error Message"]
	if !ok {
		return "", false
	}
	return fmt.Sprint(msg), true
}

func firstNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := metrics.Number(m[k]); ok {
			return v, true
		}
	}
	return 0, false
}

func firstValue(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
