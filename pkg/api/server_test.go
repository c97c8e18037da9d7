package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair_value/pkg/core/config"
	"fair_value/pkg/core/ingest"
	"fair_value/pkg/core/metrics"
	"fair_value/pkg/core/report"
	"fair_value/pkg/core/screener"
	"fair_value/pkg/core/store"
)

type stubProvider struct{}

func (stubProvider) FetchSnapshot(ctx context.Context, ticker string) (*ingest.Snapshot, error) {
	switch strings.ToUpper(ticker) {
	case "ACME":
		return &ingest.Snapshot{
			Ticker: "ACME",
			Metrics: metrics.Bag{
				metrics.LongName:          "Acme Corp",
				metrics.CurrentPrice:      1.5,
				metrics.SharesOutstanding: 1000.0,
			},
			FCFHistory: []float64{80, 90, 100, 110},
		}, nil
	case "DOWN":
		return nil, fmt.Errorf("failed to fetch profile for DOWN: %w", ingest.ErrProviderUnavailable)
	case "BROKEN":
		return nil, &ingest.StatusError{Endpoint: "profile", StatusCode: 500}
	}
	return nil, fmt.Errorf("%w: %s", ingest.ErrTickerNotFound, ticker)
}

func (stubProvider) FetchPriceHistory(ctx context.Context, ticker string) ([]ingest.PriceBar, error) {
	return nil, ingest.ErrTickerNotFound
}

type stubScreener struct{ got []string }

func (s *stubScreener) Screen(ctx context.Context, symbols []string) []screener.Result {
	s.got = symbols
	out := make([]screener.Result, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, screener.Result{Symbol: sym, Status: screener.BuyCandidate})
	}
	return out
}

type testEnv struct {
	srv       *httptest.Server
	watchlist *store.MemoryWatchlist
	screener  *stubScreener
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{watchlist: store.NewMemoryWatchlist(), screener: &stubScreener{}}
	s := NewServer(Deps{
		Config:    config.Default(),
		Builder:   report.NewBuilder(stubProvider{}),
		Watchlist: env.watchlist,
		Screener:  env.screener,
	})
	env.srv = httptest.NewServer(s.Handler())
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func TestHealthAndRequestID(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, "abc-123", resp2.Header.Get("X-Request-ID"))
}

func TestValuationReport(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/valuation/acme", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ACME", body["ticker"])
	assert.Equal(t, 2.11, body["fair_value"])
	assert.Equal(t, "undervalued", body["verdict"])
	assert.NotEmpty(t, body["id"])
}

func TestValuationReport_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/valuation/NOPE", http.StatusNotFound},
		{"/api/valuation/DOWN", http.StatusServiceUnavailable},
		{"/api/valuation/BROKEN", http.StatusBadGateway},
		{"/api/valuation/ACME?required_rate=20", http.StatusBadRequest},
		{"/api/valuation/ACME?perpetual_rate=abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, body := env.do(t, http.MethodGet, tt.path, "")
		assert.Equal(t, tt.status, resp.StatusCode, tt.path)
		assert.NotEmpty(t, body["error"], tt.path)
		assert.Equal(t, resp.Header.Get("X-Request-ID"), body["request_id"], tt.path)
	}
}

func TestValuationReport_CustomAssumptions(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/valuation/ACME?required_rate=10&perpetual_rate=3&cash_flow_growth_rate=5", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	a := body["assumptions"].(map[string]any)
	assert.InDelta(t, 0.10, a["required_rate"], 1e-12)
	assert.InDelta(t, 0.03, a["perpetual_growth_rate"], 1e-12)
}

func TestDCFEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/valuation/dcf",
		`{"fcf_history":[80,90,100,110],"shares_outstanding":10,"required_rate":7,"perpetual_rate":2,"cash_flow_growth_rate":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 211.23, body["fair_value"])
	proj := body["projection"].(map[string]any)
	assert.Len(t, proj["years"], 4)

	resp, body = env.do(t, http.MethodPost, "/api/valuation/dcf", `{"fcf_history":[1000000],"shares_outstanding":1000,"required_rate":10,"perpetual_rate":3,"cash_flow_growth_rate":5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 13615.71, body["fair_value"])

	resp, _ = env.do(t, http.MethodPost, "/api/valuation/dcf", `{"fcf_history":[100],"shares_outstanding":100}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, "defaults apply when rates are omitted")
}

func TestDCFEndpoint_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{
		`{"fcf_history":[],"shares_outstanding":10}`,
		`{"fcf_history":[100],"shares_outstanding":0}`,
		`{"fcf_history":[100],"shares_outstanding":10,"required_rate":15}`,
		`{"fcf_history":[100],"shares_outstanding":10,"perpetual_rate":0.5}`,
		`not json`,
	} {
		resp, out := env.do(t, http.MethodPost, "/api/valuation/dcf", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.NotEmpty(t, out["error"], body)
	}
}

func TestSignalsRows(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/signals/rows", `{
		"current_price": 100,
		"rows": [
			{"metric": "trailingPE", "value": 15},
			{"metric": "operatingMargins", "value": 0.25},
			{"metric": "dcf", "value": 80},
			{"metric": "forwardPE", "value": null}
		]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rows := body["rows"].([]any)
	require.Len(t, rows, 4)
	first := rows[0].(map[string]any)
	assert.Equal(t, "15", first["value"])
	assert.Equal(t, "green", first["color"])
	assert.Equal(t, "25.00%", rows[1].(map[string]any)["value"])
	assert.Equal(t, "red", rows[2].(map[string]any)["color"])
	assert.Equal(t, "N/A", rows[3].(map[string]any)["value"])

	resp, _ = env.do(t, http.MethodPost, "/api/signals/rows", `{"rows":[{"value": 1}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "metric is required")
}

func TestSignalsFindings(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/signals/findings", `{"returnOnEquity":0.20,"debtToEquity":150}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	pos := body["positives"].([]any)
	neg := body["negatives"].([]any)
	require.Len(t, pos, 1)
	require.Len(t, neg, 1)
	assert.Equal(t, "Strong ROE", pos[0].(map[string]any)["label"])
	assert.Equal(t, "High Debt-to-Equity", neg[0].(map[string]any)["label"])

	resp, body = env.do(t, http.MethodPost, "/api/signals/findings", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["positives"])
	assert.NotNil(t, body["positives"])
}

func TestWatchlistAndPortfolio(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/watchlist", `{"ticker":" acme "}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ACME", body["ticker"])

	resp, _ = env.do(t, http.MethodPost, "/api/watchlist", `{"ticker":"acme"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/api/watchlist", `{"ticker":"nope"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/watchlist", `{"ticker":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/watchlist", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"ACME", "NOPE"}, body["tickers"])

	resp, body = env.do(t, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := body["rows"].([]any)
	require.Len(t, rows, 2)
	acme := rows[0].(map[string]any)
	assert.Equal(t, 2.11, acme["dcf_price"])
	assert.Equal(t, true, acme["undervalued"])
	nope := rows[1].(map[string]any)
	assert.Equal(t, 0.0, nope["dcf_price"])
	assert.NotEmpty(t, nope["error"])

	resp, _ = env.do(t, http.MethodDelete, "/api/watchlist/nope", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/api/watchlist/nope", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "removing an absent ticker succeeds")

	list, err := env.watchlist.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME"}, list)
}

func TestScreenerEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/screener?symbols=aapl,%20msft,,", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"AAPL", "MSFT"}, env.screener.got)
	assert.Len(t, body["results"], 2)
}

func TestConfigEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defaults := body["defaults"].(map[string]any)
	assert.Equal(t, 7.0, defaults["required_rate"])
	assert.Equal(t, "memory", body["watchlist_backend"])
	assert.Equal(t, false, body["provider_key_set"])
	bounds := body["bounds"].(map[string]any)
	assert.Equal(t, 12.0, bounds["required_rate"].(map[string]any)["max"])
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodOptions, "/api/watchlist", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodGet, "/health", "")
	env.do(t, http.MethodGet, "/api/valuation/ACME", "")

	resp, err := http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(raw)
	assert.Contains(t, text, "fairvalue_http_requests_total")
	assert.Contains(t, text, `route="/api/valuation/{ticker}"`)
	assert.Contains(t, text, "fairvalue_http_request_duration_seconds")
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", body["error"])
}
