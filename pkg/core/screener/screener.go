// Package screener applies a simple technical buy filter to daily price history:
// uptrend (SMA50 above SMA200), not overbought (RSI14 below 70) and volume
// above its 50-day average.
package screener

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"

	"fair_value/pkg/core/ingest"
)

// Status is the outcome of screening one symbol.
type Status string

const (
	InsufficientData     Status = "insufficient_data"
	NotUptrend           Status = "not_uptrend"
	Overbought           Status = "overbought"
	NoVolumeConfirmation Status = "no_volume_confirmation"
	BuyCandidate         Status = "buy_candidate"
	FetchFailed          Status = "fetch_failed"
)

// Indicator windows and thresholds.
const (
	ShortWindow     = 50
	LongWindow      = 200
	RSIPeriod       = 14
	VolumeWindow    = 50
	OverboughtLevel = 70.0
)

// DefaultSymbols is screened when no symbols are given.
var DefaultSymbols = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"}

var messages = map[Status]string{
	InsufficientData:     "Not enough data (need 200+ days)",
	NotUptrend:           "Not in uptrend (50MA <= 200MA)",
	Overbought:           "Overbought (RSI >= 70)",
	NoVolumeConfirmation: "No volume confirmation",
	BuyCandidate:         "Meets criteria - potential buy",
}

// Indicators are the values the decision was based on.
type Indicators struct {
	LastClose  float64 `json:"last_close"`
	LastVolume float64 `json:"last_volume"`
	SMA50      float64 `json:"sma50"`
	SMA200     float64 `json:"sma200"`
	RSI14      float64 `json:"rsi14"`
	VolumeMA50 float64 `json:"volume_ma50"`
}

// Result is the screening outcome for one symbol.
type Result struct {
	Symbol     string      `json:"symbol"`
	Status     Status      `json:"status"`
	Message    string      `json:"message"`
	Indicators *Indicators `json:"indicators,omitempty"`
	Bars       int         `json:"bars"`
}

// Check screens bars, ordered oldest first.
func Check(symbol string, bars []ingest.PriceBar) Result {
	res := Result{Symbol: symbol, Bars: len(bars)}
	if len(bars) < LongWindow {
		return res.with(InsufficientData)
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	sma50, ok1 := SMA(closes, ShortWindow)
	sma200, ok2 := SMA(closes, LongWindow)
	rsi, ok3 := RSI(closes, RSIPeriod)
	volMA, ok4 := SMA(volumes, VolumeWindow)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return res.with(InsufficientData)
	}

	last := bars[len(bars)-1]
	res.Indicators = &Indicators{
		LastClose:  last.Close,
		LastVolume: last.Volume,
		SMA50:      sma50,
		SMA200:     sma200,
		RSI14:      rsi,
		VolumeMA50: volMA,
	}

	switch {
	case sma50 <= sma200:
		return res.with(NotUptrend)
	case rsi >= OverboughtLevel:
		return res.with(Overbought)
	case last.Volume <= volMA:
		return res.with(NoVolumeConfirmation)
	default:
		return res.with(BuyCandidate)
	}
}

func (r Result) with(s Status) Result {
	r.Status = s
	r.Message = messages[s]
	return r
}

// SMA is the mean of the last window values.
func SMA(values []float64, window int) (float64, bool) {
	if window <= 0 || len(values) < window {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-window:] {
		sum += v
	}
	mean := sum / float64(window)
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return 0, false
	}
	return mean, true
}

// RSI is the relative strength index over the last period price changes,
// using simple means of gains and losses. A window without losses is 100.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}
	var gain, loss float64
	tail := closes[len(closes)-period-1:]
	for i := 1; i < len(tail); i++ {
		d := tail[i] - tail[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)
	if loss == 0 {
		return 100, true
	}
	return 100 - 100/(1+gain/loss), true
}

// Screener fetches price history and screens symbols.
type Screener struct {
	provider ingest.Provider
}

// New creates a Screener backed by provider.
func New(provider ingest.Provider) *Screener {
	return &Screener{provider: provider}
}

// Screen checks each symbol in order. A symbol whose history cannot be
// fetched gets FetchFailed with the error as message.
func (s *Screener) Screen(ctx context.Context, symbols []string) []Result {
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}
	out := make([]Result, 0, len(symbols))
	for _, sym := range symbols {
		bars, err := s.provider.FetchPriceHistory(ctx, sym)
		if err != nil {
			log.Warn().Str("symbol", sym).Err(err).Msg("price history unavailable")
			out = append(out, Result{Symbol: sym, Status: FetchFailed, Message: err.Error()})
			continue
		}
		res := Check(sym, bars)
		log.Debug().Str("symbol", sym).Str("status", string(res.Status)).Msg("screened")
		out = append(out, res)
	}
	return out
}
