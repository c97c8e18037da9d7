// Package metrics defines the loosely typed bag of fundamentals that flows
// from a data provider into valuation and signal classification.
package metrics

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Well-known keys. Providers may add any other key.
const (
	LongName                     = "longName"
	Symbol                       = "symbol"
	CurrentPrice                 = "currentPrice"
	MarketCap                    = "marketCap"
	SharesOutstanding            = "sharesOutstanding"
	TrailingPE                   = "trailingPE"
	ForwardPE                    = "forwardPE"
	TrailingPegRatio             = "trailingPegRatio"
	PriceToSalesTrailing12Months = "priceToSalesTrailing12Months"
	PriceToBook                  = "priceToBook"
	OperatingMargins             = "operatingMargins"
	EarningsQuarterlyGrowth      = "earningsQuarterlyGrowth"
	GrossProfits                 = "grossProfits"
	NetIncomeToCommon            = "netIncomeToCommon"
	FreeCashflow                 = "freeCashflow"
	OperatingCashflow            = "operatingCashflow"
	TotalCash                    = "totalCash"
	CurrentRatio                 = "currentRatio"
	ReturnOnEquity               = "returnOnEquity"
	ReturnOnInvestment           = "returnOnInvestment"
	TrailingEps                  = "trailingEps"
	RevenueGrowth                = "revenueGrowth"
	DebtToEquity                 = "debtToEquity"
	TotalAssets                  = "totalAssets"
	TotalLiabilities             = "totalLiabilities"
	BookValue                    = "bookValue"
	Industry                     = "industry"
	Sector                       = "sector"
	Website                      = "website"
	Description                  = "description"

	// DCF is injected after valuation.
	DCF = "dcf"
)

// Bag maps metric name to a number, a string or nil.
// Missing keys, nil values and NaN are all treated as absent.
type Bag map[string]any

// New returns an empty bag.
func New() Bag {
	return Bag{}
}

// Set stores a value. Nil values are kept so that "reported as null" survives round trips.
func (b Bag) Set(key string, value any) {
	b[key] = value
}

// SetFloat stores v, or nil when ok is false.
func (b Bag) SetFloat(key string, v float64, ok bool) {
	if !ok {
		b[key] = nil
		return
	}
	b[key] = v
}

// Has reports whether key holds a non-nil value.
func (b Bag) Has(key string) bool {
	v, ok := b[key]
	return ok && v != nil
}

// Float returns the numeric value stored under key.
// ok is false when the key is absent, nil, NaN or not a number.
func (b Bag) Float(key string) (float64, bool) {
	v, ok := b[key]
	if !ok {
		return 0, false
	}
	return Number(v)
}

// String returns the value under key as text; numbers are formatted with %v.
func (b Bag) String(key string) (string, bool) {
	v, ok := b[key]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	default:
		return fmt.Sprintf("%v", s), true
	}
}

// Merge copies every entry of other into b, overwriting existing keys.
func (b Bag) Merge(other Bag) {
	for k, v := range other {
		b[k] = v
	}
}

// Keys returns the keys in ascending order.
func (b Bag) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy.
func (b Bag) Clone() Bag {
	out := make(Bag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Number converts any Go numeric type (and json.Number) to float64.
// Strings, bools and nil are not numbers. NaN is reported as not ok.
func Number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
