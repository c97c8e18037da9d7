package signals

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"

	"fair_value/pkg/core/metrics"
)

// Formatter renders a numeric metric value for display.
type Formatter func(v float64) string

// FormatRaw prints the shortest decimal representation (15 -> "15", 0.125 -> "0.125").
func FormatRaw(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatTwoDecimals prints v with two decimals.
func FormatTwoDecimals(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// FormatPercent treats v as a fraction: 0.25 -> "25.00%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// FormatCurrency prints v with thousands separators: 1234567 -> "$1,234,567".
func FormatCurrency(v float64) string {
	return "$" + humanize.Commaf(v)
}

// largeNumberThreshold is the cut-off above which unruled numbers are shown as currency.
const largeNumberThreshold = 1e3

// FormatDefault renders a value that has no dedicated rule.
// Numbers above 1000 become currency; everything else is printed as is.
// Nil and NaN render as "N/A".
func FormatDefault(raw any) string {
	if raw == nil {
		return "N/A"
	}
	if f, ok := raw.(float64); ok && math.IsNaN(f) {
		return "N/A"
	}
	if v, ok := metrics.Number(raw); ok {
		if v > largeNumberThreshold {
			return FormatCurrency(v)
		}
		return FormatRaw(v)
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}
