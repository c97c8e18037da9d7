package signals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatters(t *testing.T) {
	assert.Equal(t, "15", FormatRaw(15))
	assert.Equal(t, "0.125", FormatRaw(0.125))
	assert.Equal(t, "3.10", FormatTwoDecimals(3.1))
	assert.Equal(t, "25.00%", FormatPercent(0.25))
	assert.Equal(t, "-3.50%", FormatPercent(-0.035))
	assert.Equal(t, "$1,000", FormatCurrency(1000))
	assert.Equal(t, "$12,345,678.9", FormatCurrency(12345678.9))
}

func TestFormatDefault(t *testing.T) {
	assert.Equal(t, "N/A", FormatDefault(nil))
	assert.Equal(t, "N/A", FormatDefault(math.NaN()))
	assert.Equal(t, "$1,000.5", FormatDefault(1000.5))
	assert.Equal(t, "1000", FormatDefault(1000))
	assert.Equal(t, "Technology", FormatDefault("Technology"))
	assert.Equal(t, "false", FormatDefault(false))
}
