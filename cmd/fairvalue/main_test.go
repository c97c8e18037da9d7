package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("LOG_LEVEL", "error")

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDCFCommand(t *testing.T) {
	out, err := runCLI(t, "dcf", "--fcf", "80,90,100,110", "--shares", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "Fair value per share: 2.11")
	assert.Regexp(t, `(?m)^4\s+`, out, "four projected years")
}

func TestDCFCommand_RateOverrides(t *testing.T) {
	out, err := runCLI(t, "dcf", "--fcf", "1000000", "--shares", "1000",
		"--required-rate", "10", "--perpetual-rate", "3", "--growth-rate", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Fair value per share: 13615.71")
}

func TestDCFCommand_RateOutOfBounds(t *testing.T) {
	_, err := runCLI(t, "dcf", "--fcf", "100", "--shares", "100", "--required-rate", "20")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid assumptions")
}

func TestDCFCommand_ZeroShares(t *testing.T) {
	_, err := runCLI(t, "dcf", "--fcf", "100", "--shares", "0")
	assert.Error(t, err)
}

func TestRowsCommand(t *testing.T) {
	html := `<html><body>
<h3>Income Statement</h3>
<table>
  <tr><th></th><th>2024</th><th>2023</th></tr>
  <tr><td>Gross Profit</td><td>1,000</td><td>900</td></tr>
  <tr><td>Total Revenue</td><td>2,000</td><td>1,800</td></tr>
</table>
</body></html>`
	path := filepath.Join(t.TempDir(), "statements.html")
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	out, err := runCLI(t, "rows", "--html", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Income Statement")
	assert.Regexp(t, `\+\s+Gross Profit\s+1000`, out)
	assert.Regexp(t, `Total Revenue\s+\$2,000`, out)
}

func TestRowsCommand_MissingFile(t *testing.T) {
	_, err := runCLI(t, "rows", "--html", filepath.Join(t.TempDir(), "nope.html"))
	assert.Error(t, err)
}

func TestWatchlistCommand_MemoryBackend(t *testing.T) {
	out, err := runCLI(t, "watchlist", "add", "msft", "aapl")
	require.NoError(t, err)
	assert.Contains(t, out, "added msft")

	_, err = runCLI(t, "watchlist", "add", "  ")
	assert.Error(t, err)
}
