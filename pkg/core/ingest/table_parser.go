package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// =============================================================================
// TABLE PARSER - Extract financial statements from HTML tables
// =============================================================================

var (
	yearPattern  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	datePattern  = regexp.MustCompile(`\b(19|20)\d{2}-\d{2}-\d{2}\b`)
	scaleMatcher = regexp.MustCompile(`(?i)in\s+(thousands|millions|billions)`)
)

// ParseStatementTables extracts every balance sheet, income statement and cash
// flow table found in html. Tables whose kind cannot be identified are skipped.
// When a kind appears more than once, the first table wins.
func ParseStatementTables(html string) (map[StatementKind]*Statement, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse statement HTML: %w", err)
	}

	out := make(map[StatementKind]*Statement, 3)
	total := 0
	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		total++
		title := findTableTitle(table)
		kind, ok := identifyStatement(title)
		if !ok {
			log.Debug().Int("table", i).Str("title", title).Msg("skipping unidentified table")
			return
		}
		if _, seen := out[kind]; seen {
			return
		}
		if s := parseStatementTable(table, kind, detectScale(title)); s != nil {
			out[kind] = s
		}
	})

	log.Debug().Int("tables", total).Int("statements", len(out)).Msg("statement tables parsed")
	return out, nil
}

// findTableTitle looks at the caption, the preceding element, then a single-cell first row.
func findTableTitle(table *goquery.Selection) string {
	if caption := strings.TrimSpace(table.Find("caption").First().Text()); caption != "" {
		return caption
	}
	if prev := table.Prev(); prev.Length() > 0 && !prev.Is("table") {
		text := strings.TrimSpace(prev.Text())
		if _, ok := identifyStatement(text); ok {
			return text
		}
	}
	if title, ok := table.Attr("data-statement"); ok {
		return title
	}
	cells := table.Find("tr").First().Find("td, th")
	if cells.Length() == 1 {
		return strings.TrimSpace(cells.Text())
	}
	return ""
}

func identifyStatement(title string) (StatementKind, bool) {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "balance"), strings.Contains(lower, "financial position"):
		return BalanceSheet, true
	case strings.Contains(lower, "cash flow"):
		return CashFlow, true
	case strings.Contains(lower, "income"), strings.Contains(lower, "operations"), strings.Contains(lower, "earnings"):
		return IncomeStatement, true
	}
	return "", false
}

func detectScale(title string) float64 {
	m := scaleMatcher.FindStringSubmatch(title)
	if m == nil {
		return 1
	}
	switch strings.ToLower(m[1]) {
	case "thousands":
		return 1e3
	case "millions":
		return 1e6
	case "billions":
		return 1e9
	}
	return 1
}

// parseStatementTable reads the first row that carries a year as the period
// header and every following labeled row as a line item.
func parseStatementTable(table *goquery.Selection, kind StatementKind, scale float64) *Statement {
	rows := table.Find("tr")
	if rows.Length() < 2 {
		return nil
	}

	var periods []string
	dataStart := -1
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		var headers []string
		hasYear := false
		row.Find("td, th").Each(func(j int, cell *goquery.Selection) {
			text := strings.TrimSpace(cell.Text())
			if j > 0 {
				headers = append(headers, periodLabel(text))
			}
			if j > 0 && yearPattern.MatchString(text) {
				hasYear = true
			}
		})
		if hasYear {
			periods = headers
			dataStart = i + 1
			return false
		}
		return true
	})
	if dataStart < 0 {
		return nil
	}

	s := &Statement{Kind: kind, Periods: periods, Rows: []StatementRow{}}
	rows.Slice(dataStart, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() == 0 {
			return
		}
		label := strings.Join(strings.Fields(cells.First().Text()), " ")
		if label == "" {
			return
		}
		values := make([]any, len(periods))
		cells.Slice(1, cells.Length()).Each(func(j int, cell *goquery.Selection) {
			if j >= len(values) {
				return
			}
			if v, ok := parseCellValue(cell.Text()); ok {
				values[j] = v * scale
			}
		})
		s.Rows = append(s.Rows, StatementRow{Label: label, Values: values})
	})
	return s
}

func periodLabel(text string) string {
	if d := datePattern.FindString(text); d != "" {
		return d
	}
	if y := yearPattern.FindString(text); y != "" {
		return y
	}
	return strings.TrimSpace(text)
}

// parseCellValue accepts "1,234", "(1,234)", "$ 12.5", "-7" and "12%".
// Dashes and blanks are missing values.
func parseCellValue(text string) (float64, bool) {
	t := strings.TrimSpace(text)
	t = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "", "%", "").Replace(t)
	if t == "" || t == "-" || t == "—" || t == "–" || strings.EqualFold(t, "n/a") {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		negative = true
		t = t[1 : len(t)-1]
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}
