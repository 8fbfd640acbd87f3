package sheets

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// dateLayouts are the formats seen in the ledger sheet over the years.
var dateLayouts = []string{"1/2", "2006/1/2", "2006-1-2"}

// CoerceAmount parses a numeric cell defensively: thousands separators
// and surrounding whitespace are stripped, and anything unparsable
// becomes zero rather than an error.
func CoerceAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ResolveDate coerces a raw date cell into a calendar date and a month
// number. An empty cell maps to month 0, which excludes the row from all
// monthly views. A non-empty cell that matches none of the known layouts
// resolves to the current month with a zero date: data is never silently
// dropped just because someone typed "2/30".
func ResolveDate(raw string, now time.Time) (civil.Date, int) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return civil.Date{}, 0
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		d := civil.DateOf(t)
		if d.Year == 0 {
			// Month/day only; the year is inferred as current.
			d.Year = now.Year()
		}
		return d, int(d.Month)
	}
	return civil.Date{}, int(now.Month())
}

// cellString renders a raw cell value from the Values API as a string.
func cellString(row []interface{}, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	switch v := row[idx].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return decimalFromCell(row, idx).String()
	}
}

// decimalFromCell coerces a raw cell value to a decimal, tolerating the
// formatted strings and float64 values the API may return.
func decimalFromCell(row []interface{}, idx int) decimal.Decimal {
	if idx < 0 || idx >= len(row) {
		return decimal.Zero
	}
	switch v := row[idx].(type) {
	case string:
		return CoerceAmount(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	}
	return decimal.Zero
}
