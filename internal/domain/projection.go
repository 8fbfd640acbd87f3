package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ProjectionRow is one row of the forward-projection sheet.
type ProjectionRow struct {
	MonthLabel string // e.g. "2月" or "2026/02"
	Period     int
	Projected  decimal.Decimal // projected actual balance
	Target     decimal.Decimal // target "should-have" balance
}

// Month extracts the calendar month from the row label. Labels start with
// the month number ("2月") or carry it as the last path segment
// ("2026/02"); anything else yields 0.
func (p ProjectionRow) Month() int {
	label := strings.TrimSpace(p.MonthLabel)
	if i := strings.LastIndexAny(label, "/-"); i >= 0 {
		label = label[i+1:]
	}
	digits := label
	for i, r := range label {
		if r < '0' || r > '9' {
			digits = label[:i]
			break
		}
	}
	m, err := strconv.Atoi(digits)
	if err != nil || m < 1 || m > 12 {
		return 0
	}
	return m
}

// TargetFor looks up the target balance for the given month. The second
// return is false when no row matches, in which case callers must fall
// back to the persisted gap instead of deriving one from a zero target.
func TargetFor(rows []ProjectionRow, month int) (decimal.Decimal, bool) {
	for _, r := range rows {
		if r.Month() == month {
			return r.Target, true
		}
	}
	return decimal.Zero, false
}
