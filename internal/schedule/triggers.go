// Package schedule surfaces day-of-month-gated one-click actions:
// "payday has arrived", "telecom bill due". A trigger fires at most once
// per month; an exact structured marker on the recorded row is the
// primary guard, with a case-insensitive keyword scan kept for rows
// written before the marker column existed.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yumao/kakeibo/internal/domain"
)

// Trigger is one configured fixed-cost action.
type Trigger struct {
	Key     string          // stable identifier, also the legacy keyword
	Label   string          // ledger description when fired
	Amount  decimal.Decimal //
	Inflow  bool            // payday-style income rather than a bill
	Day     int             // due from this day of the month onward
	Account string          // asset account the cash moves through
}

// Marker builds the structured period marker for a trigger, e.g.
// "fixed:telecom:2026-02". Presence of this exact string on any
// current-month row means the trigger already fired.
func Marker(key string, month time.Month, year int) string {
	return fmt.Sprintf("fixed:%s:%04d-%02d", key, year, int(month))
}

// MarkerFor is Marker keyed off a concrete time.
func MarkerFor(key string, now time.Time) string {
	return Marker(key, now.Month(), now.Year())
}

// Fired reports whether the trigger already ran this month. monthRows
// must be the current month's ledger rows.
func Fired(t Trigger, monthRows []domain.Transaction, now time.Time) bool {
	marker := MarkerFor(t.Key, now)
	key := strings.ToLower(t.Key)
	for _, tx := range monthRows {
		if tx.Marker == marker {
			return true
		}
		if strings.Contains(strings.ToLower(tx.Description), key) {
			return true
		}
	}
	return false
}

// Due filters the configured triggers down to the ones whose calendar
// gate has passed and which have not fired this month.
func Due(triggers []Trigger, monthRows []domain.Transaction, now time.Time) []Trigger {
	var due []Trigger
	for _, t := range triggers {
		if now.Day() < t.Day {
			continue
		}
		if Fired(t, monthRows, now) {
			continue
		}
		due = append(due, t)
	}
	return due
}

// Find returns the trigger with the given key.
func Find(triggers []Trigger, key string) (Trigger, bool) {
	for _, t := range triggers {
		if t.Key == key {
			return t, true
		}
	}
	return Trigger{}, false
}
