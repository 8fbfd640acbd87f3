package schedule

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yumao/kakeibo/internal/domain"
)

func TestMarker(t *testing.T) {
	if got := Marker("telecom", time.February, 2026); got != "fixed:telecom:2026-02" {
		t.Errorf("Marker = %q, want fixed:telecom:2026-02", got)
	}
	if got := Marker("payday", time.December, 2026); got != "fixed:payday:2026-12" {
		t.Errorf("Marker = %q, want fixed:payday:2026-12", got)
	}
}

func TestFired(t *testing.T) {
	now := time.Date(2026, time.June, 20, 0, 0, 0, 0, time.UTC)
	trig := Trigger{Key: "telecom", Label: "Telecom bill"}

	tests := []struct {
		name string
		rows []domain.Transaction
		want bool
	}{
		{"no rows", nil, false},
		{"marker match", []domain.Transaction{{Marker: "fixed:telecom:2026-06"}}, true},
		{"stale marker from another month", []domain.Transaction{{Marker: "fixed:telecom:2026-05"}}, false},
		{"legacy keyword, case-insensitive", []domain.Transaction{{Description: "TELECOM June bill"}}, true},
		{"unrelated row", []domain.Transaction{{Description: "groceries"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fired(trig, tt.rows, now); got != tt.want {
				t.Errorf("Fired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDue(t *testing.T) {
	triggers := []Trigger{
		{Key: "payday", Day: 25, Amount: decimal.NewFromInt(4000), Inflow: true},
		{Key: "telecom", Day: 10, Amount: decimal.NewFromInt(60)},
	}

	// On the 20th only the telecom gate has passed.
	now := time.Date(2026, time.June, 20, 0, 0, 0, 0, time.UTC)
	due := Due(triggers, nil, now)
	if len(due) != 1 || due[0].Key != "telecom" {
		t.Fatalf("Due = %+v, want just telecom", due)
	}

	// Once fired it drops out for the rest of the month.
	rows := []domain.Transaction{{Marker: "fixed:telecom:2026-06"}}
	if due := Due(triggers, rows, now); len(due) != 0 {
		t.Errorf("Due after firing = %+v, want none", due)
	}

	// On the 25th payday becomes due as well.
	later := time.Date(2026, time.June, 25, 0, 0, 0, 0, time.UTC)
	due = Due(triggers, rows, later)
	if len(due) != 1 || due[0].Key != "payday" {
		t.Errorf("Due on the 25th = %+v, want just payday", due)
	}
}

func TestFind(t *testing.T) {
	triggers := []Trigger{{Key: "payday"}, {Key: "telecom"}}

	if trig, ok := Find(triggers, "telecom"); !ok || trig.Key != "telecom" {
		t.Errorf("Find(telecom) = %+v, %v", trig, ok)
	}
	if _, ok := Find(triggers, "rent"); ok {
		t.Error("Find(rent) should not match")
	}
}
