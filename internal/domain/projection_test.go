package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestProjectionRowMonth(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"2月", 2},
		{"12月", 12},
		{"2026/02", 2},
		{"2026-11", 11},
		{"3", 3},
		{"", 0},
		{"總計", 0},
		{"13月", 0},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			row := ProjectionRow{MonthLabel: tt.label}
			if got := row.Month(); got != tt.want {
				t.Errorf("Month(%q) = %d, want %d", tt.label, got, tt.want)
			}
		})
	}
}

func TestTargetFor(t *testing.T) {
	rows := []ProjectionRow{
		{MonthLabel: "5月", Target: decimal.NewFromInt(12000)},
		{MonthLabel: "6月", Target: decimal.NewFromInt(13500)},
	}

	target, ok := TargetFor(rows, 6)
	if !ok {
		t.Fatal("expected a target for month 6")
	}
	if target.String() != "13500" {
		t.Errorf("target = %s, want 13500", target)
	}

	if _, ok := TargetFor(rows, 9); ok {
		t.Error("expected no target for month 9")
	}
}
