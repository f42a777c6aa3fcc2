package ingestion

import (
	"testing"
	"time"
)

func TestMonthWindows(t *testing.T) {
	windows, err := MonthWindows(2020, 2025)
	if err != nil {
		t.Fatalf("MonthWindows failed: %v", err)
	}

	if len(windows) != 72 {
		t.Fatalf("expected 72 windows, got %d", len(windows))
	}

	first := windows[0]
	if !first.Start.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) || !first.End.Equal(time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected first window %s", first)
	}

	dec := windows[11]
	if dec.String() != "2020-12-01..2021-01-01" {
		t.Errorf("expected December to roll into the next year, got %s", dec)
	}

	last := windows[len(windows)-1]
	if last.String() != "2025-12-01..2026-01-01" {
		t.Errorf("unexpected last window %s", last)
	}

	// windows are contiguous and never overlap
	for i := 1; i < len(windows); i++ {
		if !windows[i].Start.Equal(windows[i-1].End) {
			t.Errorf("gap or overlap between %s and %s", windows[i-1], windows[i])
		}
	}
}

func TestMonthWindows_SingleYear(t *testing.T) {
	windows, err := MonthWindows(2024, 2024)
	if err != nil {
		t.Fatalf("MonthWindows failed: %v", err)
	}
	if len(windows) != 12 {
		t.Errorf("expected 12 windows, got %d", len(windows))
	}
	if windows[1].String() != "2024-02-01..2024-03-01" {
		t.Errorf("unexpected February window %s", windows[1])
	}
}

func TestMonthWindows_ReversedRange(t *testing.T) {
	if _, err := MonthWindows(2025, 2020); err == nil {
		t.Error("expected error for reversed range")
	}
}
