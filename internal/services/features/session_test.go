package features

import (
	"testing"
	"time"
)

func TestSessionAsiaWindow(t *testing.T) {
	// Saturday 03:30 UTC.
	f := ComputeSession(time.Date(2025, 12, 27, 3, 30, 0, 0, time.UTC))
	if f.Label != "asia" {
		t.Fatalf("expected asia, got %s", f.Label)
	}
	if f.MinutesIntoSess != 210 || f.MinutesUntilClose != 269 {
		t.Fatalf("unexpected minutes %d/%d", f.MinutesIntoSess, f.MinutesUntilClose)
	}
	if !f.WeekendFlag || f.DayOfWeek != 5 {
		t.Fatalf("expected Saturday weekend, got dow=%d weekend=%v", f.DayOfWeek, f.WeekendFlag)
	}
	if f.CMECloseProximity != 0 {
		t.Fatalf("CME countdown only runs on Friday")
	}
}

func TestSessionBoundaries(t *testing.T) {
	cases := []struct {
		hour  int
		label string
	}{
		{0, "asia"},
		{7, "asia"},
		{8, "london"},
		{15, "london"},
		{16, "ny"},
		{23, "ny"},
	}
	for _, c := range cases {
		f := ComputeSession(time.Date(2025, 6, 2, c.hour, 0, 0, 0, time.UTC))
		if f.Label != c.label {
			t.Fatalf("hour %d: expected %s, got %s", c.hour, c.label, f.Label)
		}
	}
}

func TestCMECloseCountdown(t *testing.T) {
	// Friday 18:30 UTC: 150 minutes before the 21:00 close.
	f := ComputeSession(time.Date(2025, 6, 6, 18, 30, 0, 0, time.UTC))
	if f.DayOfWeek != 4 {
		t.Fatalf("expected Friday, got dow=%d", f.DayOfWeek)
	}
	if f.CMECloseProximity != 150 {
		t.Fatalf("expected 150 minutes to CME close, got %v", f.CMECloseProximity)
	}

	// After the close the countdown is zero.
	after := ComputeSession(time.Date(2025, 6, 6, 22, 0, 0, 0, time.UTC))
	if after.CMECloseProximity != 0 {
		t.Fatalf("countdown must stop after close, got %v", after.CMECloseProximity)
	}
}
