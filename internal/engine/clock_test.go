package engine

import (
	"testing"
	"time"

	"github.com/thUser005/project-stocks-profits/pkg/utils"
)

func TestSessionClockWindows(t *testing.T) {
	clock := testClock(t)

	cases := []struct {
		at      time.Time
		open    bool
		buyWin  bool
		sellWin bool
	}{
		{ist(8, 0), false, false, false},
		{ist(9, 15), true, true, false},
		{ist(12, 0), true, true, false},
		{ist(13, 0), true, true, true},
		{ist(14, 45), true, false, true},
		{ist(15, 30), true, false, false},
		{ist(16, 0), false, false, false},
	}
	for _, c := range cases {
		label := c.at.Format("15:04")
		if got := clock.IsSessionOpen(c.at); got != c.open {
			t.Errorf("%s: IsSessionOpen = %v, want %v", label, got, c.open)
		}
		if got := clock.InBuyWindow(c.at); got != c.buyWin {
			t.Errorf("%s: InBuyWindow = %v, want %v", label, got, c.buyWin)
		}
		if got := clock.InSellWindow(c.at); got != c.sellWin {
			t.Errorf("%s: InSellWindow = %v, want %v", label, got, c.sellWin)
		}
	}
}

func TestSessionClockClosedOnWeekend(t *testing.T) {
	clock := testClock(t)

	saturday := time.Date(2025, 6, 21, 10, 0, 0, 0, utils.IndiaLocation)
	if clock.IsSessionOpen(saturday) {
		t.Error("session open on Saturday")
	}
}

func TestShouldResetFiresOncePerDay(t *testing.T) {
	clock := testClock(t)

	if clock.ShouldReset(ist(8, 59)) {
		t.Error("reset fired before boundary")
	}
	if !clock.ShouldReset(ist(9, 1)) {
		t.Error("reset did not fire after boundary")
	}
	// Repeated checks the same day stay false.
	for _, at := range []time.Time{ist(9, 2), ist(12, 0), ist(23, 59)} {
		if clock.ShouldReset(at) {
			t.Errorf("reset fired again at %s", at.Format("15:04"))
		}
	}
	if clock.LastResetDate() != "2025-06-18" {
		t.Errorf("last reset date = %q, want 2025-06-18", clock.LastResetDate())
	}

	// Next calendar day fires again.
	nextDay := ist(9, 30).AddDate(0, 0, 1)
	if !clock.ShouldReset(nextDay) {
		t.Error("reset did not fire on the next day")
	}
}

func TestNewSessionClockRejectsBadTimes(t *testing.T) {
	cfg := testSessionConfig()
	cfg.BuyStart = "nine"
	if _, err := NewSessionClock(cfg); err == nil {
		t.Error("expected error for malformed boundary")
	}
}
