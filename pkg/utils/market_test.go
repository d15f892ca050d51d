package utils

import (
	"testing"
	"time"
)

func TestMarketWindow(t *testing.T) {
	startMs, endMs, err := MarketWindow("2025-06-18")
	if err != nil {
		t.Fatalf("MarketWindow: %v", err)
	}

	start := time.UnixMilli(startMs).In(IndiaLocation)
	end := time.UnixMilli(endMs).In(IndiaLocation)

	if start.Hour() != 9 || start.Minute() != 15 {
		t.Errorf("start = %s, want 09:15", start.Format("15:04"))
	}
	if end.Hour() != 15 || end.Minute() != 30 {
		t.Errorf("end = %s, want 15:30", end.Format("15:04"))
	}
	if start.Day() != 18 || start.Month() != time.June {
		t.Errorf("wrong date: %s", start)
	}
}

func TestMarketWindowRejectsBadDate(t *testing.T) {
	if _, _, err := MarketWindow("18-06-2025"); err == nil {
		t.Error("expected error for non ISO date")
	}
}

func TestTradeDateIsIST(t *testing.T) {
	// 20:00 UTC is 01:30 IST the next day.
	utc := time.Date(2025, 6, 18, 20, 0, 0, 0, time.UTC)
	if got := TradeDate(utc); got != "2025-06-19" {
		t.Errorf("TradeDate = %q, want 2025-06-19", got)
	}
}

func TestIsTradingDay(t *testing.T) {
	wednesday := time.Date(2025, 6, 18, 12, 0, 0, 0, IndiaLocation)
	saturday := time.Date(2025, 6, 21, 12, 0, 0, 0, IndiaLocation)
	sunday := time.Date(2025, 6, 22, 12, 0, 0, 0, IndiaLocation)

	if !IsTradingDay(wednesday) {
		t.Error("Wednesday should be a trading day")
	}
	if IsTradingDay(saturday) || IsTradingDay(sunday) {
		t.Error("weekend should not be a trading day")
	}
}

func TestMinuteOfDay(t *testing.T) {
	at := time.Date(2025, 6, 18, 9, 15, 0, 0, IndiaLocation)
	if got := MinuteOfDay(at); got != MarketOpenMinute {
		t.Errorf("MinuteOfDay = %d, want %d", got, MarketOpenMinute)
	}
}

func TestSessionBoundaries(t *testing.T) {
	at := time.Date(2025, 6, 18, 12, 0, 0, 0, IndiaLocation)

	open := SessionOpenAt(at)
	if open.Hour() != 9 || open.Minute() != 15 {
		t.Errorf("open = %s", open.Format("15:04"))
	}
	if !SessionCloseAt(at).After(open) {
		t.Error("close not after open")
	}
}
