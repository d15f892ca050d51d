package engine

import (
	"math"
	"testing"
	"time"

	"github.com/thUser005/project-stocks-profits/internal/config"
	"github.com/thUser005/project-stocks-profits/internal/models"
	"github.com/thUser005/project-stocks-profits/pkg/utils"
)

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		ResetTime: "09:00",
		BuyStart:  "09:15",
		BuyEnd:    "14:30",
		SellStart: "13:00",
		SellEnd:   "15:15",
	}
}

func testClock(t *testing.T) *SessionClock {
	t.Helper()
	clock, err := NewSessionClock(testSessionConfig())
	if err != nil {
		t.Fatalf("NewSessionClock: %v", err)
	}
	return clock
}

// ist returns a weekday instant (Wed 2025-06-18) at the given IST time.
func ist(hour, minute int) time.Time {
	return time.Date(2025, 6, 18, hour, minute, 0, 0, utils.IndiaLocation)
}

func testSignal() models.Signal {
	return models.Signal{
		Symbol:   "RELIANCE",
		Open:     96,
		Entry:    100,
		Target:   105,
		Stoploss: 99,
		Quantity: 10,
	}
}

func TestAdvanceEntryThenTarget(t *testing.T) {
	machine := NewMachine(testClock(t))
	state := NewBuyState(testSignal())

	prices := []float64{95, 98, 100, 103, 107}
	wantKinds := []models.EventKind{"", "", models.EventEntry, "", models.EventTargetHit}

	now := ist(10, 0)
	for i, price := range prices {
		event := machine.Advance(state, price, now)
		if wantKinds[i] == "" {
			if event != nil {
				t.Fatalf("price %.0f: unexpected event %s", price, event.Kind)
			}
			continue
		}
		if event == nil || event.Kind != wantKinds[i] {
			t.Fatalf("price %.0f: want %s, got %+v", price, wantKinds[i], event)
		}
	}

	if state.Phase != models.PhaseExited || state.ExitReason != models.ExitTarget {
		t.Errorf("final state = %s/%s, want EXITED/TARGET", state.Phase, state.ExitReason)
	}
	if state.EntryPrice != 100 {
		t.Errorf("entry price = %.2f, want 100", state.EntryPrice)
	}
	if state.ExitPrice != 107 {
		t.Errorf("exit price = %.2f, want 107", state.ExitPrice)
	}
}

func TestAdvanceEntryThenStoploss(t *testing.T) {
	machine := NewMachine(testClock(t))
	state := NewBuyState(testSignal())
	now := ist(10, 0)

	if event := machine.Advance(state, 100, now); event == nil || event.Kind != models.EventEntry {
		t.Fatalf("want ENTRY, got %+v", event)
	}
	if event := machine.Advance(state, 99, now); event == nil || event.Kind != models.EventStoplossHit {
		t.Fatalf("want STOPLOSS_HIT, got %+v", event)
	}
	if state.ExitReason != models.ExitStoploss {
		t.Errorf("exit reason = %s, want STOPLOSS", state.ExitReason)
	}
}

func TestAdvanceTerminalStateIgnoresPrices(t *testing.T) {
	machine := NewMachine(testClock(t))
	state := NewBuyState(testSignal())
	now := ist(10, 0)

	machine.Advance(state, 100, now)
	machine.Advance(state, 107, now)

	for _, price := range []float64{50, 100, 200} {
		if event := machine.Advance(state, price, now); event != nil {
			t.Fatalf("terminal state emitted %s at %.0f", event.Kind, price)
		}
	}
}

func TestAdvanceOutsideBuyWindow(t *testing.T) {
	machine := NewMachine(testClock(t))
	state := NewBuyState(testSignal())

	// Before open and after the buy cutoff no entry may fire.
	for _, now := range []time.Time{ist(8, 0), ist(15, 0)} {
		if event := machine.Advance(state, 100, now); event != nil {
			t.Fatalf("entry fired at %s", now.Format("15:04"))
		}
	}
	if state.Phase != models.PhasePending {
		t.Errorf("phase = %s, want PENDING", state.Phase)
	}
}

func TestAdvanceExitAllowedAfterBuyWindow(t *testing.T) {
	machine := NewMachine(testClock(t))
	state := NewBuyState(testSignal())

	machine.Advance(state, 100, ist(10, 0))

	// Exit levels keep working after the entry cutoff.
	if event := machine.Advance(state, 105, ist(15, 0)); event == nil || event.Kind != models.EventTargetHit {
		t.Fatalf("want TARGET_HIT after cutoff, got %+v", event)
	}
}

func TestAdvanceBarColdStart(t *testing.T) {
	machine := NewMachine(testClock(t))
	signal := testSignal()
	signal.Stoploss = 97
	state := NewBuyState(signal)

	bars := []models.Candle{
		{Timestamp: ist(9, 30), Open: 98, High: 99, Low: 97.5, Close: 98},
		{Timestamp: ist(9, 33), Open: 98, High: 101, Low: 99, Close: 100},
	}
	for _, bar := range bars {
		machine.AdvanceBar(state, bar)
	}

	if state.Phase != models.PhaseEntered {
		t.Errorf("phase = %s, want ENTERED", state.Phase)
	}
}

func TestAdvanceBarSameBarTieBreak(t *testing.T) {
	machine := NewMachine(testClock(t))
	state := NewBuyState(testSignal())

	machine.Advance(state, 100, ist(10, 0))

	// The bar spans both the target and the stoploss. Target wins.
	event := machine.AdvanceBar(state, models.Candle{
		Timestamp: ist(10, 3), Open: 100, High: 106, Low: 98, Close: 101,
	})
	if event == nil || event.Kind != models.EventTargetHit {
		t.Fatalf("want TARGET_HIT, got %+v", event)
	}
	if state.ExitReason != models.ExitTarget {
		t.Errorf("exit reason = %s, want TARGET", state.ExitReason)
	}
}

func TestAdvanceBarEntryAndExitInOneBar(t *testing.T) {
	machine := NewMachine(testClock(t))
	state := NewBuyState(testSignal())

	event := machine.AdvanceBar(state, models.Candle{
		Timestamp: ist(10, 0), Open: 99, High: 106, Low: 99, Close: 105,
	})
	if event == nil || event.Kind != models.EventTargetHit {
		t.Fatalf("want TARGET_HIT, got %+v", event)
	}
	if state.Phase != models.PhaseExited {
		t.Errorf("phase = %s, want EXITED", state.Phase)
	}
}

func TestSellSideMachine(t *testing.T) {
	machine := NewMachine(testClock(t))
	state := NewSellState(models.Signal{
		Symbol:   "TCS",
		Entry:    198.90,
		Stoploss: 201.60,
		Target:   193.55,
	})
	now := ist(13, 30)

	if event := machine.Advance(state, 199.50, now); event != nil {
		t.Fatalf("unexpected event above entry: %+v", event)
	}
	if event := machine.Advance(state, 198.90, now); event == nil || event.Kind != models.EventEntry {
		t.Fatalf("want ENTRY at entry level, got %+v", event)
	}
	if event := machine.Advance(state, 201.60, now); event == nil || event.Kind != models.EventStoplossHit {
		t.Fatalf("want STOPLOSS_HIT on rally, got %+v", event)
	}
}

func TestSellEntryOutsideWindow(t *testing.T) {
	machine := NewMachine(testClock(t))
	state := NewSellState(models.Signal{Symbol: "TCS", Entry: 100, Stoploss: 102, Target: 97})

	// 10:00 is inside the buy window but before the sell window.
	if event := machine.Advance(state, 99, ist(10, 0)); event != nil {
		t.Fatalf("sell entry fired outside window: %+v", event)
	}
}

func TestDeriveSellSignal(t *testing.T) {
	cfg := config.SellConfig{EntryPct: 0.55, StopPct: 1.35, TargetPct: 2.70}
	derived := DeriveSellSignal(models.Signal{Symbol: "TCS", Open: 195, Quantity: 5}, 200, cfg)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"entry", derived.Entry, 198.90},
		{"stoploss", derived.Stoploss, 201.60},
		{"target", derived.Target, 193.55},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s = %.4f, want %.2f", c.name, c.got, c.want)
		}
	}
	if derived.Symbol != "TCS" || derived.Quantity != 5 {
		t.Errorf("symbol/quantity not carried: %+v", derived)
	}
}

func TestRoundToTick(t *testing.T) {
	cases := map[float64]float64{
		100.02: 100.00,
		100.03: 100.05,
		99.98:  100.00,
		0.07:   0.05,
	}
	for in, want := range cases {
		if got := roundToTick(in); math.Abs(got-want) > 1e-9 {
			t.Errorf("roundToTick(%v) = %v, want %v", in, got, want)
		}
	}
}
