package engine

import (
	"math"
	"time"

	"github.com/thUser005/project-stocks-profits/internal/config"
	"github.com/thUser005/project-stocks-profits/internal/models"
)

// Machine advances per-symbol trade state from prices. It holds no
// per-symbol data itself; the caller owns every TradeState and feeds
// them through one at a time.
//
// Transitions are monotonic: PENDING -> ENTERED -> EXITED, never
// skipping, never reversing. EXITED is terminal for the day.
type Machine struct {
	clock *SessionClock
}

// NewMachine creates a state machine gated by the given clock.
func NewMachine(clock *SessionClock) *Machine {
	return &Machine{clock: clock}
}

// NewBuyState creates the initial PENDING buy-side state for a signal.
func NewBuyState(signal models.Signal) *models.TradeState {
	return &models.TradeState{
		Symbol: signal.Symbol,
		Side:   models.SideBuy,
		Phase:  models.PhasePending,
		Signal: signal,
	}
}

// NewSellState creates the initial PENDING sell-side state. The signal
// carries levels already derived from the day's observed high.
func NewSellState(signal models.Signal) *models.TradeState {
	return &models.TradeState{
		Symbol: signal.Symbol,
		Side:   models.SideSell,
		Phase:  models.PhasePending,
		Signal: signal,
	}
}

// Advance applies one last-traded price to a state. It mutates state in
// place and returns the emitted event, or nil when nothing changed.
func (m *Machine) Advance(state *models.TradeState, price float64, now time.Time) *models.Event {
	switch state.Phase {
	case models.PhasePending:
		return m.tryEnter(state, price, now)
	case models.PhaseEntered:
		return m.tryExit(state, price, price, now)
	default:
		// EXITED is terminal
		return nil
	}
}

// AdvanceBar applies one historical candle with worst-case-first
// semantics: the bar's favorable extreme checks entry and target, the
// adverse extreme checks stoploss. A single bar may both enter and
// exit; only the later event is returned, matching what a caller
// replaying history cares about (the final transition).
func (m *Machine) AdvanceBar(state *models.TradeState, candle models.Candle) *models.Event {
	favorable, adverse := candle.High, candle.Low
	if state.Side == models.SideSell {
		favorable, adverse = candle.Low, candle.High
	}

	event := (*models.Event)(nil)
	if state.Phase == models.PhasePending {
		event = m.tryEnter(state, favorable, candle.Timestamp)
	}
	if state.Phase == models.PhaseEntered {
		if exit := m.tryExit(state, favorable, adverse, candle.Timestamp); exit != nil {
			event = exit
		}
	}
	return event
}

// tryEnter moves PENDING to ENTERED when the price reaches the entry
// level inside the side's decision window.
func (m *Machine) tryEnter(state *models.TradeState, price float64, now time.Time) *models.Event {
	if !m.inWindow(state.Side, now) {
		return nil
	}
	if !crossed(state.Side, price, state.Signal.Entry) {
		return nil
	}

	state.Phase = models.PhaseEntered
	state.EnteredAt = now
	state.EntryPrice = price

	return &models.Event{
		Kind:      models.EventEntry,
		Symbol:    state.Symbol,
		Side:      state.Side,
		Price:     price,
		Timestamp: now,
	}
}

// tryExit moves ENTERED to EXITED. Target is evaluated before stoploss:
// when a replayed bar crosses both in the same interval the day is
// scored as a target hit. Live prices can only satisfy one side at a
// time, so the ordering is observable only on replay.
func (m *Machine) tryExit(state *models.TradeState, favorable, adverse float64, now time.Time) *models.Event {
	if crossed(state.Side, favorable, state.Signal.Target) {
		state.Phase = models.PhaseExited
		state.ExitReason = models.ExitTarget
		state.ExitedAt = now
		state.ExitPrice = favorable

		return &models.Event{
			Kind:      models.EventTargetHit,
			Symbol:    state.Symbol,
			Side:      state.Side,
			Price:     favorable,
			Timestamp: now,
		}
	}

	if crossed(opposite(state.Side), adverse, state.Signal.Stoploss) {
		state.Phase = models.PhaseExited
		state.ExitReason = models.ExitStoploss
		state.ExitedAt = now
		state.ExitPrice = adverse

		return &models.Event{
			Kind:      models.EventStoplossHit,
			Symbol:    state.Symbol,
			Side:      state.Side,
			Price:     adverse,
			Timestamp: now,
		}
	}

	return nil
}

func (m *Machine) inWindow(side models.Side, t time.Time) bool {
	if side == models.SideSell {
		return m.clock.InSellWindow(t)
	}
	return m.clock.InBuyWindow(t)
}

// crossed reports whether price has reached level in the direction that
// favors the side: at-or-above for buys, at-or-below for sells.
func crossed(side models.Side, price, level float64) bool {
	if side == models.SideSell {
		return price <= level
	}
	return price >= level
}

func opposite(side models.Side) models.Side {
	if side == models.SideSell {
		return models.SideBuy
	}
	return models.SideSell
}

// DeriveSellSignal computes sell-side levels from the day's observed
// high using the configured percentage tolerances, snapped to the
// exchange tick size.
func DeriveSellSignal(base models.Signal, dayHigh float64, cfg config.SellConfig) models.Signal {
	entry := roundToTick(dayHigh * (1 - cfg.EntryPct/100))
	return models.Signal{
		Symbol:   base.Symbol,
		Open:     base.Open,
		Entry:    entry,
		Stoploss: roundToTick(entry * (1 + cfg.StopPct/100)),
		Target:   roundToTick(entry * (1 - cfg.TargetPct/100)),
		Quantity: base.Quantity,
	}
}

// roundToTick snaps a price to the NSE 0.05 tick.
func roundToTick(v float64) float64 {
	const tick = 0.05
	return math.Round(math.Round(v/tick)*tick*100) / 100
}
