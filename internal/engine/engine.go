package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/thUser005/project-stocks-profits/internal/config"
	"github.com/thUser005/project-stocks-profits/internal/logging"
	"github.com/thUser005/project-stocks-profits/internal/models"
	"github.com/thUser005/project-stocks-profits/internal/notify"
	"github.com/thUser005/project-stocks-profits/internal/orders"
	"github.com/thUser005/project-stocks-profits/internal/signals"
	"github.com/thUser005/project-stocks-profits/internal/store"
	"github.com/thUser005/project-stocks-profits/pkg/utils"
)

// profitThreshold marks a symbol profitable when its final price closes
// at least this multiple of the signal open.
const profitThreshold = 1.005

// Engine drives the polling loop: load signals, fetch quotes, advance
// state machines, emit events. One Engine tracks one trading day at a
// time and resets itself at the configured boundary.
type Engine struct {
	cfg *config.Config

	clock      *SessionClock
	machine    *Machine
	fetcher    *Fetcher
	reconciler *Reconciler
	signals    signals.Source
	notifier   notify.Notifier
	placer     orders.Placer
	journal    store.DataStore

	states *StateStore
	prices *LastPrices

	// nowFn is replaceable in tests.
	nowFn func() time.Time

	background sync.WaitGroup

	reportSent bool

	logger zerolog.Logger
}

// New wires an engine from its collaborators. placer and journal may be
// nil; the engine then skips order placement and persistence.
func New(cfg *config.Config, clock *SessionClock, fetcher *Fetcher, reconciler *Reconciler,
	src signals.Source, notifier notify.Notifier, placer orders.Placer, journal store.DataStore,
	logger zerolog.Logger) *Engine {

	if notifier == nil {
		notifier = notify.NewNoOpNotifier()
	}
	return &Engine{
		cfg:        cfg,
		clock:      clock,
		machine:    NewMachine(clock),
		fetcher:    fetcher,
		reconciler: reconciler,
		signals:    src,
		notifier:   notifier,
		placer:     placer,
		journal:    journal,
		states:     NewStateStore(),
		prices:     NewLastPrices(),
		nowFn:      time.Now,
		logger:     logging.WithComponent(logger, "engine"),
	}
}

// Run executes polling cycles until ctx is cancelled. A panicking cycle
// is recovered, reported and followed by the error backoff; the loop
// itself never dies.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info().
		Int("concurrency", e.cfg.Tracker.Concurrency).
		Dur("poll_interval", e.cfg.Tracker.PollInterval).
		Msg("tracker started")

	for {
		delay := e.safeCycle(ctx)

		select {
		case <-ctx.Done():
			e.background.Wait()
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// safeCycle runs one cycle under a recover and returns the delay before
// the next one.
func (e *Engine) safeCycle(ctx context.Context) (delay time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("cycle panic: %v", r)
			e.logger.Error().Err(err).Msg("cycle recovered")
			_ = e.notifier.SendError(ctx, err, "tracker cycle")
			delay = e.cfg.Tracker.ErrorBackoff
		}
	}()
	return e.cycle(ctx)
}

// cycle performs a single pass: daily reset check, signal refresh,
// quote fetch, state advancement.
func (e *Engine) cycle(ctx context.Context) time.Duration {
	now := e.nowFn()

	if e.clock.ShouldReset(now) {
		e.resetDay(now)
	}

	if !e.clock.IsSessionOpen(now) {
		e.finalizeDay(ctx, now)
		return e.cfg.Tracker.IdleInterval
	}

	e.refreshSignals(ctx, now)

	symbols := e.states.ActiveSymbols()
	if e.cfg.Tracker.SellEnabled && !e.clock.AfterSellWindow(now) {
		// Buy-terminal symbols stay in the poll set so an early target
		// hit can still arm its sell leg once the window opens.
		symbols = mergeSymbols(symbols, e.states.SellCandidates())
	}
	if len(symbols) == 0 {
		return e.cfg.Tracker.IdleInterval
	}

	quotes := e.fetcher.FetchAll(ctx, symbols)
	for symbol, candle := range quotes {
		if candle == nil {
			continue
		}
		e.applyQuote(ctx, symbol, candle, now)
	}

	return e.cfg.Tracker.PollInterval
}

// mergeSymbols appends the symbols of b not already present in a.
func mergeSymbols(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		if _, dup := seen[s]; !dup {
			a = append(a, s)
		}
	}
	return a
}

// resetDay clears all state for a new trading day.
func (e *Engine) resetDay(now time.Time) {
	date := utils.TradeDate(now)
	e.states.ResetAll(date)
	e.prices.Reset()
	e.reportSent = false
	e.logger.Info().Str("date", date).Msg("daily reset")
}

// refreshSignals re-queries the signal source and seeds state for any
// symbol not seen yet today. The source is the authority: a signal
// appearing mid-session starts tracking on the cycle it shows up, one
// disappearing leaves its existing state alone. A fetch failure is the
// same as an empty list; the cycle carries on with what it has.
func (e *Engine) refreshSignals(ctx context.Context, now time.Time) {
	date := utils.TradeDate(now)
	list, err := e.signals.Fetch(ctx, date)
	if err != nil {
		e.logger.Warn().Err(err).Msg("signal fetch failed")
		return
	}
	if e.states.Date() == "" {
		e.states.ResetAll(date)
	}

	seeded := 0
	for _, signal := range list {
		if existing := e.states.Buy(signal.Symbol); existing != nil {
			continue
		}
		e.states.PutBuy(NewBuyState(signal))
		e.dispatchReconcile(ctx, signal, now)
		seeded++
	}

	if seeded > 0 {
		e.logger.Info().Str("date", date).Int("new", seeded).Int("total", len(list)).Msg("signals seeded")
	}
}

// dispatchReconcile starts the cold-start replay for a symbol in the
// background so the first cycle is not blocked behind history fetches.
// Each symbol replays at most once per day.
func (e *Engine) dispatchReconcile(ctx context.Context, signal models.Signal, now time.Time) {
	if now.Before(utils.SessionOpenAt(now).Add(time.Duration(e.cfg.Tracker.CandleIntervalMinutes) * time.Minute)) {
		// Fresh session, nothing to replay.
		e.states.CompleteReconcile(e.states.Date(), signal.Symbol, nil, 0)
		return
	}
	if !e.states.BeginReconcile(signal.Symbol) {
		return
	}

	date := e.states.Date()
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		state, dayHigh, err := e.reconciler.Replay(ctx, signal, now)
		if err != nil {
			e.logger.Warn().Str("symbol", signal.Symbol).Err(err).Msg("replay failed")
			e.states.FailReconcile(date, signal.Symbol)
			return
		}
		e.states.CompleteReconcile(date, signal.Symbol, state, dayHigh)
	}()
}

// applyQuote feeds one fetched candle through the buy and sell machines
// and routes any emitted events.
func (e *Engine) applyQuote(ctx context.Context, symbol string, candle *models.Candle, now time.Time) {
	price := candle.Close
	e.prices.Observe(symbol, price)
	e.states.ObserveHigh(symbol, candle.High)

	if buyState := e.states.Buy(symbol); buyState != nil && e.states.Reconciled(symbol) {
		if event := e.machine.Advance(buyState, price, now); event != nil {
			e.handleEvent(ctx, event, buyState)
		}
	}

	if e.cfg.Tracker.SellEnabled {
		e.maybeArmSell(symbol, now)
		if sellState := e.states.Sell(symbol); sellState != nil {
			if event := e.machine.Advance(sellState, price, now); event != nil {
				e.handleEvent(ctx, event, sellState)
			}
		}
	}
}

// maybeArmSell derives a sell leg from the day's high once the sell
// window opens. The leg arms once per symbol per day.
func (e *Engine) maybeArmSell(symbol string, now time.Time) {
	if e.states.HasSell(symbol) || !e.clock.InSellWindow(now) {
		return
	}
	dayHigh, ok := e.states.DayHigh(symbol)
	if !ok || dayHigh <= 0 {
		return
	}
	base := models.Signal{Symbol: symbol}
	if buyState := e.states.Buy(symbol); buyState != nil {
		base = buyState.Signal
	}

	sellSignal := DeriveSellSignal(base, dayHigh, e.cfg.Sell)
	e.states.PutSell(NewSellState(sellSignal))
	e.logger.Info().
		Str("symbol", symbol).
		Float64("day_high", dayHigh).
		Float64("entry", sellSignal.Entry).
		Msg("sell leg armed")
}

// handleEvent notifies, journals and, on entries, places the order.
// Every downstream is best-effort: a failing channel never blocks the
// state transition that already happened.
func (e *Engine) handleEvent(ctx context.Context, event *models.Event, state *models.TradeState) {
	logging.LogEvent(e.logger, string(event.Kind), event.Symbol, string(event.Side), event.Price)

	if err := e.notifier.SendEvent(ctx, *event, state.Signal); err != nil {
		e.logger.Warn().Str("symbol", event.Symbol).Err(err).Msg("notification failed")
	}

	if e.journal != nil {
		if err := e.journal.SaveEvent(ctx, e.states.Date(), *event); err != nil {
			e.logger.Warn().Str("symbol", event.Symbol).Err(err).Msg("journal write failed")
		}
	}

	if event.Kind == models.EventEntry && e.placer != nil && e.cfg.Orders.Enabled {
		e.placeOrder(ctx, event, state)
	}
}

// placeOrder fires the GTT request for a fresh entry. Placement is
// attempted exactly once; a failure is reported, never retried.
func (e *Engine) placeOrder(ctx context.Context, event *models.Event, state *models.TradeState) {
	result, err := e.placer.PlaceGTT(ctx, orders.Request{
		Instrument: event.Symbol,
		SymbolKey:  event.Symbol,
		Quantity:   state.Signal.Quantity,
		Side:       event.Side,
	})
	if err != nil {
		e.logger.Error().Str("symbol", event.Symbol).Err(err).Msg("order placement failed")
		_ = e.notifier.SendError(ctx, err, "gtt placement "+event.Symbol)
		return
	}
	e.logger.Info().Str("symbol", event.Symbol).Str("gtt_id", result.GTTID).Msg("order placed")
}

// finalizeDay computes and publishes the daily report once the session
// has closed. It runs once per trading day.
func (e *Engine) finalizeDay(ctx context.Context, now time.Time) {
	if e.reportSent || e.states.Date() == "" {
		return
	}
	if now.Before(utils.SessionCloseAt(now)) {
		return
	}

	results := e.dailyResults(now)
	if len(results) == 0 {
		e.reportSent = true
		return
	}

	if e.journal != nil {
		if err := e.journal.SaveDailyResults(ctx, results); err != nil {
			e.logger.Warn().Err(err).Msg("daily results write failed")
		}
	}
	if err := e.notifier.SendDailyReport(ctx, e.states.Date(), results); err != nil {
		e.logger.Warn().Err(err).Msg("daily report failed")
	}

	e.reportSent = true
	e.logger.Info().Int("symbols", len(results)).Msg("day finalized")
}

// dailyResults scores every tracked state against the last seen price.
func (e *Engine) dailyResults(now time.Time) []models.DailyResult {
	date := e.states.Date()
	var results []models.DailyResult
	for _, state := range e.states.Snapshot() {
		final := state.ExitPrice
		if state.Phase != models.PhaseExited {
			if last, ok := e.prices.Price(state.Symbol); ok {
				final = last
			}
		}

		results = append(results, models.DailyResult{
			Date:       date,
			Symbol:     state.Symbol,
			Side:       state.Side,
			Phase:      state.Phase,
			ExitReason: state.ExitReason,
			EntryPrice: state.EntryPrice,
			FinalPrice: final,
			Profit:     isProfit(state, final),
		})
	}
	return results
}

// isProfit applies the close-vs-open test used by the daily report: a
// buy symbol counts as profitable when its final price is at least
// 0.5 percent above the signal open. Sell legs invert the comparison
// against their entry.
func isProfit(state models.TradeState, final float64) bool {
	if state.Side == models.SideSell {
		return state.Phase == models.PhaseExited && state.ExitReason == models.ExitTarget
	}
	if state.Signal.Open <= 0 {
		return false
	}
	return final >= state.Signal.Open*profitThreshold
}

// WaitBackground blocks until all background reconciles finish.
func (e *Engine) WaitBackground() {
	e.background.Wait()
}
