package engine

import (
	"sync"

	"github.com/thUser005/project-stocks-profits/internal/models"
)

// reconcileStatus tracks cold-start replay progress for one symbol.
type reconcileStatus int

const (
	reconcileNone reconcileStatus = iota
	reconcileRunning
	reconcileDone
)

// StateStore holds all per-symbol trade state for the current trading
// day. All access goes through the mutex; the engine reads snapshots
// and writes back whole states, background reconcilers publish results
// through CompleteReconcile.
type StateStore struct {
	mu sync.Mutex

	buy  map[string]*models.TradeState
	sell map[string]*models.TradeState

	dayHigh    map[string]float64
	reconciled map[string]reconcileStatus

	resetDate string
}

// NewStateStore creates an empty store.
func NewStateStore() *StateStore {
	s := &StateStore{}
	s.reset("")
	return s
}

func (s *StateStore) reset(date string) {
	s.buy = make(map[string]*models.TradeState)
	s.sell = make(map[string]*models.TradeState)
	s.dayHigh = make(map[string]float64)
	s.reconciled = make(map[string]reconcileStatus)
	s.resetDate = date
}

// ResetAll atomically drops every state for a new trading day. In-flight
// reconcile results for the previous day are discarded by date check in
// CompleteReconcile.
func (s *StateStore) ResetAll(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(date)
}

// Date returns the trading date the store currently tracks.
func (s *StateStore) Date() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetDate
}

// PutBuy installs or replaces the buy-side state for a symbol.
func (s *StateStore) PutBuy(state *models.TradeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buy[state.Symbol] = state
}

// Buy returns the buy-side state for a symbol, or nil.
func (s *StateStore) Buy(symbol string) *models.TradeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buy[symbol]
}

// PutSell installs or replaces the sell-side state for a symbol.
func (s *StateStore) PutSell(state *models.TradeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sell[state.Symbol] = state
}

// Sell returns the sell-side state for a symbol, or nil.
func (s *StateStore) Sell(symbol string) *models.TradeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sell[symbol]
}

// ObserveHigh records a traded price, keeping the running day high.
func (s *StateStore) ObserveHigh(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if price > s.dayHigh[symbol] {
		s.dayHigh[symbol] = price
	}
}

// DayHigh returns the highest price observed for a symbol today.
func (s *StateStore) DayHigh(symbol string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.dayHigh[symbol]
	return h, ok
}

// BeginReconcile marks a symbol's replay as started. It returns false
// when a replay already ran or is running for the symbol today, so each
// symbol is reconciled at most once per trading day.
func (s *StateStore) BeginReconcile(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reconciled[symbol] != reconcileNone {
		return false
	}
	s.reconciled[symbol] = reconcileRunning
	return true
}

// CompleteReconcile publishes a finished replay. Results carried across
// a daily reset are dropped: the date must still match the store's.
func (s *StateStore) CompleteReconcile(date, symbol string, state *models.TradeState, dayHigh float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if date != s.resetDate {
		return
	}
	s.reconciled[symbol] = reconcileDone
	if state != nil {
		s.buy[symbol] = state
	}
	if dayHigh > s.dayHigh[symbol] {
		s.dayHigh[symbol] = dayHigh
	}
}

// FailReconcile releases the running marker so a later cycle can retry.
func (s *StateStore) FailReconcile(date, symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if date != s.resetDate {
		return
	}
	if s.reconciled[symbol] == reconcileRunning {
		s.reconciled[symbol] = reconcileNone
	}
}

// Reconciled reports whether a symbol's cold-start replay has finished.
func (s *StateStore) Reconciled(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciled[symbol] == reconcileDone
}

// ActiveSymbols returns the symbols whose buy state is not terminal,
// plus any armed sell states still in play. Terminal symbols with a
// live sell leg stay in the poll set.
func (s *StateStore) ActiveSymbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.buy))
	var symbols []string
	for sym, st := range s.buy {
		if !st.Terminal() {
			seen[sym] = struct{}{}
			symbols = append(symbols, sym)
		}
	}
	for sym, st := range s.sell {
		if _, dup := seen[sym]; dup {
			continue
		}
		if !st.Terminal() {
			symbols = append(symbols, sym)
		}
	}
	return symbols
}

// SellCandidates returns the symbols tracked on the buy side that have
// no sell leg armed yet. Buy-terminal symbols remain candidates: their
// day high keeps updating until the sell leg arms or the window closes.
func (s *StateStore) SellCandidates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var symbols []string
	for sym := range s.buy {
		if _, armed := s.sell[sym]; !armed {
			symbols = append(symbols, sym)
		}
	}
	return symbols
}

// Snapshot returns copies of every tracked state, for reporting.
func (s *StateStore) Snapshot() []models.TradeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.TradeState, 0, len(s.buy)+len(s.sell))
	for _, st := range s.buy {
		out = append(out, *st)
	}
	for _, st := range s.sell {
		out = append(out, *st)
	}
	return out
}

// HasSell reports whether a sell leg is already armed for a symbol.
func (s *StateStore) HasSell(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sell[symbol]
	return ok
}

// LastPrices is a small helper capturing the final observed price per
// symbol, used by end-of-day reporting.
type LastPrices struct {
	mu     sync.Mutex
	prices map[string]float64
}

// NewLastPrices creates an empty price cache.
func NewLastPrices() *LastPrices {
	return &LastPrices{prices: make(map[string]float64)}
}

// Observe records the most recent price for a symbol.
func (p *LastPrices) Observe(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

// Price returns the last recorded price for a symbol.
func (p *LastPrices) Price(symbol string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.prices[symbol]
	return v, ok
}

// Reset drops all recorded prices.
func (p *LastPrices) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices = make(map[string]float64)
}
