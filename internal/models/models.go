// Package models provides domain models for the signal tracker.
package models

import (
	"time"
)

// Exchange represents a stock exchange.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
)

// Side represents the direction of a tracked trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Signal is one externally computed trade idea for the day.
// Signals are re-fetched every cycle; the tracker never mutates them.
type Signal struct {
	Symbol   string  `json:"symbol"`
	Open     float64 `json:"open"`
	Entry    float64 `json:"entry"`
	Target   float64 `json:"target"`
	Stoploss float64 `json:"stoploss"`
	Quantity int     `json:"quantity"`
}

// Phase is the lifecycle stage of a tracked trade.
type Phase string

const (
	PhasePending Phase = "PENDING"
	PhaseEntered Phase = "ENTERED"
	PhaseExited  Phase = "EXITED"
)

// ExitReason records why a trade left the ENTERED phase.
type ExitReason string

const (
	ExitTarget   ExitReason = "TARGET"
	ExitStoploss ExitReason = "STOPLOSS"
)

// EventKind identifies a state-machine transition worth announcing.
type EventKind string

const (
	EventEntry       EventKind = "ENTRY"
	EventTargetHit   EventKind = "TARGET_HIT"
	EventStoplossHit EventKind = "STOPLOSS_HIT"
)

// Event is emitted when a tracked trade changes phase.
type Event struct {
	Kind      EventKind
	Symbol    string
	Side      Side
	Price     float64
	Timestamp time.Time
}

// TradeState is the per-symbol, per-day mutable record the engine owns.
// Created the first time a symbol is seen each day, cleared at daily reset.
type TradeState struct {
	Symbol     string
	Side       Side
	Phase      Phase
	Signal     Signal
	ExitReason ExitReason
	EnteredAt  time.Time
	ExitedAt   time.Time
	EntryPrice float64
	ExitPrice  float64
}

// Terminal reports whether the state can no longer transition today.
func (s *TradeState) Terminal() bool {
	return s.Phase == PhaseExited
}

// DailyResult is one row of the end-of-day report: a triggered symbol
// and whether it closed in profit relative to the day's open.
type DailyResult struct {
	Date       string
	Symbol     string
	Side       Side
	Phase      Phase
	ExitReason ExitReason
	EntryPrice float64
	FinalPrice float64
	Profit     bool
}
