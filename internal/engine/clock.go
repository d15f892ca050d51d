// Package engine implements the live signal-tracking engine: the
// polling cycle, the per-symbol trade state machines, the bounded quote
// scheduler and the cold-start reconciler.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/thUser005/project-stocks-profits/internal/config"
	"github.com/thUser005/project-stocks-profits/pkg/utils"
)

// SessionClock answers every time-gating question the engine has:
// whether the venue is open, whether "now" is inside the buy or sell
// decision window, and whether the daily reset boundary has been
// crossed. All methods take an explicit instant so tests own the clock.
type SessionClock struct {
	buyStart  int
	buyEnd    int
	sellStart int
	sellEnd   int
	resetMin  int

	mu            sync.Mutex
	lastResetDate string
}

// NewSessionClock builds a clock from the configured "HH:MM" boundaries.
func NewSessionClock(cfg config.SessionConfig) (*SessionClock, error) {
	c := &SessionClock{}

	for _, f := range []struct {
		name string
		val  string
		dst  *int
	}{
		{"buy_start", cfg.BuyStart, &c.buyStart},
		{"buy_end", cfg.BuyEnd, &c.buyEnd},
		{"sell_start", cfg.SellStart, &c.sellStart},
		{"sell_end", cfg.SellEnd, &c.sellEnd},
		{"reset_time", cfg.ResetTime, &c.resetMin},
	} {
		m, err := clockMinutes(f.val)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", f.name, err)
		}
		*f.dst = m
	}

	return c, nil
}

func clockMinutes(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// IsSessionOpen reports whether the venue is trading at t.
func (c *SessionClock) IsSessionOpen(t time.Time) bool {
	if !utils.IsTradingDay(t) {
		return false
	}
	m := utils.MinuteOfDay(t)
	return m >= utils.MarketOpenMinute && m <= utils.MarketCloseMinute
}

// InBuyWindow reports whether t is inside the buy decision window.
func (c *SessionClock) InBuyWindow(t time.Time) bool {
	m := utils.MinuteOfDay(t)
	return m >= c.buyStart && m <= c.buyEnd
}

// InSellWindow reports whether t is inside the sell decision window.
func (c *SessionClock) InSellWindow(t time.Time) bool {
	m := utils.MinuteOfDay(t)
	return m >= c.sellStart && m <= c.sellEnd
}

// AfterSellWindow reports whether t is past the sell window's close.
func (c *SessionClock) AfterSellWindow(t time.Time) bool {
	return utils.MinuteOfDay(t) > c.sellEnd
}

// ShouldReset reports whether the daily reset boundary has been crossed
// for t's calendar date and consumes the crossing: within one day only
// the first call after the boundary returns true, no matter how often
// the loop checks.
func (c *SessionClock) ShouldReset(t time.Time) bool {
	date := utils.TradeDate(t)
	if utils.MinuteOfDay(t) < c.resetMin {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastResetDate == date {
		return false
	}
	c.lastResetDate = date
	return true
}

// LastResetDate returns the date marker of the most recent reset.
func (c *SessionClock) LastResetDate() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResetDate
}
