package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/thUser005/project-stocks-profits/internal/logging"
	"github.com/thUser005/project-stocks-profits/internal/models"
	"github.com/thUser005/project-stocks-profits/pkg/utils"
)

// Reconciler rebuilds a symbol's trade state after a restart by
// replaying the day's candles from session open. The replay is silent:
// transitions that happened before the process started produce no
// notifications and no orders.
type Reconciler struct {
	source         QuoteSource
	machine        *Machine
	intervalMinute int
	logger         zerolog.Logger
}

// NewReconciler creates a reconciler sharing the engine's quote source
// and state machine.
func NewReconciler(source QuoteSource, machine *Machine, intervalMinutes int, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		source:         source,
		machine:        machine,
		intervalMinute: intervalMinutes,
		logger:         logging.WithComponent(logger, "reconcile"),
	}
}

// Replay fetches every candle from session open to now and runs the
// signal's state machine over them. It returns the caught-up state and
// the highest price the day has printed so far.
func (r *Reconciler) Replay(ctx context.Context, signal models.Signal, now time.Time) (*models.TradeState, float64, error) {
	startMs, _, err := utils.MarketWindow(utils.TradeDate(now))
	if err != nil {
		return nil, 0, err
	}
	endMs := now.UnixMilli()
	if endMs <= startMs {
		return NewBuyState(signal), 0, nil
	}

	candles, err := r.source.Candles(ctx, signal.Symbol, startMs, endMs, r.intervalMinute)
	if err != nil {
		return nil, 0, fmt.Errorf("replay %s: %w", signal.Symbol, err)
	}

	state := NewBuyState(signal)
	dayHigh := 0.0
	for _, candle := range candles {
		if candle.High > dayHigh {
			dayHigh = candle.High
		}
		r.machine.AdvanceBar(state, candle)
	}

	r.logger.Debug().
		Str("symbol", signal.Symbol).
		Int("candles", len(candles)).
		Str("phase", string(state.Phase)).
		Float64("day_high", dayHigh).
		Msg("replay complete")

	return state, dayHigh, nil
}
