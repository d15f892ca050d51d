package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thUser005/project-stocks-profits/internal/engine"
	"github.com/thUser005/project-stocks-profits/internal/models"
	"github.com/thUser005/project-stocks-profits/pkg/utils"
)

// replayRow is one symbol's scored outcome for a replayed day.
type replayRow struct {
	Symbol     string  `json:"symbol"`
	Entry      float64 `json:"entry"`
	Target     float64 `json:"target"`
	Stoploss   float64 `json:"stoploss"`
	Phase      string  `json:"phase"`
	ExitReason string  `json:"exit_reason,omitempty"`
	FinalPrice float64 `json:"final_price"`
	Profit     bool    `json:"profit"`
}

func newReplayCmd(app *App) *cobra.Command {
	var symbols []string

	cmd := &cobra.Command{
		Use:   "replay <date>",
		Short: "Replay a past day's signals against its candles",
		Long: `Replay fetches the signals published for a trading date, walks that
day's candles through the same state machine the live tracker uses and
prints each symbol's outcome. Nothing is notified, journaled or ordered.

The date is given as YYYY-MM-DD.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			date := args[0]
			if _, err := time.ParseInLocation("2006-01-02", date, utils.IndiaLocation); err != nil {
				return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
			}

			rows, err := replayDay(cmd.Context(), app, date, symbols)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				output.Warning("No signals found for %s", date)
				return nil
			}

			if output.IsJSON() {
				return output.JSON(rows)
			}
			printReplayTable(output, date, rows)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "restrict the replay to these symbols")
	return cmd
}

// replayDay scores a date's signals against their full candle history,
// optionally restricted to a symbol subset.
func replayDay(ctx context.Context, app *App, date string, symbols []string) ([]replayRow, error) {
	signalList, err := app.Signals.Fetch(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(symbols) > 0 {
		wanted := make(map[string]bool, len(symbols))
		for _, s := range symbols {
			wanted[strings.ToUpper(s)] = true
		}
		kept := signalList[:0]
		for _, sig := range signalList {
			if wanted[strings.ToUpper(sig.Symbol)] {
				kept = append(kept, sig)
			}
		}
		signalList = kept
	}
	if len(signalList) == 0 {
		return nil, nil
	}

	startMs, endMs, err := utils.MarketWindow(date)
	if err != nil {
		return nil, err
	}

	clock, err := engine.NewSessionClock(app.Config.Session)
	if err != nil {
		return nil, err
	}
	machine := engine.NewMachine(clock)

	// History fetches fan out under the same concurrency cap the live
	// tracker polls with. A failed symbol is skipped, not fatal.
	results := make([]*replayRow, len(signalList))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(app.Config.Tracker.Concurrency)

	for i, sig := range signalList {
		i, sig := i, sig
		g.Go(func() error {
			candles, err := app.Quotes.Candles(gctx, sig.Symbol, startMs, endMs, app.Config.Tracker.CandleIntervalMinutes)
			if err != nil {
				app.Logger.Warn().Str("symbol", sig.Symbol).Err(err).Msg("candle fetch failed, skipping")
				return nil
			}

			state := engine.NewBuyState(sig)
			final := sig.Open
			for _, candle := range candles {
				machine.AdvanceBar(state, candle)
				final = candle.Close
			}
			if state.Phase == models.PhaseExited {
				final = state.ExitPrice
			}

			results[i] = &replayRow{
				Symbol:     sig.Symbol,
				Entry:      sig.Entry,
				Target:     sig.Target,
				Stoploss:   sig.Stoploss,
				Phase:      string(state.Phase),
				ExitReason: string(state.ExitReason),
				FinalPrice: final,
				Profit:     sig.Open > 0 && final >= sig.Open*1.005,
			}
			return nil
		})
	}
	_ = g.Wait()

	rows := make([]replayRow, 0, len(signalList))
	for _, row := range results {
		if row != nil {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func printReplayTable(output *Output, date string, rows []replayRow) {
	color.Cyan("📊 Replay - %s", date)

	table := tablewriter.NewWriter(output.Writer())
	table.Header("Symbol", "Entry", "Target", "SL", "Outcome", "Final", "Profit")

	profits, targets, stops := 0, 0, 0
	for _, row := range rows {
		outcome := row.Phase
		switch row.ExitReason {
		case string(models.ExitTarget):
			outcome = "TARGET"
			targets++
		case string(models.ExitStoploss):
			outcome = "STOPLOSS"
			stops++
		}

		profitMark := "-"
		if row.Profit {
			profitMark = "✓"
			profits++
		}

		table.Append(
			row.Symbol,
			fmt.Sprintf("%.2f", row.Entry),
			fmt.Sprintf("%.2f", row.Target),
			fmt.Sprintf("%.2f", row.Stoploss),
			outcome,
			fmt.Sprintf("%.2f", row.FinalPrice),
			profitMark,
		)
	}
	table.Render()

	output.Println()
	color.Green("✓ %d/%d profitable", profits, len(rows))
	if targets > 0 {
		color.Green("🎯 %d target hits", targets)
	}
	if stops > 0 {
		color.Red("🛑 %d stoploss hits", stops)
	}
}
