package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thUser005/project-stocks-profits/internal/engine"
)

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the live signal tracking loop",
		Long: `Run starts the polling loop: today's signals are loaded from the
signals API, live quotes are fetched under the configured concurrency
cap, and each symbol's trade state advances through entry, target and
stoploss. The loop idles outside market hours and resets at the daily
boundary. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng, err := buildEngine(app)
			if err != nil {
				return err
			}

			app.Logger.Info().Msg("starting tracker, press Ctrl-C to stop")
			if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			app.Logger.Info().Msg("tracker stopped")
			return nil
		},
	}
}

// buildEngine assembles the polling engine from the app's shared
// clients.
func buildEngine(app *App) (*engine.Engine, error) {
	clock, err := engine.NewSessionClock(app.Config.Session)
	if err != nil {
		return nil, err
	}

	fetcher := engine.NewFetcher(
		app.Quotes,
		app.Config.Tracker.Concurrency,
		app.Config.Tracker.Retries,
		app.Config.Tracker.RetryDelay,
		app.Config.Tracker.CandleIntervalMinutes,
		app.Logger,
	)

	reconciler := engine.NewReconciler(
		app.Quotes,
		engine.NewMachine(clock),
		app.Config.Tracker.CandleIntervalMinutes,
		app.Logger,
	)

	return engine.New(
		app.Config, clock, fetcher, reconciler,
		app.Signals, app.Notifier, app.Placer, app.Store,
		app.Logger,
	), nil
}
