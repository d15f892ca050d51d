package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/thUser005/project-stocks-profits/internal/engine"
	"github.com/thUser005/project-stocks-profits/internal/resilience"
	"github.com/thUser005/project-stocks-profits/pkg/utils"
)

var errJournalUnavailable = errors.New("journal not initialized")

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connectivity to the tracker's upstreams",
		Long:  "Status probes the signals API, the quotes service and the event journal and reports each one's health.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			monitor := resilience.NewHealthMonitor()

			monitor.Register("signals", resilience.PingCheck(func(ctx context.Context) error {
				_, err := app.Signals.Fetch(ctx, utils.TradeDate(time.Now()))
				return err
			}, 2*time.Second))

			monitor.Register("quotes", func(ctx context.Context) resilience.ComponentHealth {
				health := resilience.ComponentHealth{Status: resilience.HealthStatusHealthy}
				switch app.Quotes.BreakerState() {
				case resilience.CircuitOpen:
					health.Status = resilience.HealthStatusUnhealthy
					health.Message = "circuit breaker open"
				case resilience.CircuitHalfOpen:
					health.Status = resilience.HealthStatusDegraded
					health.Message = "circuit breaker recovering"
				}
				return health
			})

			monitor.Register("journal", resilience.PingCheck(func(ctx context.Context) error {
				if app.Store == nil {
					return errJournalUnavailable
				}
				_, err := app.Store.GetEvents(ctx, utils.TradeDate(time.Now()))
				return err
			}, time.Second))

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			results := monitor.CheckAll(ctx)
			overall := resilience.Overall(results)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"overall":    overall,
					"components": results,
					"session":    sessionState(app),
				})
			}

			for _, res := range results {
				line := res.Name + ": " + string(res.Status)
				if res.Message != "" {
					line += " (" + res.Message + ")"
				}
				switch res.Status {
				case resilience.HealthStatusHealthy:
					output.Success("✓ %s", line)
				case resilience.HealthStatusDegraded:
					output.Warning("! %s", line)
				default:
					output.Error("✗ %s", line)
				}
			}

			output.Println()
			output.Info("Session: %s", sessionState(app))
			return nil
		},
	}
}

// sessionState describes where the clock currently stands.
func sessionState(app *App) string {
	clock, err := engine.NewSessionClock(app.Config.Session)
	if err != nil {
		return "unknown"
	}
	now := time.Now()
	if !utils.IsTradingDay(now) {
		return "closed (weekend)"
	}
	if clock.IsSessionOpen(now) {
		return "open"
	}
	return "closed"
}
