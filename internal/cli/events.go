package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/thUser005/project-stocks-profits/internal/models"
	"github.com/thUser005/project-stocks-profits/pkg/utils"
)

func newEventsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "events [date]",
		Short: "List journaled trigger events for a date",
		Long:  "Events lists the entry, target and stoploss events journaled for a trading date. Defaults to today.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("event journal is not available")
			}

			date := utils.TradeDate(time.Now())
			if len(args) == 1 {
				date = args[0]
			}

			events, err := app.Store.GetEvents(cmd.Context(), date)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				output.Warning("No events for %s", date)
				return nil
			}

			if output.IsJSON() {
				return output.JSON(events)
			}

			color.Cyan("📜 Events - %s", date)
			table := tablewriter.NewWriter(output.Writer())
			table.Header("Time", "Symbol", "Side", "Event", "Price")
			for _, ev := range events {
				table.Append(
					ev.Timestamp.In(utils.IndiaLocation).Format("15:04:05"),
					ev.Symbol,
					string(ev.Side),
					string(ev.Kind),
					fmt.Sprintf("%.2f", ev.Price),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newReportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "report [date]",
		Short: "Show the daily profit report for a date",
		Long:  "Report shows the stored end-of-day results for a trading date. Defaults to today.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("event journal is not available")
			}

			date := utils.TradeDate(time.Now())
			if len(args) == 1 {
				date = args[0]
			}

			results, err := app.Store.GetDailyResults(cmd.Context(), date)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				output.Warning("No results for %s", date)
				return nil
			}

			if output.IsJSON() {
				return output.JSON(results)
			}

			printDailyReport(output, date, results)
			return nil
		},
	}
}

func printDailyReport(output *Output, date string, results []models.DailyResult) {
	color.Cyan("💰 Daily Report - %s", date)

	table := tablewriter.NewWriter(output.Writer())
	table.Header("Symbol", "Side", "Phase", "Exit", "Entry", "Final", "Profit")

	profits := 0
	for _, res := range results {
		profitMark := "-"
		if res.Profit {
			profitMark = "✓"
			profits++
		}
		table.Append(
			res.Symbol,
			string(res.Side),
			string(res.Phase),
			string(res.ExitReason),
			fmt.Sprintf("%.2f", res.EntryPrice),
			fmt.Sprintf("%.2f", res.FinalPrice),
			profitMark,
		)
	}
	table.Render()

	output.Println()
	color.Green("✓ %d/%d profitable", profits, len(results))
}
