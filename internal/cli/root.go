// Package cli provides the command-line interface for the signal tracker.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/thUser005/project-stocks-profits/internal/config"
	"github.com/thUser005/project-stocks-profits/internal/logging"
	"github.com/thUser005/project-stocks-profits/internal/notify"
	"github.com/thUser005/project-stocks-profits/internal/orders"
	"github.com/thUser005/project-stocks-profits/internal/quotes"
	"github.com/thUser005/project-stocks-profits/internal/signals"
	"github.com/thUser005/project-stocks-profits/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Quotes   *quotes.Client
	Signals  signals.Source
	Notifier notify.Notifier
	Placer   orders.Placer
	Store    store.DataStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.Quotes = quotes.NewClient(quotes.Config{
		BaseURL:           cfg.Sources.QuotesURL,
		RequestTimeout:    cfg.Tracker.RequestTimeout,
		RequestsPerSecond: float64(cfg.Tracker.Concurrency),
		Burst:             cfg.Tracker.Concurrency,
	}, logger)

	app.Signals = signals.NewClient(cfg.Sources.SignalsURL, cfg.Tracker.RequestTimeout, logger)

	if cfg.Notifications.Enabled {
		app.Notifier = notify.NewMultiNotifier(&cfg.Notifications)
	} else {
		app.Notifier = notify.NewNoOpNotifier()
	}

	if cfg.Orders.Enabled {
		app.Placer = orders.NewClient(cfg.Orders.BaseURL, logger)
	}

	// Initialize SQLite journal
	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = config.DefaultConfigDir() + "/tracker.db"
	}
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, events will not be journaled")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "signal-tracker",
		Short: "Live trading signal tracker for NSE intraday signals",
		Long: `Signal Tracker polls live quotes for published intraday signals and
tracks each symbol through entry, target and stoploss levels.

Triggered events are sent to Telegram and webhook channels, journaled to
SQLite and optionally forwarded as GTT orders to the dashboard backend.

Use 'signal-tracker run' to start the live tracking loop.
Use 'signal-tracker replay <date>' to score a past day's signals.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/signal-tracker)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newReplayCmd(app))
	rootCmd.AddCommand(newEventsCmd(app))
	rootCmd.AddCommand(newReportCmd(app))
	rootCmd.AddCommand(newStatusCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Signal Tracker v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}
