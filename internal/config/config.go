// Package config provides configuration management for the signal tracker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Tracker       TrackerConfig      `mapstructure:"tracker"`
	Session       SessionConfig      `mapstructure:"session"`
	Sell          SellConfig         `mapstructure:"sell"`
	Sources       SourcesConfig      `mapstructure:"sources"`
	Orders        OrdersConfig       `mapstructure:"orders"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Store         StoreConfig        `mapstructure:"store"`
}

// TrackerConfig holds the polling-cycle tunables.
type TrackerConfig struct {
	Concurrency           int           `mapstructure:"concurrency"`
	Retries               int           `mapstructure:"retries"`
	RetryDelay            time.Duration `mapstructure:"retry_delay"`
	PollInterval          time.Duration `mapstructure:"poll_interval"`
	IdleInterval          time.Duration `mapstructure:"idle_interval"`
	ErrorBackoff          time.Duration `mapstructure:"error_backoff"`
	RequestTimeout        time.Duration `mapstructure:"request_timeout"`
	CandleIntervalMinutes int           `mapstructure:"candle_interval_minutes"`
	SellEnabled           bool          `mapstructure:"sell_enabled"`
}

// SessionConfig holds session clock boundaries as "HH:MM" strings in IST.
type SessionConfig struct {
	ResetTime string `mapstructure:"reset_time"`
	BuyStart  string `mapstructure:"buy_start"`
	BuyEnd    string `mapstructure:"buy_end"`
	SellStart string `mapstructure:"sell_start"`
	SellEnd   string `mapstructure:"sell_end"`
}

// SellConfig holds the tolerances used to derive sell-side levels from
// the day's observed high.
type SellConfig struct {
	EntryPct  float64 `mapstructure:"entry_pct"`
	StopPct   float64 `mapstructure:"stop_pct"`
	TargetPct float64 `mapstructure:"target_pct"`
}

// SourcesConfig holds upstream service endpoints.
type SourcesConfig struct {
	SignalsURL string `mapstructure:"signals_url"`
	QuotesURL  string `mapstructure:"quotes_url"`
}

// OrdersConfig holds the GTT order backend configuration.
type OrdersConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// StoreConfig holds event journal configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/signal-tracker"
	}
	return filepath.Join(home, ".config", "signal-tracker")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateConfig(configDir); err != nil {
				return nil, fmt.Errorf("creating config template: %w", err)
			}
		} else {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tracker.concurrency", 50)
	v.SetDefault("tracker.retries", 3)
	v.SetDefault("tracker.retry_delay", "2s")
	v.SetDefault("tracker.poll_interval", "30s")
	v.SetDefault("tracker.idle_interval", "60s")
	v.SetDefault("tracker.error_backoff", "15s")
	v.SetDefault("tracker.request_timeout", "8s")
	v.SetDefault("tracker.candle_interval_minutes", 3)
	v.SetDefault("tracker.sell_enabled", false)

	v.SetDefault("session.reset_time", "09:00")
	v.SetDefault("session.buy_start", "09:15")
	v.SetDefault("session.buy_end", "14:30")
	v.SetDefault("session.sell_start", "13:00")
	v.SetDefault("session.sell_end", "15:15")

	v.SetDefault("sell.entry_pct", 0.55)
	v.SetDefault("sell.stop_pct", 1.35)
	v.SetDefault("sell.target_pct", 2.70)

	v.SetDefault("sources.signals_url", "https://project-get-entry.vercel.app")
	v.SetDefault("sources.quotes_url", "https://groww.in/v1/api/charting_service/v2/chart/delayed/exchange/NSE/segment/CASH")

	v.SetDefault("orders.enabled", false)
	v.SetDefault("orders.base_url", "")

	v.SetDefault("notifications.enabled", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)

	v.SetDefault("store.path", filepath.Join(DefaultConfigDir(), "tracker.db"))
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv("SIGNALS_URL"); v != "" {
		cfg.Sources.SignalsURL = v
	}
	if v := os.Getenv("QUOTES_URL"); v != "" {
		cfg.Sources.QuotesURL = v
	}
	if v := os.Getenv("GTT_API_BASE"); v != "" {
		cfg.Orders.BaseURL = v
	}
}

// parseClock validates an "HH:MM" string.
func parseClock(s string) error {
	_, err := time.Parse("15:04", s)
	return err
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Tracker.Concurrency <= 0 {
		return fmt.Errorf("tracker.concurrency must be positive")
	}
	if c.Tracker.Retries <= 0 {
		return fmt.Errorf("tracker.retries must be positive")
	}
	if c.Tracker.PollInterval <= 0 {
		return fmt.Errorf("tracker.poll_interval must be positive")
	}
	if c.Tracker.CandleIntervalMinutes <= 0 {
		return fmt.Errorf("tracker.candle_interval_minutes must be positive")
	}

	for name, val := range map[string]string{
		"session.reset_time": c.Session.ResetTime,
		"session.buy_start":  c.Session.BuyStart,
		"session.buy_end":    c.Session.BuyEnd,
		"session.sell_start": c.Session.SellStart,
		"session.sell_end":   c.Session.SellEnd,
	} {
		if err := parseClock(val); err != nil {
			return fmt.Errorf("%s: invalid clock time %q", name, val)
		}
	}

	if c.Sell.EntryPct < 0 || c.Sell.StopPct <= 0 || c.Sell.TargetPct <= 0 {
		return fmt.Errorf("sell tolerances must be positive")
	}

	if c.Sources.SignalsURL == "" {
		return fmt.Errorf("sources.signals_url is required")
	}
	if c.Sources.QuotesURL == "" {
		return fmt.Errorf("sources.quotes_url is required")
	}

	if c.Orders.Enabled && c.Orders.BaseURL == "" {
		return fmt.Errorf("orders.base_url is required when orders.enabled is true")
	}

	if c.Notifications.Enabled && c.Notifications.Telegram.Enabled {
		if c.Notifications.Telegram.BotToken == "" || c.Notifications.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notifications require bot_token and chat_id")
		}
	}

	return nil
}
