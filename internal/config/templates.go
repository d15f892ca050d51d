package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Signal Tracker Configuration

[tracker]
# Maximum simultaneous quote fetches
concurrency = 50
# Attempts per symbol per cycle before treating it as "no data"
retries = 3
# Delay between retry attempts
retry_delay = "2s"
# Sleep between polling cycles while the market is open
poll_interval = "30s"
# Sleep between session checks while the market is closed
idle_interval = "60s"
# Sleep after an unexpected cycle failure
error_backoff = "15s"
# Per-request quote timeout
request_timeout = "8s"
# Candle interval negotiated with the quote provider
candle_interval_minutes = 3
# Track the sell-side machine keyed off the day's high
sell_enabled = false

[session]
# All times are IST (Asia/Kolkata), "HH:MM"
reset_time = "09:00"
buy_start = "09:15"
buy_end = "14:30"
sell_start = "13:00"
sell_end = "15:15"

[sell]
# Sell levels derived from the day's observed high, in percent
entry_pct = 0.55
stop_pct = 1.35
target_pct = 2.70

[sources]
signals_url = "https://project-get-entry.vercel.app"
quotes_url = "https://groww.in/v1/api/charting_service/v2/chart/delayed/exchange/NSE/segment/CASH"

[orders]
# Place a GTT order on every ENTRY event
enabled = false
base_url = ""

[notifications]
enabled = false

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[notifications.webhook]
enabled = false
url = ""

[logging]
level = "info"
console = true
file = true

[store]
# SQLite event journal; empty disables persistence
path = ""
`

// createTemplateConfig writes the default config file so a fresh install
// has something to edit.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	fmt.Printf("Created config template at %s\n", path)
	return nil
}
