package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Paper Trader Configuration

[engine]
# Proportional fee charged on every fill (0.001 = 0.1%)
fee_rate = 0.001
# Initial balance for new accounts
default_balance = 100000.0

[logging]
# Log level: trace, debug, info, warn, error, disabled
level = "info"
# Write human readable logs to stderr
console = true
# Write JSON logs to a rotating file
file = false
# file_path = "~/.config/papertrader/logs/papertrader.log"
max_size = 50
max_backups = 5
max_age = 14

[store]
# Journal orders and fills to SQLite
enabled = false
# path = "~/.config/papertrader/papertrader.db"
# Events queued before new ones are dropped
buffer_size = 1024

[audit]
# Write an audit trail of order events
enabled = false
# log_dir = "~/.config/papertrader/audit"

[feed]
# Ticks buffered between the feed and the engine
buffer_size = 1000
nats_url = "nats://127.0.0.1:4222"
nats_subject = "prices.>"

[metrics]
# Collect Prometheus metrics and print them after a replay
enabled = false
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
