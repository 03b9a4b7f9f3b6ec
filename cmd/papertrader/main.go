// Paper trading engine CLI.
//
// Usage:
//
//	go run ./cmd/papertrader replay --ticks ticks.csv --order "LIMIT BUY AAPL 10 @99"
//
// The configuration directory defaults to ~/.config/papertrader and can be
// changed with PAPERTRADER_CONFIG_DIR.
package main

import (
	"fmt"
	"os"

	"papertrader/internal/cli"
	"papertrader/internal/config"
)

func main() {
	cfg, err := config.Load(os.Getenv("PAPERTRADER_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := cli.LoggerFromConfig(cfg)

	if err := cli.NewRootCmd(cfg, logger).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
