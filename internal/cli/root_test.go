package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"papertrader/internal/config"
	"papertrader/internal/models"
)

func runCLI(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(cfg, zerolog.Nop())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeTicks(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticks.csv")
	data := "symbol,price,timestamp\n" + strings.Join(rows, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReplayCommand_JSON(t *testing.T) {
	cfg := config.Default(t.TempDir())
	ticks := writeTicks(t,
		"AAPL,100,",
		"AAPL,98,",
		"AAPL,101,",
	)

	out, err := runCLI(t, cfg, "replay", "--json",
		"--ticks", ticks,
		"--balance", "10000",
		"--order", "LIMIT BUY AAPL 10 @99",
		"--order", "1:MARKET BUY AAPL 5",
		"--order", "LIMIT SELL AAPL 1 @200",
	)
	if err != nil {
		t.Fatalf("replay: %v\n%s", err, out)
	}

	var res ReplayResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}

	if res.Stats.Ticks != 3 || res.Stats.Applied != 3 {
		t.Errorf("stats = %+v", res.Stats)
	}
	// 10000 - 5*100*1.001 - 10*98*1.001
	if !res.Account.CurrentBalance.Equal(decimal.RequireFromString("8518.52")) {
		t.Errorf("balance = %s, want 8518.52", res.Account.CurrentBalance)
	}
	if !res.Account.Reserved.IsZero() {
		t.Errorf("reserved = %s, want 0", res.Account.Reserved)
	}
	pos, ok := res.Account.Position("AAPL")
	if !ok || !pos.Quantity.Equal(decimal.NewFromInt(15)) {
		t.Errorf("position = %+v", pos)
	}

	if len(res.Placements) != 3 {
		t.Fatalf("placements = %d, want 3", len(res.Placements))
	}
	// The sell is placed before any tick with nothing held.
	var sellErr string
	for _, p := range res.Placements {
		if p.Spec == "LIMIT SELL AAPL 1 @200" {
			sellErr = p.Error
		} else if p.Error != "" {
			t.Errorf("%s: %s", p.Spec, p.Error)
		}
	}
	if sellErr == "" {
		t.Error("sell without a position should fail")
	}

	statuses := map[models.OrderStatus]int{}
	for _, o := range res.Orders {
		statuses[o.Status]++
	}
	if statuses[models.OrderStatusFilled] != 2 || statuses[models.OrderStatusRejected] != 1 {
		t.Errorf("order statuses = %v", statuses)
	}
	if res.Metrics != nil {
		t.Errorf("metrics disabled but got %v", res.Metrics)
	}
}

func TestReplayCommand_MetricsAndJournal(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.Metrics.Enabled = true
	cfg.Store.Enabled = true
	cfg.Audit.Enabled = true

	ticks := writeTicks(t, "MSFT,300,2026-01-02T15:04:05Z", "MSFT,310,")
	out, err := runCLI(t, cfg, "replay", "--json", "--ticks", ticks,
		"--order", "1:MARKET BUY MSFT 2",
		"--order", "1:LIMIT SELL MSFT 2 @305",
	)
	if err != nil {
		t.Fatalf("replay: %v\n%s", err, out)
	}

	var res ReplayResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got := res.Metrics[`papertrader_fills_total{side=SELL}`]; got != 1 {
		t.Errorf("sell fills = %v, metrics %v", got, res.Metrics)
	}
	if got := res.Metrics["papertrader_price_updates_total"]; got != 2 {
		t.Errorf("price updates = %v", got)
	}
	if !res.Account.RealizedPnL.Equal(decimal.NewFromInt(20)) {
		t.Errorf("realized = %s, want 20", res.Account.RealizedPnL)
	}

	if _, err := os.Stat(cfg.Store.Path); err != nil {
		t.Errorf("journal not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Audit.LogDir, "audit.log")); err != nil {
		t.Errorf("audit log not created: %v", err)
	}
}

func TestReplayCommand_Errors(t *testing.T) {
	cfg := config.Default(t.TempDir())
	ticks := writeTicks(t, "AAPL,100,")

	if _, err := runCLI(t, cfg, "replay"); err == nil {
		t.Error("missing --ticks should fail")
	}
	if _, err := runCLI(t, cfg, "replay", "--ticks", filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := runCLI(t, cfg, "replay", "--ticks", ticks, "--order", "MARKET BUY"); err == nil {
		t.Error("bad order spec should fail")
	}
}

func TestReplayCommand_Text(t *testing.T) {
	cfg := config.Default(t.TempDir())
	ticks := writeTicks(t, "AAPL,100,", "AAPL,110,")

	out, err := runCLI(t, cfg, "replay", "--ticks", ticks, "--balance", "5000",
		"--order", "1:MARKET BUY AAPL 10")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	for _, want := range []string{"Replayed 2 ticks", "AAPL", "FILLED", "3,999.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAccountCommand(t *testing.T) {
	cfg := config.Default(t.TempDir())

	out, err := runCLI(t, cfg, "account", "--json", "--name", "alice")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	var res struct {
		Account models.AccountInfo `json:"account"`
		FeeRate decimal.Decimal    `json:"fee_rate"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if res.Account.Name != "alice" || !res.Account.CurrentBalance.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("account = %+v", res.Account)
	}
	if !res.FeeRate.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("fee rate = %s", res.FeeRate)
	}
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default(dir)

	out, err := runCLI(t, cfg, "config", "path")
	if err != nil || strings.TrimSpace(out) != config.ConfigPath(dir) {
		t.Errorf("config path = %q, %v", out, err)
	}

	out, err = runCLI(t, cfg, "config", "validate", "--json")
	if err != nil || !strings.Contains(out, `"valid": true`) {
		t.Errorf("config validate = %q, %v", out, err)
	}

	out, err = runCLI(t, cfg, "config", "show")
	if err != nil || !strings.Contains(out, "prices.>") {
		t.Errorf("config show = %q, %v", out, err)
	}

	cfg.Engine.FeeRate = 2
	if _, err := runCLI(t, cfg, "config", "validate"); err == nil {
		t.Error("invalid config should fail validation")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, config.Default(t.TempDir()), "version")
	if err != nil || !strings.Contains(out, Version) {
		t.Errorf("version = %q, %v", out, err)
	}
}
