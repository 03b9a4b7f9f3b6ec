package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"papertrader/internal/models"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"debug":    zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"warn":     zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
		"":         zerolog.InfoLevel,
		"verbose":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerWithConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "papertrader.log")
	logger := NewLoggerWithConfig(LogConfig{
		Level:    "info",
		File:     true,
		FilePath: path,
		MaxSize:  1,
	})
	logger.Debug().Msg("hidden")
	logger.Info().Msg("visible")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if !bytes.Contains(data, []byte("visible")) || bytes.Contains(data, []byte("hidden")) {
		t.Errorf("log file = %s", data)
	}
}

func TestLogOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(zerolog.New(&buf), "engine")

	LogOrder(logger, models.Order{
		ID:           "o-1",
		AccountID:    "a-1",
		Symbol:       "AAPL",
		Type:         models.OrderTypeLimit,
		Side:         models.OrderSideBuy,
		Quantity:     decimal.NewFromInt(10),
		Status:       models.OrderStatusRejected,
		RejectReason: "insufficient funds",
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" || entry["reason"] != "insufficient funds" {
		t.Errorf("entry = %v", entry)
	}
	if entry["component"] != "engine" || entry["quantity"] != "10" || entry["status"] != "REJECTED" {
		t.Errorf("entry = %v", entry)
	}
}

func TestLogOrder_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	var levels []zerolog.Level
	logger := zerolog.New(&buf).Level(zerolog.WarnLevel).Hook(
		zerolog.HookFunc(func(e *zerolog.Event, level zerolog.Level, msg string) {
			levels = append(levels, level)
		}))

	filled := models.Order{ID: "o-1", Symbol: "AAPL", Quantity: decimal.NewFromInt(1), Status: models.OrderStatusFilled}
	LogOrder(logger, filled)
	if buf.Len() != 0 {
		t.Errorf("filled order logged below the logger level: %s", buf.String())
	}

	rejected := filled
	rejected.Status = models.OrderStatusRejected
	rejected.RejectReason = "no price"
	LogOrder(logger, rejected)
	if len(levels) != 1 || levels[0] != zerolog.WarnLevel {
		t.Errorf("levels = %v, want [warn]", levels)
	}

	buf.Reset()
	LogOrder(zerolog.New(&buf), filled)
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if _, ok := entry["reason"]; ok {
		t.Errorf("filled order carries a reason: %v", entry)
	}
}
