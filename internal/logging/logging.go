// Package logging provides structured logging functionality.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"papertrader/internal/models"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// NewLoggerWithConfig creates a logger writing to the console, a rotating
// file, or both.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}

	if cfg.File && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent tags the logger with a component name.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// WithAccount adds an account ID to the logger context.
func WithAccount(logger zerolog.Logger, accountID string) zerolog.Logger {
	return logger.With().Str("account_id", accountID).Logger()
}

// WithOrderID adds an order ID to the logger context.
func WithOrderID(logger zerolog.Logger, orderID string) zerolog.Logger {
	return logger.With().Str("order_id", orderID).Logger()
}

// WithSymbol adds a symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// LogOrder logs an order state change.
func LogOrder(logger zerolog.Logger, o models.Order) {
	level := zerolog.InfoLevel
	if o.Status == models.OrderStatusRejected {
		level = zerolog.WarnLevel
	}
	event := logger.WithLevel(level)
	if o.Status == models.OrderStatusRejected {
		event = event.Str("reason", o.RejectReason)
	}
	event.
		Str("event", "order").
		Str("order_id", o.ID).
		Str("account_id", o.AccountID).
		Str("symbol", o.Symbol).
		Str("type", string(o.Type)).
		Str("side", string(o.Side)).
		Stringer("quantity", o.Quantity).
		Str("status", string(o.Status)).
		Msg("Order update")
}

// LogFill logs an executed fill.
func LogFill(logger zerolog.Logger, f models.Fill) {
	logger.Info().
		Str("event", "fill").
		Str("order_id", f.OrderID).
		Str("account_id", f.AccountID).
		Str("symbol", f.Symbol).
		Str("side", string(f.Side)).
		Stringer("quantity", f.Quantity).
		Stringer("price", f.Price).
		Stringer("fee", f.Fee).
		Msg("Fill executed")
}
