// Package audit writes an append-only JSON lines trail of order and fill
// events to a rotating file.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"papertrader/internal/models"
)

// EventType represents the type of audit event.
type EventType string

const (
	OrderPlaced    EventType = "ORDER_PLACED"
	OrderFilled    EventType = "ORDER_FILLED"
	OrderCancelled EventType = "ORDER_CANCELLED"
	OrderRejected  EventType = "ORDER_REJECTED"
	FillExecuted   EventType = "FILL_EXECUTED"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType EventType              `json:"event_type"`
	AccountID string                 `json:"account_id,omitempty"`
	Symbol    string                 `json:"symbol,omitempty"`
	OrderID   string                 `json:"order_id,omitempty"`
	Action    string                 `json:"action,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Success   bool                   `json:"success"`
	ErrorMsg  string                 `json:"error,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
}

// Config holds audit logger configuration.
type Config struct {
	LogDir     string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		LogDir:     filepath.Join(home, ".config", "papertrader", "audit"),
		MaxSize:    50,
		MaxBackups: 30,
		MaxAge:     365,
		Compress:   true,
	}
}

// Logger writes audit events. It also receives engine events directly.
type Logger struct {
	mu        sync.Mutex
	writer    io.WriteCloser
	sessionID string
	now       func() time.Time
	errors    int
}

// NewLogger creates an audit logger writing to cfg.LogDir/audit.log.
func NewLogger(cfg Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "audit.log"),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	return NewLoggerWithWriter(writer), nil
}

// NewLoggerWithWriter creates an audit logger writing to w.
func NewLoggerWithWriter(w io.WriteCloser) *Logger {
	return &Logger{
		writer:    w,
		sessionID: uuid.NewString(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SessionID returns the identifier stamped on every event of this logger.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// Log writes one event as a JSON line.
func (l *Logger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	event.SessionID = l.sessionID

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing audit event: %w", err)
	}
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		l.errors++
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

// OnOrder records an order state change.
func (l *Logger) OnOrder(o models.Order) {
	event := Event{
		Timestamp: o.UpdatedAt,
		EventType: orderEventType(o.Status),
		AccountID: o.AccountID,
		Symbol:    o.Symbol,
		OrderID:   o.ID,
		Action:    string(o.Side),
		Success:   o.Status != models.OrderStatusRejected,
		ErrorMsg:  o.RejectReason,
		Details: map[string]interface{}{
			"type":            o.Type,
			"status":          o.Status,
			"quantity":        o.Quantity.String(),
			"filled_quantity": o.FilledQuantity.String(),
		},
	}
	if o.Price.IsPositive() {
		event.Details["price"] = o.Price.String()
	}
	if o.StopPrice.IsPositive() {
		event.Details["stop_price"] = o.StopPrice.String()
	}
	_ = l.Log(event)
}

// OnFill records an executed fill.
func (l *Logger) OnFill(f models.Fill) {
	_ = l.Log(Event{
		Timestamp: f.ExecutedAt,
		EventType: FillExecuted,
		AccountID: f.AccountID,
		Symbol:    f.Symbol,
		OrderID:   f.OrderID,
		Action:    string(f.Side),
		Success:   true,
		Details: map[string]interface{}{
			"quantity": f.Quantity.String(),
			"price":    f.Price.String(),
			"fee":      f.Fee.String(),
		},
	})
}

// WriteErrors returns the number of failed writes.
func (l *Logger) WriteErrors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errors
}

// Close closes the audit logger.
func (l *Logger) Close() error {
	return l.writer.Close()
}

// orderEventType maps a status to its event. Open orders are placements.
func orderEventType(status models.OrderStatus) EventType {
	switch status {
	case models.OrderStatusFilled:
		return OrderFilled
	case models.OrderStatusCancelled:
		return OrderCancelled
	case models.OrderStatusRejected:
		return OrderRejected
	default:
		return OrderPlaced
	}
}
