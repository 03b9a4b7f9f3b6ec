// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidOrderParameters = errors.New("invalid order parameters")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInsufficientPosition   = errors.New("insufficient position")
	ErrOrderNotCancellable    = errors.New("order not cancellable")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidPrice           = errors.New("invalid price")
	ErrNoMarketPrice          = errors.New("no market price available")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrConfigInvalid          = errors.New("invalid configuration")
	ErrInvariantViolation     = errors.New("ledger invariant violated")
	ErrDatabaseError          = errors.New("database error")
	ErrFeedClosed             = errors.New("price feed closed")
	ErrInvalidTransition      = errors.New("invalid order state transition")
)

// OrderError represents an error related to order operations.
type OrderError struct {
	OrderID string
	Symbol  string
	Action  string
	Reason  string
	Err     error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order error [%s] %s %s: %s: %v", e.OrderID, e.Action, e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("order error [%s] %s %s: %s", e.OrderID, e.Action, e.Symbol, e.Reason)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(orderID, symbol, action, reason string, err error) *OrderError {
	return &OrderError{
		OrderID: orderID,
		Symbol:  symbol,
		Action:  action,
		Reason:  reason,
		Err:     err,
	}
}

// ValidationError represents a validation error. It always matches
// ErrInvalidOrderParameters and also matches Err when set.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Err, ErrInvalidOrderParameters}
	}
	return []error{ErrInvalidOrderParameters}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// LedgerError represents a rejected ledger operation on an account.
type LedgerError struct {
	AccountID string
	Operation string
	Detail    string
	Err       error
}

func (e *LedgerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ledger error [%s] %s: %v (%s)", e.AccountID, e.Operation, e.Err, e.Detail)
	}
	return fmt.Sprintf("ledger error [%s] %s: %v", e.AccountID, e.Operation, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// NewLedgerError creates a new LedgerError.
func NewLedgerError(accountID, operation string, err error, detailFormat string, args ...interface{}) *LedgerError {
	return &LedgerError{
		AccountID: accountID,
		Operation: operation,
		Detail:    fmt.Sprintf(detailFormat, args...),
		Err:       err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
