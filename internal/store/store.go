// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"papertrader/internal/models"
)

// Journal records order states and fills for later inspection. It is
// written after the engine has committed a change.
type Journal interface {
	SaveOrder(ctx context.Context, order *models.Order) error
	SaveFill(ctx context.Context, fill *models.Fill) error
	GetOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	GetFills(ctx context.Context, filter FillFilter) ([]models.Fill, error)
	Close() error
}

// OrderFilter narrows GetOrders. Empty fields match everything.
type OrderFilter struct {
	AccountID string
	Symbol    string
	Status    models.OrderStatus
	Limit     int
}

// FillFilter narrows GetFills. Empty fields match everything.
type FillFilter struct {
	AccountID string
	OrderID   string
	Symbol    string
	Limit     int
}
