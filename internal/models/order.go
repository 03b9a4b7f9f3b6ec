package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderRequest carries the caller supplied parameters of a new order.
// Price and StopPrice are zero when not given.
type OrderRequest struct {
	AccountID string
	Symbol    string
	Type      OrderType
	Side      OrderSide
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	StopPrice decimal.Decimal
}

// Order represents a paper trading order.
type Order struct {
	ID             string          `json:"id"`
	AccountID      string          `json:"account_id"`
	Symbol         string          `json:"symbol"`
	Type           OrderType       `json:"type"`
	Side           OrderSide       `json:"side"`
	Quantity       decimal.Decimal `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	StopPrice      decimal.Decimal `json:"stop_price"`
	Status         OrderStatus     `json:"status"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	AvgFillPrice   decimal.Decimal `json:"avg_fill_price"`
	Fee            decimal.Decimal `json:"fee"`
	Reserved       decimal.Decimal `json:"reserved"`
	RejectReason   string          `json:"reject_reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsBuy reports whether the order buys.
func (o *Order) IsBuy() bool {
	return o.Side == OrderSideBuy
}

// Fill records the execution of an order at a single price.
type Fill struct {
	OrderID    string          `json:"order_id"`
	AccountID  string          `json:"account_id"`
	Symbol     string          `json:"symbol"`
	Side       OrderSide       `json:"side"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Fee        decimal.Decimal `json:"fee"`
	ExecutedAt time.Time       `json:"executed_at"`
}
