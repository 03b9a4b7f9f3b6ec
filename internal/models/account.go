package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a read-only view of a holding in one symbol.
type Position struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgCost       decimal.Decimal `json:"avg_cost"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	LastPrice     decimal.Decimal `json:"last_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

// AccountInfo is a consistent snapshot of an account's balances and positions.
type AccountInfo struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	InitialBalance   decimal.Decimal `json:"initial_balance"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Reserved         decimal.Decimal `json:"reserved"`
	FeesPaid         decimal.Decimal `json:"fees_paid"`
	RealizedPnL      decimal.Decimal `json:"realized_pnl"`
	Positions        []Position      `json:"positions"`
	CreatedAt        time.Time       `json:"created_at"`
}

// MarketValue returns the sum of all position market values.
func (a *AccountInfo) MarketValue() decimal.Decimal {
	total := decimal.Zero
	for _, p := range a.Positions {
		total = total.Add(p.MarketValue)
	}
	return total
}

// TotalEquity returns current cash plus marked position value.
func (a *AccountInfo) TotalEquity() decimal.Decimal {
	return a.CurrentBalance.Add(a.MarketValue())
}

// Position returns the position for symbol and whether one is held.
func (a *AccountInfo) Position(symbol string) (Position, bool) {
	for _, p := range a.Positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Position{}, false
}
