package ledger

import (
	"github.com/shopspring/decimal"

	"papertrader/internal/models"
)

// Position tracks quantity and total cost basis for one symbol. The basis
// is kept exact; the average cost is derived from it for views only.
// It is owned by an Account and guarded by the account lock.
type Position struct {
	Symbol    string
	Quantity  decimal.Decimal
	CostBasis decimal.Decimal
	LastPrice decimal.Decimal
}

func newPosition(symbol string) *Position {
	return &Position{
		Symbol:    symbol,
		Quantity:  decimal.Zero,
		CostBasis: decimal.Zero,
		LastPrice: decimal.Zero,
	}
}

// AvgCost returns cost basis / quantity, or zero for an empty position.
func (p *Position) AvgCost() decimal.Decimal {
	if p.Quantity.IsZero() {
		return decimal.Zero
	}
	return p.CostBasis.Div(p.Quantity)
}

// MarketValue returns quantity * last price.
func (p *Position) MarketValue() decimal.Decimal {
	return p.Quantity.Mul(p.LastPrice)
}

// UnrealizedPnL returns market value minus cost basis.
func (p *Position) UnrealizedPnL() decimal.Decimal {
	return p.MarketValue().Sub(p.CostBasis)
}

// addLot adds a buy of qty at price to the basis.
func (p *Position) addLot(qty, price decimal.Decimal) {
	p.CostBasis = p.CostBasis.Add(price.Mul(qty))
	p.Quantity = p.Quantity.Add(qty)
	p.LastPrice = price
}

// reduce removes qty sold at price with its proportional share of the
// basis and returns the gross realized P&L. Closing the position removes
// the whole basis. The caller has already checked qty <= Quantity.
func (p *Position) reduce(qty, price decimal.Decimal) decimal.Decimal {
	removed := p.CostBasis
	if qty.LessThan(p.Quantity) {
		removed = p.CostBasis.Mul(qty).Div(p.Quantity)
	}
	p.CostBasis = p.CostBasis.Sub(removed)
	p.Quantity = p.Quantity.Sub(qty)
	p.LastPrice = price
	return price.Mul(qty).Sub(removed)
}

// mark updates the valuation price only.
func (p *Position) mark(price decimal.Decimal) {
	p.LastPrice = price
}

// View returns a read-only copy with derived fields filled in.
func (p *Position) View() models.Position {
	return models.Position{
		Symbol:        p.Symbol,
		Quantity:      p.Quantity,
		AvgCost:       p.AvgCost(),
		CostBasis:     p.CostBasis,
		LastPrice:     p.LastPrice,
		MarketValue:   p.MarketValue(),
		UnrealizedPnL: p.UnrealizedPnL(),
	}
}
