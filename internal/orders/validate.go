package orders

import (
	"strings"

	"github.com/shopspring/decimal"

	apperrors "papertrader/internal/errors"
	"papertrader/internal/models"
)

// NormalizeSymbol trims and upper-cases a symbol so feed and order symbols match.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidateRequest checks the static parameters of an order request.
func ValidateRequest(req models.OrderRequest) error {
	if req.AccountID == "" {
		return apperrors.NewValidationError("account_id", req.AccountID, "is required")
	}
	if NormalizeSymbol(req.Symbol) == "" {
		return apperrors.NewValidationError("symbol", req.Symbol, "is required")
	}
	if !req.Type.Valid() {
		return apperrors.NewValidationError("type", req.Type, "must be MARKET, LIMIT or STOP")
	}
	if !req.Side.Valid() {
		return apperrors.NewValidationError("side", req.Side, "must be BUY or SELL")
	}
	if !req.Quantity.IsPositive() {
		return &apperrors.ValidationError{Field: "quantity", Value: req.Quantity, Message: "must be greater than zero", Err: apperrors.ErrInvalidQuantity}
	}
	if req.Price.IsNegative() {
		return &apperrors.ValidationError{Field: "price", Value: req.Price, Message: "must not be negative", Err: apperrors.ErrInvalidPrice}
	}
	if req.StopPrice.IsNegative() {
		return apperrors.NewValidationError("stop_price", req.StopPrice, "must not be negative")
	}

	switch req.Type {
	case models.OrderTypeLimit:
		if !req.Price.IsPositive() {
			return apperrors.NewValidationError("price", req.Price, "is required for LIMIT orders")
		}
	case models.OrderTypeStop:
		if !req.StopPrice.IsPositive() {
			return apperrors.NewValidationError("stop_price", req.StopPrice, "is required for STOP orders")
		}
	}
	return nil
}

// ReferencePrice returns the price used to estimate an order's cost:
// the limit price for LIMIT, the stop price for STOP and the latest market
// price for MARKET, falling back to the caller's reference price.
func ReferencePrice(req models.OrderRequest, market decimal.Decimal, haveMarket bool) (decimal.Decimal, error) {
	switch req.Type {
	case models.OrderTypeLimit:
		return req.Price, nil
	case models.OrderTypeStop:
		return req.StopPrice, nil
	}
	if haveMarket && market.IsPositive() {
		return market, nil
	}
	if req.Price.IsPositive() {
		return req.Price, nil
	}
	return decimal.Zero, apperrors.Wrapf(apperrors.ErrNoMarketPrice, "symbol %s", req.Symbol)
}

// EstimateCost returns quantity * price * (1 + feeRate).
func EstimateCost(qty, price, feeRate decimal.Decimal) decimal.Decimal {
	return qty.Mul(price).Mul(decimal.NewFromInt(1).Add(feeRate))
}
