package engine

import (
	"github.com/shopspring/decimal"

	apperrors "papertrader/internal/errors"
	"papertrader/internal/ledger"
	"papertrader/internal/logging"
	"papertrader/internal/models"
	"papertrader/internal/orders"
)

// ShouldTrigger reports whether a pending order's price condition holds at
// price. LIMIT BUY fills at or below the limit, LIMIT SELL at or above it.
// STOP BUY fires at or above the stop, STOP SELL at or below it.
func ShouldTrigger(o *models.Order, price decimal.Decimal) bool {
	switch o.Type {
	case models.OrderTypeLimit:
		if o.IsBuy() {
			return price.LessThanOrEqual(o.Price)
		}
		return price.GreaterThanOrEqual(o.Price)
	case models.OrderTypeStop:
		if o.IsBuy() {
			return price.GreaterThanOrEqual(o.StopPrice)
		}
		return price.LessThanOrEqual(o.StopPrice)
	default:
		return false
	}
}

// executeLocked fills order o in full at price against account a. On a
// funds or position failure the order's reservation is released and the
// order is rejected. The caller holds a's lock.
func (e *Engine) executeLocked(a *ledger.Account, o *models.Order, price decimal.Decimal, ev *events) error {
	now := e.now()

	var fee decimal.Decimal
	var err error
	if o.IsBuy() {
		fee, err = a.ApplyBuyFill(o.Symbol, o.Quantity, price, e.feeRate, o.Reserved)
	} else {
		fee, err = a.ApplySellFill(o.Symbol, o.Quantity, price, e.feeRate)
	}
	if err != nil {
		if o.Reserved.IsPositive() {
			if rerr := a.Release(o.Reserved); rerr != nil {
				e.log.Error().Err(rerr).Str("order_id", o.ID).Msg("Failed to release reservation")
			}
		}
		_ = orders.Reject(o, err.Error(), now)
		ev.order(o)
		return err
	}

	if err := orders.Fill(o, price, fee, now); err != nil {
		return err
	}
	ev.order(o)
	ev.fill(models.Fill{
		OrderID:    o.ID,
		AccountID:  o.AccountID,
		Symbol:     o.Symbol,
		Side:       o.Side,
		Quantity:   o.Quantity,
		Price:      price,
		Fee:        fee,
		ExecutedAt: now,
	})
	return nil
}

// ExecuteMarketOrder fills an open order immediately at currentPrice
// regardless of its trigger condition. A ledger failure rejects the order
// and is returned.
func (e *Engine) ExecuteMarketOrder(orderID string, currentPrice decimal.Decimal) error {
	if !currentPrice.IsPositive() {
		return &apperrors.ValidationError{Field: "price", Value: currentPrice, Message: "must be greater than zero", Err: apperrors.ErrInvalidPrice}
	}
	order, ok := e.orders.Get(orderID)
	if !ok {
		return apperrors.Wrapf(apperrors.ErrOrderNotFound, "order %s", orderID)
	}

	var ev events
	var execErr error
	err := e.ledger.WithAccount(order.AccountID, func(a *ledger.Account) error {
		if !order.Status.IsOpen() {
			return apperrors.NewOrderError(order.ID, order.Symbol, "execute",
				"status "+string(order.Status), apperrors.ErrInvalidTransition)
		}
		execErr = e.executeLocked(a, order, currentPrice, &ev)
		return nil
	})
	if err != nil {
		return err
	}

	e.orders.Pending().Remove(order.Symbol, order.ID)
	if execErr != nil {
		e.metrics.rejected("execution")
	}
	e.metrics.pending(e.orders.Pending().Total())
	e.emit(ev)
	return execErr
}

// OnPriceUpdate walks the pending orders of symbol in placement order and
// executes each one whose condition holds at price. Triggered orders leave
// the index whether they fill or are rejected. It returns the number of
// orders triggered.
func (e *Engine) OnPriceUpdate(symbol string, price decimal.Decimal) int {
	var ev events
	triggered, failed := 0, 0

	e.orders.Pending().Scan(symbol, func(o *models.Order) bool {
		keep := false
		err := e.ledger.WithAccount(o.AccountID, func(a *ledger.Account) error {
			if !o.Status.IsOpen() {
				return nil
			}
			if !ShouldTrigger(o, price) {
				keep = true
				return nil
			}
			triggered++
			if err := e.executeLocked(a, o, price, &ev); err != nil {
				failed++
			}
			return nil
		})
		if err != nil {
			log := logging.WithOrderID(e.log, o.ID)
			log.Error().Err(err).Msg("Dropping pending order")
		}
		return keep
	})

	for i := 0; i < failed; i++ {
		e.metrics.rejected("execution")
	}
	e.metrics.priceUpdate(triggered)
	e.metrics.pending(e.orders.Pending().Total())
	e.emit(ev)
	return triggered
}
