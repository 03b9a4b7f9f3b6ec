package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "papertrader/internal/errors"
	"papertrader/internal/models"
)

// transitions lists the allowed next states. Terminal states have none.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending: {
		models.OrderStatusPartiallyFilled,
		models.OrderStatusFilled,
		models.OrderStatusCancelled,
		models.OrderStatusRejected,
	},
	models.OrderStatusPartiallyFilled: {
		models.OrderStatusFilled,
		models.OrderStatusCancelled,
		models.OrderStatusRejected,
	},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transition(o *models.Order, to models.OrderStatus, at time.Time) error {
	if !CanTransition(o.Status, to) {
		return apperrors.NewOrderError(o.ID, o.Symbol, "transition",
			fmt.Sprintf("%s -> %s", o.Status, to), apperrors.ErrInvalidTransition)
	}
	o.Status = to
	o.UpdatedAt = at
	return nil
}

// The helpers below mutate an order in place. Callers hold the lock of the
// order's account.

// Fill marks the whole remaining quantity filled at price.
func Fill(o *models.Order, price, fee decimal.Decimal, at time.Time) error {
	if err := transition(o, models.OrderStatusFilled, at); err != nil {
		return err
	}
	o.FilledQuantity = o.Quantity
	o.AvgFillPrice = price
	o.Fee = fee
	o.Reserved = decimal.Zero
	return nil
}

// Reject marks the order rejected with reason.
func Reject(o *models.Order, reason string, at time.Time) error {
	if err := transition(o, models.OrderStatusRejected, at); err != nil {
		return err
	}
	o.RejectReason = reason
	o.Reserved = decimal.Zero
	return nil
}

// CheckCancel returns ErrOrderNotCancellable when o is terminal.
func CheckCancel(o *models.Order) error {
	if !CanTransition(o.Status, models.OrderStatusCancelled) {
		return apperrors.NewOrderError(o.ID, o.Symbol, "cancel",
			fmt.Sprintf("status %s", o.Status), apperrors.ErrOrderNotCancellable)
	}
	return nil
}

// Cancel marks an open order cancelled. Terminal orders yield
// ErrOrderNotCancellable and are left untouched.
func Cancel(o *models.Order, at time.Time) error {
	if err := CheckCancel(o); err != nil {
		return err
	}
	o.Status = models.OrderStatusCancelled
	o.UpdatedAt = at
	o.Reserved = decimal.Zero
	return nil
}
