// Package engine is the virtual trading engine. It ties the account ledger
// and the order manager together, executes market orders, and triggers
// pending limit and stop orders as market prices arrive.
//
// Locking: price updates and placements hold the symbol queue lock of the
// pending index and take account locks inside it. Code holding an account lock never
// takes a symbol lock, so the order is always symbol -> account.
package engine

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "papertrader/internal/errors"
	"papertrader/internal/ledger"
	"papertrader/internal/logging"
	"papertrader/internal/models"
	"papertrader/internal/orders"
)

// DefaultFeeRate is the proportional fee charged on every fill.
var DefaultFeeRate = decimal.RequireFromString("0.001")

// Config holds the engine dependencies.
type Config struct {
	FeeRate decimal.Decimal
	Logger  zerolog.Logger
	Sink    EventSink
	Metrics *Metrics
	Clock   func() time.Time
}

// Engine owns every account and order of one simulation.
type Engine struct {
	feeRate decimal.Decimal
	log     zerolog.Logger
	sink    EventSink
	metrics *Metrics
	now     func() time.Time

	ledger *ledger.Ledger
	orders *orders.Manager
	prices *PriceCache
}

// New creates an Engine. A negative fee rate is treated as zero.
func New(cfg Config) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	sink := cfg.Sink
	if sink == nil {
		sink = nopSink{}
	}
	feeRate := cfg.FeeRate
	if feeRate.IsNegative() {
		feeRate = decimal.Zero
	}

	return &Engine{
		feeRate: feeRate,
		log:     logging.WithComponent(cfg.Logger, "engine"),
		sink:    sink,
		metrics: cfg.Metrics,
		now:     clock,
		ledger:  ledger.NewLedger(clock),
		orders:  orders.NewManager(clock),
		prices:  NewPriceCache(),
	}
}

// FeeRate returns the configured fee rate.
func (e *Engine) FeeRate() decimal.Decimal {
	return e.feeRate
}

// CreateAccount opens a new account seeded with initialBalance.
func (e *Engine) CreateAccount(name string, initialBalance decimal.Decimal) (string, error) {
	id, err := e.ledger.CreateAccount(name, initialBalance)
	if err != nil {
		return "", err
	}
	e.log.Info().
		Str("account_id", id).
		Str("name", name).
		Stringer("initial_balance", initialBalance).
		Msg("Account created")
	return id, nil
}

// PlaceOrder validates and registers an order. MARKET orders execute
// immediately; LIMIT and STOP orders join the pending index, BUY orders
// reserving their estimated cost first.
//
// Funds or position failures record a REJECTED order and return its ID
// along with the error. Parameter errors return no ID.
func (e *Engine) PlaceOrder(req models.OrderRequest) (string, error) {
	if err := orders.ValidateRequest(req); err != nil {
		return "", err
	}
	req.Symbol = orders.NormalizeSymbol(req.Symbol)
	order := e.orders.NewOrder(req)

	var ev events
	var res placement
	var err error
	// The symbol lock is taken before the account lock, as on price
	// updates, so a cancel that sees the registered order finds it queued.
	e.orders.Pending().AddIf(req.Symbol, func() (*models.Order, bool) {
		res, err = e.place(req, order, &ev)
		return order, err == nil && res.err == nil && order.Type != models.OrderTypeMarket
	})
	if err != nil {
		return "", err
	}

	if res.accepted {
		e.metrics.placed(ev.orders[0])
	}
	switch {
	case res.err == nil && order.Type != models.OrderTypeMarket:
		e.metrics.pending(e.orders.Pending().Total())
	case res.err != nil && res.accepted:
		e.metrics.rejected("execution")
	case res.err != nil:
		log := logging.WithAccount(e.log, order.AccountID)
		log.Debug().Err(res.err).Str("order_id", order.ID).Msg("Order rejected at placement")
		e.metrics.rejected("placement")
	}

	e.emit(ev)
	if res.err != nil {
		return order.ID, apperrors.NewOrderError(order.ID, order.Symbol, "place", "rejected", res.err)
	}
	return order.ID, nil
}

// placement is the outcome of the account side of PlaceOrder. err carries
// funds, position and execution failures that still record the order.
type placement struct {
	accepted bool
	err      error
}

// place reserves, registers and, for MARKET orders, executes order under
// the account lock. A returned error means nothing was recorded.
func (e *Engine) place(req models.OrderRequest, order *models.Order, ev *events) (placement, error) {
	var res placement
	err := e.ledger.WithAccount(req.AccountID, func(a *ledger.Account) error {
		market, haveMarket := e.prices.Get(req.Symbol)
		refPrice, err := orders.ReferencePrice(req, market, haveMarket)
		if err != nil {
			return err
		}

		if order.IsBuy() {
			cost := orders.EstimateCost(order.Quantity, refPrice, e.feeRate)
			if cost.GreaterThan(a.AvailableBalance()) {
				res.err = apperrors.NewLedgerError(a.ID(), "place_order", apperrors.ErrInsufficientFunds,
					"estimated cost %s, available %s", cost, a.AvailableBalance())
				e.rejectLocked(order, res.err, ev)
				return nil
			}
			if order.Type != models.OrderTypeMarket {
				if err := a.Reserve(cost); err != nil {
					res.err = err
					e.rejectLocked(order, err, ev)
					return nil
				}
				order.Reserved = cost
			}
		} else if held := a.PositionQuantity(order.Symbol); order.Quantity.GreaterThan(held) {
			res.err = apperrors.NewLedgerError(a.ID(), "place_order", apperrors.ErrInsufficientPosition,
				"sell %s %s, held %s", order.Quantity, order.Symbol, held)
			e.rejectLocked(order, res.err, ev)
			return nil
		}

		e.orders.Register(order)
		ev.order(order)
		res.accepted = true

		if order.Type == models.OrderTypeMarket {
			res.err = e.executeLocked(a, order, refPrice, ev)
		}
		return nil
	})
	return res, err
}

// rejectLocked registers order as REJECTED. The account lock is held.
func (e *Engine) rejectLocked(order *models.Order, reason error, ev *events) {
	_ = orders.Reject(order, reason.Error(), e.now())
	e.orders.Register(order)
	ev.order(order)
}

// CancelOrder cancels an open order and releases its reservation.
// Terminal orders yield ErrOrderNotCancellable with no state change.
func (e *Engine) CancelOrder(orderID string) error {
	order, ok := e.orders.Get(orderID)
	if !ok {
		return apperrors.Wrapf(apperrors.ErrOrderNotFound, "order %s", orderID)
	}

	var ev events
	err := e.ledger.WithAccount(order.AccountID, func(a *ledger.Account) error {
		if err := orders.CheckCancel(order); err != nil {
			return err
		}
		// A failed release leaves the order open with its reservation.
		if order.Reserved.IsPositive() {
			if err := a.Release(order.Reserved); err != nil {
				return err
			}
		}
		if err := orders.Cancel(order, e.now()); err != nil {
			return err
		}
		ev.order(order)
		return nil
	})
	if err != nil {
		return err
	}

	e.orders.Pending().Remove(order.Symbol, order.ID)
	e.metrics.cancelled()
	e.metrics.pending(e.orders.Pending().Total())
	e.emit(ev)
	return nil
}

// UpdateMarketPrice records a new price for symbol, marks every holding to
// market and triggers eligible pending orders. Orders that fail at trigger
// time are rejected; the update itself only fails on invalid input.
func (e *Engine) UpdateMarketPrice(symbol string, price decimal.Decimal) error {
	symbol = orders.NormalizeSymbol(symbol)
	if symbol == "" {
		return apperrors.NewValidationError("symbol", symbol, "is required")
	}
	if !price.IsPositive() {
		return &apperrors.ValidationError{Field: "price", Value: price, Message: "must be greater than zero", Err: apperrors.ErrInvalidPrice}
	}

	e.prices.Set(symbol, price, e.now())
	marked := e.ledger.MarkToMarket(symbol, price)
	triggered := e.OnPriceUpdate(symbol, price)

	log := logging.WithSymbol(e.log, symbol)
	log.Debug().
		Stringer("price", price).
		Int("accounts_marked", marked).
		Int("orders_triggered", triggered).
		Msg("Price update")
	return nil
}

// GetAccountInfo returns a snapshot of balances and positions.
func (e *Engine) GetAccountInfo(accountID string) (*models.AccountInfo, error) {
	return e.ledger.Snapshot(accountID)
}

// GetOrderHistory returns copies of the account's orders in placement order.
func (e *Engine) GetOrderHistory(accountID string) ([]models.Order, error) {
	var history []models.Order
	err := e.ledger.WithAccount(accountID, func(*ledger.Account) error {
		list := e.orders.ForAccount(accountID)
		history = make([]models.Order, len(list))
		for i, o := range list {
			history[i] = *o
		}
		return nil
	})
	return history, err
}

// GetOrder returns a copy of one order.
func (e *Engine) GetOrder(orderID string) (*models.Order, error) {
	order, ok := e.orders.Get(orderID)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrOrderNotFound, "order %s", orderID)
	}
	var cp models.Order
	err := e.ledger.WithAccount(order.AccountID, func(*ledger.Account) error {
		cp = *order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// LastPrice returns the latest known price for symbol.
func (e *Engine) LastPrice(symbol string) (decimal.Decimal, bool) {
	return e.prices.Get(orders.NormalizeSymbol(symbol))
}

// PendingCount returns the number of orders waiting on symbol.
func (e *Engine) PendingCount(symbol string) int {
	return e.orders.Pending().Len(orders.NormalizeSymbol(symbol))
}

// Validate checks the ledger invariants of every account.
func (e *Engine) Validate() error {
	return e.ledger.Validate()
}

func (e *Engine) emit(ev events) {
	for _, o := range ev.orders {
		logging.LogOrder(e.log, o)
		e.sink.OnOrder(o)
	}
	for _, f := range ev.fills {
		logging.LogFill(e.log, f)
		e.metrics.filled(f)
		e.sink.OnFill(f)
	}
}
