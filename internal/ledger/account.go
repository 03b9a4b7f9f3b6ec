package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "papertrader/internal/errors"
	"papertrader/internal/models"
)

// Account holds cash balances and positions for one paper trading account.
//
// Every method below assumes the caller holds the account lock, which is
// taken through Ledger.WithAccount. Methods that fail leave the account
// untouched.
type Account struct {
	mu sync.Mutex

	id             string
	name           string
	initialBalance decimal.Decimal
	current        decimal.Decimal
	available      decimal.Decimal
	reserved       decimal.Decimal
	feesPaid       decimal.Decimal
	realizedPnL    decimal.Decimal
	positions      map[string]*Position
	createdAt      time.Time
}

func newAccount(id, name string, initial decimal.Decimal, createdAt time.Time) *Account {
	return &Account{
		id:             id,
		name:           name,
		initialBalance: initial,
		current:        initial,
		available:      initial,
		reserved:       decimal.Zero,
		feesPaid:       decimal.Zero,
		realizedPnL:    decimal.Zero,
		positions:      make(map[string]*Position),
		createdAt:      createdAt,
	}
}

// ID returns the account identifier.
func (a *Account) ID() string { return a.id }

// Name returns the display name.
func (a *Account) Name() string { return a.name }

// CurrentBalance returns realized cash.
func (a *Account) CurrentBalance() decimal.Decimal { return a.current }

// AvailableBalance returns spendable cash.
func (a *Account) AvailableBalance() decimal.Decimal { return a.available }

// Reserved returns the sum of open reservations.
func (a *Account) Reserved() decimal.Decimal { return a.reserved }

// FeesPaid returns the total fees charged on fills.
func (a *Account) FeesPaid() decimal.Decimal { return a.feesPaid }

// RealizedPnL returns gross realized profit from sells, before fees.
func (a *Account) RealizedPnL() decimal.Decimal { return a.realizedPnL }

// PositionQuantity returns the held quantity of symbol, zero if none.
func (a *Account) PositionQuantity(symbol string) decimal.Decimal {
	if p, ok := a.positions[symbol]; ok {
		return p.Quantity
	}
	return decimal.Zero
}

// Reserve moves amount from available cash into reservation.
func (a *Account) Reserve(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.NewLedgerError(a.id, "reserve", apperrors.ErrInvalidAmount, "amount %s", amount)
	}
	if amount.GreaterThan(a.available) {
		return apperrors.NewLedgerError(a.id, "reserve", apperrors.ErrInsufficientFunds,
			"need %s, available %s", amount, a.available)
	}
	a.available = a.available.Sub(amount)
	a.reserved = a.reserved.Add(amount)
	return nil
}

// Release returns a previously reserved amount to available cash.
func (a *Account) Release(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperrors.NewLedgerError(a.id, "release", apperrors.ErrInvalidAmount, "amount %s", amount)
	}
	if amount.GreaterThan(a.reserved) {
		return apperrors.NewLedgerError(a.id, "release", apperrors.ErrInvalidAmount,
			"release %s exceeds reserved %s", amount, a.reserved)
	}
	a.available = a.available.Add(amount)
	a.reserved = a.reserved.Sub(amount)
	return nil
}

// ApplyBuyFill debits quantity*price*(1+feeRate) and adds to the position.
// reserved is the amount previously held for the order; it is consumed
// rather than deducted a second time. The fee is returned.
func (a *Account) ApplyBuyFill(symbol string, qty, price, feeRate, reserved decimal.Decimal) (decimal.Decimal, error) {
	if err := checkFillArgs(a.id, "buy_fill", qty, price); err != nil {
		return decimal.Zero, err
	}
	if reserved.IsNegative() || reserved.GreaterThan(a.reserved) {
		return decimal.Zero, apperrors.NewLedgerError(a.id, "buy_fill", apperrors.ErrInvalidAmount,
			"reservation %s not held (reserved %s)", reserved, a.reserved)
	}

	notional := qty.Mul(price)
	fee := notional.Mul(feeRate)
	cost := notional.Add(fee)

	newCurrent := a.current.Sub(cost)
	newAvailable := a.available.Add(reserved).Sub(cost)
	if newCurrent.IsNegative() || newAvailable.IsNegative() {
		return decimal.Zero, apperrors.NewLedgerError(a.id, "buy_fill", apperrors.ErrInsufficientFunds,
			"cost %s, available %s", cost, a.available.Add(reserved))
	}

	a.current = newCurrent
	a.available = newAvailable
	a.reserved = a.reserved.Sub(reserved)
	a.feesPaid = a.feesPaid.Add(fee)

	pos, ok := a.positions[symbol]
	if !ok {
		pos = newPosition(symbol)
		a.positions[symbol] = pos
	}
	pos.addLot(qty, price)
	return fee, nil
}

// ApplySellFill removes qty from the position and credits
// quantity*price*(1-feeRate) to both balances. The fee is returned.
func (a *Account) ApplySellFill(symbol string, qty, price, feeRate decimal.Decimal) (decimal.Decimal, error) {
	if err := checkFillArgs(a.id, "sell_fill", qty, price); err != nil {
		return decimal.Zero, err
	}
	pos, ok := a.positions[symbol]
	if !ok || qty.GreaterThan(pos.Quantity) {
		return decimal.Zero, apperrors.NewLedgerError(a.id, "sell_fill", apperrors.ErrInsufficientPosition,
			"sell %s %s, held %s", qty, symbol, a.PositionQuantity(symbol))
	}

	notional := qty.Mul(price)
	fee := notional.Mul(feeRate)
	proceeds := notional.Sub(fee)

	a.realizedPnL = a.realizedPnL.Add(pos.reduce(qty, price))
	a.current = a.current.Add(proceeds)
	a.available = a.available.Add(proceeds)
	a.feesPaid = a.feesPaid.Add(fee)

	if pos.Quantity.IsZero() {
		delete(a.positions, symbol)
	}
	return fee, nil
}

// mark sets the last price of symbol if held, reporting whether it was.
func (a *Account) mark(symbol string, price decimal.Decimal) bool {
	pos, ok := a.positions[symbol]
	if !ok {
		return false
	}
	pos.mark(price)
	return true
}

// Snapshot returns a copy of the account state with positions sorted by symbol.
func (a *Account) Snapshot() models.AccountInfo {
	positions := make([]models.Position, 0, len(a.positions))
	for _, p := range a.positions {
		positions = append(positions, p.View())
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})

	return models.AccountInfo{
		ID:               a.id,
		Name:             a.name,
		InitialBalance:   a.initialBalance,
		CurrentBalance:   a.current,
		AvailableBalance: a.available,
		Reserved:         a.reserved,
		FeesPaid:         a.feesPaid,
		RealizedPnL:      a.realizedPnL,
		Positions:        positions,
		CreatedAt:        a.createdAt,
	}
}

func checkFillArgs(accountID, op string, qty, price decimal.Decimal) error {
	if !qty.IsPositive() {
		return apperrors.NewLedgerError(accountID, op, apperrors.ErrInvalidQuantity, "quantity %s", qty)
	}
	if !price.IsPositive() {
		return apperrors.NewLedgerError(accountID, op, apperrors.ErrInvalidPrice, "price %s", price)
	}
	return nil
}
