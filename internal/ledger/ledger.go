// Package ledger implements the account ledger: cash balances, fund
// reservations and per-symbol positions for paper trading accounts.
package ledger

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "papertrader/internal/errors"
	"papertrader/internal/models"
)

// Ledger owns every account. The map is guarded by mu; each account's
// state is guarded by its own lock.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	now      func() time.Time
}

// NewLedger creates an empty ledger. A nil clock defaults to time.Now.
func NewLedger(clock func() time.Time) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	return &Ledger{
		accounts: make(map[string]*Account),
		now:      clock,
	}
}

// CreateAccount seeds a new account with initialBalance and returns its ID.
func (l *Ledger) CreateAccount(name string, initialBalance decimal.Decimal) (string, error) {
	if !initialBalance.IsPositive() {
		return "", apperrors.NewValidationError("initial_balance", initialBalance, "must be greater than zero")
	}
	name = strings.TrimSpace(name)

	id := uuid.NewString()
	acct := newAccount(id, name, initialBalance, l.now())

	l.mu.Lock()
	l.accounts[id] = acct
	l.mu.Unlock()
	return id, nil
}

func (l *Ledger) lookup(accountID string) (*Account, error) {
	l.mu.RLock()
	acct, ok := l.accounts[accountID]
	l.mu.RUnlock()
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrAccountNotFound, "account %s", accountID)
	}
	return acct, nil
}

// WithAccount runs fn while holding the account lock. fn must not call back
// into the ledger for the same account.
func (l *Ledger) WithAccount(accountID string, fn func(*Account) error) error {
	acct, err := l.lookup(accountID)
	if err != nil {
		return err
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	return fn(acct)
}

// ReserveFunds decrements available balance by amount.
func (l *Ledger) ReserveFunds(accountID string, amount decimal.Decimal) error {
	return l.WithAccount(accountID, func(a *Account) error {
		return a.Reserve(amount)
	})
}

// ReleaseReservation returns amount to available balance.
func (l *Ledger) ReleaseReservation(accountID string, amount decimal.Decimal) error {
	return l.WithAccount(accountID, func(a *Account) error {
		return a.Release(amount)
	})
}

// ApplyBuyFill debits the cost of a buy and updates the position.
func (l *Ledger) ApplyBuyFill(accountID, symbol string, qty, price, feeRate, reserved decimal.Decimal) (decimal.Decimal, error) {
	var fee decimal.Decimal
	err := l.WithAccount(accountID, func(a *Account) error {
		var err error
		fee, err = a.ApplyBuyFill(symbol, qty, price, feeRate, reserved)
		return err
	})
	return fee, err
}

// ApplySellFill credits sale proceeds and reduces the position.
func (l *Ledger) ApplySellFill(accountID, symbol string, qty, price, feeRate decimal.Decimal) (decimal.Decimal, error) {
	var fee decimal.Decimal
	err := l.WithAccount(accountID, func(a *Account) error {
		var err error
		fee, err = a.ApplySellFill(symbol, qty, price, feeRate)
		return err
	})
	return fee, err
}

// MarkToMarket sets the last price of symbol on every account holding it
// and returns how many accounts were marked. Cash is not touched.
func (l *Ledger) MarkToMarket(symbol string, price decimal.Decimal) int {
	marked := 0
	for _, acct := range l.all() {
		acct.mu.Lock()
		if acct.mark(symbol, price) {
			marked++
		}
		acct.mu.Unlock()
	}
	return marked
}

// Snapshot returns a consistent copy of one account.
func (l *Ledger) Snapshot(accountID string) (*models.AccountInfo, error) {
	var info models.AccountInfo
	err := l.WithAccount(accountID, func(a *Account) error {
		info = a.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (l *Ledger) all() []*Account {
	l.mu.RLock()
	accts := make([]*Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		accts = append(accts, a)
	}
	l.mu.RUnlock()

	sort.Slice(accts, func(i, j int) bool {
		if accts[i].createdAt.Equal(accts[j].createdAt) {
			return accts[i].id < accts[j].id
		}
		return accts[i].createdAt.Before(accts[j].createdAt)
	})
	return accts
}
