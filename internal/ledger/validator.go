package ledger

import (
	stderrors "errors"

	apperrors "papertrader/internal/errors"
)

// Validate checks the account invariants:
//
//	available == current - reserved
//	current >= 0, available >= 0, reserved >= 0
//	every held position has quantity > 0
//
// The caller holds the account lock.
func (a *Account) Validate() error {
	if !a.available.Equal(a.current.Sub(a.reserved)) {
		return apperrors.NewLedgerError(a.id, "validate", apperrors.ErrInvariantViolation,
			"available %s != current %s - reserved %s", a.available, a.current, a.reserved)
	}
	if a.current.IsNegative() {
		return apperrors.NewLedgerError(a.id, "validate", apperrors.ErrInvariantViolation,
			"current balance %s is negative", a.current)
	}
	if a.available.IsNegative() {
		return apperrors.NewLedgerError(a.id, "validate", apperrors.ErrInvariantViolation,
			"available balance %s is negative", a.available)
	}
	if a.reserved.IsNegative() {
		return apperrors.NewLedgerError(a.id, "validate", apperrors.ErrInvariantViolation,
			"reserved %s is negative", a.reserved)
	}
	for symbol, p := range a.positions {
		if !p.Quantity.IsPositive() {
			return apperrors.NewLedgerError(a.id, "validate", apperrors.ErrInvariantViolation,
				"position %s has quantity %s", symbol, p.Quantity)
		}
	}
	return nil
}

// Validate checks every account and joins all violations found.
func (l *Ledger) Validate() error {
	var errs []error
	for _, acct := range l.all() {
		acct.mu.Lock()
		if err := acct.Validate(); err != nil {
			errs = append(errs, err)
		}
		acct.mu.Unlock()
	}
	return stderrors.Join(errs...)
}
