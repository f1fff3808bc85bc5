package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound      = errors.New("wallet_not_found")
	ErrInvalidAmount       = errors.New("amount_must_be_positive")
	ErrMissingCurrency     = errors.New("currency_required")
	ErrCurrencyMismatch    = errors.New("currency_mismatch")
	ErrInsufficientFunds   = errors.New("insufficient_available_balance")
	ErrInsufficientPending = errors.New("insufficient_pending_withdrawal")
)

// Credit adds settled funds to the available balance and returns the updated
// wallet value. The input is not mutated.
func Credit(w Wallet, amount decimal.Decimal, currency string, now time.Time) (Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return w, ErrInvalidAmount
	}
	if currency == "" {
		return w, ErrMissingCurrency
	}
	if w.Currency != "" && w.Currency != currency {
		return w, ErrCurrencyMismatch
	}
	w.Currency = currency
	w.Balance = w.Balance.Add(amount)
	w.LifetimeEarnings = w.LifetimeEarnings.Add(amount)
	w.Version++
	w.UpdatedAt = now
	return w, nil
}

// Hold moves funds from the available balance into pending withdrawal. The
// total held never exceeds what the wallet actually holds.
func Hold(w Wallet, amount decimal.Decimal, now time.Time) (Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return w, ErrInvalidAmount
	}
	if w.Balance.LessThan(amount) {
		return w, ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(amount)
	w.PendingWithdrawal = w.PendingWithdrawal.Add(amount)
	w.Version++
	w.UpdatedAt = now
	return w, nil
}

// Finalize moves completed-withdrawal funds from pending into the lifetime
// withdrawn total. It releases at most what Hold previously set aside; the
// available balance was already decremented at hold time and does not change
// again here.
func Finalize(w Wallet, amount decimal.Decimal, now time.Time) (Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return w, ErrInvalidAmount
	}
	if w.PendingWithdrawal.LessThan(amount) {
		return w, ErrInsufficientPending
	}
	w.PendingWithdrawal = w.PendingWithdrawal.Sub(amount)
	w.TotalWithdrawn = w.TotalWithdrawn.Add(amount)
	w.Version++
	w.UpdatedAt = now
	return w, nil
}
