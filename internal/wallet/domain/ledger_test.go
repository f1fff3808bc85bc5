package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftbase/paylane/internal/wallet/domain"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCredit(t *testing.T) {
	w := domain.Wallet{Version: 1}

	updated, err := domain.Credit(w, dec("456"), "USD", now)
	require.NoError(t, err)

	assert.True(t, updated.Balance.Equal(dec("456")))
	assert.True(t, updated.LifetimeEarnings.Equal(dec("456")))
	assert.Equal(t, "USD", updated.Currency)
	assert.Equal(t, 2, updated.Version)
	assert.True(t, w.Balance.IsZero(), "input wallet must not be mutated")

	again, err := domain.Credit(updated, dec("44"), "USD", now)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(dec("500")))
	assert.True(t, again.LifetimeEarnings.Equal(dec("500")))
}

func TestCreditRejectsNonPositive(t *testing.T) {
	w := domain.Wallet{Currency: "USD"}

	_, err := domain.Credit(w, decimal.Zero, "USD", now)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = domain.Credit(w, dec("-5"), "USD", now)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCreditRequiresCurrency(t *testing.T) {
	_, err := domain.Credit(domain.Wallet{}, dec("10"), "", now)
	assert.ErrorIs(t, err, domain.ErrMissingCurrency)
}

func TestCreditCurrencyMismatch(t *testing.T) {
	w := domain.Wallet{Currency: "USD"}
	_, err := domain.Credit(w, dec("10"), "EUR", now)
	assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)
}

func TestHoldFinalizeRoundTrip(t *testing.T) {
	w := domain.Wallet{Currency: "USD", Balance: dec("500"), LifetimeEarnings: dec("500"), Version: 1}

	held, err := domain.Hold(w, dec("200"), now)
	require.NoError(t, err)
	assert.True(t, held.Balance.Equal(dec("300")))
	assert.True(t, held.PendingWithdrawal.Equal(dec("200")))
	assert.True(t, held.TotalWithdrawn.IsZero())

	done, err := domain.Finalize(held, dec("200"), now)
	require.NoError(t, err)
	assert.True(t, done.Balance.Equal(dec("300")), "finalize must not touch the available balance again")
	assert.True(t, done.PendingWithdrawal.IsZero())
	assert.True(t, done.TotalWithdrawn.Equal(dec("200")))
	assert.True(t, done.LifetimeEarnings.Equal(dec("500")), "withdrawals never reduce lifetime earnings")
	assert.Equal(t, 3, done.Version)
}

func TestHoldInsufficientFunds(t *testing.T) {
	w := domain.Wallet{Currency: "USD", Balance: dec("100")}

	_, err := domain.Hold(w, dec("100.01"), now)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	held, err := domain.Hold(w, dec("100"), now)
	require.NoError(t, err)
	assert.True(t, held.Balance.IsZero())
}

func TestFinalizeInsufficientPending(t *testing.T) {
	w := domain.Wallet{Currency: "USD", PendingWithdrawal: dec("50")}

	_, err := domain.Finalize(w, dec("50.01"), now)
	assert.ErrorIs(t, err, domain.ErrInsufficientPending)
}

func TestBalancesNeverNegative(t *testing.T) {
	w := domain.Wallet{Currency: "USD", Balance: dec("10"), PendingWithdrawal: dec("5")}

	if out, err := domain.Hold(w, dec("10"), now); assert.NoError(t, err) {
		assert.False(t, out.Balance.IsNegative())
		assert.False(t, out.PendingWithdrawal.IsNegative())
	}
	if out, err := domain.Finalize(w, dec("5"), now); assert.NoError(t, err) {
		assert.False(t, out.Balance.IsNegative())
		assert.False(t, out.PendingWithdrawal.IsNegative())
	}
}
