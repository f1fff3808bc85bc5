package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invoicedomain "github.com/craftbase/paylane/internal/invoice/domain"
	"github.com/craftbase/paylane/internal/invoice/pricing"
)

func rates() pricing.Rates {
	return pricing.Rates{
		UpfrontShare:      decimal.NewFromFloat(0.12),
		MilestoneFeeRate:  decimal.NewFromFloat(0.052666),
		CompletionFeeRate: decimal.NewFromFloat(0.05),
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestUpfrontSplit(t *testing.T) {
	r := rates()
	budget := dec("4000")

	upfront := pricing.UpfrontAmount(budget, r.UpfrontShare)
	remaining := pricing.RemainingBudget(budget, r.UpfrontShare)

	assert.True(t, upfront.Equal(dec("480")), "upfront = %s", upfront)
	assert.True(t, remaining.Equal(dec("3520")), "remaining = %s", remaining)
}

func TestUpfrontRoundsBeforeRemainder(t *testing.T) {
	r := rates()
	budget := dec("1000.05")

	upfront := pricing.UpfrontAmount(budget, r.UpfrontShare)
	remaining := pricing.RemainingBudget(budget, r.UpfrontShare)

	require.True(t, upfront.Equal(dec("120.01")), "upfront = %s", upfront)
	assert.True(t, upfront.Add(remaining).Equal(budget))
}

func TestPerTaskAmount(t *testing.T) {
	amount := pricing.PerTaskAmount(dec("3520"), 4)
	assert.True(t, amount.Equal(dec("880")), "per-task = %s", amount)

	uneven := pricing.PerTaskAmount(dec("100"), 3)
	assert.True(t, uneven.Equal(dec("33.33")), "per-task = %s", uneven)

	assert.True(t, pricing.PerTaskAmount(dec("100"), 0).IsZero())
}

func TestFinalAmount(t *testing.T) {
	final := pricing.FinalAmount(dec("5000"), []decimal.Decimal{dec("600"), dec("900")})
	assert.True(t, final.Equal(dec("3500")), "final = %s", final)
}

func TestFinalAmountOverpaidGoesNonPositive(t *testing.T) {
	final := pricing.FinalAmount(dec("1000"), []decimal.Decimal{dec("600"), dec("500")})
	assert.True(t, final.LessThanOrEqual(decimal.Zero))
}

func TestPlatformFeeByType(t *testing.T) {
	r := rates()

	fee := pricing.PlatformFee(dec("1000"), invoicedomain.TypeMilestone, r)
	assert.True(t, fee.Equal(dec("52.67")), "milestone fee = %s", fee)

	fee = pricing.PlatformFee(dec("1000"), invoicedomain.TypeCompletionManual, r)
	assert.True(t, fee.Equal(dec("50")), "completion fee = %s", fee)
}

func TestNetAmount(t *testing.T) {
	r := rates()

	net := pricing.NetAmount(dec("1000"), invoicedomain.TypeMilestone, r)
	assert.True(t, net.Equal(dec("947.33")), "milestone net = %s", net)

	net = pricing.NetAmount(dec("480"), invoicedomain.TypeCompletionUpfront, r)
	assert.True(t, net.Equal(dec("456")), "upfront net = %s", net)
}
