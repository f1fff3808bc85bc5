// Package pricing computes invoice amounts for the two billing protocols.
// Every function is pure, and every intermediate amount is rounded to two
// decimal places before it is used again: downstream ledgers compare amounts
// bit-for-bit, so rounding once and reusing an unrounded value would drift.
package pricing

import (
	"github.com/shopspring/decimal"

	invoicedomain "github.com/craftbase/paylane/internal/invoice/domain"
)

// Rates carries the fee and split percentages, expressed as fractions.
type Rates struct {
	UpfrontShare      decimal.Decimal
	MilestoneFeeRate  decimal.Decimal
	CompletionFeeRate decimal.Decimal
}

// UpfrontAmount is the completion-method payment due at project activation.
func UpfrontAmount(totalBudget, upfrontShare decimal.Decimal) decimal.Decimal {
	return totalBudget.Mul(upfrontShare).Round(2)
}

// RemainingBudget is the part of a completion-method budget distributed across
// task completions and the final payment.
func RemainingBudget(totalBudget, upfrontShare decimal.Decimal) decimal.Decimal {
	return totalBudget.Sub(UpfrontAmount(totalBudget, upfrontShare)).Round(2)
}

// PerTaskAmount is the manual invoice amount for one approved task on a
// completion-method project.
func PerTaskAmount(remainingBudget decimal.Decimal, totalTasks int) decimal.Decimal {
	if totalTasks <= 0 {
		return decimal.Zero
	}
	return remainingBudget.Div(decimal.NewFromInt(int64(totalTasks))).Round(2)
}

// FinalAmount is the completion-method remainder, computed from the invoices
// actually paid rather than a fixed formula so that it stays correct under
// task-count changes or partial manual invoicing. A non-positive result means
// nothing is owed.
func FinalAmount(totalBudget decimal.Decimal, paidAmounts []decimal.Decimal) decimal.Decimal {
	paid := decimal.Zero
	for _, amount := range paidAmounts {
		paid = paid.Add(amount)
	}
	return totalBudget.Sub(paid).Round(2)
}

// PlatformFee returns the marketplace cut for an invoice of the given type.
func PlatformFee(amount decimal.Decimal, invoiceType invoicedomain.Type, rates Rates) decimal.Decimal {
	rate := rates.CompletionFeeRate
	if invoiceType == invoicedomain.TypeMilestone {
		rate = rates.MilestoneFeeRate
	}
	return amount.Mul(rate).Round(2)
}

// NetAmount is what the freelancer receives after the platform fee.
func NetAmount(amount decimal.Decimal, invoiceType invoicedomain.Type, rates Rates) decimal.Decimal {
	return amount.Sub(PlatformFee(amount, invoiceType, rates)).Round(2)
}
