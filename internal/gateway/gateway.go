// Package gateway defines the abstract payment-processing capability the
// settlement engine invokes. The engine assumes no specific provider: it calls
// the processor once per execute attempt and treats any error as retryable.
package gateway

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Charge is one payment instruction for one invoice.
type Charge struct {
	InvoiceNumber  string
	ProjectID      string
	CommissionerID string
	FreelancerID   string
	Amount         decimal.Decimal
	Currency       string
}

// Receipt is the processor's acknowledgement of a captured charge.
type Receipt struct {
	ProcessorTransactionID string
	Provider               string
}

// Error wraps a failed processor call. The invoice stays in processing and the
// caller may retry.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("payment gateway %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Processor is the consumed payment capability.
type Processor interface {
	Provider() string
	ProcessPayment(ctx context.Context, charge Charge) (Receipt, error)
}
