package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Simulated is an in-process processor used in development and tests. It
// captures every well-formed charge and mints an opaque transaction id.
type Simulated struct{}

func NewSimulated() *Simulated {
	return &Simulated{}
}

func (s *Simulated) Provider() string {
	return "simulated"
}

func (s *Simulated) ProcessPayment(ctx context.Context, charge Charge) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, &Error{Provider: s.Provider(), Err: err}
	}
	if strings.TrimSpace(charge.InvoiceNumber) == "" {
		return Receipt{}, &Error{Provider: s.Provider(), Err: errors.New("missing invoice number")}
	}
	if strings.TrimSpace(charge.Currency) == "" {
		return Receipt{}, &Error{Provider: s.Provider(), Err: errors.New("missing currency")}
	}
	if charge.Amount.LessThanOrEqual(decimal.Zero) {
		return Receipt{}, &Error{Provider: s.Provider(), Err: errors.New("non-positive amount")}
	}

	return Receipt{
		ProcessorTransactionID: "sim_" + uuid.NewString(),
		Provider:               s.Provider(),
	}, nil
}
