// Package eligibility holds the pure settlement gates. The service layer
// loads state, asks these functions, and maps a negative Decision straight to
// its sentinel error; the checks themselves never touch the database.
package eligibility

import (
	"github.com/bwmarrin/snowflake"

	invoicedomain "github.com/craftbase/paylane/internal/invoice/domain"
	projectdomain "github.com/craftbase/paylane/internal/project/domain"
	taskdomain "github.com/craftbase/paylane/internal/task/domain"
)

// Decision codes, stable identifiers returned to API clients.
const (
	CodeOK               = "ok"
	CodeInvoiceNotFound  = "invoice_not_found"
	CodeAlreadyPaid      = "already_paid"
	CodeNotAuthorized    = "not_authorized"
	CodeInvalidStatus    = "invalid_status"
	CodeProjectMismatch  = "project_mismatch"
	CodeTasksIncomplete  = "tasks_incomplete"
	CodeProjectCompleted = "project_completed"
)

// Decision is the outcome of one eligibility check. Err carries the sentinel
// the caller should return when OK is false.
type Decision struct {
	OK     bool
	Code   string
	Reason string
	Err    error
}

func allowed() Decision {
	return Decision{OK: true, Code: CodeOK}
}

func denied(code, reason string, err error) Decision {
	return Decision{Code: code, Reason: reason, Err: err}
}

// CanTriggerPayment gates the transition of an invoice into processing.
// Checks run in a fixed order so that callers always see the most fundamental
// failure first: existence, then terminal state, then invoice status, then
// cross-entity consistency, then protocol-specific gates.
func CanTriggerPayment(inv *invoicedomain.Invoice, project *projectdomain.Project, tasks []taskdomain.Task) Decision {
	if inv == nil {
		return denied(CodeInvoiceNotFound, "invoice does not exist", invoicedomain.ErrInvoiceNotFound)
	}
	if project == nil {
		return denied(CodeProjectMismatch, "invoice references an unknown project", invoicedomain.ErrProjectMismatch)
	}
	if inv.Status == invoicedomain.StatusPaid {
		return denied(CodeAlreadyPaid, "invoice is already paid", invoicedomain.ErrAlreadyPaid)
	}
	if inv.Status != invoicedomain.StatusSent {
		return denied(CodeInvalidStatus, "only a sent invoice can be triggered", invoicedomain.ErrInvoiceNotPayable)
	}
	if inv.ProjectID != project.ID {
		return denied(CodeProjectMismatch, "invoice does not belong to the project", invoicedomain.ErrProjectMismatch)
	}
	// The final payment of a completion-method project closes it out, so it
	// is gated on every task being approved. Milestone invoices settle one
	// task each and do not look at the rest of the board.
	if inv.IsFinal() {
		for i := range tasks {
			if tasks[i].Status != taskdomain.StatusApproved {
				return denied(CodeTasksIncomplete, "final payment requires every task approved", invoicedomain.ErrTasksIncomplete)
			}
		}
	}
	return allowed()
}

// CanExecutePayment gates the actual charge. Authorization is checked before
// state so that a stranger probing invoice numbers learns nothing about their
// status.
func CanExecutePayment(inv *invoicedomain.Invoice, commissionerID snowflake.ID, opts invoicedomain.ExecuteOptions) Decision {
	if inv == nil {
		return denied(CodeInvoiceNotFound, "invoice does not exist", invoicedomain.ErrInvoiceNotFound)
	}
	if inv.CommissionerID != commissionerID {
		return denied(CodeNotAuthorized, "only the commissioner of record may pay", invoicedomain.ErrNotAuthorized)
	}
	if inv.Status == invoicedomain.StatusPaid {
		return denied(CodeAlreadyPaid, "invoice is already paid", invoicedomain.ErrAlreadyPaid)
	}
	if inv.Status == invoicedomain.StatusProcessing {
		return allowed()
	}
	if opts.AllowSent && inv.Status == invoicedomain.StatusSent {
		return allowed()
	}
	return denied(CodeInvalidStatus, "invoice is not in a payable state", invoicedomain.ErrInvoiceNotPayable)
}
