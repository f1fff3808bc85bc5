package domain

import "errors"

var (
	ErrInvoiceNotFound        = errors.New("invoice_not_found")
	ErrAlreadyPaid            = errors.New("invoice_already_paid")
	ErrInvoiceNotPayable      = errors.New("invoice_not_payable")
	ErrNotAuthorized          = errors.New("commissioner_not_authorized")
	ErrProjectMismatch        = errors.New("invoice_project_mismatch")
	ErrTasksIncomplete        = errors.New("tasks_not_all_approved")
	ErrMethodMismatch         = errors.New("invoicing_method_mismatch")
	ErrUpfrontAlreadyInvoiced = errors.New("upfront_already_invoiced")
	ErrTaskNotApproved        = errors.New("task_not_approved")
	ErrTaskAlreadyInvoiced    = errors.New("task_already_invoiced")
	ErrNothingToInvoice       = errors.New("nothing_to_invoice")
	ErrInvoicesOutstanding    = errors.New("unpaid_invoices_outstanding")
)
