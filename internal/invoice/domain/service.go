package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/craftbase/paylane/pkg/db/pagination"
)

// ExecuteOptions tunes the execute gate. AllowSent opens the non-strict path
// that accepts a sent invoice without a prior trigger.
type ExecuteOptions struct {
	AllowSent bool
}

// PaymentDetails is the metadata attached when an invoice reaches paid.
type PaymentDetails struct {
	ProcessorTransactionID string
	Provider               string
	PlatformFee            decimal.Decimal
	NetAmount              decimal.Decimal
	PaidAt                 time.Time
}

// EligibilityTask is the per-task view the UI uses to decide which actions to
// offer.
type EligibilityTask struct {
	TaskID        snowflake.ID `json:"taskId"`
	Title         string       `json:"title"`
	Status        string       `json:"status"`
	Approved      bool         `json:"approved"`
	Invoiceable   bool         `json:"invoiceable"`
	InvoiceNumber string       `json:"invoiceNumber,omitempty"`
}

// BudgetBreakdown summarizes the money position of a project.
type BudgetBreakdown struct {
	TotalBudget     decimal.Decimal `json:"totalBudget"`
	UpfrontAmount   decimal.Decimal `json:"upfrontAmount"`
	RemainingBudget decimal.Decimal `json:"remainingBudget"`
	PaidToDate      decimal.Decimal `json:"paidToDate"`
}

// EligibilityReport is the read-only answer to "what can be invoiced now".
type EligibilityReport struct {
	ProjectID       snowflake.ID      `json:"projectId"`
	InvoicingMethod string            `json:"invoicingMethod"`
	ApprovedTasks   int               `json:"approvedTasks"`
	TotalTasks      int               `json:"totalTasks"`
	PerTaskAmount   decimal.Decimal   `json:"perTaskAmount"`
	Budget          BudgetBreakdown   `json:"budget"`
	Tasks           []EligibilityTask `json:"tasks"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	ProjectID *snowflake.ID
	Status    Status
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []*Invoice `json:"invoices"`
}

// ListCursor is the typed keyset position decoded from a page token.
type ListCursor struct {
	CreatedAt time.Time
	ID        snowflake.ID
}

// Service is the settlement engine surface.
type Service interface {
	// Settlement.
	Trigger(ctx context.Context, invoiceNumber string) (*Invoice, error)
	Execute(ctx context.Context, invoiceNumber string, commissionerID snowflake.ID, opts ExecuteOptions) (*Invoice, error)
	Eligibility(ctx context.Context, projectID snowflake.ID) (*EligibilityReport, error)

	// Invoice generation.
	CreateUpfrontInvoice(ctx context.Context, projectID snowflake.ID) (*Invoice, error)
	CreateMilestoneInvoice(ctx context.Context, projectID, taskID snowflake.ID) (*Invoice, error)
	CreateManualInvoice(ctx context.Context, projectID, taskID snowflake.ID) (*Invoice, error)
	CreateFinalInvoice(ctx context.Context, projectID snowflake.ID) (*Invoice, error)

	// Reads.
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)
	Transactions(ctx context.Context, invoiceNumber string) ([]TransactionRecord, error)
}

// Repository persists invoices.
type Repository interface {
	FindByNumber(ctx context.Context, db *gorm.DB, invoiceNumber string) (*Invoice, error)
	FindByProject(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]Invoice, error)
	FindPaidByProject(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]Invoice, error)
	FindByProjectAndType(ctx context.Context, db *gorm.DB, projectID snowflake.ID, invoiceType Type) (*Invoice, error)
	FindByTask(ctx context.Context, db *gorm.DB, taskID snowflake.ID) (*Invoice, error)
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	MarkProcessing(ctx context.Context, db *gorm.DB, invoiceNumber string) error
	MarkPaid(ctx context.Context, db *gorm.DB, invoiceNumber string, details PaymentDetails) error
	CountUnpaidByProject(ctx context.Context, db *gorm.DB, projectID snowflake.ID) (int64, error)
	List(ctx context.Context, db *gorm.DB, req ListInvoiceRequest, limit int, after *ListCursor) ([]*Invoice, error)
}

// TransactionRepository persists the append-only settlement audit trail.
type TransactionRepository interface {
	Upsert(ctx context.Context, db *gorm.DB, record *TransactionRecord) (bool, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, transactionID string, status Status, at time.Time) error
	FindByInvoice(ctx context.Context, db *gorm.DB, invoiceNumber string) ([]TransactionRecord, error)
}
