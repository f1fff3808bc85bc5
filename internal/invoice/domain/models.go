// Package domain contains persistence models for invoicing and settlement.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Status represents invoice lifecycle states. Transitions are monotonic:
// draft → sent → processing → paid, with failed as the only terminal branch.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusSent       Status = "sent"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	StatusFailed     Status = "failed"
)

// Type discriminates the billing protocol an invoice belongs to.
type Type string

const (
	TypeMilestone         Type = "milestone"
	TypeCompletionUpfront Type = "completion_upfront"
	TypeCompletionManual  Type = "completion_manual"
	TypeCompletionFinal   Type = "completion_final"
)

// FinalMilestoneNumber is the reserved marker for a completion-method final
// payment. Regular milestones count from 1.
const FinalMilestoneNumber = 999

// Invoice is a billing instrument for one payment event on one project.
type Invoice struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceNumber   string          `gorm:"type:text;not null;uniqueIndex:ux_invoices_number" json:"invoiceNumber"`
	ProjectID       snowflake.ID    `gorm:"not null;index" json:"projectId"`
	TaskID          *snowflake.ID   `gorm:"index" json:"taskId,omitempty"`
	FreelancerID    snowflake.ID    `gorm:"not null;index" json:"freelancerId"`
	CommissionerID  snowflake.ID    `gorm:"not null;index" json:"commissionerId"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"totalAmount"`
	Currency        string          `gorm:"type:text;not null" json:"currency"`
	Status          Status          `gorm:"type:text;not null;default:'draft'" json:"status"`
	Type            Type            `gorm:"type:text;not null" json:"invoiceType"`
	MilestoneNumber int             `gorm:"not null" json:"milestoneNumber"`
	PaidAt          *time.Time      `gorm:"" json:"paidDate,omitempty"`

	// Payment metadata, set when the invoice reaches paid.
	ProcessorTransactionID string          `gorm:"type:text" json:"processorTransactionId,omitempty"`
	Provider               string          `gorm:"type:text" json:"provider,omitempty"`
	PlatformFee            decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"platformFee"`
	NetAmount              decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"netAmount"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// IsFinal reports whether the invoice is a completion-method final payment.
func (i Invoice) IsFinal() bool {
	return i.Type == TypeCompletionFinal || i.MilestoneNumber == FinalMilestoneNumber
}

// TransactionRecord is the immutable audit entry for one settlement. The id is
// derived from the invoice number, so reprocessing the same invoice upserts
// rather than duplicates.
type TransactionRecord struct {
	TransactionID  string          `gorm:"type:text;primaryKey" json:"transactionId"`
	InvoiceNumber  string          `gorm:"type:text;not null;index" json:"invoiceNumber"`
	ProjectID      snowflake.ID    `gorm:"not null;index" json:"projectId"`
	FreelancerID   snowflake.ID    `gorm:"not null" json:"freelancerId"`
	CommissionerID snowflake.ID    `gorm:"not null" json:"commissionerId"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status         Status          `gorm:"type:text;not null" json:"status"`
	CreatedAt      time.Time       `gorm:"not null" json:"timestamp"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (TransactionRecord) TableName() string { return "transaction_records" }

// DeriveTransactionID builds the deterministic transaction id for an invoice.
func DeriveTransactionID(invoiceNumber string) string {
	return "txn-" + invoiceNumber
}
