// Package domain contains the project model shared by invoicing and task flows.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Status represents project lifecycle states.
type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// InvoicingMethod selects the billing protocol. It is set at creation time,
// immutable thereafter, and is the sole authority for settlement behavior.
type InvoicingMethod string

const (
	InvoicingMilestone  InvoicingMethod = "milestone"
	InvoicingCompletion InvoicingMethod = "completion"
)

func (m InvoicingMethod) Valid() bool {
	return m == InvoicingMilestone || m == InvoicingCompletion
}

// Project is a unit of commissioned work between one commissioner and one
// freelancer. For completion-method projects PaidToDate never exceeds
// TotalBudget; the project transitions to completed only after its final
// invoice is paid.
type Project struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	CommissionerID  snowflake.ID    `gorm:"not null;index" json:"commissionerId"`
	FreelancerID    snowflake.ID    `gorm:"not null;index" json:"freelancerId"`
	Title           string          `gorm:"type:text;not null" json:"title"`
	Status          Status          `gorm:"type:text;not null;default:'ongoing'" json:"status"`
	InvoicingMethod InvoicingMethod `gorm:"type:text;not null" json:"invoicingMethod"`
	Currency        string          `gorm:"type:text;not null" json:"currency"`
	TotalBudget     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"totalBudget"`
	PaidToDate      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"paidToDate"`
	UpfrontPaid     bool            `gorm:"not null;default:false" json:"upfrontPaid"`
	TaskCount       int             `gorm:"not null" json:"taskCount"`
	CreatedAt       time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "projects" }
