package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound        = errors.New("project_not_found")
	ErrInvalidInvoicingMethod = errors.New("invalid_invoicing_method")
	ErrInvalidBudget          = errors.New("invalid_budget")
	ErrInvalidCurrency        = errors.New("invalid_currency")
	ErrInvalidParties         = errors.New("invalid_parties")
	ErrInvalidTitle           = errors.New("invalid_title")
	ErrMissingMilestones      = errors.New("missing_milestones")
)

// MilestoneSpec is one pre-agreed unit of work supplied at project creation.
// Amount carries the fixed milestone payment for milestone-method projects and
// is ignored for completion-method projects.
type MilestoneSpec struct {
	Title  string          `json:"title"`
	Amount decimal.Decimal `json:"amount"`
	DueAt  *time.Time      `json:"dueAt,omitempty"`
}

type CreateProjectRequest struct {
	CommissionerID  snowflake.ID    `json:"commissionerId"`
	FreelancerID    snowflake.ID    `json:"freelancerId"`
	Title           string          `json:"title"`
	InvoicingMethod InvoicingMethod `json:"invoicingMethod"`
	Currency        string          `json:"currency"`
	TotalBudget     decimal.Decimal `json:"totalBudget"`
	Milestones      []MilestoneSpec `json:"milestones"`
}

// Service activates and reads projects.
type Service interface {
	Create(ctx context.Context, req CreateProjectRequest) (*Project, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Project, error)
}

// Repository persists projects.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Project, error)
	Insert(ctx context.Context, db *gorm.DB, project *Project) error
	FindRecentDuplicate(ctx context.Context, db *gorm.DB, commissionerID snowflake.ID, title string, since time.Time) (*Project, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
}
