// Package domain contains the task model and its lifecycle transitions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Status represents task lifecycle states.
type Status string

const (
	StatusOngoing  Status = "ongoing"
	StatusInReview Status = "in_review"
	StatusApproved Status = "approved"
)

// Task is a unit of billable work belonging to one project. Invariant:
// Completed is true iff Status is approved; only the transition functions in
// this package may change either field.
type Task struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	ProjectID      snowflake.ID `gorm:"not null;index" json:"projectId"`
	FreelancerID   snowflake.ID `gorm:"not null;index" json:"freelancerId"`
	CommissionerID snowflake.ID `gorm:"not null;index" json:"commissionerId"`
	Title          string       `gorm:"type:text;not null" json:"title"`

	// AgreedAmount is the milestone amount negotiated at project creation.
	// Zero on completion-method projects, where pricing is derived from the
	// project budget instead.
	AgreedAmount decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"agreedAmount"`

	Status        Status     `gorm:"type:text;not null;default:'ongoing'" json:"status"`
	Completed     bool       `gorm:"not null;default:false" json:"completed"`
	OrderIndex    int        `gorm:"not null" json:"orderIndex"`
	DueAt         *time.Time `gorm:"" json:"dueAt,omitempty"`
	Rejected      bool       `gorm:"not null;default:false" json:"rejected"`
	FeedbackCount int        `gorm:"not null;default:0" json:"feedbackCount"`
	LastFeedback  string     `gorm:"type:text" json:"lastFeedback,omitempty"`
	Version       int        `gorm:"not null;default:1" json:"version"`
	CreatedAt     time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (Task) TableName() string { return "tasks" }
