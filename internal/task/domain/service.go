package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service exposes the persisted task lifecycle.
type Service interface {
	Submit(ctx context.Context, taskID, actorID snowflake.ID) (*Task, error)
	Approve(ctx context.Context, taskID, actorID snowflake.ID) (*Task, error)
	Reject(ctx context.Context, taskID, actorID snowflake.ID, reason string) (*Task, error)
	GetByID(ctx context.Context, taskID snowflake.ID) (*Task, error)
	ListByProject(ctx context.Context, projectID snowflake.ID) ([]Task, error)
}

// Repository persists tasks. Methods take the db handle so services can pass
// a transaction.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Task, error)
	FindByProject(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]Task, error)
	BatchInsert(ctx context.Context, db *gorm.DB, tasks []*Task) error
	ApplyPatch(ctx context.Context, db *gorm.DB, id snowflake.ID, patch Patch) error
}
