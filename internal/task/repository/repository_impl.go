package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbase/paylane/internal/task/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Task, error) {
	var item domain.Task
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM tasks WHERE id = ? LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByProject(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]domain.Task, error) {
	var items []domain.Task
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM tasks WHERE project_id = ? ORDER BY order_index ASC`,
		projectID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) BatchInsert(ctx context.Context, db *gorm.DB, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(tasks).Error
}

func (r *repo) ApplyPatch(ctx context.Context, db *gorm.DB, id snowflake.ID, patch domain.Patch) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tasks
		 SET status = ?, completed = ?, rejected = ?, feedback_count = ?,
		     last_feedback = ?, version = ?, updated_at = ?
		 WHERE id = ?`,
		string(patch.Status),
		patch.Completed,
		patch.Rejected,
		patch.FeedbackCount,
		patch.LastFeedback,
		patch.Version,
		patch.UpdatedAt,
		id,
	).Error
}
