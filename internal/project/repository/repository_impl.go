package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbase/paylane/internal/project/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Project, error) {
	var item domain.Project
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM projects WHERE id = ? LIMIT 1`,
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

func (r *repo) Insert(ctx context.Context, db *gorm.DB, project *domain.Project) error {
	return db.WithContext(ctx).Create(project).Error
}

func (r *repo) FindRecentDuplicate(ctx context.Context, db *gorm.DB, commissionerID snowflake.ID, title string, since time.Time) (*domain.Project, error) {
	var item domain.Project
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM projects
		 WHERE commissioner_id = ? AND title = ? AND created_at >= ?
		 ORDER BY created_at DESC
		 LIMIT 1`,
		commissionerID,
		title,
		since,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	return db.WithContext(ctx).Model(&domain.Project{}).Where("id = ?", id).Updates(fields).Error
}
